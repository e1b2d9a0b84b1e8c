package plugin

type paramKind int

// The continuous controls with a dedicated port. Their order here matches
// the port numbering (PortLevel + kind).
const (
	paramLevel paramKind = iota
	paramCutoff
	paramResonance
	paramAttack
	paramDecay
	paramSustain
	paramRelease
	numParams
)

// Engine CC numbers for the dedicated sound parameters. These are plain MIDI
// controller numbers, so the generic CC path of the event dispatcher may
// legally write to the same controls; last write within a block wins.
const (
	ccCutoff    = 21
	ccResonance = 22
	ccAttack    = 23
	ccDecay     = 24
	ccSustain   = 25
	ccRelease   = 26
)

type paramDef struct {
	port PortIndex
	// control is the engine CC the port value is scaled onto, or -1 for the
	// master gain, which takes the port value unscaled.
	control int
	// def is the value the cache resets to on a program change: cutoff fully
	// open, everything else at zero.
	def float32
}

var paramDefs = [numParams]paramDef{
	paramLevel:     {port: PortLevel, control: -1, def: 1.0},
	paramCutoff:    {port: PortCutoff, control: ccCutoff, def: 1.0},
	paramResonance: {port: PortResonance, control: ccResonance, def: 0},
	paramAttack:    {port: PortAttack, control: ccAttack, def: 0},
	paramDecay:     {port: PortDecay, control: ccDecay, def: 0},
	paramSustain:   {port: PortSustain, control: ccSustain, def: 0},
	paramRelease:   {port: PortRelease, control: ccRelease, def: 0},
}

// paramEntry is the last value applied to the engine for one control, used
// for change detection across blocks. Comparison is bit-exact float
// inequality; there is no debouncing.
type paramEntry struct {
	last        float32
	initialized bool
}

// updateParams diffs every connected control port against the cache and
// issues at most one engine update per changed control. The very first block
// only snapshots the port values, suppressing a spurious update.
func (in *Instance) updateParams() {
	if in.justChanged {
		// the program change reset already put both the cache and the engine
		// to the post-reset defaults for this block
		return
	}
	for k := range in.params {
		port := in.controls[k]
		if port == nil {
			continue
		}
		value := *port
		entry := &in.params[k]
		if !entry.initialized {
			entry.last = value
			entry.initialized = true
			continue
		}
		if value == entry.last {
			continue
		}
		in.applyParam(paramKind(k), value)
		entry.last = value
	}
}

// resetParams sets every cache entry to its defined default and issues the
// matching engine updates, so a preset change always starts from a known
// parameter baseline regardless of the current control-surface positions.
func (in *Instance) resetParams() {
	for k := range in.params {
		def := paramDefs[k].def
		in.params[k] = paramEntry{last: def, initialized: true}
		in.applyParam(paramKind(k), def)
	}
}

// applyParam maps a [0.0, 1.0] normalized port value onto the engine's
// native domain for the parameter: unscaled master gain for level, a linear
// 0..127 integer control for everything else.
func (in *Instance) applyParam(k paramKind, value float32) {
	if d := &paramDefs[k]; d.control < 0 {
		in.synth.SetGain(value)
	} else {
		in.synth.ControlChange(0, d.control, ccValue(value))
	}
}

func ccValue(value float32) int {
	v := int(value * 127)
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}
