package engine

import "math"

type waveform int

const (
	waveSaw waveform = iota
	waveSquare
	waveTriangle
)

type envStage int

const (
	envAttack envStage = iota
	envDecay
	envSustain
	envRelease
	envOff
)

// envelope is a per-voice ADSR. Attack rises linearly, decay and release
// fall exponentially. The rates are fixed at note-on from the channel's
// envelope CCs.
type envelope struct {
	stage   envStage
	level   float32
	attack  float32 // level increment per sample
	decay   float32 // multiplicative fall per sample
	sustain float32
	release float32 // multiplicative fall per sample
}

const envFloor = 1e-4

func (e *envelope) next() float32 {
	switch e.stage {
	case envAttack:
		e.level += e.attack
		if e.level >= 1 {
			e.level = 1
			e.stage = envDecay
		}
	case envDecay:
		e.level *= e.decay
		if e.level <= e.sustain+envFloor {
			e.level = e.sustain
			e.stage = envSustain
			if e.level <= envFloor {
				e.stage = envOff
			}
		}
	case envSustain:
		// hold until released
	case envRelease:
		e.level *= e.release
		if e.level <= envFloor {
			e.level = 0
			e.stage = envOff
		}
	}
	return e.level
}

// voice is one sounding note: a phase accumulator oscillator, an ADSR and a
// state variable lowpass.
type voice struct {
	active   bool
	held     bool // key still down
	channel  int
	key      int
	velocity float32
	wave     waveform
	phase    float64
	inc      float64 // phase increment per sample before pitch bend
	env      envelope

	// Chamberlin state variable filter state
	low  float32
	band float32

	samplesSinceEvent int
}

func (v *voice) sample(bend float64) float32 {
	v.phase += v.inc * bend
	if v.phase >= 1 {
		v.phase -= math.Floor(v.phase)
	}
	switch v.wave {
	case waveSquare:
		if v.phase < 0.5 {
			return 1
		}
		return -1
	case waveTriangle:
		if v.phase < 0.5 {
			return float32(4*v.phase - 1)
		}
		return float32(3 - 4*v.phase)
	default:
		return float32(2*v.phase - 1)
	}
}

// filter runs one sample through the lowpass. f is the filter coefficient
// 2*sin(pi*fc/rate), q the damping (1 - resonance).
func (v *voice) filter(x, f, q float32) float32 {
	v.low += f * v.band
	high := x - v.low - q*v.band
	v.band += f * high
	return v.low
}

func (v *voice) release() {
	if v.active && v.env.stage != envRelease {
		v.held = false
		v.env.stage = envRelease
		v.samplesSinceEvent = 0
	}
}

func keyFrequency(key int) float64 {
	return 440 * math.Pow(2, float64(key-69)/12)
}
