// Package engine is a native synthesis engine for SoundFont banks: it reads
// the preset headers of an SF2 file and plays them with synthesized voices.
// It implements the soundplug.Synth collaborator the plugin runtime drives.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/soundplug/soundplug"
)

// MaxVoices caps the polyphony regardless of configuration.
const MaxVoices = 32

// MIDI controller numbers the engine gives a meaning to. 21..26 are the
// dedicated sound parameter controls the plugin's control ports scale onto.
const (
	ccCutoff      = 21
	ccResonance   = 22
	ccAttack      = 23
	ccDecay       = 24
	ccSustain     = 25
	ccRelease     = 26
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

const numChannels = 16

type channelState struct {
	bend float64 // pitch multiplier derived from the last pitch bend
	cc   [128]uint8
}

// Engine implements soundplug.Synth. It is not safe for concurrent use; the
// plugin runtime guarantees a single caller at a time.
type Engine struct {
	font     *SoundFont
	names    map[soundplug.PresetSlot]string
	rate     float64
	gain     float32
	current  soundplug.PresetSlot
	selected bool
	wave     waveform
	channels [numChannels]channelState
	voices   []voice
}

// NewEngine creates an engine playing the given font. The font must have
// been loaded already; use Synther to load one from a file.
func NewEngine(font *SoundFont, sampleRate float64, config soundplug.Config) *Engine {
	polyphony := config.Polyphony
	if polyphony <= 0 || polyphony > MaxVoices {
		polyphony = MaxVoices
	}
	e := &Engine{
		font:   font,
		names:  make(map[soundplug.PresetSlot]string, len(font.Presets)),
		rate:   sampleRate,
		gain:   config.Gain,
		voices: make([]voice, polyphony),
	}
	for _, p := range font.Presets {
		e.names[soundplug.PresetSlot{Bank: p.Bank, Program: p.Program}] = p.Name
	}
	for c := range e.channels {
		e.channels[c].bend = 1
		e.channels[c].cc[ccCutoff] = 127 // filter open until told otherwise
	}
	return e
}

// Synther loads SF2 banks into Engines.
type Synther struct{}

func (Synther) Synth(bankPath string, sampleRate float64, config soundplug.Config) (soundplug.Synth, error) {
	font, err := LoadSoundFont(bankPath)
	if err != nil {
		return nil, err
	}
	return NewEngine(font, sampleRate, config), nil
}

func (e *Engine) NoteOn(channel, key, velocity int) {
	if velocity <= 0 {
		e.NoteOff(channel, key)
		return
	}
	v := e.allocateVoice()
	ch := &e.channels[channel&0xF]
	*v = voice{
		active:   true,
		held:     true,
		channel:  channel & 0xF,
		key:      key & 0x7F,
		velocity: float32(velocity&0x7F) / 127,
		wave:     e.wave,
		inc:      keyFrequency(key&0x7F) / e.rate,
		env: envelope{
			stage:   envAttack,
			attack:  attackRate(ch.cc[ccAttack], e.rate),
			decay:   fallCoefficient(ch.cc[ccDecay], e.rate),
			sustain: float32(ch.cc[ccSustain]) / 127,
			release: fallCoefficient(ch.cc[ccRelease], e.rate),
		},
	}
}

// allocateVoice finds a suitable voice to trigger: a free one if there is
// any, otherwise preferring released voices over held ones, and among those
// the one longest since its last event.
func (e *Engine) allocateVoice() *voice {
	oldest := &e.voices[0]
	oldestReleased := false
	age := -1
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			return v
		}
		if (!v.held && !oldestReleased) ||
			(!v.held == oldestReleased && v.samplesSinceEvent >= age) {
			oldest = v
			oldestReleased = !v.held
			age = v.samplesSinceEvent
		}
	}
	return oldest
}

func (e *Engine) NoteOff(channel, key int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.held && v.channel == channel&0xF && v.key == key&0x7F {
			v.release()
		}
	}
}

func (e *Engine) ControlChange(channel, controller, value int) {
	if controller < 0 || controller > 127 {
		return
	}
	if controller >= ccCutoff && controller <= ccRelease {
		// the dedicated sound controls govern the instrument as a whole; a
		// note on any channel reads the same values
		for c := range e.channels {
			e.channels[c].cc[controller] = uint8(value & 0x7F)
		}
		return
	}
	ch := &e.channels[channel&0xF]
	ch.cc[controller] = uint8(value & 0x7F)
	switch controller {
	case ccAllSoundOff:
		e.silenceChannel(channel & 0xF)
	case ccAllNotesOff:
		for i := range e.voices {
			v := &e.voices[i]
			if v.active && v.channel == channel&0xF {
				v.release()
			}
		}
	}
}

// PitchBend takes a center-0 bend, -8192..8191, spanning ±2 semitones.
func (e *Engine) PitchBend(channel, bend int) {
	if bend < -8192 {
		bend = -8192
	} else if bend > 8191 {
		bend = 8191
	}
	semitones := float64(bend) / 8192 * 2
	e.channels[channel&0xF].bend = math.Pow(2, semitones/12)
}

func (e *Engine) SetGain(gain float32) {
	if gain < 0 {
		gain = 0
	}
	e.gain = gain
}

func (e *Engine) SilenceAll() {
	for i := range e.voices {
		e.voices[i] = voice{}
	}
}

func (e *Engine) silenceChannel(channel int) {
	for i := range e.voices {
		if e.voices[i].channel == channel {
			e.voices[i] = voice{}
		}
	}
}

// SelectPreset makes (bank, program) the current preset. Selecting an
// address the bank has no preset at is an error and leaves the previous
// preset playing.
func (e *Engine) SelectPreset(bank, program int) error {
	slot := soundplug.PresetSlot{Bank: bank, Program: program}
	if _, ok := e.names[slot]; !ok {
		return fmt.Errorf("no preset at bank %d program %d", bank, program)
	}
	e.current = slot
	e.selected = true
	// vary the timbre per preset so programs are audibly distinct
	e.wave = waveform(program % 3)
	return nil
}

// ActivePreset returns the currently selected preset address, if any.
func (e *Engine) ActivePreset() (soundplug.PresetSlot, bool) {
	return e.current, e.selected
}

func (e *Engine) PresetExists(bank, program int) bool {
	_, ok := e.names[soundplug.PresetSlot{Bank: bank, Program: program}]
	return ok
}

func (e *Engine) PresetName(bank, program int) string {
	return e.names[soundplug.PresetSlot{Bank: bank, Program: program}]
}

// Render synthesizes one block of planar stereo audio. All sounding voices
// are mixed into the buffers and the master gain is applied.
func (e *Engine) Render(left, right []float32) error {
	if len(left) != len(right) {
		return errors.New("left and right buffers must have equal length")
	}
	for i := range left {
		left[i] = 0
		right[i] = 0
	}
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		ch := &e.channels[v.channel]
		f := filterCoefficient(ch.cc[ccCutoff], e.rate)
		q := 1 - float32(ch.cc[ccResonance])/127*0.9
		for j := range left {
			s := v.filter(v.sample(ch.bend), f, q) * v.env.next() * v.velocity
			left[j] += s
			right[j] += s
		}
		v.samplesSinceEvent += len(left)
		if v.env.stage == envOff {
			v.active = false
		}
	}
	if e.gain != 1 {
		vek32.MulNumber_Into(left, left, e.gain)
		vek32.MulNumber_Into(right, right, e.gain)
	}
	return nil
}

func (e *Engine) Close() error {
	e.SilenceAll()
	e.font = nil
	return nil
}

// attackRate converts an attack CC to a per-sample level increment; 0 is an
// immediate attack, 127 a two second rise.
func attackRate(cc uint8, rate float64) float32 {
	seconds := 0.001 + float64(cc)/127*2
	return float32(1 / (seconds * rate))
}

// fallCoefficient converts a decay or release CC to a per-sample
// multiplicative fall; 0 is a fast fall, 127 roughly three seconds.
func fallCoefficient(cc uint8, rate float64) float32 {
	seconds := 0.01 + float64(cc)/127*3
	return float32(math.Exp(-5 / (seconds * rate)))
}

// filterCoefficient converts a cutoff CC to the state variable filter
// coefficient 2*sin(pi*fc/rate). The CC maps exponentially upward from
// 20 Hz; the cutoff is capped at rate/6, which keeps the coefficient at or
// below 1 and the filter recursion stable for the whole damping range.
func filterCoefficient(cc uint8, rate float64) float32 {
	freq := 20 * math.Pow(2, float64(cc)/127*9.5)
	if limit := rate / 6; freq > limit {
		freq = limit
	}
	return float32(2 * math.Sin(math.Pi*freq/rate))
}
