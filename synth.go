package soundplug

type (
	// Synth is the synthesis engine collaborator: it owns the loaded sound
	// bank and all voice state, and the plugin runtime drives it with note
	// events, parameter updates and render requests. None of the methods may
	// block; they are called from the real-time render path. Render fills
	// planar left/right buffers of equal length with one block of stereo
	// audio.
	Synth interface {
		NoteOn(channel, key, velocity int)
		NoteOff(channel, key int)
		ControlChange(channel, controller, value int)
		// PitchBend takes a center-0 bend in the range -8192..8191.
		PitchBend(channel, bend int)
		SetGain(gain float32)
		// SilenceAll stops all sounding voices immediately, bypassing any
		// release envelopes.
		SilenceAll()
		// SelectPreset makes the preset at (bank, program) current. The bank
		// range is 0..128 inclusive: bank 128 is the out-of-range slot some
		// banks place presets in.
		SelectPreset(bank, program int) error
		PresetExists(bank, program int) bool
		PresetName(bank, program int) string
		Render(left, right []float32) error
		Close() error
	}

	// Synther creates Synths with a sound bank loaded from the given file.
	// Loading may fail; no Synth is returned then.
	Synther interface {
		Synth(bankPath string, sampleRate float64, config Config) (Synth, error)
	}
)

// Interleave appends the planar left/right frames to dst as interleaved
// stereo and returns the extended buffer. Frames beyond the shorter of the
// two inputs are dropped.
func Interleave(dst, left, right []float32) []float32 {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	for i := 0; i < n; i++ {
		dst = append(dst, left[i], right[i])
	}
	return dst
}
