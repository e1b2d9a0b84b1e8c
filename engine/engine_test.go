package engine_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/soundplug/soundplug"
	"github.com/soundplug/soundplug/engine"
)

func testFont() *engine.SoundFont {
	return &engine.SoundFont{
		Name: "Test Bank",
		Presets: []engine.Preset{
			{Name: "Grand Piano", Bank: 0, Program: 0},
			{Name: "Strings", Bank: 0, Program: 48},
			{Name: "Standard Kit", Bank: 128, Program: 0},
		},
	}
}

func testEngine() *engine.Engine {
	return engine.NewEngine(testFont(), 44100, soundplug.Config{Gain: 1})
}

func render(t *testing.T, e *engine.Engine, frames int) ([]float32, []float32) {
	t.Helper()
	left := make([]float32, frames)
	right := make([]float32, frames)
	if err := e.Render(left, right); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return left, right
}

func isSilent(buf []float32) bool {
	for _, v := range buf {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestPresetLookup(t *testing.T) {
	e := testEngine()
	if !e.PresetExists(0, 48) {
		t.Fatalf("preset at bank 0 program 48 should exist")
	}
	if e.PresetExists(0, 1) {
		t.Fatalf("preset at bank 0 program 1 should not exist")
	}
	if got := e.PresetName(128, 0); got != "Standard Kit" {
		t.Fatalf("preset name is %q, expected %q", got, "Standard Kit")
	}
}

func TestSelectPreset(t *testing.T) {
	e := testEngine()
	if _, ok := e.ActivePreset(); ok {
		t.Fatalf("a fresh engine should have no active preset")
	}
	if err := e.SelectPreset(0, 48); err != nil {
		t.Fatalf("SelectPreset failed: %v", err)
	}
	slot, ok := e.ActivePreset()
	if !ok || slot != (soundplug.PresetSlot{Bank: 0, Program: 48}) {
		t.Fatalf("active preset is %v, expected bank 0 program 48", slot)
	}
	if err := e.SelectPreset(3, 3); err == nil {
		t.Fatalf("selecting a missing preset should fail")
	}
	if slot, _ = e.ActivePreset(); slot != (soundplug.PresetSlot{Bank: 0, Program: 48}) {
		t.Fatalf("a failed select changed the active preset to %v", slot)
	}
}

func TestNoteLifecycle(t *testing.T) {
	e := testEngine()
	left, right := render(t, e, 64)
	if !isSilent(left) || !isSilent(right) {
		t.Fatalf("an engine with no notes should render silence")
	}
	e.NoteOn(0, 60, 100)
	left, right = render(t, e, 64)
	if isSilent(left) || isSilent(right) {
		t.Fatalf("a held note should produce audio")
	}
	e.SilenceAll()
	left, right = render(t, e, 64)
	if !isSilent(left) || !isSilent(right) {
		t.Fatalf("SilenceAll should stop the voice immediately")
	}
}

func TestNoteOnVelocityZeroStartsNothing(t *testing.T) {
	e := testEngine()
	e.NoteOn(0, 60, 0)
	left, _ := render(t, e, 64)
	if !isSilent(left) {
		t.Fatalf("velocity zero should act as note off, not start a voice")
	}
}

func TestAllSoundOffSilences(t *testing.T) {
	e := testEngine()
	e.NoteOn(0, 60, 100)
	e.ControlChange(0, 120, 0)
	left, _ := render(t, e, 64)
	if !isSilent(left) {
		t.Fatalf("all sound off should silence the channel immediately")
	}
}

func TestGainScalesOutput(t *testing.T) {
	e := testEngine()
	e.NoteOn(0, 60, 100)
	e.SetGain(0)
	left, _ := render(t, e, 64)
	if !isSilent(left) {
		t.Fatalf("gain zero should mute the output")
	}
}

func TestRenderStaysFiniteAndBounded(t *testing.T) {
	for name, setup := range map[string]func(e *engine.Engine){
		"defaults":      func(e *engine.Engine) {},
		"fullResonance": func(e *engine.Engine) { e.ControlChange(0, 22, 127) },
		"openCutoff":    func(e *engine.Engine) { e.ControlChange(0, 21, 127) },
	} {
		t.Run(name, func(t *testing.T) {
			e := testEngine()
			setup(e)
			e.NoteOn(0, 60, 100)
			for block := 0; block < 8; block++ {
				left, right := render(t, e, 64)
				for i := range left {
					for _, v := range []float32{left[i], right[i]} {
						if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
							t.Fatalf("block %v frame %v is %v", block, i, v)
						}
						if v < -100 || v > 100 {
							t.Fatalf("block %v frame %v is %v, the filter is diverging", block, i, v)
						}
					}
				}
			}
		})
	}
}

func TestSoundControlsGovernAllChannels(t *testing.T) {
	// with the default zero sustain a note dies out after its decay
	e := testEngine()
	e.NoteOn(5, 60, 100)
	var left []float32
	for block := 0; block < 45; block++ {
		left, _ = render(t, e, 64)
	}
	if !isSilent(left) {
		t.Fatalf("a note with zero sustain should have died out")
	}

	// full sustain written on channel 0 must hold a note on channel 5
	e = testEngine()
	e.ControlChange(0, 25, 127)
	e.NoteOn(5, 60, 100)
	for block := 0; block < 45; block++ {
		left, _ = render(t, e, 64)
	}
	if isSilent(left) {
		t.Fatalf("the sustain control should govern notes on every channel")
	}
}

func TestRenderRejectsMismatchedBuffers(t *testing.T) {
	e := testEngine()
	if err := e.Render(make([]float32, 8), make([]float32, 4)); err == nil {
		t.Fatalf("unequal buffer lengths should be rejected")
	}
}

func TestSyntherLoadsBankFiles(t *testing.T) {
	bank := filepath.Join(t.TempDir(), "test.sf2")
	data := sf2Bytes("Test Bank", testFont().Presets)
	if err := os.WriteFile(bank, data, 0644); err != nil {
		t.Fatalf("could not write the test bank: %v", err)
	}
	synth, err := engine.Synther{}.Synth(bank, 44100, soundplug.Config{})
	if err != nil {
		t.Fatalf("Synth failed: %v", err)
	}
	defer synth.Close()
	if !synth.PresetExists(128, 0) {
		t.Fatalf("the loaded bank should have the percussion preset")
	}
	if got := synth.PresetName(0, 0); got != "Grand Piano" {
		t.Fatalf("preset name is %q, expected %q", got, "Grand Piano")
	}
}
