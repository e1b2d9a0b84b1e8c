package soundplug_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/soundplug/soundplug"
)

func TestConfigValidateDefaults(t *testing.T) {
	c := soundplug.Config{BankFile: "bank.sf2"}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c.DisplayName == "" {
		t.Fatalf("Validate should default the display name")
	}
	if c.URI == "" {
		t.Fatalf("Validate should default the URI")
	}
	if c.Polyphony != soundplug.DefaultPolyphony {
		t.Fatalf("polyphony defaulted to %v, expected %v", c.Polyphony, soundplug.DefaultPolyphony)
	}
	if c.Gain != soundplug.DefaultGain {
		t.Fatalf("gain defaulted to %v, expected %v", c.Gain, soundplug.DefaultGain)
	}
}

func TestConfigValidateRequiresBank(t *testing.T) {
	c := soundplug.Config{DisplayName: "x"}
	if err := c.Validate(); err == nil {
		t.Fatalf("a config without a bank file should be invalid")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	c := soundplug.Config{
		DisplayName: "Test Bank",
		URI:         "https://example.com/lv2/testbank",
		BankFile:    "test.sf2",
		Polyphony:   8,
		Gain:        0.5,
		Reverb:      true,
	}
	filename := filepath.Join(t.TempDir(), "test.yml")
	if err := c.Save(filename); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := soundplug.LoadConfig(filename)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded != c {
		t.Fatalf("loaded config %v, expected %v", loaded, c)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := soundplug.LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatalf("loading a missing config should fail")
	}
}

func TestPresetTableValidate(t *testing.T) {
	good := soundplug.PresetTable{
		{Bank: 0, Program: 3},
		{Bank: 0, Program: 7},
		{Bank: 1, Program: 0},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate failed on an ordered table: %v", err)
	}
	for _, bad := range []soundplug.PresetTable{
		{},
		{{Bank: 1, Program: 0}, {Bank: 0, Program: 0}},
		{{Bank: 0, Program: 5}, {Bank: 0, Program: 5}},
		{{Bank: 0, Program: 5}, {Bank: 0, Program: 2}},
	} {
		if err := bad.Validate(); err == nil {
			t.Fatalf("Validate accepted the invalid table %v", bad)
		}
	}
}

func TestPresetTableIndex(t *testing.T) {
	table := soundplug.PresetTable{
		{Bank: 0, Program: 3},
		{Bank: 1, Program: 5},
	}
	if got := table.Index(soundplug.PresetSlot{Bank: 1, Program: 5}); got != 1 {
		t.Fatalf("Index is %v, expected 1", got)
	}
	if got := table.Index(soundplug.PresetSlot{Bank: 2, Program: 0}); got != -1 {
		t.Fatalf("Index of a missing slot is %v, expected -1", got)
	}
}

func TestInterleave(t *testing.T) {
	out := soundplug.Interleave([]float32{9}, []float32{1, 3, 5}, []float32{2, 4, 6})
	expected := []float32{9, 1, 2, 3, 4, 5, 6}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("interleaved %v, expected %v", out, expected)
	}
	// the shorter input bounds the output
	out = soundplug.Interleave(nil, []float32{1, 3}, []float32{2})
	expected = []float32{1, 2}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("interleaved %v, expected %v", out, expected)
	}
}
