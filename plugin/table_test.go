package plugin_test

import (
	"reflect"
	"testing"

	"github.com/soundplug/soundplug"
	"github.com/soundplug/soundplug/plugin"
)

func TestBuildPresetTableOrder(t *testing.T) {
	synth := newStubSynth(
		soundplug.PresetSlot{Bank: 1, Program: 5},
		soundplug.PresetSlot{Bank: 0, Program: 3},
		soundplug.PresetSlot{Bank: 128, Program: 0},
	)
	table := plugin.BuildPresetTable(synth)
	expected := soundplug.PresetTable{
		{Bank: 0, Program: 3},
		{Bank: 1, Program: 5},
		{Bank: 128, Program: 0},
	}
	if !reflect.DeepEqual(table, expected) {
		t.Fatalf("table is %v, expected %v", table, expected)
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("scan order broke the table invariants: %v", err)
	}
	if got := table.Index(soundplug.PresetSlot{Bank: 1, Program: 5}); got != 1 {
		t.Fatalf("flat index of bank 1 program 5 is %v, expected 1", got)
	}
}

func TestBuildPresetTableEmpty(t *testing.T) {
	if table := plugin.BuildPresetTable(newStubSynth()); len(table) != 0 {
		t.Fatalf("empty bank produced table %v", table)
	}
}
