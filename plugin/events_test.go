package plugin_test

import (
	"reflect"
	"testing"

	"github.com/soundplug/soundplug"
	"github.com/soundplug/soundplug/plugin"
)

// dispatch runs one block with the given event records connected and returns
// the synth calls they caused.
func dispatch(t *testing.T, events ...plugin.Event) []string {
	t.Helper()
	synth := newStubSynth(soundplug.PresetSlot{Bank: 0, Program: 0})
	inst, urids := newTestInstance(t, synth)
	midiURID := urids.Map(plugin.MIDIEventURI)
	for i := range events {
		if events[i].Type == 0 {
			events[i].Type = midiURID
		}
	}
	buf := &plugin.EventBuffer{Events: events}
	if err := inst.ConnectPort(plugin.PortEvents, buf); err != nil {
		t.Fatalf("ConnectPort failed: %v", err)
	}
	inst.Activate()
	synth.calls = nil
	inst.Run(8)
	return synth.calls
}

func midiEvent(frame int, data ...byte) plugin.Event {
	ev := plugin.Event{Frame: frame}
	ev.Size = copy(ev.Data[:], data)
	return ev
}

func TestDispatchNoteOnOff(t *testing.T) {
	calls := dispatch(t,
		midiEvent(0, 0x90, 60, 100),
		midiEvent(4, 0x80, 60, 0),
	)
	expected := []string{"noteon 0 60 100", "noteoff 0 60"}
	if !reflect.DeepEqual(calls, expected) {
		t.Fatalf("dispatched %v, expected %v", calls, expected)
	}
}

func TestDispatchVelocityZeroNoteOnIsNoteOff(t *testing.T) {
	calls := dispatch(t, midiEvent(0, 0x92, 64, 0))
	expected := []string{"noteoff 2 64"}
	if !reflect.DeepEqual(calls, expected) {
		t.Fatalf("dispatched %v, expected %v", calls, expected)
	}
}

func TestDispatchControlChange(t *testing.T) {
	calls := dispatch(t, midiEvent(0, 0xB1, 7, 99))
	expected := []string{"cc 1 7 99"}
	if !reflect.DeepEqual(calls, expected) {
		t.Fatalf("dispatched %v, expected %v", calls, expected)
	}
}

func TestDispatchPitchBendIsCenterZero(t *testing.T) {
	calls := dispatch(t,
		midiEvent(0, 0xE0, 0x00, 0x40), // 14-bit 8192, the center
		midiEvent(1, 0xE0, 0x7F, 0x7F), // 14-bit 16383, full up
		midiEvent(2, 0xE0, 0x00, 0x00), // 14-bit 0, full down
	)
	expected := []string{"bend 0 0", "bend 0 8191", "bend 0 -8192"}
	if !reflect.DeepEqual(calls, expected) {
		t.Fatalf("dispatched %v, expected %v", calls, expected)
	}
}

func TestDispatchIgnoresOtherStatuses(t *testing.T) {
	calls := dispatch(t,
		midiEvent(0, 0xC0, 5),       // program change
		midiEvent(1, 0xD0, 64),      // channel pressure
		midiEvent(2, 0xA0, 60, 100), // poly aftertouch
		midiEvent(3, 0xF8),          // realtime clock
	)
	if len(calls) != 0 {
		t.Fatalf("dispatched %v, expected nothing", calls)
	}
}

func TestDispatchSkipsForeignEventTypes(t *testing.T) {
	ev := midiEvent(0, 0x90, 60, 100)
	ev.Type = 999 // not the MIDI event URID
	calls := dispatch(t, ev)
	if len(calls) != 0 {
		t.Fatalf("dispatched %v, expected a foreign event type to be skipped", calls)
	}
}

func TestDispatchSkipsTruncatedRecords(t *testing.T) {
	calls := dispatch(t,
		midiEvent(0, 0x90, 60), // note on missing its velocity byte
		plugin.Event{Frame: 1}, // zero size
		midiEvent(2, 0x90, 61, 101),
	)
	expected := []string{"noteon 0 61 101"}
	if !reflect.DeepEqual(calls, expected) {
		t.Fatalf("dispatched %v, expected %v", calls, expected)
	}
}
