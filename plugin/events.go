package plugin

import (
	midi "gitlab.com/gomidi/midi/v2"
)

// dispatchEvents applies this block's MIDI records to the synth, in sequence
// order, before any audio is rendered. There is no queuing across blocks.
//
// Note-on with velocity 0 is dispatched as note-off (the running-status
// convention); pitch bend is forwarded with the center-0 convention, so the
// combined 14-bit value has 8192 subtracted before it reaches the synth.
// Records with any other status nibble are ignored without logging.
func (in *Instance) dispatchEvents() {
	if in.events == nil {
		return
	}
	for _, ev := range in.events.Events {
		if ev.Type != in.midiEventURID {
			continue
		}
		if ev.Size < 1 || ev.Size > len(ev.Data) {
			in.logf("dropping malformed event record of size %d", ev.Size)
			continue
		}
		switch ev.Data[0] & 0xF0 {
		case 0x80, 0x90, 0xB0, 0xE0:
			// the channel voice messages dispatched below all carry two data
			// bytes; shorter records would crash the accessors
			if ev.Size < 3 {
				in.logf("dropping truncated event record of size %d", ev.Size)
				continue
			}
		}
		msg := midi.Message(ev.Data[:ev.Size])
		var channel, key, velocity, controller, value uint8
		var relative int16
		var absolute uint16
		switch {
		case msg.GetNoteStart(&channel, &key, &velocity):
			in.synth.NoteOn(int(channel), int(key), int(velocity))
		case msg.GetNoteEnd(&channel, &key):
			in.synth.NoteOff(int(channel), int(key))
		case msg.GetControlChange(&channel, &controller, &value):
			in.synth.ControlChange(int(channel), int(controller), int(value))
		case msg.GetPitchBend(&channel, &relative, &absolute):
			in.synth.PitchBend(int(channel), int(relative))
		default:
			// all other MIDI messages are ignored
		}
	}
}
