//go:build cgo

package main

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// openMIDIInput opens the first MIDI input device whose name starts with
// namePrefix (or the first device when the prefix is empty) and returns a
// channel of its raw messages. Messages longer than three bytes are dropped.
func openMIDIInput(namePrefix string) (<-chan rawMessage, func(), error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, nil, fmt.Errorf("could not create MIDI driver: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, nil, fmt.Errorf("could not list MIDI inputs: %w", err)
	}
	var in drivers.In
	for _, candidate := range ins {
		if namePrefix == "" || strings.HasPrefix(candidate.String(), namePrefix) {
			in = candidate
			break
		}
	}
	if in == nil {
		drv.Close()
		return nil, nil, fmt.Errorf("could not find a MIDI input matching %q", namePrefix)
	}
	if err := in.Open(); err != nil {
		drv.Close()
		return nil, nil, fmt.Errorf("opening MIDI input failed: %w", err)
	}
	events := make(chan rawMessage, 1024)
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		if len(msg) == 0 || len(msg) > 3 {
			return
		}
		var ev rawMessage
		ev.size = copy(ev.data[:], msg)
		select {
		case events <- ev:
		default:
			// dropping is better than blocking the driver callback
		}
	})
	if err != nil {
		in.Close()
		drv.Close()
		return nil, nil, fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	closer := func() {
		stop()
		in.Close()
		drv.Close()
	}
	return events, closer, nil
}
