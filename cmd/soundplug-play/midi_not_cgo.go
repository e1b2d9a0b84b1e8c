//go:build !cgo

package main

import "errors"

func openMIDIInput(namePrefix string) (<-chan rawMessage, func(), error) {
	return nil, nil, errors.New("live MIDI input needs a cgo build")
}
