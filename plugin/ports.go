package plugin

import "fmt"

// PortIndex identifies one port of the plugin. The numbering is part of the
// contract with the descriptor generator and must never change for a
// published plugin.
type PortIndex int

const (
	PortEvents    PortIndex = 0  // MIDI input
	PortAudioOutL PortIndex = 1  // audio output, left
	PortAudioOutR PortIndex = 2  // audio output, right
	PortLevel     PortIndex = 3  // master level (0.0 to 2.0)
	PortProgram   PortIndex = 4  // program selection
	PortCutoff    PortIndex = 5  // filter cutoff
	PortResonance PortIndex = 6  // filter resonance
	PortAttack    PortIndex = 7  // envelope attack
	PortDecay     PortIndex = 8  // envelope decay
	PortSustain   PortIndex = 9  // envelope sustain
	PortRelease   PortIndex = 10 // envelope release

	NumPorts = 11
)

// Host capability and event type URIs, mirroring the LV2 urid/midi
// extensions.
const (
	URIDMapFeature = "http://lv2plug.in/ns/ext/urid#map"
	MIDIEventURI   = "http://lv2plug.in/ns/ext/midi#MidiEvent"
)

type (
	// Feature is one capability the host hands to the plugin at
	// instantiation.
	Feature struct {
		URI  string
		Data any
	}

	// URIDMap maps URIs to host-chosen integer symbols. It is the one
	// required host capability: instantiation fails without it.
	URIDMap interface {
		Map(uri string) uint32
	}

	// Event is one timestamped raw MIDI record. Frame is the sample offset
	// within the current block; Data holds up to three raw status/data
	// bytes, Size how many of them are valid.
	Event struct {
		Frame int
		Type  uint32 // URID of the payload type
		Data  [3]byte
		Size  int
	}

	// EventBuffer is the event input port. The host fills Events with the
	// time-ordered records of the current block before each Run call and the
	// records are valid only for the duration of that call.
	EventBuffer struct {
		Events []Event
	}

	// URIDTable is a simple URIDMap for hosts and tests that have no native
	// symbol mapping of their own. The zero value is not usable; use
	// NewURIDTable.
	URIDTable struct {
		urids map[string]uint32
	}
)

func NewURIDTable() *URIDTable {
	return &URIDTable{urids: make(map[string]uint32)}
}

func (t *URIDTable) Map(uri string) uint32 {
	if id, ok := t.urids[uri]; ok {
		return id
	}
	id := uint32(len(t.urids) + 1)
	t.urids[uri] = id
	return id
}

func (p PortIndex) String() string {
	switch p {
	case PortEvents:
		return "events"
	case PortAudioOutL:
		return "audio_out_l"
	case PortAudioOutR:
		return "audio_out_r"
	case PortLevel:
		return "level"
	case PortProgram:
		return "program"
	case PortCutoff:
		return "cutoff"
	case PortResonance:
		return "resonance"
	case PortAttack:
		return "attack"
	case PortDecay:
		return "decay"
	case PortSustain:
		return "sustain"
	case PortRelease:
		return "release"
	}
	return fmt.Sprintf("port%d", int(p))
}
