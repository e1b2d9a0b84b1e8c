//go:build plugin

// Command soundplug-vsti wraps the plugin runtime as a VST2 instrument, for
// hosts that do not speak the native lifecycle protocol. Build with
// -buildmode=c-shared and the plugin tag. The bundle (config, bank file) is
// looked up next to the built library, or from SOUNDPLUG_BUNDLE.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"pipelined.dev/audio/vst2"

	"github.com/soundplug/soundplug"
	"github.com/soundplug/soundplug/engine"
	"github.com/soundplug/soundplug/plugin"
)

type vstiHost struct {
	inst    *plugin.Instance
	events  plugin.EventBuffer
	pending []vst2.MIDIEvent
	outL    []float32
	outR    []float32
	level   float32
	program float32
	midiURI uint32
}

func newVSTIHost(sampleRate float64) (*vstiHost, error) {
	bundlePath := os.Getenv("SOUNDPLUG_BUNDLE")
	if bundlePath == "" {
		executable, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("could not locate the plugin bundle: %w", err)
		}
		bundlePath = filepath.Dir(executable)
	}
	config, err := findConfig(bundlePath)
	if err != nil {
		return nil, err
	}
	urids := plugin.NewURIDTable()
	features := []plugin.Feature{{URI: plugin.URIDMapFeature, Data: urids}}
	logger := log.New(os.Stderr, "soundplug-vsti: ", log.LstdFlags)
	inst, err := plugin.Instantiate(config, sampleRate, bundlePath, features, engine.Synther{}, logger)
	if err != nil {
		return nil, err
	}
	h := &vstiHost{
		inst:    inst,
		level:   1.0,
		midiURI: urids.Map(plugin.MIDIEventURI),
	}
	for port, data := range map[plugin.PortIndex]any{
		plugin.PortEvents:  &h.events,
		plugin.PortLevel:   &h.level,
		plugin.PortProgram: &h.program,
	} {
		if err := inst.ConnectPort(port, data); err != nil {
			inst.Close()
			return nil, err
		}
	}
	inst.Activate()
	return h, nil
}

// findConfig picks the first bundle config in the directory.
func findConfig(bundlePath string) (soundplug.Config, error) {
	matches, err := filepath.Glob(filepath.Join(bundlePath, "*.yml"))
	if err != nil || len(matches) == 0 {
		return soundplug.Config{}, fmt.Errorf("no bundle config found in %v", bundlePath)
	}
	return soundplug.LoadConfig(matches[0])
}

// process renders one host block, applying this block's queued MIDI events.
func (h *vstiHost) process(out vst2.FloatBuffer) {
	if len(h.outL) < out.Frames {
		h.outL = make([]float32, out.Frames)
		h.outR = make([]float32, out.Frames)
		h.inst.ConnectPort(plugin.PortAudioOutL, h.outL)
		h.inst.ConnectPort(plugin.PortAudioOutR, h.outR)
	}
	h.events.Events = h.events.Events[:0]
	for _, ev := range h.pending {
		e := plugin.Event{Frame: int(ev.DeltaFrames), Type: h.midiURI}
		e.Size = copy(e.Data[:], ev.Data[:])
		h.events.Events = append(h.events.Events, e)
	}
	h.pending = h.pending[:0]
	h.inst.Run(out.Frames)
	left := out.Channel(0)
	right := out.Channel(1)
	for i := 0; i < out.Frames; i++ {
		left[i], right[i] = h.outL[i], h.outR[i]
	}
}

func init() {
	version := int32(100)
	vst2.PluginAllocator = func(hst vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		h, err := newVSTIHost(44100)
		if err != nil {
			log.Printf("soundplug-vsti: %v", err)
		}
		return vst2.Plugin{
				UniqueID:       [4]byte{'S', 'p', 'l', 'g'},
				Version:        version,
				InputChannels:  0,
				OutputChannels: 2,
				Name:           "soundplug",
				Vendor:         "soundplug",
				Category:       vst2.PluginCategorySynth,
				Flags:          vst2.PluginIsSynth,
				ProcessFloatFunc: func(in, out vst2.FloatBuffer) {
					if h == nil {
						return
					}
					h.process(out)
				},
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: func(ev *vst2.EventsPtr) {
					if h == nil {
						return
					}
					for i := 0; i < ev.NumEvents(); i++ {
						switch v := ev.Event(i).(type) {
						case *vst2.MIDIEvent:
							h.pending = append(h.pending, *v)
						}
					}
				},
				GetChunkFunc: func(isPreset bool) []byte {
					if h == nil {
						return nil
					}
					return []byte(strconv.Itoa(h.inst.CurrentProgram()))
				},
				SetChunkFunc: func(data []byte, isPreset bool) {
					if h == nil {
						return
					}
					if program, err := strconv.Atoi(string(data)); err == nil && program >= 0 {
						h.program = float32(program)
					}
				},
				CloseFunc: func() {
					if h != nil {
						h.inst.Deactivate()
						h.inst.Close()
					}
				},
			}
	}
}

func main() {}
