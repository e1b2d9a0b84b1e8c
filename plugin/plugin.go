// Package plugin implements the runtime state machine of a sound bank
// instrument plugin: preset indexing, program changes, parameter change
// detection, MIDI event dispatch and chunked block rendering. The host
// lifecycle mirrors the LV2 entry points (instantiate, connect port,
// activate, run, deactivate, cleanup); the synthesis itself lives behind the
// soundplug.Synth collaborator.
package plugin

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/soundplug/soundplug"
)

// ChunkSize is the capacity, in frames, of the internal scratch buffers the
// synth renders into. Chunking is invisible to the host: a Run call always
// fills exactly the requested number of frames.
const ChunkSize = 64

// Instance is one plugin instance. The host drives it from two strictly
// non-overlapping thread contexts: the control thread (Instantiate,
// ConnectPort, Activate, Deactivate, Close) and the real-time audio thread
// (Run). Nothing here locks and Run never allocates.
type Instance struct {
	config soundplug.Config
	rate   float64
	synth  soundplug.Synth
	table  soundplug.PresetTable

	midiEventURID uint32

	// Port buffers are borrowed from the host: valid only between a
	// ConnectPort call and the next ConnectPort or Deactivate.
	events      *EventBuffer
	audioOutL   []float32
	audioOutR   []float32
	programPort *float32
	controls    [numParams]*float32

	currentProgram int // flat index into table; -1 when unselected
	params         [numParams]paramEntry
	justChanged    bool // a program change happened in the current block

	chunkL []float32
	chunkR []float32

	logger *log.Logger // debug aid only; nil silences the instance
}

// Instantiate creates a plugin instance: it resolves the bank file against
// the bundle directory, loads it through the synther and builds the preset
// table. On any failure no instance is returned and all partially acquired
// resources are released. The urid:map capability must be present in
// features.
func Instantiate(config soundplug.Config, rate float64, bundlePath string, features []Feature, synther soundplug.Synther, logger *log.Logger) (*Instance, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("plugin.Instantiate: %w", err)
	}
	var urids URIDMap
	for _, f := range features {
		if f.URI == URIDMapFeature {
			urids, _ = f.Data.(URIDMap)
		}
	}
	if urids == nil {
		return nil, errors.New("missing required host feature " + URIDMapFeature)
	}
	bankPath := filepath.Join(bundlePath, config.BankFile)
	synth, err := synther.Synth(bankPath, rate, config)
	if err != nil {
		return nil, fmt.Errorf("could not load sound bank %v: %w", bankPath, err)
	}
	table := BuildPresetTable(synth)
	if len(table) == 0 {
		synth.Close()
		return nil, fmt.Errorf("sound bank %v has no presets", bankPath)
	}
	in := &Instance{
		config:         config,
		rate:           rate,
		synth:          synth,
		table:          table,
		midiEventURID:  urids.Map(MIDIEventURI),
		currentProgram: -1,
		chunkL:         make([]float32, ChunkSize),
		chunkR:         make([]float32, ChunkSize),
		logger:         logger,
	}
	return in, nil
}

// ConnectPort stores the host-provided buffer for the given port. The buffer
// is borrowed, not owned: it stays valid only until the next ConnectPort for
// the same port or Deactivate.
func (in *Instance) ConnectPort(port PortIndex, data any) error {
	switch port {
	case PortEvents:
		buf, ok := data.(*EventBuffer)
		if !ok {
			return fmt.Errorf("port %v needs an *EventBuffer", port)
		}
		in.events = buf
	case PortAudioOutL, PortAudioOutR:
		buf, ok := data.([]float32)
		if !ok {
			return fmt.Errorf("port %v needs a []float32", port)
		}
		if port == PortAudioOutL {
			in.audioOutL = buf
		} else {
			in.audioOutR = buf
		}
	case PortProgram:
		buf, ok := data.(*float32)
		if !ok {
			return fmt.Errorf("port %v needs a *float32", port)
		}
		in.programPort = buf
	case PortLevel, PortCutoff, PortResonance, PortAttack, PortDecay, PortSustain, PortRelease:
		buf, ok := data.(*float32)
		if !ok {
			return fmt.Errorf("port %v needs a *float32", port)
		}
		in.controls[controlKind(port)] = buf
	default:
		return fmt.Errorf("unknown port %d", int(port))
	}
	return nil
}

func controlKind(port PortIndex) paramKind {
	if port == PortLevel {
		return paramLevel
	}
	return paramKind(port-PortCutoff) + paramCutoff
}

// Activate prepares the instance for audio processing, silencing anything
// left sounding from a previous activation.
func (in *Instance) Activate() {
	in.synth.SilenceAll()
}

// Run renders one block of sampleCount frames. Block order: program change
// first, then parameter diffs, then this block's MIDI events, then audio.
// Run never fails; runtime problems are logged and the block continues with
// the previous valid state.
func (in *Instance) Run(sampleCount int) {
	in.justChanged = false
	in.handleProgramChange()
	in.updateParams()
	in.dispatchEvents()
	in.renderBlock(sampleCount)
}

// handleProgramChange applies a changed program port value: silence all
// voices, select the addressed preset and reset the parameter cache, then
// make the new index current. An out-of-range index is logged and rejected
// with the previous state kept. A failed engine select is logged but the
// index still advances: the engine may have silently kept the previous
// preset, which we accept over retry logic in the render path.
func (in *Instance) handleProgramChange() {
	if in.programPort == nil {
		return
	}
	next := int(*in.programPort + 0.5)
	if next == in.currentProgram || next < 0 {
		return
	}
	if next >= len(in.table) {
		in.logf("invalid program %d (max %d)", next, len(in.table)-1)
		return
	}
	in.synth.SilenceAll()
	slot := in.table[next]
	if err := in.synth.SelectPreset(slot.Bank, slot.Program); err != nil {
		in.logf("selecting bank %d program %d failed: %v", slot.Bank, slot.Program, err)
	}
	in.resetParams()
	in.currentProgram = next
	in.justChanged = true
	in.logf("program changed to %d (bank:%d prog:%d)", next, slot.Bank, slot.Program)
}

// renderBlock fills the host output buffers with exactly sampleCount frames,
// rendering the synth in ChunkSize pieces and a final short chunk. A render
// error yields silence for the failed chunk; it is never propagated, as a
// real-time render call has no error return path. A request larger than the
// connected buffers is clamped and logged rather than written out of range.
func (in *Instance) renderBlock(sampleCount int) {
	if in.audioOutL == nil || in.audioOutR == nil {
		return
	}
	if limit := min(len(in.audioOutL), len(in.audioOutR)); sampleCount > limit {
		in.logf("host buffers cover only %d of %d requested frames", limit, sampleCount)
		sampleCount = limit
	}
	offset := 0
	for remaining := sampleCount; remaining > 0; {
		n := remaining
		if n > ChunkSize {
			n = ChunkSize
		}
		if err := in.synth.Render(in.chunkL[:n], in.chunkR[:n]); err != nil {
			in.logf("synth.Render: %v", err)
			for i := 0; i < n; i++ {
				in.chunkL[i] = 0
				in.chunkR[i] = 0
			}
		}
		copy(in.audioOutL[offset:offset+n], in.chunkL[:n])
		copy(in.audioOutR[offset:offset+n], in.chunkR[:n])
		offset += n
		remaining -= n
	}
}

// Deactivate stops audio processing and releases the borrowed port buffers,
// per the connect-to-deactivate lifetime contract.
func (in *Instance) Deactivate() {
	in.synth.SilenceAll()
	in.events = nil
	in.audioOutL = nil
	in.audioOutR = nil
	in.programPort = nil
	for k := range in.controls {
		in.controls[k] = nil
	}
}

// Close releases the synth and the preset table. The instance must not be
// used afterwards.
func (in *Instance) Close() error {
	err := in.synth.Close()
	in.table = nil
	return err
}

// PresetTable returns the preset table. It is read-only after construction
// and callers must not modify it.
func (in *Instance) PresetTable() soundplug.PresetTable {
	return in.table
}

// ProgramCount returns the number of selectable presets.
func (in *Instance) ProgramCount() int {
	return len(in.table)
}

// CurrentProgram returns the selected flat program index, or -1 when no
// program has been selected yet.
func (in *Instance) CurrentProgram() int {
	return in.currentProgram
}

func (in *Instance) SampleRate() float64 {
	return in.rate
}

func (in *Instance) Config() soundplug.Config {
	return in.config
}

func (in *Instance) logf(format string, args ...any) {
	if in.logger != nil {
		in.logger.Printf(format, args...)
	}
}
