// Command soundplug-play runs a SoundFont instrument outside any plugin
// host: it instantiates the plugin runtime exactly through its lifecycle
// surface, renders either a demo sequence or live MIDI input, and plays the
// result on the audio device or saves it as .wav/.raw.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundplug/soundplug"
	"github.com/soundplug/soundplug/engine"
	"github.com/soundplug/soundplug/oto"
	"github.com/soundplug/soundplug/plugin"
	"github.com/soundplug/soundplug/version"
)

const (
	sampleRate = 44100
	blockSize  = 512
)

// rawMessage is one raw MIDI message from the live input.
type rawMessage struct {
	data [3]byte
	size int
}

func main() {
	play := flag.Bool("p", false, "Play the rendered audio (default behaviour when no other output is defined).")
	wavOut := flag.Bool("w", false, "Output the rendered audio as a .wav file.")
	rawOut := flag.Bool("r", false, "Output the rendered audio as a .raw file.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	live := flag.Bool("m", false, "Play live from a MIDI input device instead of the demo sequence (needs a cgo build).")
	midiInput := flag.String("i", "", "Name prefix of the MIDI input device to use. Defaults to the first device found.")
	program := flag.Int("program", 0, "Initial program index.")
	verbose := flag.Bool("d", false, "Print the runtime debug log to standard error.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*play = true
	}
	urids := plugin.NewURIDTable()
	inst, err := instantiate(flag.Arg(0), *verbose, urids)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer inst.Close()
	if err := run(inst, urids, *play, *wavOut, *rawOut, *pcm, *live, *midiInput, *program); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// instantiate loads a bundle config (.yml) or a bare SoundFont (.sf2) and
// brings up a plugin instance for it.
func instantiate(filename string, verbose bool, urids *plugin.URIDTable) (*plugin.Instance, error) {
	var config soundplug.Config
	bundlePath := filepath.Dir(filename)
	if strings.EqualFold(filepath.Ext(filename), ".yml") {
		var err error
		config, err = soundplug.LoadConfig(filename)
		if err != nil {
			return nil, err
		}
	} else {
		base := filepath.Base(filename)
		config = soundplug.Config{
			DisplayName: strings.TrimSuffix(base, filepath.Ext(base)),
			BankFile:    base,
		}
	}
	features := []plugin.Feature{{URI: plugin.URIDMapFeature, Data: urids}}
	var logger *log.Logger
	if verbose {
		logger = log.New(os.Stderr, "soundplug: ", log.LstdFlags)
	}
	inst, err := plugin.Instantiate(config, sampleRate, bundlePath, features, engine.Synther{}, logger)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "%v: %v presets\n", config.DisplayName, inst.ProgramCount())
	return inst, nil
}

// host is the port plumbing of the standalone player: it owns the buffers a
// plugin host would own.
type host struct {
	inst     *plugin.Instance
	events   plugin.EventBuffer
	outL     []float32
	outR     []float32
	level    float32
	program  float32
	midiType uint32
}

func connect(inst *plugin.Instance, urids *plugin.URIDTable, program int) (*host, error) {
	h := &host{
		inst:     inst,
		outL:     make([]float32, blockSize),
		outR:     make([]float32, blockSize),
		level:    1.0,
		program:  float32(program),
		midiType: urids.Map(plugin.MIDIEventURI),
	}
	for port, data := range map[plugin.PortIndex]any{
		plugin.PortEvents:    &h.events,
		plugin.PortAudioOutL: h.outL,
		plugin.PortAudioOutR: h.outR,
		plugin.PortLevel:     &h.level,
		plugin.PortProgram:   &h.program,
	} {
		if err := inst.ConnectPort(port, data); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// note queues a note-on or note-off at the start of the next block.
func (h *host) note(on bool, key, velocity byte) {
	status := byte(0x80)
	if on {
		status = 0x90
	}
	h.events.Events = append(h.events.Events, plugin.Event{
		Type: h.midiType,
		Data: [3]byte{status, key, velocity},
		Size: 3,
	})
}

// block runs one block and returns it as interleaved stereo.
func (h *host) block(out []float32) []float32 {
	h.inst.Run(blockSize)
	h.events.Events = h.events.Events[:0]
	return soundplug.Interleave(out, h.outL, h.outR)
}

func run(inst *plugin.Instance, urids *plugin.URIDTable, play, wavOut, rawOut, pcm, live bool, midiInput string, program int) error {
	h, err := connect(inst, urids, program)
	if err != nil {
		return err
	}
	inst.Activate()
	defer inst.Deactivate()
	if live {
		return runLive(h, midiInput)
	}
	buffer := renderDemo(h)
	var audioContext *oto.OtoContext
	if play {
		audioContext, err = oto.NewContext(sampleRate)
		if err != nil {
			return fmt.Errorf("could not acquire oto AudioContext: %v", err)
		}
	}
	if rawOut {
		raw, err := soundplug.Raw(buffer, pcm)
		if err != nil {
			return fmt.Errorf("could not generate .raw file: %v", err)
		}
		if err := os.WriteFile(outName(inst, ".raw"), raw, 0644); err != nil {
			return err
		}
	}
	if wavOut {
		wav, err := soundplug.Wav(buffer, sampleRate, pcm)
		if err != nil {
			return fmt.Errorf("could not generate .wav file: %v", err)
		}
		if err := os.WriteFile(outName(inst, ".wav"), wav, 0644); err != nil {
			return err
		}
	}
	if play {
		sink := audioContext.Output()
		defer sink.Close()
		if err := sink.WriteAudio(buffer); err != nil {
			return err
		}
		waitDrained(sink, len(buffer))
	}
	return nil
}

// renderDemo plays a short arpeggio on the selected preset, held notes
// first, then the release tail.
func renderDemo(h *host) []float32 {
	var buffer []float32
	notes := []byte{60, 64, 67, 72}
	blocksPerNote := sampleRate / 4 / blockSize
	for _, key := range notes {
		h.note(true, key, 100)
		for i := 0; i < blocksPerNote; i++ {
			buffer = h.block(buffer)
		}
		h.note(false, key, 0)
	}
	for i := 0; i < blocksPerNote*4; i++ {
		buffer = h.block(buffer)
	}
	return buffer
}

func runLive(h *host, midiInput string) error {
	events, closer, err := openMIDIInput(midiInput)
	if err != nil {
		return err
	}
	defer closer()
	audioContext, err := oto.NewContext(sampleRate)
	if err != nil {
		return fmt.Errorf("could not acquire oto AudioContext: %v", err)
	}
	sink := audioContext.Output()
	defer sink.Close()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	fmt.Fprintln(os.Stderr, "playing; ctrl-c to quit")
	var out []float32
	ticker := time.NewTicker(time.Duration(blockSize) * time.Second / sampleRate)
	defer ticker.Stop()
	for {
		select {
		case <-interrupt:
			return nil
		case <-ticker.C:
			for {
				var msg rawMessage
				select {
				case msg = <-events:
				default:
				}
				if msg.size == 0 {
					break
				}
				h.events.Events = append(h.events.Events, plugin.Event{
					Type: h.midiType,
					Data: msg.data,
					Size: msg.size,
				})
			}
			out = h.block(out[:0])
			if err := sink.WriteAudio(out); err != nil {
				return err
			}
		}
	}
}

// waitDrained waits until the sink has consumed approximately the given
// number of samples.
func waitDrained(sink soundplug.AudioSink, samples int) {
	deadline := time.Now().Add(time.Duration(samples/2)*time.Second/sampleRate + time.Second)
	out, ok := sink.(*oto.OtoOutput)
	for time.Now().Before(deadline) {
		if ok && out.Pending() == 0 {
			// leave the device a moment to play out its own buffer
			time.Sleep(200 * time.Millisecond)
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func outName(inst *plugin.Instance, extension string) string {
	return inst.Config().DisplayName + extension
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <bundle.yml or soundfont.sf2>\nPlay a SoundFont instrument through the plugin runtime.\n", os.Args[0])
	flag.PrintDefaults()
}
