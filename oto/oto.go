// Package oto adapts github.com/ebitengine/oto/v3 to the soundplug audio
// interfaces, for the standalone player.
package oto

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/soundplug/soundplug"
)

type OtoContext struct {
	ctx *oto.Context
}

// NewContext initializes the audio device for 16-bit stereo output at the
// given sample rate and waits until it is ready.
func NewContext(sampleRate int) (*OtoContext, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{ctx: ctx}, nil
}

func (c *OtoContext) Output() soundplug.AudioSink {
	out := &OtoOutput{}
	out.player = c.ctx.NewPlayer(out)
	out.player.Play()
	return out
}

// Close is a no-op: an oto context cannot be closed once created.
func (c *OtoContext) Close() error {
	return nil
}

// OtoOutput buffers written audio and feeds it to the device player, which
// pulls from Read on its own thread. When the buffer runs dry the device
// gets silence instead of blocking.
type OtoOutput struct {
	player *oto.Player
	mu     sync.Mutex
	buf    []byte
	closed bool
}

func (o *OtoOutput) WriteAudio(floatBuffer []float32) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("cannot write to a closed audio output")
	}
	o.buf = FloatBufferTo16BitLE(floatBuffer, o.buf)
	return nil
}

// Pending returns how many bytes are buffered but not yet consumed by the
// device.
func (o *OtoOutput) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.buf)
}

func (o *OtoOutput) Read(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := copy(p, o.buf)
	o.buf = o.buf[:copy(o.buf, o.buf[n:])]
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

func (o *OtoOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
