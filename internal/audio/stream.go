// Package audio adapts a frame-rendering source to the ebiten audio backend.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource fills dst with interleaved stereo float32 frames. The
// transport implements this; it is pulled on the audio thread.
type SampleSource interface {
	Process(dst []float32)
}

type streamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func (r *streamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	return frames * 8, nil
}

// Output is a pausable speaker feeding from a SampleSource. The source keeps
// producing for the life of the Output; it never signals EOF, so stopping is
// always an explicit Close.
type Output struct {
	player *ebitaudio.Player
}

var (
	contextOnce sync.Once
	context     *ebitaudio.Context
	contextRate int
)

// ebiten allows a single audio context per process, created once at a fixed
// sample rate.
func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
	if contextRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz (requested %d Hz)", contextRate, sampleRate)
	}
	return context, nil
}

func NewOutput(sampleRate int, source SampleSource) (*Output, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	pl, err := ctx.NewPlayerF32(&streamReader{source: source})
	if err != nil {
		return nil, err
	}
	return &Output{player: pl}, nil
}

func (o *Output) Play()  { o.player.Play() }
func (o *Output) Pause() { o.player.Pause() }

func (o *Output) IsPlaying() bool { return o.player.IsPlaying() }

// Position reports what the listener actually hears right now.
func (o *Output) Position() time.Duration { return o.player.Position() }

func (o *Output) Close() error {
	o.player.Pause()
	return o.player.Close()
}
