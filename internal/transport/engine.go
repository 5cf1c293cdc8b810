// Package transport is the audio engine side of playback: it accepts the
// whole expanded event list up front, fires each note at its absolute clock
// time while rendering, and exposes that clock as the authoritative playback
// position. Sound timing therefore never depends on render frame cadence.
package transport

import (
	"sort"
	"sync"
	"time"

	"github.com/lhoward/staveplay/internal/audio"
	"github.com/lhoward/staveplay/internal/synth"
)

type event struct {
	pitch int
	start int64 // frames
	end   int64
	fired bool
	voice int
}

type Engine struct {
	mu         sync.Mutex
	sampleRate int
	voices     *synth.Engine
	events     []event
	frames     int64
	out        *audio.Output
}

func New(sampleRate int) *Engine {
	return &Engine{
		sampleRate: sampleRate,
		voices:     synth.New(sampleRate),
	}
}

// EnableOutput opens the speaker. Without it the engine is silent but fully
// functional, which is what tests and offline rendering use.
func (e *Engine) EnableOutput() error {
	out, err := audio.NewOutput(e.sampleRate, e)
	if err != nil {
		return err
	}
	e.out = out
	return nil
}

func (e *Engine) Close() error {
	if e.out != nil {
		return e.out.Close()
	}
	return nil
}

func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voices.SetMasterGain(0.2 * v)
}

// Start resumes the clock. Pause freezes it; rendering stops, so no frames
// are counted and no scheduled event can fire while paused.
func (e *Engine) Start() {
	if e.out != nil {
		e.out.Play()
	}
}

func (e *Engine) Pause() {
	if e.out != nil {
		e.out.Pause()
	}
}

// Schedule registers one pitched note at an absolute offset from clock zero.
func (e *Engine) Schedule(pitch int, at, dur time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := int64(at.Seconds() * float64(e.sampleRate))
	end := start + int64(dur.Seconds()*float64(e.sampleRate))
	if end <= start {
		end = start + 1
	}
	e.events = append(e.events, event{pitch: pitch, start: start, end: end, voice: -1})
	sort.SliceStable(e.events, func(i, j int) bool { return e.events[i].start < e.events[j].start })
}

// CancelScheduled drops every pending event and releases sounding voices.
// Cancellation is total: nothing fires after it returns.
func (e *Engine) CancelScheduled() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = e.events[:0]
	e.voices.AllNotesOff()
}

// Seek repositions the clock and resets per-event fired bookkeeping against
// the new position: events starting at or after it will fire, events already
// past their onset will not re-trigger.
func (e *Engine) Seek(to time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if to < 0 {
		to = 0
	}
	e.frames = int64(to.Seconds() * float64(e.sampleRate))
	e.voices.AllNotesOff()
	for i := range e.events {
		e.events[i].fired = e.events[i].start < e.frames
		e.events[i].voice = -1
	}
}

func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(float64(e.frames) / float64(e.sampleRate) * float64(time.Second))
}

// Process renders stereo frames, firing note-ons and note-offs as the frame
// counter crosses each event boundary. Runs on the audio thread.
func (e *Engine) Process(dst []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for f := 0; f+1 < len(dst); f += 2 {
		for i := range e.events {
			ev := &e.events[i]
			if !ev.fired && ev.start <= e.frames {
				ev.voice = e.voices.NoteOn(ev.pitch, 100)
				ev.fired = true
			}
			if ev.fired && ev.voice >= 0 && ev.end <= e.frames {
				e.voices.NoteOff(ev.voice)
				ev.voice = -1
			}
		}
		l, r := e.voices.RenderFrame()
		dst[f] = l
		dst[f+1] = r
		e.frames++
	}
}
