// Package staveplay turns a declarative children's-notation composition into
// synchronized playback: a repeats-flattened sound event sequence scheduled
// on an audio engine, a visual timeline for the on-screen cursor, and a
// play/pause/stop/seek control surface sampled once per animation frame.
package staveplay

import (
	"errors"
	"sync"
	"time"

	"github.com/lhoward/staveplay/internal/expand"
	"github.com/lhoward/staveplay/internal/score"
	"github.com/lhoward/staveplay/internal/timeline"
)

// ErrEmptyComposition is returned by Play when the snapshot has no playable
// notes. It is the only rejected input; malformed markers and notes are
// filtered, never fatal.
var ErrEmptyComposition = errors.New("composition has no playable notes")

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// AudioEngine is the collaborator contract with the sound backend: an
// authoritative, pausable clock plus schedule-at-absolute-time. The transport
// package provides the real one; tests substitute a manual clock.
type AudioEngine interface {
	Start()
	Pause()
	Seek(to time.Duration)
	Elapsed() time.Duration
	Schedule(pitch int, at, dur time.Duration)
	CancelScheduled()
}

// PlaybackEvent is delivered on the Watch channel.
type PlaybackEvent struct {
	Kind int
}

const (
	EventPlaybackStarted int = iota
	EventPlaybackEnded
)

type Option func(*driverConfig)

type driverConfig struct {
	tempoScale float64
}

// WithTempoScale multiplies the composition tempo at play time. Values below
// 1 slow playback down (practice mode); the visual timeline stays in sync
// because both derive from the same clock.
func WithTempoScale(scale float64) Option {
	return func(cfg *driverConfig) {
		if scale > 0 {
			cfg.tempoScale = scale
		}
	}
}

// Frame is the per-animation-frame observable handed to the renderer. It is
// recomputed from the audio clock on every call, never carried over, so a
// dropped frame self-corrects on the next sample.
type Frame struct {
	State           State
	Beat            float64 // expanded-timeline beat
	PlayheadVisible bool
	PlayheadX       float64
	PlayheadSystem  int

	ActiveNoteID       string
	ActivePitch        string
	ActiveNoteDuration float64 // beats
	ActiveNoteStart    float64 // seconds from session start
}

// session owns everything derived for one playback run. It is built fresh on
// each Play from Stopped and replaced wholesale, so state from a previous run
// can never alias into the next.
type session struct {
	events         []expand.Event
	segments       []timeline.Segment
	totalBeats     float64
	secondsPerBeat float64
}

func (s *session) beatToDuration(beats float64) time.Duration {
	return time.Duration(beats * s.secondsPerBeat * float64(time.Second))
}

type Driver struct {
	mu         sync.Mutex
	engine     AudioEngine
	tempoScale float64
	state      State
	sess       *session
	lastTempo  float64

	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

func New(engine AudioEngine, opts ...Option) *Driver {
	cfg := driverConfig{tempoScale: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Driver{
		engine:     engine,
		tempoScale: cfg.tempoScale,
		lastTempo:  120,
	}
}

func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Play starts playback of a fresh composition snapshot. While Playing it is
// a toggle to Paused; from Paused it resumes the frozen position without
// rebuilding anything. From Stopped it resolves sections, expands the
// sequence, builds the timeline, schedules every sounding event against the
// clock and enters Playing.
func (d *Driver) Play(comp *score.Composition) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case Playing:
		d.engine.Pause()
		d.state = Paused
		return nil
	case Paused:
		d.engine.Start()
		d.state = Playing
		return nil
	}

	comp.Normalize()
	notes := comp.PlayableNotes()
	if len(notes) == 0 {
		return ErrEmptyComposition
	}

	sections := expand.ResolveSections(comp.RepeatMarkers, comp.BeatsPerMeasure)
	events, totalBeats := expand.Sequence(notes, sections, comp.TotalBeats())
	mapper := timeline.NewMapper(comp.Layout, comp.BeatsPerMeasure)
	segments := timeline.Build(totalBeats, sections, mapper)

	tempo := comp.Tempo * d.tempoScale
	sess := &session{
		events:         events,
		segments:       segments,
		totalBeats:     totalBeats,
		secondsPerBeat: 60.0 / tempo,
	}

	// Tear down whatever the previous session scheduled before handing the
	// engine the new sequence.
	d.engine.CancelScheduled()
	d.engine.Seek(0)
	for _, ev := range events {
		if ev.Note.IsRest() {
			continue
		}
		pitch, err := score.MIDINumber(ev.Note.Pitch)
		if err != nil {
			continue
		}
		d.engine.Schedule(pitch, sess.beatToDuration(ev.PlayBeat), sess.beatToDuration(ev.Note.Duration))
	}

	d.sess = sess
	d.lastTempo = tempo
	d.state = Playing
	d.engine.Start()
	d.sendEvent(PlaybackEvent{Kind: EventPlaybackStarted})
	return nil
}

// TogglePlayPause is the keyboard-shortcut entry point; Play already has
// toggle semantics while a session exists.
func (d *Driver) TogglePlayPause(comp *score.Composition) error {
	return d.Play(comp)
}

// Pause freezes the clock and keeps the session. No-op unless Playing.
func (d *Driver) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Playing {
		return
	}
	d.engine.Pause()
	d.state = Paused
}

// Stop cancels all scheduled audio, discards the session and rewinds the
// clock. Idempotent.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Stopped {
		return
	}
	d.stopLocked()
}

func (d *Driver) stopLocked() {
	d.engine.Pause()
	d.engine.CancelScheduled()
	d.engine.Seek(0)
	d.sess = nil
	d.state = Stopped
	d.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
}

// Seek repositions the clock to an expanded-timeline beat. Valid in every
// state; the engine clears its fired bookkeeping so notes are neither skipped
// nor double-triggered relative to the new position.
func (d *Driver) Seek(targetBeat float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if targetBeat < 0 {
		targetBeat = 0
	}
	spb := 60.0 / d.lastTempo
	if d.sess != nil {
		if targetBeat > d.sess.totalBeats {
			targetBeat = d.sess.totalBeats
		}
		spb = d.sess.secondsPerBeat
	}
	d.engine.Seek(time.Duration(targetBeat * spb * float64(time.Second)))
}

// Duration is the expanded-timeline length of the current session in clock
// time, or zero when no session is live.
func (d *Driver) Duration() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess == nil {
		return 0
	}
	return d.sess.beatToDuration(d.sess.totalBeats)
}

// CurrentBeat converts the engine clock to an expanded-timeline beat.
func (d *Driver) CurrentBeat() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentBeatLocked()
}

func (d *Driver) currentBeatLocked() float64 {
	spb := 60.0 / d.lastTempo
	if d.sess != nil {
		spb = d.sess.secondsPerBeat
	}
	return d.engine.Elapsed().Seconds() / spb
}

// Frame samples the clock and derives the renderer observable. Call once per
// animation frame. Reaching the end of the expanded timeline transitions to
// Stopped.
func (d *Driver) Frame() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sess == nil {
		return Frame{State: d.state}
	}
	sess := d.sess
	beat := d.currentBeatLocked()
	if d.state == Playing && beat >= sess.totalBeats {
		d.stopLocked()
		return Frame{State: Stopped, Beat: sess.totalBeats}
	}

	fr := Frame{State: d.state, Beat: beat}
	if sys, x, ok := timeline.Locate(sess.segments, beat); ok {
		fr.PlayheadVisible = true
		fr.PlayheadSystem = sys
		fr.PlayheadX = x
	}
	// Most recently started event still sounding wins; the backward scan
	// keeps chord tie-breaks deterministic (later insertion order wins).
	for i := len(sess.events) - 1; i >= 0; i-- {
		ev := sess.events[i]
		if ev.PlayBeat > beat {
			continue
		}
		if beat < ev.PlayBeat+ev.Note.Duration {
			fr.ActiveNoteID = ev.Note.ID
			fr.ActivePitch = ev.Note.Pitch
			fr.ActiveNoteDuration = ev.Note.Duration
			fr.ActiveNoteStart = ev.PlayBeat * sess.secondsPerBeat
			break
		}
	}
	return fr
}

// Watch returns a buffered channel receiving start/end events. Only the most
// recent Watch channel is fed; events are dropped rather than block playback.
func (d *Driver) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	d.eventChMu.Lock()
	d.eventCh = ch
	d.eventChMu.Unlock()
	return ch
}

func (d *Driver) sendEvent(ev PlaybackEvent) {
	d.eventChMu.Lock()
	ch := d.eventCh
	d.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}
