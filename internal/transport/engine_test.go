package transport

import (
	"testing"
	"time"
)

const rate = 48000

func render(e *Engine, frames int) []float32 {
	buf := make([]float32, frames*2)
	e.Process(buf)
	return buf
}

func energy(buf []float32) float64 {
	var total float64
	for _, s := range buf {
		if s < 0 {
			total -= float64(s)
		} else {
			total += float64(s)
		}
	}
	return total
}

func TestClockAdvancesWithRendering(t *testing.T) {
	e := New(rate)
	render(e, rate/2)
	if got := e.Elapsed(); got != 500*time.Millisecond {
		t.Fatalf("Elapsed = %v, want 500ms", got)
	}
}

func TestScheduledNoteFiresAtItsOffset(t *testing.T) {
	e := New(rate)
	e.Schedule(60, 100*time.Millisecond, 100*time.Millisecond)

	before := render(e, rate/20) // first 50ms: silence
	if energy(before) != 0 {
		t.Fatalf("note fired early, energy %g", energy(before))
	}
	during := render(e, rate/10) // 50ms..150ms: note sounds
	if energy(during) == 0 {
		t.Fatal("note did not fire at its scheduled offset")
	}
}

func TestCancelScheduledIsTotal(t *testing.T) {
	e := New(rate)
	e.Schedule(60, 0, time.Second)
	render(e, 1000) // fire it
	e.CancelScheduled()
	// Past the release tail nothing may sound.
	render(e, rate/2)
	buf := render(e, 1000)
	if energy(buf) != 0 {
		t.Fatalf("audio after CancelScheduled, energy %g", energy(buf))
	}
}

func TestSeekResetsFiredBookkeeping(t *testing.T) {
	e := New(rate)
	e.Schedule(60, 100*time.Millisecond, 50*time.Millisecond)
	render(e, rate/2) // play through the note
	if e.Elapsed() != 500*time.Millisecond {
		t.Fatalf("clock %v", e.Elapsed())
	}

	// Rewind: the note is ahead of the clock again and must re-fire.
	e.Seek(0)
	if e.Elapsed() != 0 {
		t.Fatalf("clock after seek %v, want 0", e.Elapsed())
	}
	buf := render(e, rate/4)
	if energy(buf) == 0 {
		t.Fatal("note did not re-fire after rewinding past it")
	}

	// Seek beyond the note: it must not re-trigger.
	e.Seek(300 * time.Millisecond)
	render(e, rate/2) // let releases settle
	buf = render(e, 1000)
	if energy(buf) != 0 {
		t.Fatalf("note double-triggered after forward seek, energy %g", energy(buf))
	}
}

func TestSeekMidNoteDoesNotRetrigger(t *testing.T) {
	e := New(rate)
	e.Schedule(60, 0, time.Second)
	// Seek into the middle of the note without ever rendering its onset:
	// an already-started note is not re-fired.
	e.Seek(500 * time.Millisecond)
	buf := render(e, 1000)
	if energy(buf) != 0 {
		t.Fatalf("mid-note seek should not trigger the note, energy %g", energy(buf))
	}
}

func TestNegativeSeekClampsToZero(t *testing.T) {
	e := New(rate)
	e.Seek(-time.Second)
	if e.Elapsed() != 0 {
		t.Fatalf("Elapsed = %v, want 0", e.Elapsed())
	}
}
