package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lhoward/staveplay"
	"github.com/lhoward/staveplay/internal/score"
)

type stubEngine struct {
	elapsed   time.Duration
	scheduled int
}

func (e *stubEngine) Start()                  {}
func (e *stubEngine) Pause()                  {}
func (e *stubEngine) Seek(to time.Duration)   { e.elapsed = to }
func (e *stubEngine) Elapsed() time.Duration  { return e.elapsed }
func (e *stubEngine) CancelScheduled()        { e.scheduled = 0 }
func (e *stubEngine) Schedule(pitch int, at, dur time.Duration) {
	e.scheduled++
}

func testComposition() *score.Composition {
	comp := &score.Composition{
		Tempo:           120,
		BeatsPerMeasure: 4,
		TotalMeasures:   1,
		Notes: []score.Note{
			{ID: "n1", Pitch: "C4", Duration: 1, AbsoluteBeat: 0},
			{ID: "n2", Pitch: "E4", Duration: 1, AbsoluteBeat: 1},
		},
	}
	comp.Normalize()
	return comp
}

func newTestServer(t *testing.T, comp *score.Composition, opts ...Option) (*httptest.Server, *staveplay.Driver, *stubEngine) {
	t.Helper()
	eng := &stubEngine{}
	driver := staveplay.New(eng)
	srv := httptest.NewServer(New(driver, comp, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv, driver, eng
}

func TestGetComposition(t *testing.T) {
	srv, _, _ := newTestServer(t, testComposition())

	resp, err := http.Get(srv.URL + "/composition")
	if err != nil {
		t.Fatalf("get composition: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got score.Composition
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Notes) != 2 || got.Tempo != 120 {
		t.Fatalf("composition round trip mismatch: %+v", got)
	}
}

func TestPlayEmptyCompositionRejected(t *testing.T) {
	comp := &score.Composition{Tempo: 120, BeatsPerMeasure: 4, TotalMeasures: 1}
	comp.Normalize()
	srv, _, _ := newTestServer(t, comp)

	resp, err := http.Post(srv.URL+"/play", "application/json", nil)
	if err != nil {
		t.Fatalf("post play: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestPlayStopLifecycle(t *testing.T) {
	srv, driver, eng := newTestServer(t, testComposition())

	resp, err := http.Post(srv.URL+"/play", "application/json", nil)
	if err != nil {
		t.Fatalf("post play: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("play status = %d, want 204", resp.StatusCode)
	}
	if driver.State() != staveplay.Playing {
		t.Fatalf("state after play = %v", driver.State())
	}
	if eng.scheduled != 2 {
		t.Fatalf("scheduled %d notes, want 2", eng.scheduled)
	}

	resp, err = http.Post(srv.URL+"/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("post stop: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("stop status = %d, want 204", resp.StatusCode)
	}
	if driver.State() != staveplay.Stopped {
		t.Fatalf("state after stop = %v", driver.State())
	}
}

func TestToggleAliasesPlay(t *testing.T) {
	srv, driver, _ := newTestServer(t, testComposition())

	for _, want := range []staveplay.State{staveplay.Playing, staveplay.Paused, staveplay.Playing} {
		resp, err := http.Post(srv.URL+"/toggle", "application/json", nil)
		if err != nil {
			t.Fatalf("post toggle: %v", err)
		}
		resp.Body.Close()
		if driver.State() != want {
			t.Fatalf("state = %v, want %v", driver.State(), want)
		}
	}
}

func TestFrameJSONNullsWhenStopped(t *testing.T) {
	srv, _, _ := newTestServer(t, testComposition())

	resp, err := http.Get(srv.URL + "/frame")
	if err != nil {
		t.Fatalf("get frame: %v", err)
	}
	defer resp.Body.Close()
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["state"] != "stopped" {
		t.Fatalf("state = %v, want stopped", got["state"])
	}
	if got["playheadX"] != nil {
		t.Fatalf("playheadX = %v, want null", got["playheadX"])
	}
	if got["activeNoteId"] != nil {
		t.Fatalf("activeNoteId = %v, want null", got["activeNoteId"])
	}
}

func TestFrameReportsActiveNote(t *testing.T) {
	srv, _, eng := newTestServer(t, testComposition())

	resp, err := http.Post(srv.URL+"/play", "application/json", nil)
	if err != nil {
		t.Fatalf("post play: %v", err)
	}
	resp.Body.Close()
	eng.elapsed = 250 * time.Millisecond // beat 0.5 at 120 bpm

	resp, err = http.Get(srv.URL + "/frame")
	if err != nil {
		t.Fatalf("get frame: %v", err)
	}
	defer resp.Body.Close()
	var got frameResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != "playing" {
		t.Fatalf("state = %q, want playing", got.State)
	}
	if got.PlayheadX == nil {
		t.Fatal("playheadX should be set while playing")
	}
	if got.ActiveNoteID == nil || *got.ActiveNoteID != "n1" {
		t.Fatalf("activeNoteId = %v, want n1", got.ActiveNoteID)
	}
	if got.ActivePitch != "C4" {
		t.Fatalf("activePitch = %q, want C4", got.ActivePitch)
	}
}

func TestSeekDebouncesBursts(t *testing.T) {
	srv, driver, _ := newTestServer(t, testComposition(), WithSeekDebounce(5*time.Millisecond))

	for _, beat := range []string{"0.5", "1", "1.5"} {
		resp, err := http.Post(srv.URL+"/seek", "application/json",
			strings.NewReader(`{"beat": `+beat+`}`))
		if err != nil {
			t.Fatalf("post seek: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("seek status = %d, want 202", resp.StatusCode)
		}
	}

	deadline := time.Now().Add(time.Second)
	for driver.CurrentBeat() != 1.5 {
		if time.Now().After(deadline) {
			t.Fatalf("debounced seek never landed, beat = %g", driver.CurrentBeat())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSeekRejectsMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t, testComposition())

	resp, err := http.Post(srv.URL+"/seek", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("post seek: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
