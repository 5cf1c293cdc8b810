// Package web exposes the playback driver to a browser renderer: the
// composition snapshot, the per-frame observable, and the transport controls.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/lhoward/staveplay"
	"github.com/lhoward/staveplay/internal/score"
)

type Server struct {
	driver *staveplay.Driver
	comp   *score.Composition

	seekMu    sync.Mutex
	seekBeat  float64
	debounced func(func())
}

type Option func(*Server)

// WithSeekDebounce sets how long a burst of seek requests (a slider drag)
// is coalesced before one Seek hits the driver.
func WithSeekDebounce(d time.Duration) Option {
	return func(s *Server) {
		s.debounced = debounce.New(d)
	}
}

func New(driver *staveplay.Driver, comp *score.Composition, opts ...Option) *Server {
	s := &Server{
		driver:    driver,
		comp:      comp,
		debounced: debounce.New(80 * time.Millisecond),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/composition", s.getComposition).Methods("GET")
	r.HandleFunc("/frame", s.getFrame).Methods("GET")
	r.HandleFunc("/play", s.postPlay).Methods("POST")
	r.HandleFunc("/pause", s.postPause).Methods("POST")
	r.HandleFunc("/stop", s.postStop).Methods("POST")
	r.HandleFunc("/toggle", s.postToggle).Methods("POST")
	r.HandleFunc("/seek", s.postSeek).Methods("POST")
	return cors.Default().Handler(r)
}

func (s *Server) getComposition(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.comp)
}

// frameResponse mirrors the renderer observable: playheadX and activeNoteId
// are null when nothing is playing.
type frameResponse struct {
	State               string   `json:"state"`
	Beat                float64  `json:"beat"`
	PlayheadX           *float64 `json:"playheadX"`
	PlayheadSystem      int      `json:"playheadSystem"`
	ActiveNoteID        *string  `json:"activeNoteId"`
	ActivePitch         string   `json:"activePitch,omitempty"`
	ActiveNoteDuration  float64  `json:"activeNoteDuration,omitempty"`
	ActiveNoteStartTime float64  `json:"activeNoteStartTime,omitempty"`
}

func (s *Server) getFrame(w http.ResponseWriter, r *http.Request) {
	fr := s.driver.Frame()
	resp := frameResponse{
		State:          fr.State.String(),
		Beat:           fr.Beat,
		PlayheadSystem: fr.PlayheadSystem,
	}
	if fr.PlayheadVisible {
		x := fr.PlayheadX
		resp.PlayheadX = &x
	}
	if fr.ActiveNoteID != "" {
		id := fr.ActiveNoteID
		resp.ActiveNoteID = &id
		resp.ActivePitch = fr.ActivePitch
		resp.ActiveNoteDuration = fr.ActiveNoteDuration
		resp.ActiveNoteStartTime = fr.ActiveNoteStart
	}
	writeJSON(w, resp)
}

func (s *Server) postPlay(w http.ResponseWriter, r *http.Request) {
	if err := s.driver.Play(s.comp); err != nil {
		if errors.Is(err, staveplay.ErrEmptyComposition) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postToggle(w http.ResponseWriter, r *http.Request) {
	s.postPlay(w, r)
}

func (s *Server) postPause(w http.ResponseWriter, r *http.Request) {
	s.driver.Pause()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postStop(w http.ResponseWriter, r *http.Request) {
	s.driver.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postSeek(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Beat float64 `json:"beat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "seek body must be {\"beat\": <number>}", http.StatusBadRequest)
		return
	}
	s.seekMu.Lock()
	s.seekBeat = body.Beat
	s.seekMu.Unlock()
	s.debounced(func() {
		s.seekMu.Lock()
		beat := s.seekBeat
		s.seekMu.Unlock()
		s.driver.Seek(beat)
	})
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
