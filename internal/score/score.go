package score

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// RestPitch marks a note slot that occupies time but makes no sound.
const RestPitch = "REST"

type Note struct {
	ID           string  `json:"id"`
	Pitch        string  `json:"pitch"`
	Duration     float64 `json:"duration"`
	AbsoluteBeat float64 `json:"absoluteBeat"`
}

func (n Note) IsRest() bool { return n.Pitch == RestPitch }

type MarkerType string

const (
	MarkerStart MarkerType = "start"
	MarkerEnd   MarkerType = "end"
)

type RepeatMarker struct {
	ID            string     `json:"id"`
	PairID        string     `json:"pairId"`
	Type          MarkerType `json:"type"`
	MeasureNumber int        `json:"measureNumber"`
}

// Layout carries the renderer-owned row geometry. The timeline builder
// consumes it to place the playhead; nothing here owns pixels otherwise.
type Layout struct {
	MeasuresPerRow int     `json:"measuresPerRow"`
	LeftMargin     float64 `json:"leftMargin"`
	BeatWidth      float64 `json:"beatWidth"`
}

// Composition is the editor's song snapshot: declarative note placements
// plus repeat markers. A fresh snapshot is consumed on every play().
type Composition struct {
	Title           string         `json:"title,omitempty"`
	Tempo           float64        `json:"tempo"`
	BeatsPerMeasure int            `json:"beatsPerMeasure"`
	TotalMeasures   int            `json:"totalMeasures"`
	Layout          Layout         `json:"layout"`
	Notes           []Note         `json:"notes"`
	RepeatMarkers   []RepeatMarker `json:"repeatMarkers"`
}

func DefaultLayout() Layout {
	return Layout{MeasuresPerRow: 4, LeftMargin: 40, BeatWidth: 60}
}

// Normalize fills in values the editor may omit so downstream math never
// divides by zero.
func (c *Composition) Normalize() {
	if c.Tempo <= 0 {
		c.Tempo = 120
	}
	if c.BeatsPerMeasure <= 0 {
		c.BeatsPerMeasure = 4
	}
	if c.Layout.MeasuresPerRow <= 0 {
		c.Layout.MeasuresPerRow = DefaultLayout().MeasuresPerRow
	}
	if c.Layout.BeatWidth <= 0 {
		c.Layout.BeatWidth = DefaultLayout().BeatWidth
	}
	if c.TotalMeasures <= 0 {
		c.TotalMeasures = c.measuresFromNotes()
	}
}

func (c *Composition) measuresFromNotes() int {
	var end float64
	for _, n := range c.Notes {
		if e := n.AbsoluteBeat + n.Duration; e > end {
			end = e
		}
	}
	bpm := float64(c.BeatsPerMeasure)
	if bpm <= 0 {
		bpm = 4
	}
	m := int(math.Ceil(end / bpm))
	if m < 1 {
		m = 1
	}
	return m
}

// TotalBeats is the unexpanded composition length.
func (c *Composition) TotalBeats() float64 {
	return float64(c.TotalMeasures * c.BeatsPerMeasure)
}

// PlayableNotes drops malformed entries (non-positive duration, negative
// position, unparseable pitch) and returns the rest sorted by AbsoluteBeat.
// The sort is stable so simultaneous notes keep their editor insertion order.
func (c *Composition) PlayableNotes() []Note {
	out := make([]Note, 0, len(c.Notes))
	for _, n := range c.Notes {
		if n.Duration <= 0 || n.AbsoluteBeat < 0 {
			continue
		}
		if !n.IsRest() {
			if _, err := MIDINumber(n.Pitch); err != nil {
				continue
			}
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AbsoluteBeat < out[j].AbsoluteBeat
	})
	return out
}

func Parse(data []byte) (*Composition, error) {
	var c Composition
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse composition: %w", err)
	}
	c.Normalize()
	return &c, nil
}

func Load(path string) (*Composition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
