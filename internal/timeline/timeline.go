// Package timeline maps the expanded playback timeline onto screen
// coordinates: which notation row the playhead is on and how far across.
package timeline

import (
	"math"
	"sort"

	"github.com/lhoward/staveplay/internal/expand"
	"github.com/lhoward/staveplay/internal/score"
)

// Segment is one contiguous visual mapping: while the expanded-timeline beat
// is in [StartBeat, EndBeat), the playhead sweeps System's row from StartX
// to EndX.
type Segment struct {
	StartBeat float64
	EndBeat   float64
	System    int
	StartX    float64
	EndX      float64
}

// Mapper converts an unexpanded composition beat to a row and x position.
type Mapper struct {
	BeatsPerRow float64
	LeftMargin  float64
	BeatWidth   float64
}

func NewMapper(layout score.Layout, beatsPerMeasure int) Mapper {
	return Mapper{
		BeatsPerRow: float64(layout.MeasuresPerRow * beatsPerMeasure),
		LeftMargin:  layout.LeftMargin,
		BeatWidth:   layout.BeatWidth,
	}
}

// Visual returns the row index and x coordinate of an unexpanded beat.
func (m Mapper) Visual(beat float64) (system int, x float64) {
	system = int(math.Floor(beat / m.BeatsPerRow))
	if system < 0 {
		system = 0
	}
	x = m.LeftMargin + (beat-float64(system)*m.BeatsPerRow)*m.BeatWidth
	return system, x
}

// Build walks the composition the same way the sequence expander does
// (pre-section, pass 1, pass 2, post-section) and emits row-clipped segments
// covering [0, totalExpandedBeats). Pass 1 and pass 2 re-derive their own
// row crossings, so during a repeat the cursor visibly loops back over the
// same rows instead of scrolling on.
func Build(totalBeats float64, sections []expand.Section, m Mapper) []Segment {
	var segs []Segment
	base := 0.0
	appendRange := func(a, b float64) {
		for a < b {
			row := int(math.Floor(a/m.BeatsPerRow + 1e-9))
			rowStart := float64(row) * m.BeatsPerRow
			end := math.Min(b, rowStart+m.BeatsPerRow)
			segs = append(segs, Segment{
				StartBeat: base,
				EndBeat:   base + (end - a),
				System:    row,
				StartX:    m.LeftMargin + (a-rowStart)*m.BeatWidth,
				EndX:      m.LeftMargin + (end-rowStart)*m.BeatWidth,
			})
			base += end - a
			a = end
		}
	}

	cursor := 0.0
	for _, sec := range sections {
		appendRange(cursor, sec.StartBeat)
		appendRange(sec.StartBeat, sec.EndBeat) // pass 1
		appendRange(sec.StartBeat, sec.EndBeat) // pass 2
		cursor = sec.EndBeat
	}
	appendRange(cursor, totalBeats)
	return segs
}

// Locate finds the segment containing the expanded beat and interpolates the
// playhead position within it. ok is false outside [0, totalExpandedBeats).
func Locate(segs []Segment, beat float64) (system int, x float64, ok bool) {
	i := sort.Search(len(segs), func(i int) bool { return segs[i].EndBeat > beat })
	if i >= len(segs) || beat < segs[i].StartBeat {
		return 0, 0, false
	}
	seg := segs[i]
	slope := 0.0
	if seg.EndBeat > seg.StartBeat {
		slope = (seg.EndX - seg.StartX) / (seg.EndBeat - seg.StartBeat)
	}
	return seg.System, seg.StartX + (beat-seg.StartBeat)*slope, true
}
