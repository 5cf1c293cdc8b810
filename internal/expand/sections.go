package expand

import (
	"sort"

	"github.com/lhoward/staveplay/internal/score"
)

// Section is a resolved repeat range in absolute beats. Everything inside
// [StartBeat, EndBeat) plays twice.
type Section struct {
	PairID    string
	StartBeat float64
	EndBeat   float64
}

func (s Section) Length() float64 { return s.EndBeat - s.StartBeat }

// ResolveSections pairs start/end repeat markers into validated beat ranges,
// sorted ascending by StartBeat. Unmatched, degenerate, and overlapping
// markers are dropped silently; a malformed marker never aborts playback.
// Overlap policy: once a section is kept, any later section starting before
// its end is discarded.
func ResolveSections(markers []score.RepeatMarker, beatsPerMeasure int) []Section {
	starts := make(map[string]score.RepeatMarker)
	ends := make(map[string]score.RepeatMarker)
	order := make([]string, 0, len(markers))
	for _, m := range markers {
		if m.MeasureNumber < 0 {
			continue
		}
		switch m.Type {
		case score.MarkerStart:
			if _, dup := starts[m.PairID]; !dup {
				starts[m.PairID] = m
				order = append(order, m.PairID)
			}
		case score.MarkerEnd:
			if _, dup := ends[m.PairID]; !dup {
				ends[m.PairID] = m
			}
		}
	}

	sections := make([]Section, 0, len(starts))
	for _, pairID := range order {
		start := starts[pairID]
		end, ok := ends[pairID]
		if !ok {
			continue
		}
		sec := Section{
			PairID:    pairID,
			StartBeat: float64(start.MeasureNumber * beatsPerMeasure),
			EndBeat:   float64(end.MeasureNumber * beatsPerMeasure),
		}
		if sec.EndBeat <= sec.StartBeat {
			continue
		}
		sections = append(sections, sec)
	}
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].StartBeat < sections[j].StartBeat
	})

	kept := sections[:0]
	var lastEnd float64
	for _, sec := range sections {
		if len(kept) > 0 && sec.StartBeat < lastEnd {
			continue
		}
		kept = append(kept, sec)
		lastEnd = sec.EndBeat
	}
	return kept
}
