package expand

import (
	"sort"

	"github.com/lhoward/staveplay/internal/score"
)

// Event is one note occurrence on the expanded playback timeline. A note
// inside a repeat section yields two Events, one per pass.
type Event struct {
	Note     score.Note
	PlayBeat float64
}

// Sequence flattens notes and repeat sections into a linear event list
// ordered by PlayBeat, and returns the total expanded length in beats.
//
// Notes must be sorted by AbsoluteBeat and sections must be ascending and
// non-overlapping (ResolveSections guarantees both). Simultaneous notes keep
// their input order; the final sort is stable so that tie-break holds across
// section boundaries too.
func Sequence(notes []score.Note, sections []Section, totalBeats float64) ([]Event, float64) {
	events := make([]Event, 0, len(notes))
	emit := func(lo, hi, base float64) {
		for _, n := range notes {
			if n.AbsoluteBeat >= lo && n.AbsoluteBeat < hi {
				events = append(events, Event{Note: n, PlayBeat: base + n.AbsoluteBeat - lo})
			}
		}
	}

	offset := 0.0 // beats already emitted into the expanded timeline
	cursor := 0.0 // last original-beat position consumed
	for _, sec := range sections {
		if sec.StartBeat > cursor {
			emit(cursor, sec.StartBeat, offset)
			offset += sec.StartBeat - cursor
			cursor = sec.StartBeat
		}
		emit(sec.StartBeat, sec.EndBeat, offset) // pass 1
		offset += sec.Length()
		emit(sec.StartBeat, sec.EndBeat, offset) // pass 2
		offset += sec.Length()
		cursor = sec.EndBeat
	}
	if totalBeats > cursor {
		emit(cursor, totalBeats, offset)
		offset += totalBeats - cursor
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].PlayBeat < events[j].PlayBeat
	})
	return events, offset
}
