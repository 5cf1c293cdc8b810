package expand

import (
	"testing"

	"github.com/lhoward/staveplay/internal/score"
)

func marker(pairID string, t score.MarkerType, measure int) score.RepeatMarker {
	return score.RepeatMarker{ID: pairID + "-" + string(t), PairID: pairID, Type: t, MeasureNumber: measure}
}

func TestResolveSectionsPairsMarkers(t *testing.T) {
	markers := []score.RepeatMarker{
		marker("a", score.MarkerStart, 0),
		marker("a", score.MarkerEnd, 1),
	}
	secs := ResolveSections(markers, 4)
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	if secs[0].StartBeat != 0 || secs[0].EndBeat != 4 {
		t.Fatalf("expected [0,4), got [%g,%g)", secs[0].StartBeat, secs[0].EndBeat)
	}
}

func TestResolveSectionsDropsUnmatchedStart(t *testing.T) {
	markers := []score.RepeatMarker{
		marker("lonely", score.MarkerStart, 0),
		marker("ok", score.MarkerStart, 2),
		marker("ok", score.MarkerEnd, 3),
	}
	secs := ResolveSections(markers, 4)
	if len(secs) != 1 {
		t.Fatalf("expected unmatched start dropped, got %d sections", len(secs))
	}
	if secs[0].PairID != "ok" {
		t.Fatalf("wrong survivor: %q", secs[0].PairID)
	}
}

func TestResolveSectionsDropsDegeneratePair(t *testing.T) {
	markers := []score.RepeatMarker{
		marker("zero", score.MarkerStart, 2),
		marker("zero", score.MarkerEnd, 2),
		marker("inverted", score.MarkerStart, 3),
		marker("inverted", score.MarkerEnd, 1),
	}
	if secs := ResolveSections(markers, 4); len(secs) != 0 {
		t.Fatalf("expected no sections, got %v", secs)
	}
}

func TestResolveSectionsSortsByStartRegardlessOfInputOrder(t *testing.T) {
	markers := []score.RepeatMarker{
		marker("late", score.MarkerStart, 4),
		marker("late", score.MarkerEnd, 5),
		marker("early", score.MarkerStart, 0),
		marker("early", score.MarkerEnd, 1),
	}
	secs := ResolveSections(markers, 4)
	if len(secs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(secs))
	}
	if secs[0].PairID != "early" || secs[1].PairID != "late" {
		t.Fatalf("sections out of order: %v", secs)
	}
}

func TestResolveSectionsDropsOverlap(t *testing.T) {
	markers := []score.RepeatMarker{
		marker("a", score.MarkerStart, 0),
		marker("a", score.MarkerEnd, 2),
		marker("b", score.MarkerStart, 1), // starts inside a
		marker("b", score.MarkerEnd, 3),
	}
	secs := ResolveSections(markers, 4)
	if len(secs) != 1 || secs[0].PairID != "a" {
		t.Fatalf("expected overlap dropped keeping first, got %v", secs)
	}
}

func TestResolveSectionsIgnoresDuplicateMarkersForPair(t *testing.T) {
	markers := []score.RepeatMarker{
		marker("a", score.MarkerStart, 0),
		marker("a", score.MarkerStart, 2), // duplicate start, first wins
		marker("a", score.MarkerEnd, 1),
	}
	secs := ResolveSections(markers, 4)
	if len(secs) != 1 || secs[0].StartBeat != 0 || secs[0].EndBeat != 4 {
		t.Fatalf("expected [0,4) from first start, got %v", secs)
	}
}

func TestResolveSectionsNegativeMeasureIgnored(t *testing.T) {
	markers := []score.RepeatMarker{
		marker("a", score.MarkerStart, -1),
		marker("a", score.MarkerEnd, 1),
	}
	if secs := ResolveSections(markers, 4); len(secs) != 0 {
		t.Fatalf("expected malformed marker dropped, got %v", secs)
	}
}
