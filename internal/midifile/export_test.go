package midifile

import (
	"bytes"
	"testing"

	"github.com/lhoward/staveplay/internal/score"
)

func testComposition() *score.Composition {
	return &score.Composition{
		Tempo:           120,
		BeatsPerMeasure: 4,
		TotalMeasures:   2,
		Notes: []score.Note{
			{ID: "a", Pitch: "C4", Duration: 1, AbsoluteBeat: 0},
			{ID: "b", Pitch: "E4", Duration: 1, AbsoluteBeat: 1},
			{ID: "r", Pitch: score.RestPitch, Duration: 2, AbsoluteBeat: 2},
			{ID: "c", Pitch: "G4", Duration: 4, AbsoluteBeat: 4},
		},
		RepeatMarkers: []score.RepeatMarker{
			{ID: "s", PairID: "p", Type: score.MarkerStart, MeasureNumber: 0},
			{ID: "e", PairID: "p", Type: score.MarkerEnd, MeasureNumber: 1},
		},
	}
}

func TestExportDoublesRepeatedNotes(t *testing.T) {
	sm, err := Export(testComposition())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(sm.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(sm.Tracks))
	}

	var ons, offs int
	keyCounts := map[uint8]int{}
	for _, ev := range sm.Tracks[0] {
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			ons++
			keyCounts[key]++
		} else if ev.Message.GetNoteEnd(&ch, &key) {
			offs++
		}
	}
	// a and b doubled by the repeat, c once, rest silent: 5 note-ons.
	if ons != 5 || offs != 5 {
		t.Fatalf("expected 5 note-ons and 5 note-offs, got %d/%d", ons, offs)
	}
	if keyCounts[60] != 2 || keyCounts[64] != 2 || keyCounts[67] != 1 {
		t.Fatalf("unexpected key counts: %v", keyCounts)
	}
}

func TestExportTicksFollowExpandedBeats(t *testing.T) {
	sm, err := Export(testComposition())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var abs uint32
	var onTicks []uint32
	for _, ev := range sm.Tracks[0] {
		abs += ev.Delta
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			onTicks = append(onTicks, abs)
		}
	}
	// playBeats 0,1 (pass 1), 4,5 (pass 2), 8 (tail note).
	want := []uint32{0, 480, 4 * 480, 5 * 480, 8 * 480}
	if len(onTicks) != len(want) {
		t.Fatalf("note-on count %d, want %d", len(onTicks), len(want))
	}
	for i, w := range want {
		if onTicks[i] != w {
			t.Fatalf("note-on %d at tick %d, want %d", i, onTicks[i], w)
		}
	}
}

func TestWriteProducesNonEmptySMF(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(testComposition(), &buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty SMF output")
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("MThd")) {
		t.Fatalf("output does not start with an SMF header: % x", buf.Bytes()[:8])
	}
}
