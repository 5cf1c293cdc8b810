// Package musicxml imports MusicXML scores (.xml, or .mxl zip containers)
// into the editor's composition model: pitched notes and rests on a
// half-beat grid, tied notes merged, and repeat barlines paired into
// start/end markers.
package musicxml

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/lhoward/staveplay/internal/score"
)

type xmlScore struct {
	XMLName xml.Name  `xml:"score-partwise"`
	Parts   []xmlPart `xml:"part"`
}

type xmlPart struct {
	Measures []xmlMeasure `xml:"measure"`
}

type xmlMeasure struct {
	Attributes []xmlAttributes `xml:"attributes"`
	Barlines   []xmlBarline    `xml:"barline"`
	Notes      []xmlNote       `xml:"note"`
}

type xmlAttributes struct {
	Divisions *int     `xml:"divisions"`
	Key       *xmlKey  `xml:"key"`
	Time      *xmlTime `xml:"time"`
}

type xmlKey struct {
	Fifths int `xml:"fifths"`
}

type xmlTime struct {
	Beats    int `xml:"beats"`
	BeatType int `xml:"beat-type"`
}

type xmlBarline struct {
	Repeat *xmlRepeat `xml:"repeat"`
	Ending *xmlEnding `xml:"ending"`
}

type xmlRepeat struct {
	Direction string `xml:"direction,attr"`
}

type xmlEnding struct {
	Type   string `xml:"type,attr"`
	Number string `xml:"number,attr"`
}

type xmlNote struct {
	Rest     *struct{} `xml:"rest"`
	Chord    *struct{} `xml:"chord"`
	Ties     []xmlTie  `xml:"tie"`
	Pitch    *xmlPitch `xml:"pitch"`
	Duration int       `xml:"duration"`
}

type xmlTie struct {
	Type string `xml:"type,attr"`
}

type xmlPitch struct {
	Step   string   `xml:"step"`
	Octave int      `xml:"octave"`
	Alter  *float64 `xml:"alter"`
}

var (
	sharpsOrder = []string{"F", "C", "G", "D", "A", "E", "B"}
	flatsOrder  = []string{"B", "E", "A", "D", "G", "C", "F"}
)

func keyAccidentals(fifths int) (sharps, flats map[string]bool) {
	sharps = make(map[string]bool)
	flats = make(map[string]bool)
	if fifths > 0 {
		for _, s := range sharpsOrder[:min(fifths, 7)] {
			sharps[s] = true
		}
	} else if fifths < 0 {
		for _, f := range flatsOrder[:min(-fifths, 7)] {
			flats[f] = true
		}
	}
	return sharps, flats
}

// snapToHalfBeat snaps a beat position onto the editor's half-beat grid.
func snapToHalfBeat(beat float64) float64 {
	return math.Floor(beat*2+0.5) / 2
}

func alterSuffix(alter int) string {
	switch alter {
	case 2:
		return "##"
	case 1:
		return "#"
	case -1:
		return "b"
	case -2:
		return "bb"
	default:
		return ""
	}
}

type repeatBar struct {
	measure   int // 0-based
	direction string
}

type rawNote struct {
	pitch    string
	duration float64
	beat     float64
	tieStart bool
	tieStop  bool
	rest     bool
}

// Parse reads an uncompressed MusicXML document. Only the first part is
// imported; voltas and lyrics are skipped, repeats become paired markers.
func Parse(r io.Reader) (*score.Composition, error) {
	var doc xmlScore
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode musicxml: %w", err)
	}
	if len(doc.Parts) == 0 {
		return nil, fmt.Errorf("musicxml score has no parts")
	}
	measures := doc.Parts[0].Measures

	divisions := 2
	fifths := 0
	beatsPerMeasure := 0
	keySharps, keyFlats := keyAccidentals(fifths)

	var repeats []repeatBar
	var raw []rawNote
	currentBeat := 0.0

	for mi, m := range measures {
		// Accidentals reset at every bar line.
		measureAccidentals := make(map[string]int)

		for _, attr := range m.Attributes {
			if attr.Divisions != nil && *attr.Divisions > 0 {
				divisions = *attr.Divisions
			}
			if attr.Key != nil && attr.Key.Fifths != fifths {
				fifths = attr.Key.Fifths
				keySharps, keyFlats = keyAccidentals(fifths)
			}
			// The composition model carries a single time signature; the
			// first one wins and later changes are ignored.
			if attr.Time != nil && beatsPerMeasure == 0 && attr.Time.Beats > 0 {
				beatsPerMeasure = attr.Time.Beats
			}
		}

		for _, bl := range m.Barlines {
			if bl.Repeat != nil {
				repeats = append(repeats, repeatBar{measure: mi, direction: bl.Repeat.Direction})
			}
			// Ending (volta) brackets are unsupported by the composition
			// format and must be linearized upstream; skip them.
		}

		for _, n := range m.Notes {
			durBeats := float64(n.Duration) / float64(divisions)
			if n.Rest != nil {
				raw = append(raw, rawNote{
					pitch:    score.RestPitch,
					duration: durBeats,
					beat:     snapToHalfBeat(currentBeat),
					rest:     true,
				})
				currentBeat += durBeats
				continue
			}
			if n.Pitch == nil || n.Duration <= 0 {
				continue
			}

			step := n.Pitch.Step
			pitch := step
			if n.Pitch.Alter != nil {
				alter := int(*n.Pitch.Alter)
				pitch += alterSuffix(alter)
				measureAccidentals[step] = alter
			} else if alter, ok := measureAccidentals[step]; ok {
				pitch += alterSuffix(alter)
			} else if keySharps[step] {
				pitch += "#"
			} else if keyFlats[step] {
				pitch += "b"
			}
			pitch += fmt.Sprintf("%d", n.Pitch.Octave)

			// Chord members share the previous note's position.
			noteBeat := currentBeat
			if n.Chord != nil && len(raw) > 0 {
				noteBeat = raw[len(raw)-1].beat
			}

			var tieStart, tieStop bool
			for _, t := range n.Ties {
				switch t.Type {
				case "start":
					tieStart = true
				case "stop":
					tieStop = true
				}
			}

			raw = append(raw, rawNote{
				pitch:    pitch,
				duration: durBeats,
				beat:     snapToHalfBeat(noteBeat),
				tieStart: tieStart,
				tieStop:  tieStop,
			})
			if n.Chord == nil {
				currentBeat += durBeats
			}
		}
	}

	merged := mergeTies(raw)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].beat != merged[j].beat {
			return merged[i].beat < merged[j].beat
		}
		return !merged[i].rest && merged[j].rest
	})

	notes := make([]score.Note, 0, len(merged))
	for _, rn := range merged {
		notes = append(notes, score.Note{
			ID:           uuid.NewString(),
			Pitch:        rn.pitch,
			Duration:     math.Round(rn.duration*100) / 100,
			AbsoluteBeat: rn.beat,
		})
	}

	if beatsPerMeasure == 0 {
		beatsPerMeasure = 4
	}
	comp := &score.Composition{
		Tempo:           120,
		BeatsPerMeasure: beatsPerMeasure,
		TotalMeasures:   len(measures),
		Layout:          score.DefaultLayout(),
		Notes:           notes,
		RepeatMarkers:   pairRepeats(repeats),
	}
	comp.Normalize()
	return comp, nil
}

// pairRepeats matches each backward repeat with the last forward repeat
// before it. Start markers carry the first repeated measure; end markers
// carry the exclusive measure boundary. A backward with no forward is
// emitted unpaired and the section resolver drops it.
func pairRepeats(bars []repeatBar) []score.RepeatMarker {
	var markers []score.RepeatMarker
	pair := 1
	for _, back := range bars {
		if back.direction != "backward" {
			continue
		}
		forward := -1
		for _, fwd := range bars {
			if fwd.direction == "forward" && fwd.measure <= back.measure {
				forward = fwd.measure
			}
		}
		pairID := fmt.Sprintf("repeat-%d", pair)
		if forward >= 0 {
			markers = append(markers, score.RepeatMarker{
				ID:            uuid.NewString(),
				PairID:        pairID,
				Type:          score.MarkerStart,
				MeasureNumber: forward,
			})
		}
		markers = append(markers, score.RepeatMarker{
			ID:            uuid.NewString(),
			PairID:        pairID,
			Type:          score.MarkerEnd,
			MeasureNumber: back.measure + 1,
		})
		pair++
	}
	return markers
}

// mergeTies combines a tie-start note with the tie-stop notes that follow it
// at the same pitch, accumulating duration into the first note.
func mergeTies(raw []rawNote) []rawNote {
	skip := make(map[int]bool)
	var out []rawNote
	for i, rn := range raw {
		if skip[i] {
			continue
		}
		merged := rn
		if rn.tieStart {
			for j := i + 1; j < len(raw); j++ {
				if raw[j].pitch == rn.pitch && raw[j].tieStop {
					merged.duration += raw[j].duration
					skip[j] = true
					if !raw[j].tieStart {
						break
					}
				}
			}
		}
		out = append(out, merged)
	}
	return out
}

// ImportFile reads a .xml score or a .mxl compressed container.
func ImportFile(path string) (*score.Composition, error) {
	if strings.EqualFold(filepath.Ext(path), ".mxl") {
		return importMXL(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func importMXL(path string) (*score.Composition, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open mxl: %w", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".xml" && ext != ".musicxml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		comp, err := Parse(rc)
		rc.Close()
		return comp, err
	}
	return nil, fmt.Errorf("mxl container %s has no score document", path)
}
