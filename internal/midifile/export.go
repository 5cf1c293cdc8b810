// Package midifile exports the repeats-flattened playback sequence as a
// standard MIDI file, so a song authored in the editor can travel to other
// tools with every repeat already written out.
package midifile

import (
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/lhoward/staveplay/internal/expand"
	"github.com/lhoward/staveplay/internal/score"
)

const (
	ticksPerQuarter = 480
	channel         = 0
	velocity        = 100
)

// Export expands the composition and renders it as a single-track SMF.
// Rests occupy time but emit no messages.
func Export(comp *score.Composition) (*smf.SMF, error) {
	comp.Normalize()
	notes := comp.PlayableNotes()
	sections := expand.ResolveSections(comp.RepeatMarkers, comp.BeatsPerMeasure)
	events, _ := expand.Sequence(notes, sections, comp.TotalBeats())

	type timed struct {
		tick uint32
		on   bool
		key  uint8
	}
	var msgs []timed
	for _, ev := range events {
		if ev.Note.IsRest() {
			continue
		}
		pitch, err := score.MIDINumber(ev.Note.Pitch)
		if err != nil {
			continue
		}
		start := uint32(ev.PlayBeat * ticksPerQuarter)
		end := uint32((ev.PlayBeat + ev.Note.Duration) * ticksPerQuarter)
		if end <= start {
			end = start + 1
		}
		msgs = append(msgs, timed{tick: start, on: true, key: uint8(pitch)})
		msgs = append(msgs, timed{tick: end, on: false, key: uint8(pitch)})
	}
	// Note-offs precede note-ons at the same tick so retriggered pitches
	// (second repeat pass) do not cancel themselves.
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return !msgs[i].on && msgs[j].on
	})

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTempo(comp.Tempo))
	track.Add(0, smf.MetaMeter(uint8(comp.BeatsPerMeasure), 4))
	var last uint32
	for _, m := range msgs {
		delta := m.tick - last
		last = m.tick
		if m.on {
			track.Add(delta, midi.NoteOn(channel, m.key, velocity))
		} else {
			track.Add(delta, midi.NoteOff(channel, m.key))
		}
	}
	track.Close(0)
	if err := sm.Add(track); err != nil {
		return nil, err
	}
	return sm, nil
}

// Write exports the composition to w in SMF format.
func Write(comp *score.Composition, w io.Writer) error {
	sm, err := Export(comp)
	if err != nil {
		return err
	}
	_, err = sm.WriteTo(w)
	return err
}

// WriteFile exports the composition to a .mid file at path.
func WriteFile(comp *score.Composition, path string) error {
	sm, err := Export(comp)
	if err != nil {
		return err
	}
	return sm.WriteFile(path)
}
