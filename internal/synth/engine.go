// Package synth is a small polyphonic sine engine used by the transport to
// make scheduled notes audible. It is deliberately plain: one oscillator per
// voice with a linear attack/release envelope.
package synth

import "math"

const (
	attackSeconds  = 0.005
	releaseSeconds = 0.06
	tau            = 2 * math.Pi
)

type voiceState int

const (
	voiceAttack voiceState = iota
	voiceSustain
	voiceRelease
	voiceDone
)

type voice struct {
	id       int
	phase    float64
	phaseInc float64
	amp      float64
	level    float64
	state    voiceState
	attInc   float64
	relDec   float64
}

type Engine struct {
	sampleRate int
	masterGain float64
	voices     []*voice
	nextID     int
}

func New(sampleRate int) *Engine {
	return &Engine{sampleRate: sampleRate, masterGain: 0.2}
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	e.masterGain = gain
}

// NoteOn starts a voice for a MIDI note number and returns its voice id.
func (e *Engine) NoteOn(note int, velocity int) int {
	if velocity <= 0 {
		velocity = 100
	}
	if velocity > 127 {
		velocity = 127
	}
	freq := 440.0 * math.Pow(2, float64(note-69)/12.0)
	v := &voice{
		id:       e.nextID,
		phaseInc: tau * freq / float64(e.sampleRate),
		amp:      float64(velocity) / 127.0,
		state:    voiceAttack,
		attInc:   1.0 / (attackSeconds * float64(e.sampleRate)),
		relDec:   1.0 / (releaseSeconds * float64(e.sampleRate)),
	}
	e.nextID++
	e.voices = append(e.voices, v)
	return v.id
}

// NoteOff moves the voice into its release stage. Unknown ids are ignored.
func (e *Engine) NoteOff(id int) {
	for _, v := range e.voices {
		if v.id == id && v.state != voiceDone {
			v.state = voiceRelease
		}
	}
}

// AllNotesOff releases every sounding voice.
func (e *Engine) AllNotesOff() {
	for _, v := range e.voices {
		if v.state != voiceDone {
			v.state = voiceRelease
		}
	}
}

func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for _, v := range e.voices {
		if v.state != voiceDone {
			n++
		}
	}
	return n
}

// RenderFrame produces one stereo frame and advances all voices.
func (e *Engine) RenderFrame() (float32, float32) {
	var sum float64
	alive := false
	for _, v := range e.voices {
		switch v.state {
		case voiceAttack:
			v.level += v.attInc
			if v.level >= 1 {
				v.level = 1
				v.state = voiceSustain
			}
		case voiceRelease:
			v.level -= v.relDec
			if v.level <= 0 {
				v.level = 0
				v.state = voiceDone
				continue
			}
		case voiceDone:
			continue
		}
		alive = true
		sum += math.Sin(v.phase) * v.amp * v.level
		v.phase += v.phaseInc
		if v.phase >= tau {
			v.phase -= tau
		}
	}
	if !alive && len(e.voices) > 0 {
		e.voices = e.voices[:0]
	}
	s := float32(sum * e.masterGain)
	return s, s
}
