package score

import "fmt"

var stepSemitones = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// MIDINumber converts scientific pitch notation ("C4", "F#5", "Bb3",
// "C##4", "Ebb2") to a MIDI note number. C4 = 60. The REST sentinel is
// not a pitch; callers must check IsRest first.
func MIDINumber(pitch string) (int, error) {
	if len(pitch) < 2 {
		return 0, fmt.Errorf("invalid pitch %q", pitch)
	}
	step := pitch[0]
	semi, ok := stepSemitones[step]
	if !ok {
		return 0, fmt.Errorf("invalid pitch %q", pitch)
	}
	i := 1
	alter := 0
	for i < len(pitch) && (pitch[i] == '#' || pitch[i] == 'b') {
		if pitch[i] == '#' {
			alter++
		} else {
			alter--
		}
		i++
	}
	if alter < -2 || alter > 2 {
		return 0, fmt.Errorf("invalid pitch %q", pitch)
	}
	if i >= len(pitch) {
		return 0, fmt.Errorf("invalid pitch %q", pitch)
	}
	octave := 0
	neg := false
	if pitch[i] == '-' {
		neg = true
		i++
	}
	if i >= len(pitch) {
		return 0, fmt.Errorf("invalid pitch %q", pitch)
	}
	for ; i < len(pitch); i++ {
		if pitch[i] < '0' || pitch[i] > '9' {
			return 0, fmt.Errorf("invalid pitch %q", pitch)
		}
		octave = octave*10 + int(pitch[i]-'0')
	}
	if neg {
		octave = -octave
	}
	n := (octave+1)*12 + semi + alter
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("pitch %q out of MIDI range", pitch)
	}
	return n, nil
}
