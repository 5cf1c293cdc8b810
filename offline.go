package staveplay

import (
	"encoding/binary"
	"math"

	"github.com/lhoward/staveplay/internal/score"
	"github.com/lhoward/staveplay/internal/transport"
)

// releaseTailSeconds of extra rendering after the last beat so final note
// releases are not clipped.
const releaseTailSeconds = 0.1

// RenderSamples plays a composition through a silent transport engine and
// returns interleaved stereo float32 samples covering the whole expanded
// timeline. Repeated sections sound twice, exactly as live playback would.
func RenderSamples(comp *score.Composition, sampleRate int, opts ...Option) ([]float32, error) {
	engine := transport.New(sampleRate)
	driver := New(engine, opts...)
	if err := driver.Play(comp); err != nil {
		return nil, err
	}
	seconds := driver.Duration().Seconds() + releaseTailSeconds
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	engine.Process(out)
	driver.Stop()
	return out, nil
}

// EncodeWAVFloat32LE wraps samples in a minimal RIFF/WAVE container
// (format 3, 32-bit float, little endian).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
