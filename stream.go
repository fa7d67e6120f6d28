package micromod

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/gopxl/beep/v2"
)

// Streamer returns the player as a beep.Streamer. The streamer is drained
// once the player stops.
func (p *Player) Streamer() beep.Streamer {
	return &streamer{p: p}
}

type streamer struct {
	p   *Player
	buf []float32
}

var _ beep.Streamer = &streamer{}

func (s *streamer) Stream(samples [][2]float64) (int, bool) {
	if !s.p.IsPlaying() {
		return 0, false
	}
	if cap(s.buf) < len(samples)*2 {
		s.buf = make([]float32, len(samples)*2)
	}
	buf := s.buf[:len(samples)*2]

	n := s.p.GenerateAudio(buf)
	for i := 0; i < n; i++ {
		samples[i][0] = float64(buf[i*2+0])
		samples[i][1] = float64(buf[i*2+1])
	}
	return n, n > 0
}

func (s *streamer) Err() error { return nil }

// Reader returns an io.Reader producing interleaved stereo float32
// little-endian PCM, the format oto and most sound servers accept. It
// never returns an error, a stopped player reads as silence.
func (p *Player) Reader() io.Reader {
	return NewPCMReader(p.GenerateAudio)
}

// NewPCMReader adapts a stereo float32 generator, such as
// Player.GenerateAudio or a post-processing chain built on it, to an
// io.Reader of float32 little-endian PCM. generate must fill the whole
// buffer, padding with silence if needed.
func NewPCMReader(generate func(out []float32) int) io.Reader {
	return &pcmReader{generate: generate}
}

type pcmReader struct {
	generate func(out []float32) int
	buf      []float32
}

const bytesPerFrame = 2 * 4

func (r *pcmReader) Read(b []byte) (int, error) {
	frames := len(b) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if cap(r.buf) < frames*2 {
		r.buf = make([]float32, frames*2)
	}
	buf := r.buf[:frames*2]

	r.generate(buf)
	for i, s := range buf {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(s))
	}
	return frames * bytesPerFrame, nil
}
