package config

import (
	"fmt"

	"github.com/chriskillpack/micromod/internal/comb"
)

const reverbBufSize = 16 * 1024

// ReverbPassThrough implements comb.Reverber but does nothing to do the audio
// data.
type ReverbPassThrough struct {
	audio             []float32
	bufSize           int
	readPos, writePos int
	n                 int
}

var _ comb.Reverber = &ReverbPassThrough{}

// NewPassThrough creates a new instance of ReverbPassThrough
func NewPassThrough(bufferSize int) *ReverbPassThrough {
	return &ReverbPassThrough{
		audio:   make([]float32, bufferSize),
		bufSize: bufferSize,
	}
}

func (r *ReverbPassThrough) InputSamples(in []float32) int {
	// How much can the buffer take?
	n := min(len(in), r.bufSize-r.n)
	if n == 0 {
		return 0
	}

	// Would adding this data exceed the end of the buffer?
	if r.writePos+n >= r.bufSize {
		// Yes, do it in two parts (n1 to end of buffer, n2 the remainder)
		n1 := r.bufSize - r.writePos
		n2 := n - n1
		copy(r.audio[r.writePos:], in[:n1])
		copy(r.audio[:n2], in[n1:n])
		r.writePos = n2
	} else {
		copy(r.audio[r.writePos:r.writePos+n], in[:n])
		r.writePos += n
	}
	r.n += n

	return n
}

func (r *ReverbPassThrough) GetAudio(out []float32) int {
	n := min(len(out), r.n)
	if n == 0 {
		return 0
	}

	if r.readPos+n > r.bufSize {
		n1 := r.bufSize - r.readPos
		n2 := n - n1
		copy(out[:n1], r.audio[r.readPos:])
		copy(out[n1:n], r.audio[:n2])
		r.readPos = n2
	} else {
		copy(out[:n], r.audio[r.readPos:r.readPos+n])
		r.readPos += n
	}
	r.n -= n

	return n
}

// ReverbFromFlag initializes an instance of comb.Reverber according to the
// command line flag value.
func ReverbFromFlag(reverb string, sampleRate int) (r comb.Reverber, err error) {
	switch reverb {
	case "light":
		// Small room (bedroom/studio booth)
		r = comb.NewStereoReverb(reverbBufSize, 0.5, 0.5, 0.3, sampleRate)
	case "medium":
		// Living room/small hall
		r = comb.NewStereoReverb(reverbBufSize, 0.7, 0.6, 0.5, sampleRate)
	case "hall":
		// Concert hall
		r = comb.NewStereoReverb(reverbBufSize, 0.9, 0.7, 0.7, sampleRate)
	case "none":
		r = NewPassThrough(reverbBufSize)
	default:
		err = fmt.Errorf("unrecognized reverb setting %q", reverb)
	}

	return r, err
}

// Backend is an audio output library.
type Backend int

const (
	BackendPortAudio Backend = iota
	BackendOto
)

func (b Backend) String() string {
	switch b {
	case BackendPortAudio:
		return "portaudio"
	case BackendOto:
		return "oto"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// BackendFromFlag parses the --backend flag value.
func BackendFromFlag(backend string) (Backend, error) {
	switch backend {
	case "portaudio", "pa":
		return BackendPortAudio, nil
	case "oto":
		return BackendOto, nil
	}
	return 0, fmt.Errorf("unrecognized audio backend %q", backend)
}

const chainChunk = 2048

// Chain runs a stereo generator, usually Player.GenerateAudio, through a
// reverb. Audio moves through the reverb in chunks small enough that the
// reverb never refuses input, so its buffer is empty between calls.
type Chain struct {
	reverb   comb.Reverber
	generate func(out []float32) int
	scratch  []float32
}

// NewChain returns a Chain. reverb must buffer at least 2048 samples.
func NewChain(reverb comb.Reverber, generate func(out []float32) int) *Chain {
	return &Chain{
		reverb:   reverb,
		generate: generate,
		scratch:  make([]float32, chainChunk),
	}
}

// GenerateAudio fills out with processed interleaved stereo audio and
// returns the number of frames the generator produced. Any part of out the
// generator did not fill is silent.
func (c *Chain) GenerateAudio(out []float32) int {
	frames := 0
	for len(out) > 1 {
		sc := c.scratch[:min(len(out), chainChunk)&^1]
		n := c.generate(sc)
		frames += n

		c.reverb.InputSamples(sc)
		got := c.reverb.GetAudio(out[:len(sc)])
		out = out[got:]
		if n*2 < len(sc) || got == 0 {
			break
		}
	}
	clear(out)
	return frames
}
