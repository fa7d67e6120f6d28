// Package comb implements a stereo reverb built from parallel comb filters
// feeding a chain of allpass filters, after Jezar's Freeverb. Audio is
// interleaved stereo float32.
package comb

// Reverber is a buffered audio effect. Audio is fed in with InputSamples
// and the processed result read back with GetAudio.
type Reverber interface {
	// InputSamples processes interleaved stereo samples and returns how many
	// were accepted. It returns 0 once the internal buffer is full.
	InputSamples(in []float32) int
	// GetAudio copies processed samples into out and returns the number
	// copied.
	GetAudio(out []float32) int
}

// Freeverb delay lengths at 44.1kHz
var (
	combTuning    = []int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTuning = []int{556, 441, 341, 225}
)

const (
	tuningRate    = 44100
	stereoSpread  = 23
	fixedGain     = 0.015
	scaleRoom     = 0.28
	offsetRoom    = 0.7
	scaleDamp     = 0.4
	allpassFeedbk = 0.5
)

// combFilter is a feedback comb filter with a one pole lowpass in the
// feedback path.
type combFilter struct {
	buf         []float32
	pos         int
	feedback    float32
	damp1       float32
	damp2       float32
	filterStore float32
}

func newCombFilter(delay int, feedback, damping float32) *combFilter {
	return &combFilter{
		buf:      make([]float32, delay),
		feedback: feedback,
		damp1:    damping,
		damp2:    1 - damping,
	}
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.filterStore = out*c.damp2 + c.filterStore*c.damp1
	c.buf[c.pos] = in + c.filterStore*c.feedback
	if c.pos++; c.pos == len(c.buf) {
		c.pos = 0
	}
	return out
}

type allpassFilter struct {
	buf []float32
	pos int
}

func newAllpass(delay int) *allpassFilter {
	return &allpassFilter{buf: make([]float32, delay)}
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	a.buf[a.pos] = in + bufOut*allpassFeedbk
	if a.pos++; a.pos == len(a.buf) {
		a.pos = 0
	}
	return bufOut - in
}

type channelReverb struct {
	combs     []*combFilter
	allpasses []*allpassFilter
}

func newChannelReverb(spread, sampleRate int, feedback, damping float32) channelReverb {
	var cr channelReverb
	for _, d := range combTuning {
		cr.combs = append(cr.combs, newCombFilter(scaleDelay(d+spread, sampleRate), feedback, damping))
	}
	for _, d := range allpassTuning {
		cr.allpasses = append(cr.allpasses, newAllpass(scaleDelay(d+spread, sampleRate)))
	}
	return cr
}

func (cr *channelReverb) process(in float32) float32 {
	in *= fixedGain
	var out float32
	for _, c := range cr.combs {
		out += c.process(in)
	}
	for _, a := range cr.allpasses {
		out = a.process(out)
	}
	return out
}

func scaleDelay(d, sampleRate int) int {
	return max(1, d*sampleRate/tuningRate)
}

// StereoReverb applies reverb to interleaved stereo audio. Processed audio
// is held in a fixed size ring buffer until it is read.
type StereoReverb struct {
	left, right channelReverb
	wet, dry    float32

	audio             []float32
	bufSize           int
	readPos, writePos int
	n                 int
}

var _ Reverber = &StereoReverb{}

// NewStereoReverb creates a reverb holding up to bufSize processed samples.
// room and damping are in [0, 1], mix is the wet/dry balance where 0 passes
// the input through unchanged and 1 is fully wet.
func NewStereoReverb(bufSize int, room, damping, mix float32, sampleRate int) *StereoReverb {
	bufSize &^= 1 // whole stereo frames only
	feedback := room*scaleRoom + offsetRoom
	damp := damping * scaleDamp

	return &StereoReverb{
		left:    newChannelReverb(0, sampleRate, feedback, damp),
		right:   newChannelReverb(stereoSpread, sampleRate, feedback, damp),
		wet:     mix,
		dry:     1 - mix,
		audio:   make([]float32, bufSize),
		bufSize: bufSize,
	}
}

func (r *StereoReverb) InputSamples(in []float32) int {
	n := min(len(in), r.bufSize-r.n) &^ 1
	for i := 0; i < n; i += 2 {
		l, rr := in[i], in[i+1]
		wl := r.left.process(l)
		wr := r.right.process(rr)

		r.audio[r.writePos] = l*r.dry + wl*r.wet
		r.audio[r.writePos+1] = rr*r.dry + wr*r.wet
		if r.writePos += 2; r.writePos == r.bufSize {
			r.writePos = 0
		}
	}
	r.n += n
	return n
}

func (r *StereoReverb) GetAudio(out []float32) int {
	n := min(len(out), r.n)
	for i := 0; i < n; i++ {
		out[i] = r.audio[r.readPos]
		if r.readPos++; r.readPos == r.bufSize {
			r.readPos = 0
		}
	}
	r.n -= n
	return n
}
