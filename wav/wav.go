// Package wav writes rendered songs to 16-bit stereo WAVE files. The
// go-audio encoder streams sample data and patches the header sizes when
// it is closed, so the length of the song is not needed up front.
package wav

import (
	"io"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

const (
	wavTypePCM    = 1
	channels      = 2
	bitsPerSample = 16
)

// A Writer writes a WAV file into WS
type Writer struct {
	WS io.WriteSeeker

	enc *gowav.Encoder
	buf *audio.IntBuffer
}

// NewWriter returns a Writer that writes a WAV file and
// sample data to ws
func NewWriter(ws io.WriteSeeker, sampleRate int) (*Writer, error) {
	writer := &Writer{
		WS:  ws,
		enc: gowav.NewEncoder(ws, sampleRate, bitsPerSample, channels, wavTypePCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitsPerSample,
		},
	}

	// An empty write emits the header, a file with no frames is still valid
	if err := writer.enc.Write(writer.buf); err != nil {
		return nil, err
	}
	return writer, nil
}

// WriteFrame writes the provided interleaved stereo samples to w. Samples
// are in the range [-1, 1] and are clamped to it.
func (w *Writer) WriteFrame(samples []float32) error {
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, s := range samples {
		w.buf.Data[i] = int(toInt16(s))
	}
	return w.enc.Write(w.buf)
}

// Finish must be called when all data has been written to the writer.
// It fills in the header sizes and returns the length of the file.
func (w *Writer) Finish() (int64, error) {
	if err := w.enc.Close(); err != nil {
		return 0, err
	}
	return w.WS.Seek(0, io.SeekEnd)
}

func toInt16(s float32) int16 {
	switch {
	case s >= 1:
		return 32767
	case s <= -1:
		return -32767
	}
	return int16(s * 32767)
}
