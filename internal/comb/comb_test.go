package comb

import (
	"math"
	"testing"
)

// TestAllpassDelay verifies that allpass filter delays the signal by the correct amount
func TestAllpassDelay(t *testing.T) {
	delay := 10
	ap := newAllpass(delay)

	// First output should be inverted input
	out := ap.process(1)
	if out != -1 {
		t.Errorf("First output should be -input, got %v", out)
	}

	for i := 1; i < delay; i++ {
		if out = ap.process(0); out != 0 {
			t.Errorf("Output before delay should be 0, got %v at %d", out, i)
		}
	}
	if out = ap.process(0); out != 1 {
		t.Errorf("Expected delayed impulse 1 at %d, got %v", delay, out)
	}
}

// TestAllpassUnityGain verifies that allpass filter roughly keeps the signal energy
func TestAllpassUnityGain(t *testing.T) {
	ap := newAllpass(50)

	const numSamples = 1000
	var inputPower, outputPower float64
	for i := 0; i < numSamples; i++ {
		in := float32(math.Sin(float64(i) * 0.3))
		out := ap.process(in)
		inputPower += float64(in * in)
		outputPower += float64(out * out)
	}

	ratio := math.Sqrt(outputPower / inputPower)
	if ratio < 0.5 || ratio > 1.5 {
		t.Errorf("RMS ratio out of range: %f", ratio)
	}
}

// TestCombFilterDelay verifies basic comb filter delay and feedback
func TestCombFilterDelay(t *testing.T) {
	delay := 10
	cf := newCombFilter(delay, 0.7, 0)

	if out := cf.process(1); out != 0 {
		t.Errorf("First output should be 0, got %v", out)
	}
	for i := 0; i < delay-1; i++ {
		if out := cf.process(0); out != 0 {
			t.Errorf("Output before delay should be 0, got %v at position %d", out, i+1)
		}
	}
	if out := cf.process(0); out != 1 {
		t.Errorf("Output after delay should be 1, got %v", out)
	}

	for i := 0; i < delay-1; i++ {
		cf.process(0)
	}
	if out := cf.process(0); out != 0.7 {
		t.Errorf("Expected first echo at 0.7, got %v", out)
	}
}

// TestCombFilterDamping verifies that damping reduces high frequencies
func TestCombFilterDamping(t *testing.T) {
	cfNoDamp := newCombFilter(10, 0.9, 0)
	cfWithDamp := newCombFilter(10, 0.9, 0.7)

	// Alternating input is the highest frequency there is
	var sumNoDamp, sumWithDamp float64
	for i := 0; i < 200; i++ {
		in := float32(1)
		if i%2 == 0 {
			in = -in
		}
		sumNoDamp += math.Abs(float64(cfNoDamp.process(in)))
		sumWithDamp += math.Abs(float64(cfWithDamp.process(in)))
	}

	if sumWithDamp >= sumNoDamp {
		t.Errorf("Damping should reduce amplitude: no-damp=%f, with-damp=%f", sumNoDamp, sumWithDamp)
	}
}

func TestStereoReverbInputOutput(t *testing.T) {
	sr := NewStereoReverb(1024, 0.5, 0.5, 0.5, 44100)

	input := make([]float32, 4000)
	for i := range input {
		input[i] = float32(math.Sin(float64(i) * 0.05))
	}

	var output []float32
	out := make([]float32, 256)
	for pos := 0; pos < len(input); {
		pos += sr.InputSamples(input[pos:])
		n := sr.GetAudio(out)
		output = append(output, out[:n]...)
	}
	for n := sr.GetAudio(out); n > 0; n = sr.GetAudio(out) {
		output = append(output, out[:n]...)
	}

	if len(output) != len(input) {
		t.Fatalf("Expected %d samples out, got %d", len(input), len(output))
	}

	identical := true
	for i := range input {
		if output[i] != input[i] {
			identical = false
			break
		}
	}
	if identical {
		t.Error("Output should differ from input")
	}
}

func TestStereoReverbDryPassesThrough(t *testing.T) {
	sr := NewStereoReverb(1024, 0.9, 0.5, 0, 44100)

	input := make([]float32, 512)
	for i := range input {
		input[i] = float32(i%100) / 100
	}
	if n := sr.InputSamples(input); n != len(input) {
		t.Fatalf("Expected all input accepted, got %d", n)
	}
	output := make([]float32, len(input))
	sr.GetAudio(output)

	for i := range input {
		if output[i] != input[i] {
			t.Fatalf("Sample %d: mix 0 should be dry, got %v want %v", i, output[i], input[i])
		}
	}
}

func TestStereoReverbMixParameter(t *testing.T) {
	mixes := []float32{0, 0.5, 1}
	diffs := make([]float64, len(mixes))

	input := make([]float32, 1000)
	for i := range input {
		input[i] = 0.5
	}
	for mi, mix := range mixes {
		sr := NewStereoReverb(1024, 0.5, 0.5, mix, 44100)
		sr.InputSamples(input)
		output := make([]float32, len(input))
		sr.GetAudio(output)
		for i := range input {
			diffs[mi] += math.Abs(float64(output[i] - input[i]))
		}
	}

	if diffs[0] > diffs[1] {
		t.Errorf("mix=0 should be closest to input: %v", diffs)
	}
	if diffs[2] < diffs[1] {
		t.Errorf("mix=1 should differ most from input: %v", diffs)
	}
}

func TestStereoReverbBoundedMemory(t *testing.T) {
	sr := NewStereoReverb(1024, 0.5, 0.5, 0.5, 44100)

	input := make([]float32, 1000)
	total := 0
	for i := 0; i < 10; i++ {
		total += sr.InputSamples(input)
	}
	if total != 1024 {
		t.Errorf("Expected the buffer to fill at 1024 samples, accepted %d", total)
	}
	if n := sr.InputSamples(input); n != 0 {
		t.Errorf("Full reverb accepted %d samples", n)
	}

	sr.GetAudio(make([]float32, 100))
	if n := sr.InputSamples(input); n != 100 {
		t.Errorf("Expected 100 samples accepted after draining 100, got %d", n)
	}
}

func TestStereoReverbOddInput(t *testing.T) {
	sr := NewStereoReverb(1024, 0.5, 0.5, 0.5, 44100)
	if n := sr.InputSamples(make([]float32, 7)); n != 6 {
		t.Errorf("Expected whole stereo frames only, got %d samples", n)
	}
}

// Chunked and single batch processing must be bit identical
func TestStereoReverbChunking(t *testing.T) {
	input := make([]float32, 2048)
	for i := range input {
		input[i] = float32((i*137+i*i*3)%30000-15000) / 15000
	}

	sr1 := NewStereoReverb(4096, 0.6, 0.4, 0.3, 48000)
	sr1.InputSamples(input)
	want := make([]float32, len(input))
	sr1.GetAudio(want)

	sr2 := NewStereoReverb(512, 0.6, 0.4, 0.3, 48000)
	got := make([]float32, 0, len(input))
	out := make([]float32, 200)
	for pos := 0; pos < len(input); {
		pos += sr2.InputSamples(input[pos:min(pos+300, len(input))])
		n := sr2.GetAudio(out)
		got = append(got, out[:n]...)
	}
	for n := sr2.GetAudio(out); n > 0; n = sr2.GetAudio(out) {
		got = append(got, out[:n]...)
	}

	if len(got) != len(want) {
		t.Fatalf("chunked output length %d != single-batch length %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunked sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStereoReverbSampleRateScaling(t *testing.T) {
	lo := NewStereoReverb(1024, 0.5, 0.5, 0.5, 22050)
	hi := NewStereoReverb(1024, 0.5, 0.5, 0.5, 88200)

	if got, want := len(lo.left.combs[0].buf), combTuning[0]/2; got != want {
		t.Errorf("22050Hz comb delay is %d, expected %d", got, want)
	}
	if got, want := len(hi.left.combs[0].buf), combTuning[0]*2; got != want {
		t.Errorf("88200Hz comb delay is %d, expected %d", got, want)
	}
	if len(hi.right.combs[0].buf) != (combTuning[0]+stereoSpread)*2 {
		t.Error("Right channel should be spread from the left")
	}
}
