package micromod

// panGains are the left and right multipliers for a channel.
type panGains struct {
	left, right float64
}

// quadPanning applies the Amiga channel layout, channels 1 and 4 mostly
// left, 2 and 3 mostly right, repeating every 4 channels.
func quadPanning(channels int) []panGains {
	pan := make([]panGains, channels)
	for i := range pan {
		switch i & 3 {
		case 0, 3:
			pan[i] = panGains{left: 0.8, right: 0.2}
		case 1, 2:
			pan[i] = panGains{left: 0.2, right: 0.8}
		}
	}
	return pan
}

// GenerateAudio fills out with stereo sample data (LRLRLR...) and returns the
// number of stereo frames generated.
//
// This function also advances the player through the song. If the player is
// stopped out is filled with silence and 0 is returned. When a play limit
// has been reached fewer frames than out can hold are generated, the rest of
// out is silent and the player stops.
func (p *Player) GenerateAudio(out []float32) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing.Load() {
		clear(out)
		return 0
	}

	count := len(out) / 2 // L&R samples are interleaved
	generated := 0
	for generated < count {
		p.advanceTick()
		if p.finished {
			p.stopLocked()
			break
		}

		l, r := p.mixFrame()
		out[generated*2+0] = l
		out[generated*2+1] = r
		generated++
	}
	clear(out[generated*2:])

	p.publishState()
	return generated
}

// Render generates frames stereo frames into a new slice.
func (p *Player) Render(frames int) []float32 {
	out := make([]float32, frames*2)
	n := p.GenerateAudio(out)
	return out[:n*2]
}

// mixFrame mixes one output frame from every channel and advances the
// channels through their samples.
func (p *Player) mixFrame() (float32, float32) {
	var l, r float64
	mute := p.mute.Load()

	for ci := range p.channels {
		channel := &p.channels[ci]
		if channel.Speed <= 0 || channel.SampleIndex <= 0 || channel.SampleIndex > len(p.song.Samples) {
			continue
		}

		sample := &p.song.Samples[channel.SampleIndex-1]
		pos := int(channel.Position)
		if pos >= len(sample.Data) {
			// Played past the end of a non-looping sample
			continue
		}

		if mute&(1<<ci) == 0 {
			val := float64(sample.Data[pos]) * float64(channel.Volume) / maxVolume
			l += val * p.pan[ci].left
			r += val * p.pan[ci].right
		}

		channel.Position += channel.Speed
		if sample.Loops() && channel.Position >= float64(sample.LoopStart+sample.LoopLength) {
			channel.Position = float64(sample.LoopStart)
		}
	}

	return clamp(l), clamp(r)
}

func clamp(s float64) float32 {
	if s > 1 {
		return 1
	} else if s < -1 {
		return -1
	}
	return float32(s)
}
