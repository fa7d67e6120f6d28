package micromod

import (
	"sync"
	"sync/atomic"

	clone "github.com/huandu/go-clone/generic"
)

const (
	amigaClockHz = 3546895 // PAL Paula clock used to turn periods into playback rates

	defaultSpeed = 6
	defaultTempo = 125
)

// Player plays a Song. Create one with NewPlayer, give it a song with Load
// or SetSong and call Play. Audio is pulled from the player by calling
// GenerateAudio from the host's audio callback.
//
// Channel and cursor state is only touched by GenerateAudio and the control
// methods, which serialize on an internal lock. Other goroutines observe
// playback through State.
type Player struct {
	sampleRate uint

	mu       sync.Mutex
	song     *Song
	channels []Channel
	pan      []panGains

	// song configuration
	tempo          int // in beats per minute
	speed          int // number of ticks before advancing to the next row
	samplesPerTick int

	// These next fields track player position in the song
	samplesSinceTick int // output frames generated in the current tick
	tick             int
	row              int
	position         int // index into Song.Positions
	override         rowOverride

	positionsPlayed int
	playLimit       int // positions to play before stopping, 0 = forever
	finished        bool

	playing atomic.Bool
	mute    atomic.Uint64
	state   atomic.Pointer[PlayerState]
}

// Channel is the playback state of one voice.
type Channel struct {
	SampleIndex int     // 1-based, 0 = silent
	Period      int     // current Amiga period
	Volume      int     // 0-64
	Position    float64 // fractional frame index into the sample data
	Speed       float64 // sample frames advanced per output frame
}

// PlayerState is a snapshot of the player published after every block of
// generated audio.
type PlayerState struct {
	Playing  bool
	Position int // index into the song order
	Pattern  int
	Row      int
	Tick     int
	Speed    int
	Tempo    int

	Channels []Channel
}

// NewPlayer returns a stopped Player that renders at sampleRate Hz.
func NewPlayer(sampleRate uint) *Player {
	p := &Player{
		sampleRate: sampleRate,
		speed:      defaultSpeed,
	}
	p.setTempo(defaultTempo)
	return p
}

// SampleRate returns the output rate the player renders at.
func (p *Player) SampleRate() uint { return p.sampleRate }

// Load parses songBytes and installs the result, stopping any playback. If
// parsing fails the player is left exactly as it was.
func (p *Player) Load(songBytes []byte) error {
	song, err := NewSongFromBytes(songBytes)
	if err != nil {
		return err
	}
	p.SetSong(song)
	return nil
}

// SetSong installs an already parsed song, stopping any playback. This
// allows parsing to happen away from the audio goroutine.
func (p *Player) SetSong(song *Song) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.song = song
	p.channels = nil
	p.pan = nil
	if song != nil {
		p.channels = make([]Channel, song.Channels)
		for i := range p.channels {
			p.channels[i] = Channel{Volume: maxVolume}
		}
		p.pan = quadPanning(song.Channels)
	}
	p.speed = defaultSpeed
	p.setTempo(defaultTempo)
	p.publishState()
}

// Song returns the installed song, or nil.
func (p *Player) Song() *Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.song
}

// Play starts playback from the beginning of the song. Speed and tempo
// carry over from before a Stop, SetSong resets them. Calling Play while
// already playing does nothing.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.song == nil {
		return &PlaybackStateError{Op: "play", Reason: "no song loaded"}
	}
	if p.playing.Load() {
		return nil
	}

	p.position = 0
	p.row = 0
	p.override = rowOverride{}
	p.positionsPlayed = 0
	p.finished = false

	// Row 0 is processed once a full row of ticks has elapsed
	p.tick = 0
	p.samplesSinceTick = 0

	for i := range p.channels {
		p.channels[i].Position = 0
		p.channels[i].Speed = 0
	}

	p.playing.Store(true)
	p.publishState()
	return nil
}

// Stop stops playback. Stopping a stopped player does nothing. Subsequent
// calls to GenerateAudio produce silence until Play is called again.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.publishState()
}

func (p *Player) stopLocked() {
	p.playing.Store(false)
}

// IsPlaying returns if the song is being played
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// SetPlayLimit makes the player stop by itself after n song positions have
// been played. Zero, the default, loops the song forever. The count
// restarts on every Play.
func (p *Player) SetPlayLimit(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playLimit = max(0, n)
}

// SetMute sets the bitmask of muted channels, channel 1 in the LSB. Muted
// channels keep advancing through their samples but are not heard. Safe to
// call from any goroutine.
func (p *Player) SetMute(mask uint64) { p.mute.Store(mask) }

// Mute returns the bitmask of muted channels.
func (p *Player) Mute() uint64 { return p.mute.Load() }

// SeekTo moves playback to row of song position pos. Values are clamped to
// the song. The row is processed after a full row of ticks, as on Play. The
// player must be playing.
func (p *Player) SeekTo(pos, row int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing.Load() {
		return &PlaybackStateError{Op: "seek", Reason: "player is stopped"}
	}

	p.position = min(max(pos, 0), p.song.NumPositions-1)
	p.row = min(max(row, 0), rowsPerPattern-1)
	p.override = rowOverride{}
	p.tick = 0
	p.samplesSinceTick = 0
	p.publishState()
	return nil
}

// CellsAt returns the cells of row at song position pos, or nil if the
// position is invalid.
func (p *Player) CellsAt(pos, row int) []Cell {
	song := p.Song()
	if song == nil || row < 0 || row >= rowsPerPattern {
		return nil
	}
	pattern := song.PatternAt(pos)
	if pattern < 0 || pattern >= len(song.Patterns) {
		return nil
	}

	cells := make([]Cell, song.Channels)
	copy(cells, song.Patterns[pattern][row*song.Channels:])
	return cells
}

// State returns the most recently published player snapshot. It does not
// block on the audio goroutine.
func (p *Player) State() PlayerState {
	s := p.state.Load()
	if s == nil {
		return PlayerState{}
	}
	return *s
}

func (p *Player) publishState() {
	s := &PlayerState{
		Playing:  p.playing.Load(),
		Position: p.position,
		Pattern:  -1,
		Row:      p.row,
		Tick:     p.tick,
		Speed:    p.speed,
		Tempo:    p.tempo,
		Channels: clone.Clone(p.channels),
	}
	if p.song != nil {
		s.Pattern = p.song.PatternAt(p.position)
	}
	p.state.Store(s)
}

// samplesPerTick = floor(rate * 2.5 / tempo)
func (p *Player) setTempo(tempo int) {
	p.tempo = tempo
	p.samplesPerTick = int(p.sampleRate*5) / (2 * tempo)
}

// advanceTick runs once per output frame, before the frame is mixed.
func (p *Player) advanceTick() {
	if p.samplesSinceTick >= p.samplesPerTick {
		p.samplesSinceTick = 0
		p.processTick()
	}
	p.samplesSinceTick++
}

func (p *Player) processTick() {
	p.tick++
	if p.tick >= p.speed {
		p.tick = 0
		p.processRow()
	}
}

func (p *Player) processRow() {
	song := p.song

	if p.playLimit > 0 && p.positionsPlayed >= p.playLimit {
		p.finished = true
		return
	}

	if p.position >= song.NumPositions {
		// Loop back to start
		p.position = 0
		p.row = 0
	}

	pattern := int(song.Positions[p.position])
	if pattern >= len(song.Patterns) {
		p.advancePosition(p.position + 1)
		return
	}

	p.override = rowOverride{position: p.position}
	rowDataIdx := p.row * song.Channels
	for i := range p.channels {
		channel := &p.channels[i]
		cell := &song.Patterns[pattern][rowDataIdx+i]

		if cell.Sample != 0 {
			channel.SampleIndex = cell.Sample
			if cell.Sample <= len(song.Samples) {
				channel.Volume = song.Samples[cell.Sample-1].Volume
			}
		}

		if cell.Period != 0 {
			channel.Period = cell.Period
			channel.Position = 0
			channel.Speed = p.periodToSpeed(cell.Period)
		}

		if fx := effectHandlers[cell.Effect&0xF]; fx != nil {
			fx(p, channel, cell.Param)
		}
	}

	if p.override.set {
		p.advancePosition(p.override.position)
		p.override = rowOverride{}
		return
	}

	p.row++
	if p.row >= rowsPerPattern {
		p.advancePosition(p.position + 1)
	}
}

func (p *Player) advancePosition(pos int) {
	p.position = pos
	p.row = 0
	p.positionsPlayed++
}

// periodToSpeed converts an Amiga period into sample frames per output frame
func (p *Player) periodToSpeed(period int) float64 {
	hz := amigaClockHz / (float64(period) * 2)
	return hz / float64(p.sampleRate)
}
