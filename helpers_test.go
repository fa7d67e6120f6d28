package micromod

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
	"testing"
)

const testSampleRate = 1000 // 20 frames per tick at tempo 125

// newTestSong builds a song from textual patterns, the song order plays the
// patterns in the order given. Cells take the form
//
//	C-2 01 C40  - play C-2 with sample 1 and set volume to 0x40
//	... 02 ...  - switch to sample 2
//	... .. D00  - pattern break
//	<empty>     - empty cell
//
// Rows that are not given are empty. The song has two samples, 1000 frames
// long at a constant level of 0.5, with default volumes 60 and 55.
func newTestSong(t testing.TB, patterns ...[][]string) *Song {
	t.Helper()

	nChannels := len(patterns[0][0])
	song := &Song{
		Title:        "testsong",
		Channels:     nChannels,
		Signature:    "M.K.",
		Positions:    make([]byte, maxPositions),
		NumPositions: len(patterns),
		Samples: []Sample{
			newTestSample("testins1", 60, 1000, 0.5),
			newTestSample("testins2", 55, 1000, 0.5),
		},
	}

	for pi, pattern := range patterns {
		song.Positions[pi] = byte(pi)
		song.Patterns = append(song.Patterns, convertTestPatternData(t, pattern, nChannels))
	}
	return song
}

func newTestSample(name string, volume, length int, level float32) Sample {
	data := make([]float32, length)
	for i := range data {
		data[i] = level
	}
	return Sample{Name: name, Volume: volume, Length: length, Data: data}
}

// newPlayerWithTestPattern returns a playing player for the given patterns.
// Nothing has been generated yet, row 0 is processed once a full row of
// ticks has elapsed.
func newPlayerWithTestPattern(t testing.TB, patterns ...[][]string) *Player {
	t.Helper()

	player := NewPlayer(testSampleRate)
	player.SetSong(newTestSong(t, patterns...))
	if err := player.Play(); err != nil {
		t.Fatalf("Could not start test player: %v", err)
	}
	return player
}

func convertTestPatternData(t testing.TB, pattern [][]string, nChannels int) Pattern {
	t.Helper()

	cells := make(Pattern, rowsPerPattern*nChannels)
	for r, row := range pattern {
		for c, col := range row {
			if col == "" {
				continue
			}
			cells[r*nChannels+c] = decodeCell(t, col)
		}
	}
	return cells
}

func decodeCell(t testing.TB, s string) Cell {
	t.Helper()

	parts := strings.Fields(s)
	if len(parts) != 3 {
		t.Fatalf("bad test cell %q", s)
	}

	var cell Cell
	if parts[0] != "..." {
		cell.Period = periodFromNote(parts[0])
		if cell.Period == 0 {
			t.Fatalf("unknown note in test cell %q", s)
		}
	}
	if parts[1] != ".." {
		v, err := strconv.ParseUint(parts[1], 16, 8)
		if err != nil {
			t.Fatal(err)
		}
		cell.Sample = int(v)
	}
	if parts[2] != "..." {
		v, err := strconv.ParseUint(parts[2], 16, 16)
		if err != nil {
			t.Fatal(err)
		}
		cell.Effect = EffectKind(v >> 8)
		cell.Param = byte(v)
	}
	return cell
}

// framesPerRow is the number of output frames a row lasts at the player's
// current speed and tempo.
func framesPerRow(p *Player) int {
	return p.speed * p.samplesPerTick
}

// renderFrames generates n frames and returns how many were generated.
func renderFrames(p *Player, n int) int {
	return p.GenerateAudio(make([]float32, n*2))
}

// playFirstRow renders the lead-in before row 0 plus the frame that
// processes it. It returns the number of frames rendered.
func playFirstRow(p *Player) int {
	return renderFrames(p, framesPerRow(p)+1)
}

// Advances to the next processed row, returns once it has been processed.
func advanceToNextRow(p *Player) {
	oldRow, oldPos := p.row, p.position
	for oldRow == p.row && oldPos == p.position {
		p.processTick()
	}
}

type testSampleSpec struct {
	name      string
	finetune  byte
	volume    byte
	loopStart uint16 // in words
	loopLen   uint16 // in words
	data      []byte // even length
}

type cellKey struct{ pattern, row, ch int }

// modBuilder assembles MOD file bytes for parser tests.
type modBuilder struct {
	title    string
	sig      string // 4 bytes, "" for the 15 sample layout
	channels int
	numPos   byte
	table    [maxPositions]byte
	samples  []testSampleSpec
	cells    map[cellKey][4]byte
}

func newModBuilder(sig string, channels int) *modBuilder {
	return &modBuilder{
		title:    "testsong",
		sig:      sig,
		channels: channels,
		numPos:   1,
		cells:    map[cellKey][4]byte{},
	}
}

func (b *modBuilder) bytes() []byte {
	nSamples := 31
	if b.sig == "" {
		nSamples = 15
	}

	var out bytes.Buffer
	title := make([]byte, titleLen)
	copy(title, b.title)
	out.Write(title)

	for i := 0; i < nSamples; i++ {
		hdr := make([]byte, sampleHeaderLen)
		if i < len(b.samples) {
			s := b.samples[i]
			copy(hdr, s.name)
			binary.BigEndian.PutUint16(hdr[22:], uint16(len(s.data)/2))
			hdr[24] = s.finetune
			hdr[25] = s.volume
			binary.BigEndian.PutUint16(hdr[26:], s.loopStart)
			binary.BigEndian.PutUint16(hdr[28:], s.loopLen)
		}
		out.Write(hdr)
	}

	out.WriteByte(b.numPos)
	out.WriteByte(127)
	out.Write(b.table[:])
	out.WriteString(b.sig)

	patterns := 0
	for _, p := range b.table {
		patterns = max(patterns, int(p))
	}
	patterns++

	pat := make([]byte, patterns*rowsPerPattern*b.channels*bytesPerCell)
	for k, v := range b.cells {
		off := ((k.pattern*rowsPerPattern+k.row)*b.channels + k.ch) * bytesPerCell
		copy(pat[off:], v[:])
	}
	out.Write(pat)

	for _, s := range b.samples {
		out.Write(s.data)
	}
	return out.Bytes()
}
