package micromod

import (
	"fmt"
	"strings"
)

const (
	rowsPerPattern = 64
	maxPositions   = 128
	maxVolume      = 64 // channel maximum volume
)

// Song represents a parsed MOD file. A Song is never modified after it has
// been loaded and can be shared between players.
type Song struct {
	Title     string
	Channels  int
	Signature string // format tag at offset 1080, empty for 15 sample modules

	Samples  []Sample
	Patterns []Pattern

	// Positions is the full 128 entry song order table, only the first
	// NumPositions entries are played.
	Positions    []byte
	NumPositions int
}

// Sample holds an instrument sample header and its waveform
type Sample struct {
	Name       string
	Length     int // in frames
	FineTune   int // -8..7, not applied during playback
	Volume     int
	LoopStart  int
	LoopLength int
	Data       []float32 // normalized to [-1, 1)
}

// Loops reports whether the sample has a sustain loop.
func (s *Sample) Loops() bool {
	return s.LoopLength > 2
}

func (s Sample) String() string {
	return fmt.Sprintf(
		"\tName:\t\t%s\n"+
			"\tLength:\t\t%d\n"+
			"\tFinetune:\t%d\n"+
			"\tVolume:\t\t%d\n"+
			"\tLoop Start:\t%d\n"+
			"\tLoop Len:\t%d\n", s.Name, s.Length, s.FineTune, s.Volume, s.LoopStart, s.LoopLength,
	)
}

// Pattern is a 64 row grid of cells stored row by row, one cell per channel.
type Pattern []Cell

// Cell is the note data for one channel on one row
type Cell struct {
	Sample int // 1-based, 0 = no change
	Period int // Amiga period, 0 = no note
	Effect EffectKind
	Param  byte
}

// String formats the cell the way trackers display it, e.g. "C-2 01 C40".
func (c Cell) String() string {
	var sb strings.Builder
	if c.Period == 0 {
		sb.WriteString("...")
	} else {
		sb.WriteString(NoteName(c.Period))
	}
	if c.Sample == 0 {
		sb.WriteString(" ..")
	} else {
		fmt.Fprintf(&sb, " %02X", c.Sample)
	}
	if c.Effect == 0 && c.Param == 0 {
		sb.WriteString(" ...")
	} else {
		fmt.Fprintf(&sb, " %X%02X", byte(c.Effect), c.Param)
	}
	return sb.String()
}

// Cell returns the cell for channel ch on row of pattern. Out of range
// requests return an empty cell.
func (s *Song) Cell(pattern, row, ch int) Cell {
	if pattern < 0 || pattern >= len(s.Patterns) || row < 0 || row >= rowsPerPattern || ch < 0 || ch >= s.Channels {
		return Cell{}
	}
	return s.Patterns[pattern][row*s.Channels+ch]
}

// PatternAt returns the pattern index stored at song position pos, or -1.
func (s *Song) PatternAt(pos int) int {
	if pos < 0 || pos >= s.NumPositions || pos >= len(s.Positions) {
		return -1
	}
	return int(s.Positions[pos])
}

var (
	// Amiga period values, only used to name notes for display.
	periodTable = []int{
		// C-1, C#1, D-1, ..., B-1
		856, 808, 762, 720, 678, 640, 604, 570, 538, 508, 480, 453,
		// C-2, C#2, D-2, ..., B-2
		428, 404, 381, 360, 339, 320, 302, 285, 269, 254, 240, 226,
		// C-3, C#3, D-3, ..., B-3
		214, 202, 190, 180, 170, 160, 151, 143, 135, 127, 120, 113,
	}

	// Literal notes
	notes = []string{
		"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-",
	}
)

// NoteName returns the name-octave form of an Amiga period, e.g. C-2, A#1.
// Periods outside the ProTracker table return "???".
func NoteName(period int) string {
	for i, prd := range periodTable {
		if prd == period {
			return fmt.Sprintf("%s%d", notes[i%12], i/12+1)
		}
	}

	return "???"
}

// periodFromNote is the inverse of NoteName, it returns 0 for unknown names.
func periodFromNote(name string) int {
	for i, prd := range periodTable {
		if fmt.Sprintf("%s%d", notes[i%12], i/12+1) == name {
			return prd
		}
	}
	return 0
}
