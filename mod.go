package micromod

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

const (
	signatureOffset = 1080
	minModuleLen    = 1084 // header region up to and including the signature
	titleLen        = 20
	sampleHeaderLen = 30
	bytesPerCell    = 4
)

var dumpW io.Writer = nil

// SetDumpWriter makes the parser print what it decodes to w. Pass nil to
// turn dumping off.
func SetDumpWriter(w io.Writer) { dumpW = w }

func dumpf(format string, a ...interface{}) {
	if dumpW == nil {
		return
	}

	fmt.Fprintf(dumpW, format, a...)
}

// modFormat maps the 4 byte tag at offset 1080 to a channel and sample
// count. Unrecognized tags are 15 sample, 4 channel modules and the bytes
// at 1080 belong to the pattern data.
func modFormat(sig []byte) (channels, samples int, err error) {
	switch string(sig) {
	case "M.K.", "M!K!", "4CHN", "FLT4":
		return 4, 31, nil
	case "6CHN":
		return 6, 31, nil
	case "8CHN", "OCTA", "CD81":
		return 8, 31, nil
	}
	if isDigit(sig[0]) && isDigit(sig[1]) && sig[2] == 'C' && sig[3] == 'H' {
		n := int(sig[0]-'0')*10 + int(sig[1]-'0')
		if n == 0 {
			return 0, 0, &FormatError{Offset: signatureOffset, Reason: "signature declares 0 channels"}
		}
		return n, 31, nil
	}
	return 4, 15, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// NewSongFromBytes parses a MOD file into a Song.
//
// Any read past the end of songBytes fails with a *FormatError, truncated
// files are not partially loaded.
func NewSongFromBytes(songBytes []byte) (*Song, error) {
	if len(songBytes) < minModuleLen {
		return nil, &FormatError{
			Offset: len(songBytes),
			Reason: fmt.Sprintf("module is %d bytes, need at least %d", len(songBytes), minModuleLen),
		}
	}

	sig := songBytes[signatureOffset : signatureOffset+4]
	channels, nSamples, err := modFormat(sig)
	if err != nil {
		return nil, err
	}

	song := &Song{
		Channels: channels,
		Samples:  make([]Sample, nSamples),
	}
	if nSamples == 31 {
		song.Signature = string(sig)
	}

	buf := bytes.NewReader(songBytes)
	offset := func() int { return len(songBytes) - buf.Len() }

	y := make([]byte, titleLen)
	if _, err := io.ReadFull(buf, y); err != nil {
		return nil, &FormatError{Offset: offset(), Reason: "title", Err: err}
	}
	song.Title = cleanName(y)

	// Read sample information (sample data is read later)
	for i := range song.Samples {
		s, err := readSampleInfo(buf, i)
		if err != nil {
			return nil, &FormatError{Offset: offset(), Reason: fmt.Sprintf("sample header %d", i+1), Err: err}
		}
		song.Samples[i] = *s
	}

	// Read positions
	positions := struct {
		Length  uint8
		_       uint8 // restart position, unused
		Pattern [maxPositions]byte
	}{}
	if err := binary.Read(buf, binary.BigEndian, &positions); err != nil {
		return nil, &FormatError{Offset: offset(), Reason: "position table", Err: err}
	}
	if positions.Length == 0 {
		return nil, &FormatError{Offset: offset() - maxPositions - 2, Reason: "song has no positions"}
	}
	song.NumPositions = min(int(positions.Length), maxPositions)
	song.Positions = make([]byte, maxPositions)
	copy(song.Positions, positions.Pattern[:])

	// Size the pattern array from every slot of the table, some trackers
	// store patterns that are only referenced past the song length.
	patterns := 0
	for _, pat := range positions.Pattern {
		patterns = max(patterns, int(pat))
	}
	patterns++ // num patterns = max_pattern_idx + 1

	if nSamples == 31 {
		if _, err := buf.Seek(4, io.SeekCurrent); err != nil {
			return nil, &FormatError{Offset: offset(), Reason: "signature", Err: err}
		}
	}

	dumpf("Title:\t\t%s\n", song.Title)
	dumpf("Signature:\t%q\n", song.Signature)
	dumpf("Channels:\t%d\n", song.Channels)
	dumpf("Patterns:\t%d\n", patterns)
	dumpf("Positions:\t%d %v\n", song.NumPositions, song.Positions[:song.NumPositions])
	dumpf("\n")

	// Read pattern data
	patternLen := rowsPerPattern * song.Channels * bytesPerCell
	if need := patterns * patternLen; buf.Len() < need {
		return nil, &FormatError{
			Offset: offset(),
			Reason: fmt.Sprintf("pattern data truncated, %d patterns need %d bytes, %d remain", patterns, need, buf.Len()),
		}
	}
	song.Patterns = make([]Pattern, patterns)
	scratch := make([]byte, patternLen)
	for i := range song.Patterns {
		if _, err := io.ReadFull(buf, scratch); err != nil {
			return nil, &FormatError{Offset: offset(), Reason: fmt.Sprintf("pattern %d", i), Err: err}
		}

		pat := make(Pattern, rowsPerPattern*song.Channels)
		dumpf("Pattern %d (x%02X)\n", i, i)
		for p := range pat {
			pat[p] = cellFromBytes(scratch[p*bytesPerCell : (p+1)*bytesPerCell])

			if dumpW != nil {
				ch := p % song.Channels
				if ch == 0 {
					dumpf("%02X: ", p/song.Channels)
				}
				dumpf("%s", pat[p])
				if ch == song.Channels-1 {
					dumpf("\n")
				} else {
					dumpf("|")
				}
			}
		}
		song.Patterns[i] = pat
		dumpf("\n")
	}

	// Read sample data, stored in header order straight after the patterns
	for i := range song.Samples {
		smp := &song.Samples[i]
		if smp.Length == 0 {
			continue
		}
		if buf.Len() < smp.Length {
			return nil, &FormatError{
				Offset: offset(),
				Reason: fmt.Sprintf("sample %d data truncated, need %d bytes, %d remain", i+1, smp.Length, buf.Len()),
			}
		}

		raw := make([]byte, smp.Length)
		if _, err := io.ReadFull(buf, raw); err != nil {
			return nil, &FormatError{Offset: offset(), Reason: fmt.Sprintf("sample %d data", i+1), Err: err}
		}
		smp.Data = convertSampleData(raw)
	}

	return song, nil
}

func readSampleInfo(r io.Reader, si int) (*Sample, error) {
	data := struct {
		Name      [22]byte
		Length    uint16
		FineTune  uint8
		Volume    uint8
		LoopStart uint16
		LoopLen   uint16
	}{}

	if err := binary.Read(r, binary.BigEndian, &data); err != nil {
		return nil, err
	}
	dumpf("Sample %d x%02X\n", si+1, si+1)

	finetune := int(data.FineTune & 0xF)
	if finetune > 7 {
		finetune -= 16
	}

	smp := &Sample{
		Name:       cleanName(data.Name[:]),
		Length:     int(data.Length) * 2,
		FineTune:   finetune,
		Volume:     int(data.Volume),
		LoopStart:  int(data.LoopStart) * 2,
		LoopLength: int(data.LoopLen) * 2,
	}
	dumpf("%s", smp)

	return smp, nil
}

// cellFromBytes decodes the 4 byte cell layout
//
//	ssss pppp  pppp pppp  ssss eeee  aaaa aaaa
//
// s = sample (high nibble first), p = period, e = effect, a = param.
func cellFromBytes(nb []byte) Cell {
	return Cell{
		Sample: int(nb[0]&0xF0 | nb[2]>>4),
		Period: int(nb[0]&0xF)<<8 | int(nb[1]),
		Effect: EffectKind(nb[2] & 0xF),
		Param:  nb[3],
	}
}

// convertSampleData reinterprets raw as signed 8-bit PCM and scales it to
// [-1, 1).
func convertSampleData(raw []byte) []float32 {
	data := make([]float32, len(raw))
	for i, b := range raw {
		data[i] = float32(int8(b)) / 128
	}
	return data
}

// cleanName reads up to the first NUL, replaces non-printable characters
// with a space and trims surrounding spaces.
func cleanName(in []byte) string {
	if i := bytes.IndexByte(in, 0); i >= 0 {
		in = in[:i]
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return ' '
		}
		return r
	}, string(in)))
}
