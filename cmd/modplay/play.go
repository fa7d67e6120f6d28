package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/chriskillpack/micromod"
	"github.com/chriskillpack/micromod/cmd/internal/config"
	"github.com/ebitengine/oto/v3"
	"github.com/fatih/color"
	"github.com/gordonklaus/portaudio"
	"golang.org/x/term"
)

var (
	white   = color.New(color.FgWhite).SprintfFunc()
	cyan    = color.New(color.FgCyan).SprintfFunc()
	magenta = color.New(color.FgMagenta).SprintfFunc()
	yellow  = color.New(color.FgYellow).SprintfFunc()
	blue    = color.New(color.FgHiBlue).SprintFunc()
	green   = color.New(color.FgGreen).SprintfFunc()
	red     = color.New(color.FgRed).SprintfFunc()
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"

	framesPerBuffer = 756 / 2
	refreshInterval = time.Second / 30

	cellWidth   = len("C-2 01 C40|")
	rowIndent   = len(">>> ")
	defaultCols = 80
)

// audioOutput is a running audio back-end.
type audioOutput interface {
	Close() error
}

type portAudioOutput struct {
	stream *portaudio.Stream
}

func startPortAudio(hz int, chain *config.Chain) (audioOutput, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	streamCB := func(out []float32) {
		chain.GenerateAudio(out)
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(hz), framesPerBuffer, streamCB)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	return &portAudioOutput{stream: stream}, nil
}

func (o *portAudioOutput) Close() error {
	o.stream.Stop()
	o.stream.Close()
	return portaudio.Terminate()
}

type otoOutput struct {
	player *oto.Player
}

func startOto(hz int, chain *config.Chain) (audioOutput, error) {
	op := &oto.NewContextOptions{
		SampleRate:   hz,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	p := ctx.NewPlayer(micromod.NewPCMReader(chain.GenerateAudio))
	p.Play()
	return &otoOutput{player: p}, nil
}

func (o *otoOutput) Close() error {
	return o.player.Close()
}

func play(player *micromod.Player, chain *config.Chain, backend config.Backend, noUI bool) {
	var (
		out audioOutput
		err error
	)
	switch backend {
	case config.BackendOto:
		out, err = startOto(*flagHz, chain)
	default:
		out, err = startPortAudio(*flagHz, chain)
	}
	if err != nil {
		log.Fatalf("starting %s: %v", backend, err)
	}

	var uiw io.Writer = os.Stdout
	if noUI {
		uiw = io.Discard
	}

	quit := make(chan struct{})
	var quitOnce sync.Once
	stopFn := func() {
		quitOnce.Do(func() { close(quit) })
	}

	sigch := make(chan os.Signal, 5)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigch
		stopFn()
	}()

	song := player.Song()
	var selected atomic.Int32
	soloChannel := -1

	if !noUI {
		go func() {
			keyboard.Listen(func(key keys.Key) (stop bool, err error) {
				sel := int(selected.Load())
				switch key.Code {
				case keys.CtrlC, keys.Escape:
					stopFn()
					return true, nil
				case keys.Space:
					if player.IsPlaying() {
						player.Stop()
					} else if err := player.Play(); err != nil {
						return true, err
					}
				case keys.Left:
					selected.Store(int32(max(sel-1, 0)))
				case keys.Right:
					selected.Store(int32(min(sel+1, song.Channels-1)))
				case keys.RuneKey:
					switch key.Runes[0] {
					case 'q':
						player.SetMute(player.Mute() ^ (1 << sel))
					case 's':
						if soloChannel != sel {
							soloChannel = sel
							player.SetMute(^uint64(1 << sel))
						} else {
							soloChannel = -1
							player.SetMute(0)
						}
					}
				}
				return false, nil
			})
		}()
	}

	// Hide the cursor
	fmt.Fprint(uiw, hideCursor)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-quit:
			break loop
		case <-ticker.C:
		}
		if noUI {
			continue
		}

		cols := defaultCols
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			cols = w
		}
		lines := drawFrame(uiw, player, int(selected.Load()), cols)
		fmt.Fprintf(uiw, escape+"%dF", lines) // back to the top of the frame
	}

	out.Close()

	// Show the cursor
	fmt.Fprint(uiw, showCursor)
}

// visibleChannels returns how many channels of pattern data fit in cols.
func visibleChannels(cols, channels int) int {
	return max(1, min(channels, (cols-2*rowIndent)/cellWidth))
}

// drawFrame prints the player view and returns the number of lines
// printed. It shows the 4 preceding rows, the current row and the 4
// upcoming rows.
//
//	<title> pos 00/1A pat 03 row 1A/3F speed 06 bpm 125
//
//	 1□ bassdrum                       2  snare
//
//	         1          2          3          4
//	    ... .. ...|... .. ...|C-2 01 C40|... .. ...
//	>>> C-2 01 ...|... .. ...|... .. ...|... .. F06 <<<
//	    ... .. ...|... .. ...|... .. ...|... .. ...
func drawFrame(w io.Writer, player *micromod.Player, selected, cols int) int {
	song := player.Song()
	state := player.State()
	mute := player.Mute()
	lines := 0

	if len(song.Title) > 0 {
		fmt.Fprint(w, song.Title+" ")
	}
	status := ""
	if !state.Playing {
		status = red(" [stopped]")
	}
	fmt.Fprintf(w, "%s %02X/%02X %s %02X %s %02X/3F %s %02d %s %3d%s\n",
		blue("pos"), state.Position, song.NumPositions,
		blue("pat"), max(state.Pattern, 0),
		blue("row"), state.Row,
		blue("speed"), state.Speed, blue("bpm"), state.Tempo, status)
	fmt.Fprintln(w)
	lines += 2

	// Which sample each channel is playing
	for i, ch := range state.Channels {
		tc := ' '
		if mute&(1<<i) != 0 {
			tc = 'x'
		} else if ch.SampleIndex > 0 {
			tc = '□'
		}
		outs := fmt.Sprintf("%2d%c ", i+1, tc)
		if ch.SampleIndex > 0 && ch.SampleIndex <= len(song.Samples) {
			outs += song.Samples[ch.SampleIndex-1].Name
		}
		fmt.Fprintf(w, "%-32s", outs)
		if i&1 == 1 || i == len(state.Channels)-1 {
			fmt.Fprintln(w)
			lines++
		}
	}
	fmt.Fprintln(w)
	lines++

	nch := visibleChannels(cols, song.Channels)

	// Channel header
	fmt.Fprint(w, strings.Repeat(" ", rowIndent))
	for i := range nch {
		const chanstr = "%5d      "
		if i == selected {
			fmt.Fprint(w, green(chanstr, i+1))
			continue
		}
		fmt.Fprintf(w, chanstr, i+1)
	}
	fmt.Fprintln(w)
	lines++

	for i := -4; i <= 4; i++ {
		cells := player.CellsAt(state.Position, state.Row+i)
		if cells == nil {
			fmt.Fprintln(w, escape+"K")
			lines++
			continue
		}

		// If this is the currently playing row then highlight it
		if i == 0 {
			fmt.Fprint(w, ">>> ")
		} else {
			fmt.Fprint(w, "    ")
		}
		for ci, c := range cells[:nch] {
			fmt.Fprint(w, cellText(c))
			if ci < nch-1 {
				fmt.Fprint(w, "|")
			}
		}
		if i == 0 {
			fmt.Fprint(w, " <<<")
		}
		fmt.Fprintln(w, escape+"K")
		lines++
	}

	return lines
}

func cellText(c micromod.Cell) string {
	note, smp, fx := "...", "..", "..."
	if c.Period != 0 {
		note = micromod.NoteName(c.Period)
	}
	if c.Sample != 0 {
		smp = fmt.Sprintf("%02X", c.Sample)
	}
	if c.Effect != 0 || c.Param != 0 {
		return white("%s", note) + " " + cyan("%s", smp) + " " + magenta("%X", byte(c.Effect)) + yellow("%02X", c.Param)
	}
	return white("%s", note) + " " + cyan("%s", smp) + " " + fx
}
