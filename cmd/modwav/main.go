// Renders MOD files to WAVE files (16-bit, stereo)

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/chriskillpack/micromod"
	"github.com/chriskillpack/micromod/cmd/internal/config"
	"github.com/chriskillpack/micromod/wav"
	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var (
	flagHz     = flag.IntP("hz", "z", 44100, "output hz")
	flagOut    = flag.StringP("out", "o", "", "output WAVE file, only valid with a single input")
	flagLoops  = flag.IntP("loops", "l", 1, "number of passes through the song order")
	flagReverb = flag.StringP("reverb", "r", "none", "choose from light, medium, hall or none")
	flagJobs   = flag.IntP("jobs", "j", runtime.NumCPU(), "number of songs rendered at once")
)

var (
	cyan  = color.New(color.FgCyan).SprintfFunc()
	green = color.New(color.FgGreen).SprintfFunc()
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("modwav: ")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("Missing MOD filename")
	}
	if *flagOut != "" && flag.NArg() > 1 {
		log.Fatal("--out can only be used with a single input")
	}
	if *flagLoops < 1 {
		log.Fatal("--loops must be at least 1")
	}
	// Fail on a bad preset before any rendering starts
	if _, err := config.ReverbFromFlag(*flagReverb, *flagHz); err != nil {
		log.Fatal(err)
	}

	// Listen for SIGINT to allow a clean exit
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, *flagJobs))
	for _, in := range flag.Args() {
		in := in
		out := *flagOut
		if out == "" {
			out = strings.TrimSuffix(in, filepath.Ext(in)) + ".wav"
		}
		g.Go(func() error {
			return render(ctx, in, out)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

func render(ctx context.Context, in, out string) error {
	modF, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	player := micromod.NewPlayer(uint(*flagHz))
	if err := player.Load(modF); err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	song := player.Song()
	player.SetPlayLimit(*flagLoops * song.NumPositions)

	rvb, err := config.ReverbFromFlag(*flagReverb, *flagHz)
	if err != nil {
		return err
	}
	chain := config.NewChain(rvb, player.GenerateAudio)

	wavF, err := os.Create(out)
	if err != nil {
		return err
	}
	defer wavF.Close()

	wavW, err := wav.NewWriter(wavF, int(player.SampleRate()))
	if err != nil {
		return fmt.Errorf("%s: %w", out, err)
	}

	if err := player.Play(); err != nil {
		return err
	}

	audioOut := make([]float32, 2048)
	lastPos := -1
	for player.IsPlaying() {
		if err := ctx.Err(); err != nil {
			player.Stop()
			break
		}

		generated := chain.GenerateAudio(audioOut)
		if err := wavW.WriteFrame(audioOut[:generated*2]); err != nil {
			return fmt.Errorf("%s: %w", out, err)
		}

		if pos := player.State().Position; pos != lastPos && pos < song.NumPositions {
			fmt.Printf("%s %s %d/%d\n", cyan("%s", filepath.Base(in)), "position", pos+1, song.NumPositions)
			lastPos = pos
		}
	}

	wlen, err := wavW.Finish()
	if err != nil {
		return fmt.Errorf("%s: %w", out, err)
	}
	fmt.Printf("%s %s (%d bytes)\n", green("wrote"), out, wlen)
	return nil
}
