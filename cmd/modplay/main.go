package main

import (
	"log"
	"os"

	"github.com/chriskillpack/micromod"
	"github.com/chriskillpack/micromod/cmd/internal/config"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"
)

var (
	flagHz       = flag.IntP("hz", "z", 44100, "output hz")
	flagReverb   = flag.StringP("reverb", "r", "light", "choose from light, medium, hall or none")
	flagBackend  = flag.StringP("backend", "b", "portaudio", "audio output, portaudio or oto")
	flagMute     = flag.Uint64P("mute", "m", 0, "bitmask of muted channels, channel 1 in LSB, set bit to mute channel")
	flagStartPos = flag.IntP("start", "s", 0, "starting song position, clamped to song max")
	flagNoUI     = flag.Bool("noui", false, "turn off all UI, mostly useful in development")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("modplay: ")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("Missing song filename")
	}

	songF, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	player := micromod.NewPlayer(uint(*flagHz))
	if err := player.Load(songF); err != nil {
		log.Fatal(err)
	}
	player.SetMute(*flagMute)

	rvb, err := config.ReverbFromFlag(*flagReverb, *flagHz)
	if err != nil {
		log.Fatal(err)
	}
	backend, err := config.BackendFromFlag(*flagBackend)
	if err != nil {
		log.Fatal(err)
	}

	if err := player.Play(); err != nil {
		log.Fatal(err)
	}
	if *flagStartPos > 0 {
		if err := player.SeekTo(*flagStartPos, 0); err != nil {
			log.Fatal(err)
		}
	}

	// No point drawing the UI into a pipe
	noUI := *flagNoUI || !term.IsTerminal(int(os.Stdout.Fd()))

	play(player, config.NewChain(rvb, player.GenerateAudio), backend, noUI)
}
