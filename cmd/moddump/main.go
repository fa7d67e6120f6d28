package main

import (
	"fmt"
	"log"
	"os"

	"github.com/chriskillpack/micromod"
	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var flagRaw = flag.BoolP("raw", "r", false, "dump the parsed song structure instead of the pattern listing")

func main() {
	log.SetFlags(0)
	log.SetPrefix("moddump: ")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("Missing song filename")
	}

	songF, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	if !*flagRaw {
		micromod.SetDumpWriter(os.Stdout)
	}
	song, err := micromod.NewSongFromBytes(songF)
	if err != nil {
		log.Fatal(err)
	}

	if *flagRaw {
		rawDump(song)
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Println()
	fmt.Println(bold("Samples:"))
	for i, s := range song.Samples {
		if s.Length == 0 {
			continue
		}
		fmt.Printf("%02X: %s\n", i+1, s.String())
	}

	fmt.Println(bold("Effects:"))
	for e, n := range effectUsage(song) {
		if n == 0 {
			continue
		}
		fmt.Printf("%X %-18s %d\n", e, micromod.EffectKind(e), n)
	}
}

// effectUsage counts how many cells in the song's patterns use each effect.
// Cells with effect 0 and no parameter are empty and not counted.
func effectUsage(song *micromod.Song) [16]int {
	var counts [16]int
	for _, pat := range song.Patterns {
		for _, c := range pat {
			if c.Effect == micromod.EffectArpeggio && c.Param == 0 {
				continue
			}
			counts[c.Effect&0xF]++
		}
	}
	return counts
}

// rawDump prints the song with spew. Sample data is dropped, it is
// thousands of floats per sample and says nothing useful.
func rawDump(song *micromod.Song) {
	trimmed := *song
	trimmed.Samples = make([]micromod.Sample, len(song.Samples))
	for i, s := range song.Samples {
		s.Data = nil
		trimmed.Samples[i] = s
	}

	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
	cfg.Dump(trimmed)
}
