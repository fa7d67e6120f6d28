package main

import (
	"testing"

	"github.com/chriskillpack/micromod"
)

func TestEffectUsage(t *testing.T) {
	pat := make(micromod.Pattern, 64*4)
	pat[0] = micromod.Cell{Effect: micromod.EffectSetVolume, Param: 0x20}
	pat[5] = micromod.Cell{Effect: micromod.EffectSetVolume}
	pat[9] = micromod.Cell{Effect: micromod.EffectArpeggio, Param: 0x37}
	pat[255] = micromod.Cell{Effect: micromod.EffectSetSpeed, Param: 0x7D}
	song := &micromod.Song{Channels: 4, Patterns: []micromod.Pattern{pat, pat}}

	counts := effectUsage(song)
	if counts[micromod.EffectSetVolume] != 4 {
		t.Errorf("Expected 4 set volume cells, got %d", counts[micromod.EffectSetVolume])
	}
	if counts[micromod.EffectArpeggio] != 2 {
		t.Errorf("Expected 2 arpeggio cells, got %d", counts[micromod.EffectArpeggio])
	}
	if counts[micromod.EffectSetSpeed] != 2 {
		t.Errorf("Expected 2 set speed cells, got %d", counts[micromod.EffectSetSpeed])
	}
}
