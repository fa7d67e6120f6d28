package micromod

// EffectKind is the effect command nibble of a pattern cell.
type EffectKind byte

// MOD effect commands. Only the commands with a handler in effectHandlers
// change playback, the rest are decoded for display and otherwise ignored.
const (
	EffectArpeggio         EffectKind = 0x0
	EffectPortamentoUp     EffectKind = 0x1
	EffectPortamentoDown   EffectKind = 0x2
	EffectPortaToNote      EffectKind = 0x3
	EffectVibrato          EffectKind = 0x4
	EffectPortaVolSlide    EffectKind = 0x5
	EffectVibratoVolSlide  EffectKind = 0x6
	EffectTremolo          EffectKind = 0x7
	EffectSetPanPosition   EffectKind = 0x8
	EffectSampleOffset     EffectKind = 0x9
	EffectVolumeSlide      EffectKind = 0xA
	EffectJumpToPattern    EffectKind = 0xB
	EffectSetVolume        EffectKind = 0xC
	EffectPatternBrk       EffectKind = 0xD
	EffectExtended         EffectKind = 0xE
	EffectSetSpeed         EffectKind = 0xF
	numEffectKinds                    = 16
)

var effectNames = [numEffectKinds]string{
	"arpeggio", "portamento up", "portamento down", "porta to note",
	"vibrato", "porta+volslide", "vibrato+volslide", "tremolo",
	"set pan", "sample offset", "volume slide", "jump to pattern",
	"set volume", "pattern break", "extended", "set speed",
}

func (e EffectKind) String() string {
	if int(e) < len(effectNames) {
		return effectNames[e]
	}
	return "unknown"
}

// effectHandler applies a row effect. It runs on the first tick of the row,
// after the channel's note and sample have been triggered.
type effectHandler func(p *Player, c *Channel, param byte)

var effectHandlers = [numEffectKinds]effectHandler{
	EffectSetVolume:     fxSetVolume,
	EffectSetSpeed:      fxSetSpeed,
	EffectJumpToPattern: fxJumpToPattern,
	EffectPatternBrk:    fxPatternBreak,
}

func fxSetVolume(p *Player, c *Channel, param byte) {
	c.Volume = min(maxVolume, int(param))
}

func fxSetSpeed(p *Player, c *Channel, param byte) {
	if param < 32 {
		// Speed 0 would stall the song
		p.speed = max(1, int(param))
		return
	}
	p.setTempo(int(param))
}

// Flow effects combine in channel order: a jump sets the next position, a
// break advances it by one.
func fxJumpToPattern(p *Player, c *Channel, param byte) {
	p.override.set = true
	p.override.position = int(param)
}

func fxPatternBreak(p *Player, c *Channel, param byte) {
	p.override.set = true
	p.override.position++
}

// rowOverride is a pending change of song position, applied once all
// channels of the current row have been processed. It starts each row at
// the current position. The row always restarts at 0.
type rowOverride struct {
	set      bool
	position int
}
