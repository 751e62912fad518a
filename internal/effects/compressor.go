package effects

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/port"
)

// Compressor implements stereo dynamic range compression with an envelope
// follower and gain reduction computed independently per channel; the
// channels are not linked.
type Compressor struct {
	threshold float32
	ratio     float32
	attack    float32
	release   float32
	makeup    float32
	envL      float32
	envR      float32
	active    bool
}

// NewCompressor creates a compressor effect.
// thresholdDB: threshold in dB (e.g., -20)
// ratio: compression ratio (e.g., 4 for 4:1)
// attackMs/releaseMs: envelope follower times
// makeupDB: makeup gain in dB
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float32) *Compressor {
	sr := float64(sampleRate)
	return &Compressor{
		threshold: float32(math.Pow(10, float64(thresholdDB)/20)),
		ratio:     ratio,
		attack:    float32(1.0 - math.Exp(-1.0/(float64(attackMs)*sr/1000.0))),
		release:   float32(1.0 - math.Exp(-1.0/(float64(releaseMs)*sr/1000.0))),
		makeup:    float32(math.Pow(10, float64(makeupDB)/20)),
		active:    true,
	}
}

func (c *Compressor) Process(inL, inR, outL, outR []float32, mods map[port.ID][]port.Source) {
	n := len(inL)
	for i := 0; i < n; i++ {
		absL := float32(math.Abs(float64(inL[i])))
		absR := float32(math.Abs(float64(inR[i])))
		if absL > c.envL {
			c.envL += c.attack * (absL - c.envL)
		} else {
			c.envL += c.release * (absL - c.envL)
		}
		if absR > c.envR {
			c.envR += c.attack * (absR - c.envR)
		} else {
			c.envR += c.release * (absR - c.envR)
		}
		gainL := c.computeGain(c.envL)
		gainR := c.computeGain(c.envR)
		outL[i] = inL[i] * gainL * c.makeup
		outR[i] = inR[i] * gainR * c.makeup
	}
}

func (c *Compressor) computeGain(env float32) float32 {
	if env <= c.threshold || c.threshold <= 0 {
		return 1.0
	}
	over := env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func (c *Compressor) Reset() {
	c.envL = 0
	c.envR = 0
}

func (c *Compressor) IsActive() bool   { return c.active }
func (c *Compressor) SetActive(v bool) { c.active = v }
