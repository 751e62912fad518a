package effects

import (
	"github.com/cbegin/modsynth-go/internal/dspmath"
	"github.com/cbegin/modsynth-go/internal/modproc"
	"github.com/cbegin/modsynth-go/internal/port"
)

// Convolver implements partitioned frequency-domain convolution against a
// fixed stereo impulse response. The IR spectrum is computed once
// at load time; each processing block is FFT'd, multiplied against it, and
// overlap-added with a persistent tail so the render path itself never
// allocates.
type Convolver struct {
	fftSize   int
	irLen     int
	blockSize int

	irSpecL, irSpecR []dspmath.Complex

	scratch []dspmath.Complex
	tailL   []float32
	tailR   []float32
	wetL    []float32
	wetR    []float32

	Wet    float32
	active bool
}

// NewConvolver builds a convolver from a stereo impulse response sampled at
// the engine rate. blockSize is the render block size the engine commits
// to processing at.
func NewConvolver(irL, irR []float32, blockSize int, wet float32) *Convolver {
	irLen := len(irL)
	if len(irR) > irLen {
		irLen = len(irR)
	}
	fftSize := dspmath.NextPowerOfTwo(irLen + blockSize)

	c := &Convolver{
		fftSize:   fftSize,
		irLen:     irLen,
		blockSize: blockSize,
		irSpecL:   make([]dspmath.Complex, fftSize),
		irSpecR:   make([]dspmath.Complex, fftSize),
		scratch:   make([]dspmath.Complex, fftSize),
		tailL:     make([]float32, fftSize),
		tailR:     make([]float32, fftSize),
		wetL:      make([]float32, blockSize),
		wetR:      make([]float32, blockSize),
		Wet:       clamp(wet, 0, 1),
		active:    true,
	}
	for i := 0; i < irLen; i++ {
		if i < len(irL) {
			c.irSpecL[i].Re = float64(irL[i])
		}
		if i < len(irR) {
			c.irSpecR[i].Re = float64(irR[i])
		}
	}
	dspmath.FFT(c.irSpecL)
	dspmath.FFT(c.irSpecR)
	return c
}

func (c *Convolver) convolveBlock(in []float32, irSpec []dspmath.Complex, tail []float32, out []float32) {
	n := len(in)
	for i := range c.scratch {
		c.scratch[i] = dspmath.Complex{}
	}
	for i := 0; i < n; i++ {
		c.scratch[i].Re = float64(in[i])
	}
	dspmath.FFT(c.scratch)
	for i := range c.scratch {
		a, b := c.scratch[i], irSpec[i]
		c.scratch[i] = dspmath.Complex{
			Re: a.Re*b.Re - a.Im*b.Im,
			Im: a.Re*b.Im + a.Im*b.Re,
		}
	}
	dspmath.IFFT(c.scratch)

	for i := 0; i < n; i++ {
		out[i] = float32(c.scratch[i].Re) + tail[i]
	}
	newTailLen := c.fftSize - n
	for i := 0; i < newTailLen; i++ {
		tail[i] = float32(c.scratch[n+i].Re) + tail[n+i]
	}
	for i := newTailLen; i < len(tail); i++ {
		tail[i] = 0
	}
}

func (c *Convolver) Process(inL, inR, outL, outR []float32, mods map[port.ID][]port.Source) {
	n := len(inL)
	wetL := c.wetL[:n]
	wetR := c.wetR[:n]
	c.convolveBlock(inL, c.irSpecL, c.tailL, wetL)
	c.convolveBlock(inR, c.irSpecR, c.tailR, wetR)
	wetPair := modproc.Accumulate(mods[port.WetDryMix], n)
	for i := 0; i < n; i++ {
		// Per-sample wet*wetMod + dry*(1-wetMod); WetDryMix modulation
		// scales/offsets the base Wet through the shared (add, mult) pair.
		wetMod := clamp(wetPair.Apply(i, c.Wet), 0, 1)
		outL[i] = inL[i]*(1-wetMod) + wetL[i]*wetMod
		outR[i] = inR[i]*(1-wetMod) + wetR[i]*wetMod
	}
}

func (c *Convolver) Reset() {
	clear32(c.tailL)
	clear32(c.tailR)
}

func (c *Convolver) IsActive() bool   { return c.active }
func (c *Convolver) SetActive(v bool) { c.active = v }
