package nodes

import (
	"github.com/cbegin/modsynth-go/internal/modproc"
	"github.com/cbegin/modsynth-go/internal/port"
)

// NoiseType selects the noise color.
type NoiseType int

const (
	NoiseWhite NoiseType = iota
	NoisePink
	NoiseBrown
)

// xorshift128 is a small, fast, deterministic integer RNG.
type xorshift128 struct {
	x, y, z, w uint32
}

func newXorshift128(seed uint32) *xorshift128 {
	if seed == 0 {
		seed = 0x9e3779b9
	}
	return &xorshift128{x: seed, y: seed ^ 0x6c078965, z: seed ^ 0x9908b0df, w: seed ^ 0xa3fc1f32}
}

func (r *xorshift128) next() uint32 {
	t := r.x ^ (r.x << 11)
	r.x, r.y, r.z = r.y, r.z, r.w
	r.w = r.w ^ (r.w >> 19) ^ (t ^ (t >> 8))
	return r.w
}

// nextFloat returns a value in [-1, 1].
func (r *xorshift128) nextFloat() float32 {
	return float32(r.next())/float32(1<<31) - 1
}

// Noise combines an xorshift128 RNG, white/pink/brown shaping, an
// integrated one-pole lowpass, and optional DC offset.
type Noise struct {
	sampleRate float64
	Type       NoiseType
	Cutoff     float64 // Hz, 0 disables the lowpass
	DCOffset   float32

	rng *xorshift128

	// Paul Kellet's pink noise filter network.
	pink [7]float32
	// brown noise leaky integrator state.
	brown float32

	lpState float32
	active  bool
}

// NewNoise creates a noise generator seeded deterministically.
func NewNoise(sampleRate int, seed uint32) *Noise {
	return &Noise{sampleRate: float64(sampleRate), rng: newXorshift128(seed), active: true}
}

func (n *Noise) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.CutoffMod:    false,
		port.AudioOutput0: true,
	}
}

func (n *Noise) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, count int) {
	out, ok := outputs[port.AudioOutput0]
	if !ok {
		return
	}
	cutoffPair := modproc.Accumulate(inputs[port.CutoffMod], count)

	for i := 0; i < count; i++ {
		w := n.rng.nextFloat()
		var sample float32
		switch n.Type {
		case NoiseWhite:
			sample = w
		case NoisePink:
			sample = n.pinkSample(w)
		case NoiseBrown:
			n.brown = 0.999*n.brown + 0.02*w
			sample = n.brown * 4.57
		}

		cutoffHz := cutoffPair.Apply(i, float32(n.Cutoff))
		if cutoffHz > 0 {
			alpha := hzToNormalizedAlpha(float64(cutoffHz), n.sampleRate)
			n.lpState += alpha * (sample - n.lpState)
			sample = n.lpState
		}

		out[i] = sample + n.DCOffset
	}
}

// pinkSample applies Paul Kellet's 6-coefficient filter network plus a 7th
// mix term.
func (n *Noise) pinkSample(white float32) float32 {
	n.pink[0] = 0.99886*n.pink[0] + white*0.0555179
	n.pink[1] = 0.99332*n.pink[1] + white*0.0750759
	n.pink[2] = 0.96900*n.pink[2] + white*0.1538520
	n.pink[3] = 0.86650*n.pink[3] + white*0.3104856
	n.pink[4] = 0.55000*n.pink[4] + white*0.5329522
	n.pink[5] = -0.7616*n.pink[5] - white*0.0168980
	sum := n.pink[0] + n.pink[1] + n.pink[2] + n.pink[3] + n.pink[4] + n.pink[5] + n.pink[6] + white*0.5362
	n.pink[6] = white * 0.115926
	return sum * 0.11
}

// hzToNormalizedAlpha maps cutoff Hz to a squared normalized one-pole
// coefficient, clamped to 0.999.
func hzToNormalizedAlpha(hz, sampleRate float64) float32 {
	nyquistMargin := 0.499 * sampleRate
	clamped := hz
	if clamped < 10 {
		clamped = 10
	}
	if clamped > nyquistMargin {
		clamped = nyquistMargin
	}
	norm := (clamped - 10) / (nyquistMargin - 10)
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	alpha := norm * norm
	if alpha > 0.999 {
		alpha = 0.999
	}
	return float32(alpha)
}

func (n *Noise) Reset() {
	n.pink = [7]float32{}
	n.brown = 0
	n.lpState = 0
}

func (n *Noise) IsActive() bool { return n.active }
func (n *Noise) SetActive(v bool) {
	if v && !n.active {
		n.Reset()
	}
	n.active = v
}
func (n *Noise) NodeType() string { return "noise" }
func (n *Noise) Self() any        { return n }
