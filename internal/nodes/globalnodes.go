package nodes

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/modproc"
	"github.com/cbegin/modsynth-go/internal/port"
)

// GlobalFrequencyNode holds the per-block base frequency written by a voice
// manager and applies a detune parameter, in cents, modulated by
// DetuneMod.
type GlobalFrequencyNode struct {
	baseFrequency []float32
	Detune        float32 // cents
}

// NewGlobalFrequencyNode creates a global frequency node pre-filled with
// initialFreq for every sample in a block of blockSize.
func NewGlobalFrequencyNode(initialFreq float32, blockSize int) *GlobalFrequencyNode {
	buf := make([]float32, blockSize)
	for i := range buf {
		buf[i] = initialFreq
	}
	return &GlobalFrequencyNode{baseFrequency: buf}
}

// SetBaseFrequency updates the per-block frequency; a single value broadcasts.
func (g *GlobalFrequencyNode) SetBaseFrequency(freq []float32) {
	switch {
	case len(freq) == 0:
		return
	case len(freq) == 1:
		for i := range g.baseFrequency {
			g.baseFrequency[i] = freq[0]
		}
	case len(freq) == len(g.baseFrequency):
		copy(g.baseFrequency, freq)
	default:
		for i := range g.baseFrequency {
			g.baseFrequency[i] = freq[0]
		}
	}
}

func (g *GlobalFrequencyNode) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.GlobalFrequency: true,
		port.DetuneMod:       false,
	}
}

func (g *GlobalFrequencyNode) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	out, ok := outputs[port.GlobalFrequency]
	if !ok {
		return
	}
	detunePair := modproc.Accumulate(inputs[port.DetuneMod], n)
	for i := 0; i < n && i < len(g.baseFrequency); i++ {
		// Additive modulation arrives in semitones; convert to cents before combining.
		effectiveCents := g.Detune + detunePair.Add[i]*100
		detuneFactor := float32(math.Pow(2, float64(effectiveCents)/1200))
		out[i] = g.baseFrequency[i] * detuneFactor * detunePair.Mult[i]
	}
}

func (g *GlobalFrequencyNode) Reset()           {}
func (g *GlobalFrequencyNode) IsActive() bool   { return true }
func (g *GlobalFrequencyNode) SetActive(v bool) {}
func (g *GlobalFrequencyNode) NodeType() string { return "global_frequency" }
func (g *GlobalFrequencyNode) Self() any        { return g }

// GlobalVelocityNode exposes the voice's note-on velocity as an audio-rate
// signal, with optional sensitivity curve and per-trigger randomization.
type GlobalVelocityNode struct {
	baseVelocity []float32
	Sensitivity  float32 // exponent base; 1.0 = linear
	Randomize    float32 // 0..1 interpolation toward a random value per trigger

	rng         *xorshift128
	currentRand float32
	lastGate    float32
}

// NewGlobalVelocityNode creates a velocity node with a deterministic
// xorshift128 RNG seed so randomized velocity stays reproducible across
// runs (see noise.go).
func NewGlobalVelocityNode(initialVelocity float32, blockSize int, seed uint32) *GlobalVelocityNode {
	buf := make([]float32, blockSize)
	for i := range buf {
		buf[i] = initialVelocity
	}
	return &GlobalVelocityNode{baseVelocity: buf, Sensitivity: 1, rng: newXorshift128(seed)}
}

// SetVelocity updates the per-block velocity; a single value broadcasts.
func (g *GlobalVelocityNode) SetVelocity(v []float32) {
	switch {
	case len(v) == 0:
		return
	case len(v) == 1:
		for i := range g.baseVelocity {
			g.baseVelocity[i] = v[0]
		}
	case len(v) == len(g.baseVelocity):
		copy(g.baseVelocity, v)
	default:
		for i := range g.baseVelocity {
			g.baseVelocity[i] = v[0]
		}
	}
}

func (g *GlobalVelocityNode) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.AudioOutput0: true,
		port.GlobalGate:   false,
	}
}

func (g *GlobalVelocityNode) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	out, ok := outputs[port.AudioOutput0]
	if !ok {
		return
	}
	gate := firstBuffer(inputs[port.GlobalGate], n)
	exp := float32(1)
	if g.Sensitivity != 0 {
		exp = 1 / g.Sensitivity
	}

	for i := 0; i < n; i++ {
		gateOn := gate[i] > 0.5
		prevGateOn := g.lastGate > 0.5
		if gateOn && !prevGateOn {
			g.currentRand = (g.rng.nextFloat() + 1) / 2 // map [-1,1] -> [0,1]
		}
		g.lastGate = gate[i]

		base := g.baseVelocity[0]
		if i < len(g.baseVelocity) {
			base = g.baseVelocity[i]
		}
		var adjusted float32
		if absF32(g.Sensitivity-1) < 1e-5 {
			adjusted = base
		} else {
			adjusted = float32(math.Pow(float64(base), float64(exp)))
		}
		mixed := (1-g.Randomize)*adjusted + g.Randomize*g.currentRand
		out[i] = clamp32(mixed, 0, 1)
	}
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func (g *GlobalVelocityNode) Reset()           { g.lastGate = 0 }
func (g *GlobalVelocityNode) IsActive() bool   { return true }
func (g *GlobalVelocityNode) SetActive(v bool) {}
func (g *GlobalVelocityNode) NodeType() string { return "global_velocity" }
func (g *GlobalVelocityNode) Self() any        { return g }
