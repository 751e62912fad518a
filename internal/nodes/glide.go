package nodes

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/port"
)

// Glide implements portamento/legato frequency slew with independent
// rise/fall one-pole time constants, bypassing the slew on a fresh gate
// rising edge so new notes start exactly on pitch.
type Glide struct {
	sampleRate float64
	riseTime   float64
	fallTime   float64
	riseAlpha  float64
	fallAlpha  float64

	current  float32
	lastGate float32
	active   bool
}

// NewGlide builds a glide node with the given rise/fall times in seconds.
func NewGlide(sampleRate int, riseTime, fallTime float64) *Glide {
	g := &Glide{
		sampleRate: math.Max(float64(sampleRate), 1),
		riseTime:   math.Max(riseTime, 0),
		fallTime:   math.Max(fallTime, 0),
		active:     true,
	}
	g.riseAlpha = timeToAlpha(g.sampleRate, g.riseTime)
	g.fallAlpha = timeToAlpha(g.sampleRate, g.fallTime)
	return g
}

func timeToAlpha(sampleRate, timeSec float64) float64 {
	if timeSec <= 0 {
		return 1
	}
	tauSamples := math.Max(timeSec*sampleRate, 1)
	return 1 - math.Exp(-1/tauSamples)
}

// SetRiseTime updates the rise time constant in seconds.
func (g *Glide) SetRiseTime(t float64) {
	g.riseTime = math.Max(t, 0)
	g.riseAlpha = timeToAlpha(g.sampleRate, g.riseTime)
}

// SetFallTime updates the fall time constant in seconds.
func (g *Glide) SetFallTime(t float64) {
	g.fallTime = math.Max(t, 0)
	g.fallAlpha = timeToAlpha(g.sampleRate, g.fallTime)
}

func (g *Glide) nextValue(target float32) float32 {
	alpha := g.fallAlpha
	if target >= g.current {
		alpha = g.riseAlpha
	}
	g.current += float32(alpha) * (target - g.current)
	return g.current
}

func (g *Glide) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.AudioInput0:  false,
		port.CombinedGate: false,
		port.AudioOutput0: true,
	}
}

func (g *Glide) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	out, ok := outputs[port.AudioOutput0]
	if !ok {
		return
	}
	if !g.active {
		clear32(out)
		return
	}

	inSources := inputs[port.AudioInput0]
	if len(inSources) == 0 {
		for i := 0; i < n; i++ {
			out[i] = g.current
		}
		if gates := inputs[port.CombinedGate]; len(gates) > 0 && len(gates[0].Buffer) > 0 {
			g.lastGate = gates[0].Buffer[len(gates[0].Buffer)-1]
		}
		return
	}
	in := inSources[0].Buffer

	if gates := inputs[port.CombinedGate]; len(gates) > 0 && len(gates[0].Buffer) > 0 {
		gate := gates[0].Buffer
		gateNow := gate[0]
		wasOpen := g.lastGate > 0.5
		isOpen := gateNow > 0.5
		if isOpen && !wasOpen {
			length := n
			if len(in) < length {
				length = len(in)
			}
			for i := 0; i < length; i++ {
				out[i] = in[i]
			}
			if length > 0 {
				g.current = in[length-1]
			}
			for i := length; i < n; i++ {
				out[i] = g.current
			}
			g.lastGate = gate[len(gate)-1]
			return
		}
		g.lastGate = gate[len(gate)-1]
	}

	length := n
	if len(in) < length {
		length = len(in)
	}
	for i := 0; i < length; i++ {
		out[i] = g.nextValue(in[i])
	}
	for i := length; i < n; i++ {
		out[i] = g.current
	}
}

func (g *Glide) Reset() {
	g.current = 0
	g.lastGate = 0
}

func (g *Glide) IsActive() bool { return g.active }
func (g *Glide) SetActive(v bool) {
	g.active = v
	if !v {
		g.Reset()
	}
}
func (g *Glide) NodeType() string { return "glide" }
func (g *Glide) Self() any        { return g }
