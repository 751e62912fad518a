package nodes

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/modproc"
	"github.com/cbegin/modsynth-go/internal/port"
)

// Mixer takes a mono audio input and applies gain and equal-power panning
// to produce a stereo pair.
type Mixer struct {
	active bool
}

// NewMixer builds a mixer node.
func NewMixer() *Mixer {
	return &Mixer{active: true}
}

func (m *Mixer) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.AudioInput0:  false,
		port.GainMod:      false,
		port.StereoPan:    false,
		port.AudioOutput0: true,
		port.AudioOutput1: true,
	}
}

func (m *Mixer) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	outL, hasL := outputs[port.AudioOutput0]
	outR, hasR := outputs[port.AudioOutput1]
	if !hasL && !hasR {
		return
	}

	in := firstBuffer(inputs[port.AudioInput0], n)
	gainPair := modproc.Accumulate(inputs[port.GainMod], n)
	panPair := modproc.Accumulate(inputs[port.StereoPan], n)

	for i := 0; i < n; i++ {
		gain := gainPair.Apply(i, 1)
		if gain < 0 {
			gain = 0
		}
		applied := in[i] * gain

		pan := clamp32(panPair.Apply(i, 0), -1, 1)
		normalizedPan := (pan + 1) * 0.5
		gainR := float32(math.Sqrt(float64(normalizedPan)))
		gainL := float32(math.Sqrt(float64(1 - normalizedPan)))

		if hasL {
			outL[i] = applied * gainL
		}
		if hasR {
			outR[i] = applied * gainR
		}
	}
}

func (m *Mixer) Reset() {}

func (m *Mixer) IsActive() bool   { return m.active }
func (m *Mixer) SetActive(v bool) { m.active = v }
func (m *Mixer) NodeType() string { return "mixer" }
func (m *Mixer) Self() any        { return m }
