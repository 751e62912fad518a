package nodes

import (
	"math"
	"testing"

	"github.com/cbegin/modsynth-go/internal/port"
)

func TestMixerCenterPanEqualPower(t *testing.T) {
	m := NewMixer()
	in := []float32{1, 1, 1, 1}
	n := len(in)
	outL := make([]float32, n)
	outR := make([]float32, n)
	outputs := map[port.ID][]float32{port.AudioOutput0: outL, port.AudioOutput1: outR}
	inputs := map[port.ID][]port.Source{port.AudioInput0: {{Buffer: in, Amount: 1}}}
	m.Process(inputs, outputs, n)

	want := float32(math.Sqrt(0.5))
	for i := range outL {
		if diff := outL[i] - want; diff > 1e-5 || diff < -1e-5 {
			t.Fatalf("expected center-pan left gain %f, got %f", want, outL[i])
		}
		if diff := outR[i] - want; diff > 1e-5 || diff < -1e-5 {
			t.Fatalf("expected center-pan right gain %f, got %f", want, outR[i])
		}
	}
}

func TestMixerFullRightPan(t *testing.T) {
	m := NewMixer()
	in := []float32{1}
	outL := make([]float32, 1)
	outR := make([]float32, 1)
	outputs := map[port.ID][]float32{port.AudioOutput0: outL, port.AudioOutput1: outR}
	inputs := map[port.ID][]port.Source{
		port.AudioInput0: {{Buffer: in, Amount: 1}},
		port.StereoPan:   {{Buffer: []float32{1}, Amount: 1, Type: port.Additive}},
	}
	m.Process(inputs, outputs, 1)
	if outL[0] > 1e-5 {
		t.Fatalf("expected near-zero left output when fully panned right, got %f", outL[0])
	}
	if outR[0] < 0.99 {
		t.Fatalf("expected near-unity right output when fully panned right, got %f", outR[0])
	}
}

func TestGateMixerMultipliesGates(t *testing.T) {
	g := NewGateMixer()
	out := make([]float32, 3)
	outputs := map[port.ID][]float32{port.CombinedGate: out}
	inputs := map[port.ID][]port.Source{
		port.GlobalGate: {{Buffer: []float32{1, 1, 0}, Amount: 1}},
		port.ArpGate:    {{Buffer: []float32{1, 0, 1}, Amount: 1}},
	}
	g.Process(inputs, outputs, 3)
	want := []float32{1, 0, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: want %f got %f", i, want[i], out[i])
		}
	}
}

func TestGlobalFrequencyNodeAppliesDetune(t *testing.T) {
	g := NewGlobalFrequencyNode(440, 4)
	g.Detune = 1200 // one octave up
	out := make([]float32, 4)
	outputs := map[port.ID][]float32{port.GlobalFrequency: out}
	g.Process(nil, outputs, 4)
	for _, v := range out {
		if diff := v - 880; diff > 0.01 || diff < -0.01 {
			t.Fatalf("expected 880Hz after 1200-cent detune, got %f", v)
		}
	}
}

func TestGlobalVelocityNodeRandomizeDeterministic(t *testing.T) {
	a := NewGlobalVelocityNode(0.8, 16, 99)
	a.Randomize = 1
	b := NewGlobalVelocityNode(0.8, 16, 99)
	b.Randomize = 1

	gate := []float32{1, 1, 1, 1}
	outA := make([]float32, 4)
	outB := make([]float32, 4)
	inputs := map[port.ID][]port.Source{port.GlobalGate: {{Buffer: gate, Amount: 1}}}
	a.Process(inputs, map[port.ID][]float32{port.AudioOutput0: outA}, 4)
	b.Process(inputs, map[port.ID][]float32{port.AudioOutput0: outB}, 4)
	for i := range outA {
		if outA[i] != outB[i] {
			t.Fatalf("expected identical seeded randomization at %d: %f vs %f", i, outA[i], outB[i])
		}
	}
}
