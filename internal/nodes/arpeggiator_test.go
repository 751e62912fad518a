package nodes

import (
	"testing"

	"github.com/cbegin/modsynth-go/internal/port"
)

func TestArpeggiatorFreeRunningSteps(t *testing.T) {
	a := NewArpeggiatorGenerator()
	a.Enable([]PatternStep{{Value: 0, Active: true}, {Value: 700, Active: true}}, 4)
	out := make([]float32, 8)
	outputs := map[port.ID][]float32{port.AudioOutput0: out}
	a.Process(nil, outputs, 8)
	want := []float32{0, 0, 0, 0, 700, 700, 700, 700}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: want %f got %f", i, want[i], out[i])
		}
	}
}

func TestArpeggiatorInactiveStepIsSilent(t *testing.T) {
	a := NewArpeggiatorGenerator()
	a.Enable([]PatternStep{{Value: 500, Active: false}}, 4)
	out := make([]float32, 4)
	outputs := map[port.ID][]float32{port.AudioOutput0: out}
	a.Process(nil, outputs, 4)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("expected silent inactive step at %d, got %f", i, v)
		}
	}
}

func TestArpeggiatorPingPongReversesAtEnds(t *testing.T) {
	a := NewArpeggiatorGenerator()
	a.Mode = ArpPingPong
	a.Enable([]PatternStep{{Value: 0, Active: true}, {Value: 100, Active: true}, {Value: 200, Active: true}}, 1)
	out := make([]float32, 8)
	outputs := map[port.ID][]float32{port.AudioOutput0: out}
	a.Process(nil, outputs, 8)
	want := []float32{0, 100, 200, 100, 0, 100, 200, 100}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: want %f got %f", i, want[i], out[i])
		}
	}
}

func TestArpeggiatorTriggerResetsOnGateEdge(t *testing.T) {
	a := NewArpeggiatorGenerator()
	a.Mode = ArpTrigger
	a.Enable([]PatternStep{{Value: 0, Active: true}, {Value: 100, Active: true}}, 2)

	out := make([]float32, 4)
	outputs := map[port.ID][]float32{port.AudioOutput0: out}
	gate := []float32{0, 0, 0, 0}
	inputs := map[port.ID][]port.Source{port.GlobalGate: {{Buffer: gate, Amount: 1}}}
	a.Process(inputs, outputs, 4)
	wantFirst := []float32{0, 0, 100, 100}
	for i := range wantFirst {
		if out[i] != wantFirst[i] {
			t.Fatalf("index %d: want %f got %f", i, wantFirst[i], out[i])
		}
	}

	gate2 := []float32{1, 1, 1, 1}
	inputs[port.GlobalGate] = []port.Source{{Buffer: gate2, Amount: 1}}
	a.Process(inputs, outputs, 4)
	want := []float32{0, 0, 100, 100}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: want %f got %f", i, want[i], out[i])
		}
	}
}

func TestArpeggiatorGateOutputGapAtStepEnd(t *testing.T) {
	a := NewArpeggiatorGenerator()
	a.Enable([]PatternStep{{Value: 0, Active: true}}, 8)
	a.SetGateOutputEnabled(true)
	out := make([]float32, 8)
	gateOut := make([]float32, 8)
	outputs := map[port.ID][]float32{port.AudioOutput0: out, port.ArpGate: gateOut}
	a.Process(nil, outputs, 8)
	for i := 0; i < 6; i++ {
		if gateOut[i] != 1 {
			t.Fatalf("expected gate high at %d, got %f", i, gateOut[i])
		}
	}
	if gateOut[6] != 0 || gateOut[7] != 0 {
		t.Fatalf("expected gap at end of step, got %v", gateOut[6:])
	}
}
