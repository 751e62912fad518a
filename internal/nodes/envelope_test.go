package nodes

import (
	"math"
	"testing"

	"github.com/cbegin/modsynth-go/internal/port"
)

// runEnvelope feeds a constant gate for n samples and returns the trace.
func runEnvelope(e *Envelope, gate float32, n int) []float32 {
	out := make([]float32, n)
	inputs := map[port.ID][]port.Source{
		port.Gate: {{Buffer: []float32{gate}, Amount: 1}},
	}
	block := make([]float32, 1)
	outputs := map[port.ID][]float32{port.AudioOutput0: block}
	for i := 0; i < n; i++ {
		e.Process(inputs, outputs, 1)
		out[i] = block[0]
	}
	return out
}

func TestEnvelopeLinearADSRShape(t *testing.T) {
	const sr = 1000
	e := NewEnvelope(sr, EnvelopeParams{
		AttackSec: 0.1, DecaySec: 0.1, SustainLvl: 0.5, ReleaseSec: 0.1,
	})

	// Gate high for 1s: attack peaks near 1 at t=0.1, decays to 0.5 by t=0.2.
	on := runEnvelope(e, 1, sr)
	if on[0] > 0.05 {
		t.Errorf("t=0: got %f, want ~0", on[0])
	}
	if math.Abs(float64(on[100]-1)) > 0.05 {
		t.Errorf("t=0.1s (attack end): got %f, want ~1", on[100])
	}
	if math.Abs(float64(on[200]-0.5)) > 0.05 {
		t.Errorf("t=0.2s (decay end): got %f, want ~0.5", on[200])
	}
	if math.Abs(float64(on[900]-0.5)) > 0.01 {
		t.Errorf("sustain: got %f, want 0.5", on[900])
	}

	// Release: 0.1s after gate falls the output is back to ~0.
	off := runEnvelope(e, 0, 150)
	if off[110] > 0.01 {
		t.Errorf("t=+0.11s after release: got %f, want ~0", off[110])
	}
	if e.Stage() != StageIdle {
		t.Errorf("stage after release: got %v, want StageIdle", e.Stage())
	}
}

func TestEnvelopeRetriggerStartsFromCurrentValue(t *testing.T) {
	const sr = 1000
	e := NewEnvelope(sr, EnvelopeParams{
		AttackSec: 0.1, DecaySec: 0.1, SustainLvl: 0.8, ReleaseSec: 0.5,
	})
	runEnvelope(e, 1, 300)
	mid := runEnvelope(e, 0, 100) // partway through release
	last := mid[len(mid)-1]
	if last <= 0 || last >= 0.8 {
		t.Fatalf("expected mid-release value in (0, 0.8), got %f", last)
	}

	// Retrigger: the attack resumes from the current value, no snap to 0.
	re := runEnvelope(e, 1, 10)
	if re[0] < last-0.05 {
		t.Errorf("retrigger dipped from %f to %f", last, re[0])
	}
}

func TestEnvelopeAttackModScalesTime(t *testing.T) {
	const sr = 1000
	mk := func() *Envelope {
		return NewEnvelope(sr, EnvelopeParams{AttackSec: 0.1, DecaySec: 1, SustainLvl: 1, ReleaseSec: 0.1})
	}

	run := func(e *Envelope, mult float32, n int) []float32 {
		out := make([]float32, n)
		inputs := map[port.ID][]port.Source{
			port.Gate:      {{Buffer: []float32{1}, Amount: 1}},
			port.AttackMod: {{Buffer: []float32{mult}, Amount: 1, Type: port.VCA}},
		}
		block := make([]float32, 1)
		outputs := map[port.ID][]float32{port.AudioOutput0: block}
		for i := 0; i < n; i++ {
			e.Process(inputs, outputs, 1)
			out[i] = block[0]
		}
		return out
	}

	// Halving the attack-time multiplier reaches 1.0 in half the samples.
	fast := run(mk(), 0.5, 100)
	slow := run(mk(), 1, 100)
	if math.Abs(float64(fast[60]-1)) > 0.05 {
		t.Errorf("halved attack not complete at t=0.06s: got %f", fast[60])
	}
	if slow[60] > 0.8 {
		t.Errorf("unscaled attack finished too early: got %f at t=0.06s", slow[60])
	}
}

func TestEnvelopeCurveShapesDiffer(t *testing.T) {
	const sr = 1000
	lin := NewEnvelope(sr, EnvelopeParams{AttackSec: 0.1, DecaySec: 1, SustainLvl: 1, ReleaseSec: 0.1})
	exp := NewEnvelope(sr, EnvelopeParams{AttackSec: 0.1, DecaySec: 1, SustainLvl: 1, ReleaseSec: 0.1, AttackCurve: 1})
	log := NewEnvelope(sr, EnvelopeParams{AttackSec: 0.1, DecaySec: 1, SustainLvl: 1, ReleaseSec: 0.1, AttackCurve: -1})

	l := runEnvelope(lin, 1, 50)[49]
	e := runEnvelope(exp, 1, 50)[49]
	g := runEnvelope(log, 1, 50)[49]

	// At mid-attack: exponential lags linear, logarithmic leads it.
	if !(e < l && l < g) {
		t.Errorf("mid-attack ordering: exp=%f lin=%f log=%f, want exp < lin < log", e, l, g)
	}
}

func TestEnvelopePreviewRestoresState(t *testing.T) {
	const sr = 1000
	e := NewEnvelope(sr, EnvelopeParams{AttackSec: 0.01, DecaySec: 0.01, SustainLvl: 0.5, ReleaseSec: 0.05})
	runEnvelope(e, 1, 100)
	stageBefore := e.Stage()

	trace := e.Preview(1.5)
	if len(trace) != 1500 {
		t.Fatalf("preview length: got %d, want 1500", len(trace))
	}
	var peak float32
	for _, v := range trace {
		if v > peak {
			peak = v
		}
	}
	if math.Abs(float64(peak-1)) > 0.05 {
		t.Errorf("preview peak: got %f, want ~1", peak)
	}
	if trace[len(trace)-1] > 0.01 {
		t.Errorf("preview tail after release: got %f, want ~0", trace[len(trace)-1])
	}
	if e.Stage() != stageBefore {
		t.Errorf("preview mutated live state: stage %v, want %v", e.Stage(), stageBefore)
	}
}
