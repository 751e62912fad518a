package effects

import "testing"

func TestDelayProducesDelayedSignal(t *testing.T) {
	d := NewDelay(1000, 5, 0, 0, 1) // 5 samples of delay at 1000Hz
	n := 10
	inL := make([]float32, n)
	inR := make([]float32, n)
	inL[0] = 1
	inR[0] = 1
	outL := make([]float32, n)
	outR := make([]float32, n)
	d.Process(inL, inR, outL, outR, nil)
	if outL[5] == 0 {
		t.Fatalf("expected delayed impulse to reappear around sample 5, got %v", outL)
	}
}

func TestDelayResetClearsBuffer(t *testing.T) {
	d := NewDelay(1000, 5, 0.5, 0, 1)
	inL := []float32{1, 1, 1, 1, 1}
	inR := []float32{1, 1, 1, 1, 1}
	outL := make([]float32, 5)
	outR := make([]float32, 5)
	d.Process(inL, inR, outL, outR, nil)
	d.Reset()
	for _, v := range d.bufL {
		if v != 0 {
			t.Fatalf("expected buffer cleared after reset")
		}
	}
}

func TestDelayInactiveBypassViaStack(t *testing.T) {
	d := NewDelay(1000, 5, 0, 0, 1)
	d.SetActive(false)
	s := NewStack(d)
	l := []float32{1, 2, 3}
	r := []float32{1, 2, 3}
	s.Process(l, r)
	if l[0] != 1 || l[1] != 2 {
		t.Fatalf("expected passthrough when delay inactive, got %v", l)
	}
}
