package effects

import "testing"

func TestCompressorReducesLoudSignal(t *testing.T) {
	c := NewCompressor(48000, -20, 4, 1, 50, 0)
	n := 4800 // let the envelope follower settle
	inL := make([]float32, n)
	inR := make([]float32, n)
	for i := range inL {
		inL[i] = 0.9
		inR[i] = 0.9
	}
	outL := make([]float32, n)
	outR := make([]float32, n)
	c.Process(inL, inR, outL, outR, nil)
	if outL[n-1] >= inL[n-1] {
		t.Fatalf("expected compressed output below input once envelope settles, got %f vs %f", outL[n-1], inL[n-1])
	}
}

func TestCompressorLeavesQuietSignalUnity(t *testing.T) {
	c := NewCompressor(48000, -6, 4, 1, 50, 0)
	n := 100
	inL := make([]float32, n)
	inR := make([]float32, n)
	for i := range inL {
		inL[i] = 0.01
		inR[i] = 0.01
	}
	outL := make([]float32, n)
	outR := make([]float32, n)
	c.Process(inL, inR, outL, outR, nil)
	if diff := outL[n-1] - inL[n-1]; diff > 1e-4 || diff < -1e-4 {
		t.Fatalf("expected near-unity gain below threshold, got %f vs %f", outL[n-1], inL[n-1])
	}
}

func TestCompressorResetClearsEnvelope(t *testing.T) {
	c := NewCompressor(48000, -20, 4, 1, 50, 0)
	n := 100
	inL := make([]float32, n)
	inR := make([]float32, n)
	for i := range inL {
		inL[i] = 0.9
	}
	outL := make([]float32, n)
	outR := make([]float32, n)
	c.Process(inL, inR, outL, outR, nil)
	c.Reset()
	if c.envL != 0 || c.envR != 0 {
		t.Fatalf("expected envelopes cleared after reset")
	}
}
