package effects

import "testing"

func TestReverbTailPersistsAfterImpulse(t *testing.T) {
	r := NewReverb(48000, 0.5, 0.4, 1, 0.3)
	n := 8000
	inL := make([]float32, n)
	inR := make([]float32, n)
	inL[0] = 1
	inR[0] = 1
	outL := make([]float32, n)
	outR := make([]float32, n)
	r.Process(inL, inR, outL, outR, nil)
	var tailEnergy float32
	for i := 2000; i < n; i++ {
		tailEnergy += outL[i] * outL[i]
	}
	if tailEnergy == 0 {
		t.Fatalf("expected a nonzero reverb tail well after the impulse")
	}
}

func TestReverbDryWhenWetZero(t *testing.T) {
	r := NewReverb(48000, 0.5, 0.4, 1, 0)
	inL := []float32{0.5, 0.25, -0.5}
	inR := []float32{0.5, 0.25, -0.5}
	outL := make([]float32, 3)
	outR := make([]float32, 3)
	r.Process(inL, inR, outL, outR, nil)
	for i := range inL {
		if outL[i] != inL[i] {
			t.Fatalf("expected dry passthrough at wet=0, index %d got %f want %f", i, outL[i], inL[i])
		}
	}
}

func TestReverbStereoTailsDecorrelate(t *testing.T) {
	// Identical mono input at full width: the right channel's offset comb
	// tunings must produce a tail that differs from the left's.
	r := NewReverb(48000, 0.5, 0.4, 1, 1)
	n := 6000
	inL := make([]float32, n)
	inR := make([]float32, n)
	inL[0] = 1
	inR[0] = 1
	outL := make([]float32, n)
	outR := make([]float32, n)
	r.Process(inL, inR, outL, outR, nil)

	var diffEnergy float32
	for i := 1200; i < n; i++ {
		d := outL[i] - outR[i]
		diffEnergy += d * d
	}
	if diffEnergy == 0 {
		t.Fatalf("expected left and right reverb tails to differ at full width")
	}
}

func TestReverbZeroWidthCollapsesToMono(t *testing.T) {
	// At width 0 the wet1/wet2 coefficients are equal, so a mono input
	// yields an identical wet signal on both channels.
	r := NewReverb(48000, 0.5, 0.4, 0, 1)
	n := 6000
	inL := make([]float32, n)
	inR := make([]float32, n)
	inL[0] = 1
	inR[0] = 1
	outL := make([]float32, n)
	outR := make([]float32, n)
	r.Process(inL, inR, outL, outR, nil)
	for i := range outL {
		if diff := outL[i] - outR[i]; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("expected mono-collapsed output at width 0, index %d: L=%f R=%f", i, outL[i], outR[i])
		}
	}
}

func TestReverbPresetsProduceDifferentEngines(t *testing.T) {
	plate := NewReverbPreset(48000, ReverbPlate, 0.5, 1)
	hall := NewReverbPreset(48000, ReverbHall, 0.5, 1)
	if len(plate.combsL[0].buf) == len(hall.combsL[0].buf) {
		t.Fatalf("expected plate and hall presets to use different comb lengths")
	}
}

func TestReverbRightCombsCarryStereoOffset(t *testing.T) {
	r := NewReverbPreset(48000, ReverbFreeverb, 0.5, 1)
	for i := range r.combsL {
		if len(r.combsR[i].buf) <= len(r.combsL[i].buf) {
			t.Fatalf("comb %d: expected right delay line longer than left, L=%d R=%d",
				i, len(r.combsL[i].buf), len(r.combsR[i].buf))
		}
	}
}

func TestReverbResetClearsBuffers(t *testing.T) {
	r := NewReverb(48000, 0.5, 0.4, 1, 1)
	inL := []float32{1, 1, 1}
	inR := []float32{1, 1, 1}
	outL := make([]float32, 3)
	outR := make([]float32, 3)
	r.Process(inL, inR, outL, outR, nil)
	r.Reset()
	for i := range r.combsL {
		for _, v := range r.combsL[i].buf {
			if v != 0 {
				t.Fatalf("expected comb buffers cleared after reset")
			}
		}
		for _, v := range r.combsR[i].buf {
			if v != 0 {
				t.Fatalf("expected comb buffers cleared after reset")
			}
		}
	}
}
