package nodes

import (
	"math"
	"testing"

	"github.com/cbegin/modsynth-go/internal/port"
)

func renderWavetable(o *WavetableOscillator, freq, gate float32, n int) []float32 {
	out := make([]float32, n)
	inputs := map[port.ID][]port.Source{
		port.GlobalFrequency: {{Buffer: []float32{freq}, Amount: 1}},
		port.Gate:            {{Buffer: []float32{gate}, Amount: 1}},
	}
	block := make([]float32, 1)
	outputs := map[port.ID][]float32{port.AudioOutput0: block}
	for i := 0; i < n; i++ {
		o.Process(inputs, outputs, 1)
		out[i] = block[0]
	}
	return out
}

func TestSelectForFrequencyPicksBandlimitedTable(t *testing.T) {
	mc := &MorphCollection{Tables: []Wavetable{
		{TopFreq: 20000}, {TopFreq: 5000}, {TopFreq: 1000},
	}}
	if got := mc.SelectForFrequency(500); got != 2 {
		t.Errorf("500Hz: got table %d, want 2", got)
	}
	if got := mc.SelectForFrequency(3000); got != 1 {
		t.Errorf("3000Hz: got table %d, want 1", got)
	}
	if got := mc.SelectForFrequency(15000); got != 0 {
		t.Errorf("15000Hz: got table %d, want 0", got)
	}
	// Above every TopFreq falls back to the lowest-bandlimit table.
	if got := mc.SelectForFrequency(30000); got != 2 {
		t.Errorf("30000Hz: got table %d, want 2", got)
	}
}

func TestWavetableSineDominantFrequency(t *testing.T) {
	const sr = 48000
	o := NewWavetableOscillator(sr, NewBank(), "sine")
	out := renderWavetable(o, 440, 0, sr)

	at440 := goertzel(out, 440, sr)
	at880 := goertzel(out, 880, sr)
	if at440 < at880*1e3 {
		t.Errorf("440Hz bin should dominate: 440=%g 880=%g", at440, at880)
	}
}

func TestWavetableUnknownCollectionFallsBackToSine(t *testing.T) {
	const sr = 48000
	o := NewWavetableOscillator(sr, NewBank(), "no_such_collection")
	out := renderWavetable(o, 440, 0, 4096)
	var nonZero bool
	for _, v := range out {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatal("expected fallback sine output, got silence")
	}
}

func TestWavetableHardSyncResetsPhase(t *testing.T) {
	const sr = 1000
	o := NewWavetableOscillator(sr, NewBank(), "sine")
	renderWavetable(o, 13, 0, 77) // free-run to an arbitrary phase

	// Rising gate edge resets all voice phases; first sample is sine(0)=0,
	// the quarter-cycle sample is the peak.
	out := renderWavetable(o, 10, 1, 26)
	if math.Abs(float64(out[0])) > 0.02 {
		t.Errorf("post-sync sample 0: got %f, want ~0", out[0])
	}
	if math.Abs(float64(out[25]-1)) > 0.02 {
		t.Errorf("post-sync quarter cycle: got %f, want ~1", out[25])
	}
}

func TestWavetableUnisonWeightsPreserveScale(t *testing.T) {
	const sr = 48000
	mono := NewWavetableOscillator(sr, NewBank(), "sine")
	uni := NewWavetableOscillator(sr, NewBank(), "sine")
	uni.SetUnison(7, 15)

	peak := func(out []float32) float64 {
		var p float64
		for _, v := range out {
			if a := math.Abs(float64(v)); a > p {
				p = a
			}
		}
		return p
	}

	pm := peak(renderWavetable(mono, 440, 0, 4096))
	pu := peak(renderWavetable(uni, 440, 0, 4096))
	// Gaussian weights are normalized to sum 1, so the detuned stack's peak
	// stays in the same ballpark as a single voice, never N times louder.
	if pu > pm*1.2 {
		t.Errorf("unison peak %f exceeds mono peak %f by more than 20%%", pu, pm)
	}
}

func TestWavetableMorphBlendsTables(t *testing.T) {
	const sr = 1000
	bank := NewBank()
	// Two tables with identical bandlimits but different content: a silent
	// table and a constant-1 table. Morph crossfades between adjacent tables.
	flat := make([]float32, 64)
	ones := make([]float32, 64)
	for i := range ones {
		ones[i] = 1
	}
	bank.Install("blend", &MorphCollection{Tables: []Wavetable{
		{Samples: flat, TopFreq: 100},
		{Samples: ones, TopFreq: 50},
	}})

	o := NewWavetableOscillator(sr, bank, "blend")
	o.Morph = 0.5
	out := renderWavetable(o, 60, 0, 16)
	for i, v := range out {
		if math.Abs(float64(v)-0.5) > 0.01 {
			t.Fatalf("morph 0.5 sample %d: got %f, want 0.5", i, v)
		}
	}
}
