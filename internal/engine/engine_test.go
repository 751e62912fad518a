package engine

import (
	"math"
	"testing"

	"github.com/cbegin/modsynth-go/internal/nodes"
	"github.com/cbegin/modsynth-go/internal/port"
)

// buildSinePatch wires oscillator -> mixer -> output on a fresh engine.
func buildSinePatch(t *testing.T, sr, voices int) (*Engine, port.NodeID, port.NodeID) {
	t.Helper()
	e := New(sr)
	e.Init(voices)

	oscID, err := e.CreateOscillator(nodes.Sine)
	if err != nil {
		t.Fatal(err)
	}
	mixID, err := e.CreateMixer()
	if err != nil {
		t.Fatal(err)
	}
	if err := e.ConnectNodes(oscID, port.AudioOutput0, mixID, port.AudioInput0, 1, port.Additive, port.NoTransformation); err != nil {
		t.Fatal(err)
	}
	if err := e.SetOutputNode(mixID); err != nil {
		t.Fatal(err)
	}
	return e, oscID, mixID
}

// renderSeconds drives ProcessWithFrame for the given duration and returns
// the concatenated left-channel output.
func renderSeconds(t *testing.T, e *Engine, frame AutomationFrame, seconds float64) []float32 {
	t.Helper()
	blocks := int(seconds * float64(e.SampleRate()) / float64(e.BlockSize()))
	outL := make([]float32, e.BlockSize())
	outR := make([]float32, e.BlockSize())
	all := make([]float32, 0, blocks*e.BlockSize())
	for b := 0; b < blocks; b++ {
		if err := e.ProcessWithFrame(frame, outL, outR); err != nil {
			t.Fatal(err)
		}
		all = append(all, outL...)
	}
	return all
}

func goertzel(samples []float32, freq, sampleRate float64) float64 {
	w := 2 * math.Pi * freq / sampleRate
	coeff := 2 * math.Cos(w)
	var s0, s1, s2 float64
	for _, x := range samples {
		s0 = float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}

func TestSineVoiceRendersExpectedToneAndRMS(t *testing.T) {
	const sr = 48000
	e, _, _ := buildSinePatch(t, sr, 1)

	frame := AutomationFrame{
		Gate:      []float32{1},
		Frequency: []float32{440},
		Velocity:  []float32{1},
		Gain:      []float32{1},
	}
	out := renderSeconds(t, e, frame, 1.0)

	// The mixer's equal-power center pan scales each channel by sqrt(0.5),
	// so the per-channel RMS of a unit sine is 0.707 * 0.707 = 0.5.
	var sum float64
	for _, v := range out {
		sum += float64(v) * float64(v)
	}
	rms := math.Sqrt(sum / float64(len(out)))
	if math.Abs(rms-0.5) > 0.02 {
		t.Errorf("RMS: got %f, want ~0.5", rms)
	}

	at440 := goertzel(out, 440, sr)
	at660 := goertzel(out, 660, sr)
	// >= 40 dB dominance means a power ratio of 1e4.
	if at440 < at660*1e4 {
		t.Errorf("440Hz should dominate by 40dB: 440=%g 660=%g", at440, at660)
	}
}

func TestEnvelopeVCAShapesVoiceOutput(t *testing.T) {
	const sr = 48000
	e, _, mixID := buildSinePatch(t, sr, 1)

	envID, err := e.CreateEnvelope(nodes.EnvelopeParams{
		AttackSec: 0.01, DecaySec: 0.05, SustainLvl: 0.8, ReleaseSec: 0.1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.ConnectNodes(envID, port.AudioOutput0, mixID, port.GainMod, 1, port.VCA, port.NoTransformation); err != nil {
		t.Fatal(err)
	}

	on := AutomationFrame{Gate: []float32{1}, Frequency: []float32{440}, Velocity: []float32{1}, Gain: []float32{1}}
	off := AutomationFrame{Gate: []float32{0}, Frequency: []float32{440}, Velocity: []float32{1}, Gain: []float32{1}}

	held := renderSeconds(t, e, on, 0.2)
	released := renderSeconds(t, e, off, 0.2)

	var peak float64
	for _, v := range held {
		if a := math.Abs(float64(v)); a > peak {
			peak = a
		}
	}
	if peak > 1.0001 {
		t.Errorf("peak exceeded 1.0: %f", peak)
	}

	// Sustain portion: peak of the last quarter of the held segment is the
	// 0.8 sustain level through the center-pan sqrt(0.5).
	want := 0.8 * math.Sqrt(0.5)
	var sustainPeak float64
	for _, v := range held[3*len(held)/4:] {
		if a := math.Abs(float64(v)); a > sustainPeak {
			sustainPeak = a
		}
	}
	if math.Abs(sustainPeak-want) > 0.05 {
		t.Errorf("sustain peak: got %f, want ~%f", sustainPeak, want)
	}

	// 110ms after release (past the 100ms release) output is ~0.
	tailStart := int(0.11 * sr)
	var tailPeak float64
	for _, v := range released[tailStart:] {
		if a := math.Abs(float64(v)); a > tailPeak {
			tailPeak = a
		}
	}
	if tailPeak > 0.001 {
		t.Errorf("post-release tail: got %f, want <= 0.001", tailPeak)
	}
}

func TestFilteredMixAttenuatesUpperOscillator(t *testing.T) {
	const sr = 48000
	e := New(sr)
	e.Init(1)

	osc1, err := e.CreateOscillator(nodes.Sine)
	if err != nil {
		t.Fatal(err)
	}
	osc2, err := e.CreateOscillator(nodes.Sine)
	if err != nil {
		t.Fatal(err)
	}
	mixID, err := e.CreateMixer()
	if err != nil {
		t.Fatal(err)
	}
	filtID, err := e.CreateFilter()
	if err != nil {
		t.Fatal(err)
	}
	outMix, err := e.CreateMixer()
	if err != nil {
		t.Fatal(err)
	}

	// The second oscillator runs one octave up via FrequencyCents.
	if err := e.ConnectNodes(osc1, port.AudioOutput0, mixID, port.AudioInput0, 0.5, port.Additive, port.NoTransformation); err != nil {
		t.Fatal(err)
	}
	if err := e.ConnectNodes(osc2, port.AudioOutput0, mixID, port.AudioInput0, 0.5, port.Additive, port.NoTransformation); err != nil {
		t.Fatal(err)
	}
	if err := e.UpdateFilter(filtID, FilterParams{
		Mode: nodes.ModeBiquad, BiquadKind: nodes.LowPass, Slope: nodes.Db24,
		CutoffHz: 500, Resonance: 0.3,
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.ConnectNodes(mixID, port.AudioOutput0, filtID, port.AudioInput0, 1, port.Additive, port.NoTransformation); err != nil {
		t.Fatal(err)
	}
	if err := e.ConnectNodes(filtID, port.AudioOutput0, outMix, port.AudioInput0, 1, port.Additive, port.NoTransformation); err != nil {
		t.Fatal(err)
	}
	if err := e.SetOutputNode(outMix); err != nil {
		t.Fatal(err)
	}

	// Transpose osc2 an octave up with a constant +12 semitone macro.
	if err := e.ConnectMacro(0, osc2, port.FrequencyMod, 1, port.FrequencyCents, port.NoTransformation); err != nil {
		t.Fatal(err)
	}

	frame := AutomationFrame{
		Gate: []float32{1}, Frequency: []float32{440}, Velocity: []float32{1}, Gain: []float32{1},
		Macros: [][4][]float32{{{12}, nil, nil, nil}},
	}
	out := renderSeconds(t, e, frame, 1.0)
	settled := out[len(out)/2:]

	at440 := goertzel(settled, 440, sr)
	at880 := goertzel(settled, 880, sr)
	// 24 dB power ratio is ~251.
	if at440 < at880*251 {
		t.Errorf("880Hz should sit >= 24dB below 440Hz: 440=%g 880=%g", at440, at880)
	}
}

func TestDeleteNodeSilencesAndPreservesOutputNode(t *testing.T) {
	const sr = 48000
	e, oscID, _ := buildSinePatch(t, sr, 3)

	if err := e.DeleteNode(oscID); err != nil {
		t.Fatal(err)
	}
	frame := AutomationFrame{
		Gate:      []float32{1, 1, 1},
		Frequency: []float32{440, 440, 440},
		Velocity:  []float32{1, 1, 1},
		Gain:      []float32{1, 1, 1},
	}
	out := renderSeconds(t, e, frame, 0.1)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("expected silence after deleting oscillator, got %f at %d", v, i)
		}
	}
}

func TestDeleteUnknownNodeErrors(t *testing.T) {
	e := New(48000)
	e.Init(1)
	if err := e.DeleteNode(999); err == nil {
		t.Fatal("expected error deleting unknown node")
	}
}

func TestTypedUpdateRejectsWrongTag(t *testing.T) {
	e, oscID, _ := buildSinePatch(t, 48000, 1)
	if err := e.UpdateFilter(oscID, FilterParams{CutoffHz: 1000}); err == nil {
		t.Fatal("expected type mismatch error updating oscillator as filter")
	}
}

func TestEffectStackBypassIsSampleExact(t *testing.T) {
	const sr = 48000
	e, _, _ := buildSinePatch(t, sr, 1)
	frame := AutomationFrame{Gate: []float32{1}, Frequency: []float32{440}, Velocity: []float32{1}, Gain: []float32{1}}

	clean := renderSeconds(t, e, frame, 0.1)

	// Same patch with an inactive delay: output must be bit-identical.
	e2, _, _ := buildSinePatch(t, sr, 1)
	id := e2.AddDelay(100, 0.5, 0, 0.5)
	if err := e2.SetEffectActive(id, false); err != nil {
		t.Fatal(err)
	}
	bypassed := renderSeconds(t, e2, frame, 0.1)

	for i := range clean {
		if clean[i] != bypassed[i] {
			t.Fatalf("bypass diverged at %d: %f vs %f", i, clean[i], bypassed[i])
		}
	}
}

func TestLimiterEffectCapsMasterBus(t *testing.T) {
	const sr = 48000
	e := New(sr)
	e.Init(1)

	oscID, err := e.CreateOscillator(nodes.Square)
	if err != nil {
		t.Fatal(err)
	}
	mixID, err := e.CreateMixer()
	if err != nil {
		t.Fatal(err)
	}
	if err := e.ConnectNodes(oscID, port.AudioOutput0, mixID, port.AudioInput0, 1, port.Additive, port.NoTransformation); err != nil {
		t.Fatal(err)
	}
	if err := e.SetOutputNode(mixID); err != nil {
		t.Fatal(err)
	}
	e.AddLimiter(-6, 1, 50, 1, true)

	frame := AutomationFrame{Gate: []float32{1}, Frequency: []float32{100}, Velocity: []float32{1}, Gain: []float32{1}}
	out := renderSeconds(t, e, frame, 0.5)

	// After the limiter settles (10ms), no sample exceeds the -6dB
	// threshold by more than 0.02 dB.
	limit := math.Pow(10, -6.0/20) * math.Pow(10, 0.02/20)
	for i := int(0.01 * sr); i < len(out); i++ {
		if a := math.Abs(float64(out[i])); a > limit {
			t.Fatalf("sample %d exceeds limited threshold: %f > %f", i, a, limit)
		}
	}
}

func TestReorderAndRemoveEffects(t *testing.T) {
	e := New(48000)
	e.Init(1)
	d := e.AddDelay(10, 0.2, 0, 0.5)
	c := e.AddChorus(7, 2, 0.5, 0.2, 0.5)
	l := e.AddLimiter(-3, 1, 50, 1, true)
	if d != EffectIDOffset || c != EffectIDOffset+1 || l != EffectIDOffset+2 {
		t.Fatalf("effect ids: got %d %d %d", d, c, l)
	}
	if err := e.ReorderEffects(l, d); err != nil {
		t.Fatal(err)
	}
	if err := e.UpdateLimiter(EffectIDOffset, LimiterParams{ThresholdDB: -3, AttackMs: 1, ReleaseMs: 50, StereoLink: true}); err != nil {
		t.Fatalf("limiter should now be first: %v", err)
	}
	if err := e.RemoveEffect(EffectIDOffset); err != nil {
		t.Fatal(err)
	}
	if e.NumEffects() != 2 {
		t.Fatalf("effects after remove: got %d, want 2", e.NumEffects())
	}
	if err := e.UpdateDelay(EffectIDOffset, DelayParams{Feedback: 0.3, Cross: 0, Wet: 0.4}); err != nil {
		t.Fatalf("delay should now be first: %v", err)
	}
}

func TestProcessStreamsArbitraryLengths(t *testing.T) {
	e, _, _ := buildSinePatch(t, 48000, 1)
	if err := e.NoteOn(0, 440, 1); err != nil {
		t.Fatal(err)
	}
	// 100 interleaved frames is not a multiple of the native block size.
	dst := make([]float32, 200)
	e.Process(dst)
	var nonZero bool
	for _, v := range dst {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatal("expected streamed output, got silence")
	}
}

func TestSetEffectModulationDrivesConvolverWet(t *testing.T) {
	const sr = 48000
	e, _, _ := buildSinePatch(t, sr, 1)
	frame := AutomationFrame{Gate: []float32{1}, Frequency: []float32{440}, Velocity: []float32{1}, Gain: []float32{1}}
	clean := renderSeconds(t, e, frame, 0.1)

	// A unit-impulse IR makes the wet path identical to the dry path, so
	// any wet mix setting is transparent; force the mix to zero through a
	// WetDryMix VCA source and check the output still matches the clean
	// render to within 1e-5.
	e2, _, _ := buildSinePatch(t, sr, 1)
	id := e2.AddConvolver([]float32{1}, []float32{1}, 1)
	if err := e2.SetEffectModulation(id, port.WetDryMix, []float32{0}, 1, port.VCA, port.NoTransformation); err != nil {
		t.Fatal(err)
	}
	modulated := renderSeconds(t, e2, frame, 0.1)
	for i := range clean {
		if diff := modulated[i] - clean[i]; diff > 1e-5 || diff < -1e-5 {
			t.Fatalf("wet mod forced to 0 should be dry at %d: got %f want %f", i, modulated[i], clean[i])
		}
	}

	if err := e2.SetEffectModulation(99999, port.WetDryMix, []float32{0}, 1, port.VCA, port.NoTransformation); err == nil {
		t.Fatal("expected error for unknown effect id")
	}
}
