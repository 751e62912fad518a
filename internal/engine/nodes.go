package engine

import (
	"fmt"

	"github.com/cbegin/modsynth-go/internal/graph"
	"github.com/cbegin/modsynth-go/internal/nodes"
	"github.com/cbegin/modsynth-go/internal/port"
)

// --- node creation ---

// CreateOscillator adds an analog oscillator to every voice.
func (e *Engine) CreateOscillator(waveform nodes.Waveform) (port.NodeID, error) {
	return e.addToAllVoices("analog_oscillator", func(int) graph.Node {
		return nodes.NewAnalogOscillator(e.sampleRate, waveform)
	})
}

// CreateWavetableOscillator adds a wavetable oscillator reading the named
// morph collection from the engine's shared wavetable bank.
func (e *Engine) CreateWavetableOscillator(collection string) (port.NodeID, error) {
	return e.addToAllVoices("wavetable_oscillator", func(int) graph.Node {
		return nodes.NewWavetableOscillator(e.sampleRate, e.wavetableBank, collection)
	})
}

// CreateLFO adds an LFO to every voice.
func (e *Engine) CreateLFO() (port.NodeID, error) {
	return e.addToAllVoices("lfo", func(int) graph.Node { return nodes.NewLFO(e.sampleRate) })
}

// CreateEnvelope adds an ADSR envelope to every voice.
func (e *Engine) CreateEnvelope(params nodes.EnvelopeParams) (port.NodeID, error) {
	return e.addToAllVoices("envelope", func(int) graph.Node { return nodes.NewEnvelope(e.sampleRate, params) })
}

// CreateFilter adds a filter collection node to every voice.
func (e *Engine) CreateFilter() (port.NodeID, error) {
	return e.addToAllVoices("filter", func(int) graph.Node { return nodes.NewFilterCollection(e.sampleRate) })
}

// CreateNoise adds a noise generator to every voice, each seeded
// differently so voices decorrelate.
func (e *Engine) CreateNoise() (port.NodeID, error) {
	return e.addToAllVoices("noise", func(i int) graph.Node {
		return nodes.NewNoise(e.sampleRate, e.seedCursor^uint32(i*0x9e3779b1))
	})
}

// CreateMixer adds a gain/pan mixer to every voice.
func (e *Engine) CreateMixer() (port.NodeID, error) {
	return e.addToAllVoices("mixer", func(int) graph.Node { return nodes.NewMixer() })
}

// CreateSampler adds a sampler to every voice.
func (e *Engine) CreateSampler() (port.NodeID, error) {
	return e.addToAllVoices("sampler", func(int) graph.Node { return nodes.NewSampler(e.sampleRate) })
}

// CreateArpeggiator adds an arpeggiator generator to every voice.
func (e *Engine) CreateArpeggiator() (port.NodeID, error) {
	return e.addToAllVoices("arpeggiator_generator", func(int) graph.Node { return nodes.NewArpeggiatorGenerator() })
}

// CreateGlide adds a glide/portamento node to every voice.
func (e *Engine) CreateGlide(riseTimeSec, fallTimeSec float64) (port.NodeID, error) {
	return e.addToAllVoices("glide", func(int) graph.Node {
		return nodes.NewGlide(e.sampleRate, riseTimeSec, fallTimeSec)
	})
}

// --- typed parameter updates ---

// OscillatorParams updates an analog oscillator's live-tunable parameters.
// Waveform is fixed at creation (a topology-adjacent choice, not a
// parameter): setters only change parameters, never topology.
type OscillatorParams struct {
	FeedbackAmount float32
	PMAmount       float32
}

func (e *Engine) UpdateOscillator(id port.NodeID, p OscillatorParams) error {
	if err := e.checkType(id, "analog_oscillator"); err != nil {
		return err
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		osc := n.(*nodes.AnalogOscillator)
		osc.FeedbackAmount = p.FeedbackAmount
		osc.PMAmount = p.PMAmount
	}
	return nil
}

// WavetableOscillatorParams updates a wavetable oscillator.
type WavetableOscillatorParams struct {
	Morph        float32
	UnisonVoices int
	UnisonSpread float64 // cents
	FeedbackAmt  float32
}

func (e *Engine) UpdateWavetableOscillator(id port.NodeID, p WavetableOscillatorParams) error {
	if err := e.checkType(id, "wavetable_oscillator"); err != nil {
		return err
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		osc := n.(*nodes.WavetableOscillator)
		osc.Morph = p.Morph
		osc.FeedbackAmt = p.FeedbackAmt
		osc.SetUnison(p.UnisonVoices, p.UnisonSpread)
	}
	return nil
}

// LFOParams updates an LFO.
type LFOParams struct {
	Waveform      nodes.LFOWaveform
	RateHz        float64
	Trigger       nodes.TriggerMode
	Loop          nodes.LoopMode
	LoopStart     float64
	LoopEnd       float64
	UseAbsolute   bool
	UseNormalized bool
}

func (e *Engine) UpdateLFO(id port.NodeID, p LFOParams) error {
	if err := e.checkType(id, "lfo"); err != nil {
		return err
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		l := n.(*nodes.LFO)
		l.Waveform = p.Waveform
		l.RateHz = p.RateHz
		l.Trigger = p.Trigger
		l.Loop = p.Loop
		l.LoopStart = p.LoopStart
		l.LoopEnd = p.LoopEnd
		l.UseAbsolute = p.UseAbsolute
		l.UseNormalized = p.UseNormalized
	}
	return nil
}

func (e *Engine) UpdateEnvelope(id port.NodeID, p nodes.EnvelopeParams) error {
	if err := e.checkType(id, "envelope"); err != nil {
		return err
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		n.(*nodes.Envelope).SetParams(p)
	}
	return nil
}

// FilterParams updates a filter collection node. CutoffHz and Resonance are
// clamped to their documented ranges by the node's own setters.
type FilterParams struct {
	Mode       nodes.FilterMode
	BiquadKind nodes.BiquadType
	Slope      nodes.Slope
	CutoffHz   float64
	Resonance  float64
	GainDB     float64
}

func (e *Engine) UpdateFilter(id port.NodeID, p FilterParams) error {
	if err := e.checkType(id, "filter"); err != nil {
		return err
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		f := n.(*nodes.FilterCollection)
		f.Mode = p.Mode
		f.BiquadKind = p.BiquadKind
		f.Slope = p.Slope
		f.GainDB = p.GainDB
		f.SetCutoff(p.CutoffHz)
		f.SetResonance(p.Resonance)
	}
	return nil
}

// NoiseParams updates a noise generator.
type NoiseParams struct {
	Type     nodes.NoiseType
	CutoffHz float64
	DCOffset float32
}

func (e *Engine) UpdateNoise(id port.NodeID, p NoiseParams) error {
	if err := e.checkType(id, "noise"); err != nil {
		return err
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		no := n.(*nodes.Noise)
		no.Type = p.Type
		no.Cutoff = p.CutoffHz
		no.DCOffset = p.DCOffset
	}
	return nil
}

// SamplerParams updates a sampler's playback parameters. Replacing the
// backing SampleData goes through ImportSample, not this call.
type SamplerParams struct {
	BaseFrequency float32
	BaseGain      float32
	Trigger       nodes.SamplerTriggerMode
	Loop          nodes.SamplerLoopMode
	LoopStart     float32
	LoopEnd       float32
}

func (e *Engine) UpdateSampler(id port.NodeID, p SamplerParams) error {
	if err := e.checkType(id, "sampler"); err != nil {
		return err
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		s := n.(*nodes.Sampler)
		s.BaseFrequency = p.BaseFrequency
		s.BaseGain = p.BaseGain
		s.Trigger = p.Trigger
		s.Loop = p.Loop
		s.LoopStart = p.LoopStart
		s.LoopEnd = p.LoopEnd
	}
	return nil
}

// ArpeggiatorParams updates an arpeggiator generator.
type ArpeggiatorParams struct {
	Enabled           bool
	Mode              nodes.ArpeggiatorMode
	Pattern           []nodes.PatternStep
	StepSamples       int
	GateOutputEnabled bool
}

func (e *Engine) UpdateArpeggiator(id port.NodeID, p ArpeggiatorParams) error {
	if err := e.checkType(id, "arpeggiator_generator"); err != nil {
		return err
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		a := n.(*nodes.ArpeggiatorGenerator)
		a.Mode = p.Mode
		a.SetGateOutputEnabled(p.GateOutputEnabled)
		if p.Enabled {
			a.Enable(p.Pattern, p.StepSamples)
		} else {
			a.Disable()
		}
	}
	return nil
}

// GlideParams updates a glide node's rise/fall time constants.
type GlideParams struct {
	RiseTimeSec float64
	FallTimeSec float64
}

func (e *Engine) UpdateGlide(id port.NodeID, p GlideParams) error {
	if err := e.checkType(id, "glide"); err != nil {
		return err
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		g := n.(*nodes.Glide)
		g.SetRiseTime(p.RiseTimeSec)
		g.SetFallTime(p.FallTimeSec)
	}
	return nil
}

// InstallWavetable installs (or replaces) a named morph collection in the
// engine's shared bank.
func (e *Engine) InstallWavetable(name string, mc *nodes.MorphCollection) {
	e.wavetableBank.Install(name, mc)
}

// SetNodeActive toggles a node's active flag on every voice.
func (e *Engine) SetNodeActive(id port.NodeID, active bool) error {
	if _, ok := e.nodeTypes[id]; !ok {
		return fmt.Errorf("engine: unknown node %d", id)
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		n.SetActive(active)
	}
	return nil
}
