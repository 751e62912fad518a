package nodes

import "github.com/cbegin/modsynth-go/internal/port"

// ArpeggiatorMode selects how the step pattern progresses.
type ArpeggiatorMode int

const (
	ArpFreeRunning ArpeggiatorMode = iota
	ArpPingPong
	ArpTrigger
)

// PatternStep is one step of an arpeggiator sequence: a modulation value in
// cents and whether the step should sound at all.
type PatternStep struct {
	Value  float32
	Active bool
}

// ArpeggiatorGenerator produces a cents modulation signal and an optional
// gate output following a stepped pattern. In Trigger mode the
// progression restarts on a GlobalGate rising edge.
type ArpeggiatorGenerator struct {
	enabled           bool
	pattern           []PatternStep
	stepSamples       int
	sampleCounter     int
	Mode              ArpeggiatorMode
	prevGateActive    bool
	gateOutputEnabled bool
}

// NewArpeggiatorGenerator builds a disabled arpeggiator with no pattern.
func NewArpeggiatorGenerator() *ArpeggiatorGenerator {
	return &ArpeggiatorGenerator{}
}

// Enable activates the arpeggiator with a pattern and a per-step duration
// in samples.
func (a *ArpeggiatorGenerator) Enable(pattern []PatternStep, stepSamples int) {
	a.enabled = true
	a.pattern = pattern
	a.stepSamples = stepSamples
	a.sampleCounter = 0
}

// Disable stops pattern output; the generator emits zero modulation.
func (a *ArpeggiatorGenerator) Disable() { a.enabled = false }

// SetPattern replaces the pattern and resets progression to its first step.
func (a *ArpeggiatorGenerator) SetPattern(pattern []PatternStep) {
	a.pattern = pattern
	a.sampleCounter = 0
}

// SetDelayTime sets the per-step duration in samples and resets progression.
func (a *ArpeggiatorGenerator) SetDelayTime(delaySamples int) {
	a.stepSamples = delaySamples
	a.sampleCounter = 0
}

// SetGateOutputEnabled toggles whether ArpGate is written.
func (a *ArpeggiatorGenerator) SetGateOutputEnabled(enabled bool) { a.gateOutputEnabled = enabled }

func (a *ArpeggiatorGenerator) modulationValue(sampleIndex int) float32 {
	if !a.enabled || len(a.pattern) == 0 || a.stepSamples == 0 {
		return 0
	}
	var stepIndex int
	switch a.Mode {
	case ArpFreeRunning, ArpTrigger:
		stepIndex = (sampleIndex / a.stepSamples) % len(a.pattern)
	case ArpPingPong:
		n := len(a.pattern)
		if n == 1 {
			stepIndex = 0
		} else {
			period := 2*n - 2
			pos := (sampleIndex / a.stepSamples) % period
			if pos < n {
				stepIndex = pos
			} else {
				stepIndex = period - pos
			}
		}
	}
	step := a.pattern[stepIndex]
	if step.Active {
		return step.Value
	}
	return 0
}

func (a *ArpeggiatorGenerator) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.AudioOutput0: true,
		port.GlobalGate:   false,
		port.ArpGate:      true,
	}
}

func (a *ArpeggiatorGenerator) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	out, ok := outputs[port.AudioOutput0]
	if !ok {
		return
	}

	blockStart := a.sampleCounter
	if a.Mode == ArpTrigger {
		a.processTrigger(inputs, out, n)
	} else {
		for i := 0; i < n; i++ {
			out[i] = a.modulationValue(a.sampleCounter + i)
		}
		a.sampleCounter += n
	}

	if a.gateOutputEnabled {
		if gateOut, ok := outputs[port.ArpGate]; ok {
			a.writeGate(gateOut, blockStart, n)
		}
	}
}

func (a *ArpeggiatorGenerator) processTrigger(inputs map[port.ID][]port.Source, out []float32, n int) {
	gate := firstBuffer(inputs[port.GlobalGate], n)
	for j := 0; j < n; j++ {
		currentGate := gate[j] > 0.5
		if !a.prevGateActive && currentGate {
			a.sampleCounter = 0
		}
		a.prevGateActive = currentGate
		out[j] = a.modulationValue(a.sampleCounter)
		a.sampleCounter++
	}
}

// writeGate fills the ArpGate output: high for most of an active step, with
// a short gap at the end of each step so retriggered envelopes see a real
// falling edge, low for the entirety of an inactive step.
func (a *ArpeggiatorGenerator) writeGate(gateOut []float32, blockStart, n int) {
	const gapSamples = 2
	if a.stepSamples == 0 || len(a.pattern) == 0 {
		clear32(gateOut[:n])
		return
	}
	for j := 0; j < n; j++ {
		globalIndex := blockStart + j
		relative := globalIndex % a.stepSamples
		stepIndex := (globalIndex / a.stepSamples) % len(a.pattern)
		step := a.pattern[stepIndex]
		if !step.Active {
			gateOut[j] = 0
			continue
		}
		if relative >= a.stepSamples-gapSamples {
			gateOut[j] = 0
		} else {
			gateOut[j] = 1
		}
	}
}

func (a *ArpeggiatorGenerator) Reset() {
	a.sampleCounter = 0
	a.prevGateActive = false
}

func (a *ArpeggiatorGenerator) IsActive() bool   { return true }
func (a *ArpeggiatorGenerator) SetActive(v bool) {}
func (a *ArpeggiatorGenerator) NodeType() string { return "arpeggiator_generator" }
func (a *ArpeggiatorGenerator) Self() any        { return a }
