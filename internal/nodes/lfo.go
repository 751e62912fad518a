package nodes

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/port"
)

const lfoTableSize = 1024

// LFOWaveform selects one of the four lookup-table waveforms.
type LFOWaveform int

const (
	LFOSine LFOWaveform = iota
	LFOTriangle
	LFOSquare
	LFOSaw
)

// TriggerMode selects how the LFO reacts to the Gate port.
type TriggerMode int

const (
	TriggerNone TriggerMode = iota
	TriggerEnvelope
	TriggerOneShot
)

// LoopMode selects how phase wraps once it leaves [loop_start, loop_end).
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopOn
	LoopPingPong
)

var lfoTables = buildLFOTables()

func buildLFOTables() map[LFOWaveform][lfoTableSize]float32 {
	tables := make(map[LFOWaveform][lfoTableSize]float32)
	var sine, tri, sq, saw [lfoTableSize]float32
	for i := 0; i < lfoTableSize; i++ {
		t := float64(i) / float64(lfoTableSize)
		sine[i] = float32(math.Sin(2 * math.Pi * t))
		if t < 0.5 {
			tri[i] = float32(4*t - 1)
		} else {
			tri[i] = float32(3 - 4*t)
		}
		if t < 0.5 {
			sq[i] = 1
		} else {
			sq[i] = -1
		}
		saw[i] = float32(2*t - 1)
	}
	tables[LFOSine] = sine
	tables[LFOTriangle] = tri
	tables[LFOSquare] = sq
	tables[LFOSaw] = saw
	return tables
}

// LFO produces LUT-sampled waveforms with linear interpolation,
// absolute/normalized post-processing, trigger modes, and loop sub-modes.
type LFO struct {
	sampleRate float64
	Waveform   LFOWaveform
	RateHz     float64
	Trigger    TriggerMode
	Loop       LoopMode
	LoopStart  float64 // phase space [0,1)
	LoopEnd    float64
	UseAbsolute  bool
	UseNormalized bool

	phase     float64
	direction float64 // +1 or -1, used by ping-pong
	held      bool     // one-shot has reached 1.0 and is holding
	heldVal   float32
	lastGate  float32
	active    bool
}

// NewLFO builds an LFO at the given sample rate.
func NewLFO(sampleRate int) *LFO {
	return &LFO{sampleRate: float64(sampleRate), RateHz: 1, LoopEnd: 1, direction: 1, active: true}
}

func (l *LFO) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.Gate:         false,
		port.AudioOutput0: true,
	}
}

func (l *LFO) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	out, ok := outputs[port.AudioOutput0]
	if !ok {
		return
	}
	gate := firstBuffer(inputs[port.Gate], n)
	table := lfoTables[l.Waveform]
	step := l.RateHz / l.sampleRate

	for i := 0; i < n; i++ {
		g := gate[i]
		if l.lastGate <= 0 && g > 0 {
			switch l.Trigger {
			case TriggerEnvelope, TriggerOneShot:
				l.phase = 0
				l.direction = 1
				l.held = false
			}
		}
		l.lastGate = g

		var sample float32
		if l.Trigger == TriggerOneShot && l.held {
			sample = l.heldVal
		} else {
			sample = sampleLUT(table[:], l.phase)
			if l.Trigger == TriggerOneShot {
				// One-shot clamps at the end of the cycle and holds the
				// final sample until the next rising edge.
				l.phase += step
				if l.phase >= 1.0 {
					l.phase = 1.0
					l.held = true
					l.heldVal = table[len(table)-1]
				}
			} else {
				l.advancePhase(step)
			}
		}

		if l.UseAbsolute {
			sample = float32(math.Abs(float64(sample)))
		}
		if l.UseNormalized {
			sample = (sample + 1) / 2
		}
		out[i] = sample
	}
}

func (l *LFO) advancePhase(step float64) {
	switch l.Loop {
	case LoopOff:
		l.phase += step
		for l.phase >= 1.0 {
			l.phase -= 1.0
		}
	case LoopOn:
		start, end := l.loopBounds()
		l.phase += step
		if l.phase >= end {
			l.phase = start + math.Mod(l.phase-end, end-start)
		}
	case LoopPingPong:
		start, end := l.loopBounds()
		l.phase += step * l.direction
		if l.phase >= end {
			l.phase = end - (l.phase - end)
			l.direction = -1
		} else if l.phase < start {
			l.phase = start + (start - l.phase)
			l.direction = 1
		}
	}
}

func (l *LFO) loopBounds() (float64, float64) {
	start, end := l.LoopStart, l.LoopEnd
	if end <= start {
		end = start + 0.001
	}
	return start, end
}

func sampleLUT(table []float32, phase float64) float32 {
	n := len(table)
	pos := phase * float64(n)
	i0 := int(math.Floor(pos)) % n
	if i0 < 0 {
		i0 += n
	}
	i1 := (i0 + 1) % n
	frac := float32(pos - math.Floor(pos))
	return table[i0]*(1-frac) + table[i1]*frac
}

func (l *LFO) Reset() {
	l.phase = 0
	l.direction = 1
	l.held = false
	l.lastGate = 0
}

func (l *LFO) IsActive() bool { return l.active }
func (l *LFO) SetActive(v bool) {
	if v && !l.active {
		l.Reset()
	}
	l.active = v
}
func (l *LFO) NodeType() string { return "lfo" }
func (l *LFO) Self() any        { return l }
