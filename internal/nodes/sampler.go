package nodes

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/modproc"
	"github.com/cbegin/modsynth-go/internal/port"
)

// SamplerTriggerMode controls how the Sampler reacts to the gate.
type SamplerTriggerMode int

const (
	FreeRunning SamplerTriggerMode = iota
	SamplerGate
	SamplerOneShot
)

// SamplerLoopMode controls how the playhead wraps once it reaches loop_end.
type SamplerLoopMode int

const (
	SampleLoopOff SamplerLoopMode = iota
	SampleLoopOn
	SampleLoopPingPong
)

// SampleData is a sample buffer shared by pointer (it keeps no reference
// count). Multiple Sampler nodes may point at the same SampleData.
type SampleData struct {
	Samples    []float32 // interleaved if Channels==2
	Channels   int
	SampleRate float32
	RootNote   float32 // MIDI note number, default 60 (middle C)
}

// NewSampleData returns an empty sample keyed to middle C at 44.1kHz.
func NewSampleData() *SampleData {
	return &SampleData{Channels: 1, SampleRate: 44100, RootNote: 60}
}

func (s *SampleData) frames() int {
	if s.Channels == 0 {
		return 0
	}
	return len(s.Samples) / s.Channels
}

// interpolated returns linearly-interpolated (left, right) at a fractional
// frame position, clamped to the sample's valid range.
func (s *SampleData) interpolated(position float32) (float32, float32) {
	frameCount := s.frames()
	if frameCount == 0 {
		return 0, 0
	}
	if position < 0 {
		position = 0
	}
	maxPos := float32(frameCount - 1)
	if position > maxPos {
		position = maxPos
	}
	index := int(position)
	frac := position - float32(index)
	next := index + 1
	if next > frameCount-1 {
		next = frameCount - 1
	}

	if s.Channels == 1 {
		v := s.Samples[index] + (s.Samples[next]-s.Samples[index])*frac
		return v, v
	}
	l1, r1 := s.Samples[index*2], s.Samples[index*2+1]
	l2, r2 := s.Samples[next*2], s.Samples[next*2+1]
	return l1 + (l2-l1)*frac, r1 + (r2-r1)*frac
}

// Sampler provides pitch-shifted sample playback with three
// trigger modes and three loop sub-modes.
type Sampler struct {
	sampleRate    float64
	data          *SampleData
	BaseFrequency float32
	BaseGain      float32
	Trigger       SamplerTriggerMode
	Loop          SamplerLoopMode
	LoopStart     float32 // frames
	LoopEnd       float32 // frames, <=0 means "use sample length"

	playhead        float32
	direction       float32
	lastGate        float32
	isPlaying       bool
	oneshotComplete bool
	active          bool
}

// NewSampler creates a sampler with no sample data loaded.
func NewSampler(sampleRate int) *Sampler {
	return &Sampler{
		sampleRate:    float64(sampleRate),
		data:          NewSampleData(),
		BaseFrequency: 440,
		BaseGain:      1,
		Trigger:       SamplerGate,
		direction:     1,
		active:        true,
	}
}

// SetSampleData replaces the backing sample and resets playback state.
func (s *Sampler) SetSampleData(data *SampleData) {
	s.data = data
	s.playhead = 0
	s.direction = 1
	s.isPlaying = false
	s.oneshotComplete = false
	if s.LoopEnd <= 0 {
		s.LoopEnd = float32(data.frames())
	}
}

func (s *Sampler) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.GlobalGate:      false,
		port.GlobalFrequency: false,
		port.FrequencyMod:    false,
		port.GainMod:         false,
		port.AudioOutput0:    true,
		port.AudioOutput1:    true,
	}
}

func (s *Sampler) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	outL, hasL := outputs[port.AudioOutput0]
	outR, hasR := outputs[port.AudioOutput1]

	if s.data == nil || s.data.frames() == 0 {
		if hasL {
			clear32(outL)
		}
		if hasR {
			clear32(outR)
		}
		return
	}

	gate := firstBufferOrOnes(inputs[port.GlobalGate], n)
	freqPair := modproc.Accumulate(inputs[port.FrequencyMod], n)
	gainPair := modproc.Accumulate(inputs[port.GainMod], n)
	baseFreq := readBaseFrequency(inputs[port.GlobalFrequency], n, 440)

	rootFreq := 440 * float32(math.Pow(2, float64(s.data.RootNote-69)/12))
	sampleRateRatio := s.data.SampleRate / float32(s.sampleRate)
	tuningRatio := float32(1)
	if s.BaseFrequency > 0 {
		tuningRatio = s.BaseFrequency / 440
	}
	sampleLen := float32(s.data.frames())

	for i := 0; i < n; i++ {
		g := gate[i]
		rising := g > 0.5 && s.lastGate <= 0.5
		switch s.Trigger {
		case FreeRunning:
			s.isPlaying = true
		case SamplerGate:
			if rising {
				s.playhead = 0
				s.direction = 1
				s.isPlaying = true
			}
		case SamplerOneShot:
			if rising && !s.isPlaying {
				s.playhead = 0
				s.direction = 1
				s.isPlaying = true
				s.oneshotComplete = false
			}
		}
		s.lastGate = g

		freq := freqPair.Apply(i, baseFreq[i]) * tuningRatio
		playbackRate := (freq / rootFreq) * sampleRateRatio
		gain := gainPair.Apply(i, s.BaseGain)

		var left, right float32
		if s.isPlaying {
			l, r := s.data.interpolated(s.playhead)
			left, right = l*gain, r*gain
		}
		if hasL {
			outL[i] = left
		}
		if hasR {
			outR[i] = right
		}

		if s.isPlaying {
			s.advancePlayhead(playbackRate, sampleLen)
		}
	}
}

func (s *Sampler) advancePlayhead(rate, sampleLen float32) {
	loopStart := clamp32(s.LoopStart, 0, sampleLen-1)
	loopEnd := clamp32(s.LoopEnd, loopStart+1, sampleLen)

	switch s.Loop {
	case SampleLoopOff:
		s.playhead += rate * s.direction
		if s.playhead >= sampleLen {
			s.playhead = sampleLen - 1
			s.isPlaying = false
			if s.Trigger == SamplerOneShot {
				s.oneshotComplete = true
			}
		} else if s.playhead < 0 {
			s.playhead = 0
		}
	case SampleLoopOn:
		s.playhead += rate * s.direction
		width := loopEnd - loopStart
		if s.playhead >= loopEnd {
			s.playhead = loopStart + float32(math.Mod(float64(s.playhead-loopEnd), float64(width)))
		} else if s.playhead < loopStart {
			s.playhead = loopEnd - float32(math.Mod(float64(loopStart-s.playhead), float64(width)))
		}
	case SampleLoopPingPong:
		s.playhead += rate * s.direction
		if s.direction > 0 && s.playhead >= loopEnd {
			s.playhead = loopEnd - (s.playhead - loopEnd)
			s.direction = -1
		} else if s.direction < 0 && s.playhead <= loopStart {
			s.playhead = loopStart + (loopStart - s.playhead)
			s.direction = 1
		}
	}
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clear32(s []float32) {
	for i := range s {
		s[i] = 0
	}
}

func firstBufferOrOnes(sources []port.Source, n int) []float32 {
	out := make([]float32, n)
	if len(sources) == 0 {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	return firstBuffer(sources, n)
}

func (s *Sampler) Reset() {
	s.playhead = 0
	s.direction = 1
	s.lastGate = 0
	s.isPlaying = false
	s.oneshotComplete = false
}

func (s *Sampler) IsActive() bool { return s.active }
func (s *Sampler) SetActive(v bool) {
	if v && !s.active {
		s.Reset()
	}
	s.active = v
}
func (s *Sampler) NodeType() string { return "sampler" }
func (s *Sampler) Self() any        { return s }
