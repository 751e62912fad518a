package effects

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/port"
)

// Saturation implements tanh waveshaping distortion with pre/post gain and
// an optional post-stage lowpass following the drive stage.
type Saturation struct {
	PreGain  float32
	PostGain float32
	lpfAlpha float32
	lpfL     float32
	lpfR     float32
	active   bool
}

// NewSaturation creates a saturation effect.
// preGain: input gain (higher = more drive into the tanh curve)
// postGain: output gain
// lpfCutoff: post-saturation lowpass cutoff in Hz (0 = no filter)
func NewSaturation(sampleRate int, preGain, postGain, lpfCutoff float32) *Saturation {
	s := &Saturation{
		PreGain:  preGain,
		PostGain: postGain,
		active:   true,
	}
	if lpfCutoff > 0 && lpfCutoff < float32(sampleRate)/2 {
		rc := 1.0 / (2.0 * math.Pi * float64(lpfCutoff))
		dt := 1.0 / float64(sampleRate)
		s.lpfAlpha = float32(dt / (rc + dt))
	}
	return s
}

func (s *Saturation) Process(inL, inR, outL, outR []float32, mods map[port.ID][]port.Source) {
	n := len(inL)
	for i := 0; i < n; i++ {
		l := float32(math.Tanh(float64(inL[i] * s.PreGain)))
		r := float32(math.Tanh(float64(inR[i] * s.PreGain)))
		l *= s.PostGain
		r *= s.PostGain
		if s.lpfAlpha > 0 {
			s.lpfL += s.lpfAlpha * (l - s.lpfL)
			s.lpfR += s.lpfAlpha * (r - s.lpfR)
			l = s.lpfL
			r = s.lpfR
		}
		outL[i] = l
		outR[i] = r
	}
}

func (s *Saturation) Reset() {
	s.lpfL = 0
	s.lpfR = 0
}

func (s *Saturation) IsActive() bool   { return s.active }
func (s *Saturation) SetActive(v bool) { s.active = v }
