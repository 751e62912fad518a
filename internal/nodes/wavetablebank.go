package nodes

import "math"

// Wavetable is one single-cycle, bandlimited waveform at a known top
// frequency.
type Wavetable struct {
	Samples  []float32
	TopFreq  float64
}

// MorphCollection is an ordered list of wavetables at decreasing
// bandlimits, selected by target frequency and crossfaded by a morph
// parameter in [0,1].
type MorphCollection struct {
	Tables []Wavetable
}

// SelectForFrequency returns the index of the table with the lowest TopFreq
// that is still >= f, i.e. the richest table that does not alias at f
// (falls back to the last, lowest-bandlimit table if f exceeds every entry).
func (m *MorphCollection) SelectForFrequency(f float64) int {
	best := -1
	for i, t := range m.Tables {
		if t.TopFreq >= f && (best < 0 || t.TopFreq < m.Tables[best].TopFreq) {
			best = i
		}
	}
	if best < 0 {
		return len(m.Tables) - 1
	}
	return best
}

// Bank is a named set of morph collections shared read-only across voices.
type Bank struct {
	collections map[string]*MorphCollection
}

// NewBank creates an empty bank and installs a default sine collection.
func NewBank() *Bank {
	b := &Bank{collections: make(map[string]*MorphCollection)}
	b.collections["sine"] = &MorphCollection{Tables: []Wavetable{defaultSineTable(2048)}}
	return b
}

// Install stores (or replaces) a named morph collection. This must only
// be called outside a render call — the graph holds no lock around it;
// published collections are never mutated in place.
func (b *Bank) Install(name string, mc *MorphCollection) {
	b.collections[name] = mc
}

// Get returns the named morph collection, or the bank's "sine" default if
// not found.
func (b *Bank) Get(name string) *MorphCollection {
	if mc, ok := b.collections[name]; ok {
		return mc
	}
	return b.collections["sine"]
}

func defaultSineTable(length int) Wavetable {
	samples := make([]float32, length)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * float64(i) / float64(length)))
	}
	return Wavetable{Samples: samples, TopFreq: 22050}
}

// cubicHermite interpolates a cyclic sample array at fractional index t
// (integer part + frac in [0,1)) using a 4-point Catmull-Rom-style Hermite
// spline.
func cubicHermite(samples []float32, t float64) float32 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	i1 := int(math.Floor(t))
	frac := float32(t - float64(i1))
	i0 := wrapIndex(i1-1, n)
	i1w := wrapIndex(i1, n)
	i2 := wrapIndex(i1+1, n)
	i3 := wrapIndex(i1+2, n)

	p0, p1, p2, p3 := samples[i0], samples[i1w], samples[i2], samples[i3]

	a := (-0.5 * p0) + (1.5 * p1) - (1.5 * p2) + (0.5 * p3)
	bC := p0 - (2.5 * p1) + (2 * p2) - (0.5 * p3)
	c := (-0.5 * p0) + (0.5 * p2)
	d := p1

	return ((a*frac+bC)*frac+c)*frac + d
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
