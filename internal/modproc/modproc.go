// Package modproc implements the single shared modulation-accumulation
// routine every node uses. Keeping it in one place prevents a class of
// bugs where nodes disagree on how (add, mult) combine.
package modproc

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/port"
)

// Pair is the per-sample additive/multiplicative accumulator pair a node
// consumes for one destination port.
type Pair struct {
	Add  []float32
	Mult []float32
}

// NewPair allocates a neutral accumulator pair of length n: Add=0, Mult=1.
func NewPair(n int) Pair {
	p := Pair{Add: make([]float32, n), Mult: make([]float32, n)}
	for i := range p.Mult {
		p.Mult[i] = 1
	}
	return p
}

// Accumulate folds sources into a neutral-initialized Pair of length n.
// This is the single source of truth for combining modulation sources:
// additive sums, VCA multiplies by amount*v (not 1+amount*v — see
// DESIGN.md's Open Question on the VCA convention), Bipolar multiplies by
// 1+amount*v, and FrequencyCents multiplies by 2^((amount*v*100)/1200).
func Accumulate(sources []port.Source, n int) Pair {
	p := NewPair(n)
	for _, src := range sources {
		for i := 0; i < n; i++ {
			var v float32
			if i < len(src.Buffer) {
				v = src.Buffer[i]
			}
			v = src.Transformation.Apply(v) * src.Amount
			switch src.Type {
			case port.Additive:
				p.Add[i] += v
			case port.VCA:
				p.Mult[i] *= v
			case port.Bipolar:
				p.Mult[i] *= 1 + v
			case port.FrequencyCents:
				p.Mult[i] *= pow2(v * 100 / 1200)
			}
		}
	}
	return p
}

// Apply returns (base + add[i]) * mult[i], the default consumption rule
// used by nodes that don't need add/mult separately.
func (p Pair) Apply(i int, base float32) float32 {
	return (base + p.Add[i]) * p.Mult[i]
}

func pow2(x float32) float32 {
	return float32(math.Pow(2, float64(x)))
}
