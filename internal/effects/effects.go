package effects

import "github.com/cbegin/modsynth-go/internal/port"

// Effector processes a block of stereo audio. Implementations read inL/inR
// and write outL/outR (which may alias the inputs); they never resize their
// internal buffers during Process. mods carries any modulation sources
// routed to the effect's declared modulation ports (e.g. the convolver's
// WetDryMix); effects that take no modulation ignore it, and a nil map is
// always valid.
type Effector interface {
	Process(inL, inR, outL, outR []float32, mods map[port.ID][]port.Source)
	Reset()
	IsActive() bool
	SetActive(bool)
}

// Stack applies a serial chain of effects to a block. If every
// effect is inactive the whole stack is a passthrough; otherwise inactive
// effects are copied through in place and active ones actually process.
// Each slot carries an optional modulation-source map handed to its
// effect's Process call, kept in lockstep through Add/Replace/Remove/Reorder.
type Stack struct {
	effects []Effector
	mods    []map[port.ID][]port.Source
	tmpL    []float32
	tmpR    []float32
}

// NewStack builds an effect stack from the given effects; its scratch
// buffers are allocated on the first Process call that needs them.
func NewStack(effects ...Effector) *Stack {
	return &Stack{effects: effects, mods: make([]map[port.ID][]port.Source, len(effects))}
}

func (s *Stack) ensureScratch(n int) {
	if len(s.tmpL) < n {
		s.tmpL = make([]float32, n)
		s.tmpR = make([]float32, n)
	}
}

func (s *Stack) anyActive() bool {
	for _, e := range s.effects {
		if e.IsActive() {
			return true
		}
	}
	return false
}

// Process runs the chain in place over l/r.
func (s *Stack) Process(l, r []float32) {
	n := len(l)
	if !s.anyActive() {
		return
	}
	s.ensureScratch(n)
	for i, e := range s.effects {
		if !e.IsActive() {
			continue
		}
		outL, outR := s.tmpL[:n], s.tmpR[:n]
		e.Process(l, r, outL, outR, s.mods[i])
		copy(l, outL)
		copy(r, outR)
	}
}

func (s *Stack) Reset() {
	for _, e := range s.effects {
		e.Reset()
	}
}

// Add appends an effect at the end of the chain.
func (s *Stack) Add(e Effector) {
	s.effects = append(s.effects, e)
	s.mods = append(s.mods, nil)
}

// Len reports the number of effects currently in the stack.
func (s *Stack) Len() int { return len(s.effects) }

// At returns the effect at a given index, or nil if out of range.
func (s *Stack) At(i int) Effector {
	if i < 0 || i >= len(s.effects) {
		return nil
	}
	return s.effects[i]
}

// SetModulation routes sources into port p of the effect at index i for
// every subsequent block; a nil sources slice removes the route.
func (s *Stack) SetModulation(i int, p port.ID, sources []port.Source) {
	if i < 0 || i >= len(s.effects) {
		return
	}
	if sources == nil {
		if s.mods[i] != nil {
			delete(s.mods[i], p)
		}
		return
	}
	if s.mods[i] == nil {
		s.mods[i] = make(map[port.ID][]port.Source)
	}
	s.mods[i][p] = sources
}

// Replace swaps the effect at index i for a new instance, used by parameter
// updates on effects with no live setter (e.g. compressor, saturation),
// carrying over the active flag so bypass state survives the swap. The
// slot's modulation routes survive too.
func (s *Stack) Replace(i int, e Effector) {
	if i < 0 || i >= len(s.effects) {
		return
	}
	e.SetActive(s.effects[i].IsActive())
	s.effects[i] = e
}

// Remove deletes the effect at index i.
func (s *Stack) Remove(i int) {
	if i < 0 || i >= len(s.effects) {
		return
	}
	s.effects = append(s.effects[:i], s.effects[i+1:]...)
	s.mods = append(s.mods[:i], s.mods[i+1:]...)
}

// Reorder moves the effect at index `from` to index `to`, shifting the
// rest of the chain with an O(N) list splice.
func (s *Stack) Reorder(from, to int) {
	if from < 0 || from >= len(s.effects) || to < 0 || to >= len(s.effects) || from == to {
		return
	}
	e := s.effects[from]
	s.effects = append(s.effects[:from], s.effects[from+1:]...)
	s.effects = append(s.effects[:to], append([]Effector{e}, s.effects[to:]...)...)
	m := s.mods[from]
	s.mods = append(s.mods[:from], s.mods[from+1:]...)
	s.mods = append(s.mods[:to], append([]map[port.ID][]port.Source{m}, s.mods[to:]...)...)
}

// ExternalEffectID maps a stack index to the engine-facing effect ID.
func ExternalEffectID(index int) int { return 10000 + index }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
