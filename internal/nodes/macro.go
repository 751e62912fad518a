package nodes

import "github.com/cbegin/modsynth-go/internal/port"

// MacroNode exposes one of a voice's macro automation buffers as an
// ordinary graph node with a single audio output, so the macro manager
// can route it into any destination's input_connections the same
// way any other node's output is routed — no special case in the graph
// scheduler is needed.
type MacroNode struct {
	value  []float32
	active bool
}

// NewMacroNode creates a macro source holding blockSize samples, initially
// zero.
func NewMacroNode(blockSize int) *MacroNode {
	return &MacroNode{value: make([]float32, blockSize), active: true}
}

// SetValue writes this block's automation value(s); a single value
// broadcasts across the block.
func (m *MacroNode) SetValue(v []float32) {
	switch {
	case len(v) == 0:
		return
	case len(v) == 1:
		for i := range m.value {
			m.value[i] = v[0]
		}
	default:
		n := copy(m.value, v)
		for i := n; i < len(m.value); i++ {
			m.value[i] = 0
		}
	}
}

func (m *MacroNode) Ports() map[port.ID]bool {
	return map[port.ID]bool{port.AudioOutput0: true}
}

func (m *MacroNode) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	out, ok := outputs[port.AudioOutput0]
	if !ok {
		return
	}
	copy(out, m.value[:n])
}

func (m *MacroNode) Reset()           { clear32(m.value) }
func (m *MacroNode) IsActive() bool   { return m.active }
func (m *MacroNode) SetActive(v bool) { m.active = v }
func (m *MacroNode) NodeType() string { return "macro" }
func (m *MacroNode) Self() any        { return m }
