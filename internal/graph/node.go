// Package graph owns the per-voice audio processing DAG: node storage,
// connections, the topological processing order, and the per-block
// scheduler.
package graph

import "github.com/cbegin/modsynth-go/internal/port"

// Node is the polymorphic interface every DSP node implements.
type Node interface {
	// Ports declares this node's input and output ports and whether each
	// is an output.
	Ports() map[port.ID]bool

	// Process renders exactly n samples into each declared output buffer.
	// inputs carries, for every declared input port, the ordered list of
	// modulation/audio sources connected to it; a port with no connection
	// gets an empty (possibly nil) slice and the node must substitute its
	// documented default.
	Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int)

	// Reset zeros internal filter memory, phase, and envelope state.
	Reset()

	// IsActive reports whether the graph should process this node.
	IsActive() bool

	// SetActive changes the active flag. Implementations that hold DSP
	// state reset it on a false->true transition to avoid audible clicks,
	// unless documented otherwise.
	SetActive(bool)

	// NodeType returns a stable identifier used by patch import/export.
	NodeType() string
}

// Downcastable is implemented by nodes whose concrete type must be
// recoverable for typed parameter updates. Every concrete node
// type satisfies this trivially by returning itself.
type Downcastable interface {
	Self() any
}
