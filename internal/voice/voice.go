// Package voice wraps one per-voice AudioGraph with the per-voice state and
// macro manager: current gate/frequency/velocity, an
// activity flag the engine uses to skip idle voices, and a fixed set of
// macro source buffers a patch can route into any node's input port.
package voice

import (
	"fmt"

	"github.com/cbegin/modsynth-go/internal/graph"
	"github.com/cbegin/modsynth-go/internal/nodes"
	"github.com/cbegin/modsynth-go/internal/pool"
	"github.com/cbegin/modsynth-go/internal/port"
)

// NumMacros is the number of per-voice macro automation buffers the macro
// manager reserves.
const NumMacros = 4

// Voice owns one AudioGraph plus the global frequency/velocity/gate-mixer
// nodes every patch wires into, and NumMacros macro source nodes.
type Voice struct {
	Graph      *graph.AudioGraph
	blockSize  int
	sampleRate int

	globalFrequencyNode port.NodeID
	globalVelocityNode  port.NodeID
	gateMixerNode       port.NodeID
	macroNodes          [NumMacros]port.NodeID

	CurrentGate      float32
	CurrentFrequency float32
	CurrentVelocity  float32

	outL, outR []float32
}

// New constructs a voice backed by its own buffer pool and graph, with the
// three protected global nodes and NumMacros macro sources pre-inserted.
func New(sampleRate, blockSize int, seed uint32) *Voice {
	p := pool.New(blockSize)
	g := graph.New(p, blockSize)

	v := &Voice{
		Graph:            g,
		blockSize:        blockSize,
		sampleRate:       sampleRate,
		CurrentFrequency: 440,
		outL:             make([]float32, blockSize),
		outR:             make([]float32, blockSize),
	}

	freqID := g.AddNode(nodes.NewGlobalFrequencyNode(440, blockSize))
	g.SetGlobalFrequencyNode(freqID)
	v.globalFrequencyNode = freqID

	velID := g.AddNode(nodes.NewGlobalVelocityNode(1, blockSize, seed))
	g.SetGlobalVelocityNode(velID)
	v.globalVelocityNode = velID

	gmID := g.AddNode(nodes.NewGateMixer())
	g.SetGlobalGatemixerNode(gmID)
	v.gateMixerNode = gmID

	for i := 0; i < NumMacros; i++ {
		v.macroNodes[i] = g.AddNode(nodes.NewMacroNode(blockSize))
	}

	return v
}

// AddNode inserts a node into this voice's graph.
func (v *Voice) AddNode(n graph.Node) port.NodeID { return v.Graph.AddNode(n) }

// NodeAt returns the node stored at id for typed parameter updates.
func (v *Voice) NodeAt(id port.NodeID) (graph.Node, bool) { return v.Graph.NodeAt(id) }

// SetOutputNode designates the node whose AudioOutput0/1 is copied out at
// the end of each block.
func (v *Voice) SetOutputNode(id port.NodeID) { v.Graph.SetOutputNode(id) }

// Connect adds or replaces a connection.
func (v *Voice) Connect(conn port.Connection) error { return v.Graph.Connect(conn) }

// RemoveConnection deletes a single connection by key.
func (v *Voice) RemoveConnection(key port.ConnectionKey) { v.Graph.RemoveConnection(key) }

func (v *Voice) isMacroNode(id port.NodeID) bool {
	for _, m := range v.macroNodes {
		if m == id {
			return true
		}
	}
	return false
}

// DeleteNode removes a node from the graph, renumbering this voice's own
// bookkeeping (global/gate-mixer/macro node IDs) to match the graph's
// renumbering. Macro source nodes are protected the same way the
// graph protects its own designated globals.
func (v *Voice) DeleteNode(id port.NodeID) error {
	if v.isMacroNode(id) {
		return fmt.Errorf("voice: node %d is a macro source and cannot be deleted", id)
	}
	if err := v.Graph.DeleteNode(id); err != nil {
		return err
	}
	renumber := func(n port.NodeID) port.NodeID {
		if n > id {
			return n - 1
		}
		return n
	}
	v.globalFrequencyNode = renumber(v.globalFrequencyNode)
	v.globalVelocityNode = renumber(v.globalVelocityNode)
	v.gateMixerNode = renumber(v.gateMixerNode)
	for i := range v.macroNodes {
		v.macroNodes[i] = renumber(v.macroNodes[i])
	}
	return nil
}

// ConnectMacro routes macro buffer `index` as an additional modulation
// source into toNode's toPort.
func (v *Voice) ConnectMacro(index int, toNode port.NodeID, toPort port.ID, amount float32, modType port.ModulationType, transform port.Transformation) error {
	if index < 0 || index >= NumMacros {
		return fmt.Errorf("voice: macro index %d out of range", index)
	}
	return v.Graph.Connect(port.Connection{
		Key: port.ConnectionKey{
			FromNode: v.macroNodes[index],
			FromPort: port.AudioOutput0,
			ToNode:   toNode,
			ToPort:   toPort,
		},
		Amount:         amount,
		Type:           modType,
		Transformation: transform,
	})
}

// SetMacro writes this block's automation value(s) for macro `index`; a
// single value broadcasts.
func (v *Voice) SetMacro(index int, values []float32) error {
	if index < 0 || index >= NumMacros {
		return fmt.Errorf("voice: macro index %d out of range", index)
	}
	n, ok := v.Graph.NodeAt(v.macroNodes[index])
	if !ok {
		return fmt.Errorf("voice: macro node %d missing", index)
	}
	n.(*nodes.MacroNode).SetValue(values)
	return nil
}

// SetGate writes the voice gate for this block.
func (v *Voice) SetGate(g float32) {
	v.CurrentGate = g
	v.Graph.SetGate([]float32{g})
}

// SetFrequency writes the voice's base frequency for this block.
func (v *Voice) SetFrequency(f float32) {
	v.CurrentFrequency = f
	v.Graph.SetFrequency([]float32{f})
	if n, ok := v.Graph.NodeAt(v.globalFrequencyNode); ok {
		n.(*nodes.GlobalFrequencyNode).SetBaseFrequency([]float32{f})
	}
}

// SetVelocity writes the voice's note-on velocity for this block.
func (v *Voice) SetVelocity(vel float32) {
	v.CurrentVelocity = vel
	if n, ok := v.Graph.NodeAt(v.globalVelocityNode); ok {
		n.(*nodes.GlobalVelocityNode).SetVelocity([]float32{vel})
	}
}

// Process renders one block and returns the voice's stereo output buffers;
// they are reused across calls and must be consumed before the next call.
func (v *Voice) Process() ([]float32, []float32, error) {
	err := v.Graph.ProcessAudio(v.outL, v.outR)
	return v.outL, v.outR, err
}

// IsActive reports whether the engine should keep rendering this voice:
// true while the gate is held, or while any envelope in the graph
// hasn't yet returned to Idle.
func (v *Voice) IsActive() bool {
	if v.CurrentGate > 0 {
		return true
	}
	for i := 0; i < v.Graph.NumNodes(); i++ {
		n, ok := v.Graph.NodeAt(port.NodeID(i))
		if !ok {
			continue
		}
		if env, ok := n.(*nodes.Envelope); ok && env.Stage() != nodes.StageIdle {
			return true
		}
	}
	return false
}

// Reset zeros every node's internal DSP state.
func (v *Voice) Reset() {
	for i := 0; i < v.Graph.NumNodes(); i++ {
		if n, ok := v.Graph.NodeAt(port.NodeID(i)); ok {
			n.Reset()
		}
	}
}
