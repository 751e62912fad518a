// Package engine implements the polyphonic voice manager and master effect
// chain: N voices mixed into a serial post-effect stack, exposed through
// an imperative operation set (node/effect lifecycle, connections, asset
// import, block render).
package engine

import (
	"fmt"

	"github.com/cbegin/modsynth-go/internal/effects"
	"github.com/cbegin/modsynth-go/internal/graph"
	"github.com/cbegin/modsynth-go/internal/nodes"
	"github.com/cbegin/modsynth-go/internal/port"
	"github.com/cbegin/modsynth-go/internal/voice"
)

// DefaultBlockSize is the engine's native render block length.
const DefaultBlockSize = 128

// EffectIDOffset is added to an effect-stack index to form its
// externally-visible ID, distinguishing effect IDs from voice-graph node
// IDs in the conceptual API.
const EffectIDOffset = 10000

// Engine owns the polyphonic voice pool and the serial master effect chain.
type Engine struct {
	sampleRate int
	blockSize  int

	voices []*voice.Voice
	gains  []float32

	MasterGain float32

	effectStack *effects.Stack
	effectKinds []string

	nodeTypes     map[port.NodeID]string
	wavetableBank *nodes.Bank

	mixL, mixR []float32
	pending    []float32
	seedCursor uint32
}

// New creates an engine at the given sample rate with the default block
// size and no voices; call Init to allocate the voice pool.
func New(sampleRate int) *Engine {
	return &Engine{
		sampleRate:    sampleRate,
		blockSize:     DefaultBlockSize,
		MasterGain:    1,
		effectStack:   effects.NewStack(),
		nodeTypes:     make(map[port.NodeID]string),
		wavetableBank: nodes.NewBank(),
		seedCursor:    0x2545f491,
	}
}

// Init (re)allocates numVoices independent voice graphs, each seeded with a
// protected global-frequency/velocity/gate-mixer node and the macro source
// nodes. Any existing topology is discarded.
func (e *Engine) Init(numVoices int) {
	if numVoices < 1 {
		numVoices = 1
	}
	e.voices = make([]*voice.Voice, numVoices)
	e.gains = make([]float32, numVoices)
	for i := range e.voices {
		e.seedCursor = e.seedCursor*1664525 + 1013904223
		e.voices[i] = voice.New(e.sampleRate, e.blockSize, e.seedCursor+uint32(i))
		e.gains[i] = 1
	}
	e.mixL = make([]float32, e.blockSize)
	e.mixR = make([]float32, e.blockSize)
	e.nodeTypes = make(map[port.NodeID]string)
}

// SampleRate returns the engine's configured sample rate.
func (e *Engine) SampleRate() int { return e.sampleRate }

// BlockSize returns the engine's native render block length.
func (e *Engine) BlockSize() int { return e.blockSize }

// NumVoices returns the number of voices currently allocated.
func (e *Engine) NumVoices() int { return len(e.voices) }

// SetVoiceGain sets voice i's contribution to the mix bus.
func (e *Engine) SetVoiceGain(i int, gain float32) {
	if i >= 0 && i < len(e.gains) {
		e.gains[i] = gain
	}
}

func (e *Engine) voiceAt(i int) (*voice.Voice, error) {
	if i < 0 || i >= len(e.voices) {
		return nil, fmt.Errorf("engine: voice index %d out of range", i)
	}
	return e.voices[i], nil
}

// addToAllVoices inserts a node built by factory (given the voice index, so
// per-voice state like RNG seeds can differ) into every voice's graph in
// lockstep, verifying every voice's graph assigns the same NodeID — true so
// long as every mutation goes through Engine's own methods, since every
// voice starts from the same fixed set of protected nodes.
func (e *Engine) addToAllVoices(typeTag string, factory func(voiceIndex int) graph.Node) (port.NodeID, error) {
	if len(e.voices) == 0 {
		return 0, fmt.Errorf("engine: no voices initialized; call Init first")
	}
	var id port.NodeID
	for i, v := range e.voices {
		got := v.AddNode(factory(i))
		if i == 0 {
			id = got
		} else if got != id {
			return 0, fmt.Errorf("engine: voice topology diverged creating %s (voice %d assigned id %d, want %d)", typeTag, i, got, id)
		}
	}
	e.nodeTypes[id] = typeTag
	return id, nil
}

// checkType verifies a node ID was created with the expected type tag
// before a typed parameter update is allowed to proceed; every update
// goes through the same tag check rather than ad hoc type assertions.
func (e *Engine) checkType(id port.NodeID, want string) error {
	got, ok := e.nodeTypes[id]
	if !ok {
		return fmt.Errorf("engine: unknown node %d", id)
	}
	if got != want {
		return fmt.Errorf("engine: node %d is type %q, not %q", id, got, want)
	}
	return nil
}

// DeleteNode removes a node from every voice's graph and compacts the
// NodeId space, renumbering every ID above the deleted index (see
// DESIGN.md's Open Question on stable-ID schemes).
func (e *Engine) DeleteNode(id port.NodeID) error {
	if _, ok := e.nodeTypes[id]; !ok {
		return fmt.Errorf("engine: unknown node %d", id)
	}
	for i, v := range e.voices {
		if err := v.DeleteNode(id); err != nil {
			return fmt.Errorf("engine: voice %d: %w", i, err)
		}
	}
	newTypes := make(map[port.NodeID]string, len(e.nodeTypes))
	for k, t := range e.nodeTypes {
		switch {
		case k == id:
			// dropped
		case k > id:
			newTypes[k-1] = t
		default:
			newTypes[k] = t
		}
	}
	e.nodeTypes = newTypes
	return nil
}

// SetOutputNode designates the node whose audio output becomes every
// voice's final per-block render.
func (e *Engine) SetOutputNode(id port.NodeID) error {
	if _, ok := e.nodeTypes[id]; !ok {
		return fmt.Errorf("engine: unknown node %d", id)
	}
	for _, v := range e.voices {
		v.SetOutputNode(id)
	}
	return nil
}

// ConnectNodes adds or replaces a connection identically across every
// voice's graph.
func (e *Engine) ConnectNodes(from port.NodeID, fromPort port.ID, to port.NodeID, toPort port.ID, amount float32, modType port.ModulationType, transform port.Transformation) error {
	conn := port.Connection{
		Key:            port.ConnectionKey{FromNode: from, FromPort: fromPort, ToNode: to, ToPort: toPort},
		Amount:         amount,
		Type:           modType,
		Transformation: transform,
	}
	for i, v := range e.voices {
		if err := v.Connect(conn); err != nil {
			return fmt.Errorf("engine: voice %d: %w", i, err)
		}
	}
	return nil
}

// RemoveSpecificConnection deletes every connection from->to->toPort across
// every voice; the caller identifies the connection without its FromPort.
func (e *Engine) RemoveSpecificConnection(from, to port.NodeID, toPort port.ID) {
	for _, v := range e.voices {
		for _, key := range v.Graph.FindConnections(from, to, toPort) {
			v.Graph.RemoveConnection(key)
		}
	}
}

// ConnectMacro routes voice-local macro buffer `index` into toNode/toPort on
// every voice identically.
func (e *Engine) ConnectMacro(index int, toNode port.NodeID, toPort port.ID, amount float32, modType port.ModulationType, transform port.Transformation) error {
	for i, v := range e.voices {
		if err := v.ConnectMacro(index, toNode, toPort, amount, modType, transform); err != nil {
			return fmt.Errorf("engine: voice %d: %w", i, err)
		}
	}
	return nil
}

func clearF32(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
