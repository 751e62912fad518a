// Package patch defines the JSON wire format external collaborators (UI,
// preset browser, automation host) use to serialize and restore a synth
// topology. It round-trips node and
// connection topology plus base64-encoded audio assets; it does not itself
// drive the engine — callers apply a decoded Document's contents through
// engine.Engine's own node/connection/asset methods.
package patch

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NodeID is an external, UUID-keyed node identifier. Patch documents use
// UUIDs rather than the engine's dense integer NodeIDs so a document stays
// stable across edits that renumber the live graph on node deletion.
type NodeID string

// NewNodeID mints a fresh random node identifier.
func NewNodeID() NodeID { return NodeID(uuid.New().String()) }

// Node is one entry in a patch document's node list. Params is left as raw
// JSON so each node type's own param struct (engine.OscillatorParams,
// nodes.EnvelopeParams, ...) can be unmarshaled into it by the caller
// without this package needing to know every node type's shape.
type Node struct {
	ID     NodeID          `json:"id"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ModulationType mirrors port.ModulationType's wire names.
type ModulationType string

const (
	ModAdditive       ModulationType = "additive"
	ModVCA            ModulationType = "vca"
	ModBipolar        ModulationType = "bipolar"
	ModFrequencyCents ModulationType = "frequency_cents"
)

// Transformation mirrors port.Transformation's wire names.
type Transformation string

const (
	TransformNone   Transformation = "none"
	TransformSquare Transformation = "square"
	TransformCube   Transformation = "cube"
)

// Connection is one patch-document edge between two node ports.
type Connection struct {
	FromNode       NodeID         `json:"from_node"`
	FromPort       string         `json:"from_port"`
	ToNode         NodeID         `json:"to_node"`
	ToPort         string         `json:"to_port"`
	Amount         float32        `json:"amount"`
	Type           ModulationType `json:"type"`
	Transformation Transformation `json:"transformation,omitempty"`
}

// Effect is one entry in the master effect chain.
type Effect struct {
	Type   string          `json:"type"`
	Active bool            `json:"active"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Asset is a base64-encoded binary resource (a WAV sample, wavetable
// source, or impulse response) referenced by node params via Name.
type Asset struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // "sample", "wavetable", or "impulse_response"
	Data string `json:"data"` // base64
}

// SynthState is the full node/connection/effect topology of one patch.
type SynthState struct {
	NumVoices   int          `json:"num_voices"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	OutputNode  NodeID       `json:"output_node"`
	Effects     []Effect     `json:"effects"`
}

// Metadata is free-form descriptive information about a patch, not
// consumed by the engine.
type Metadata struct {
	Name    string `json:"name"`
	Author  string `json:"author,omitempty"`
	Version string `json:"version,omitempty"`
}

// Document is the top-level patch file.
type Document struct {
	Metadata    Metadata   `json:"metadata"`
	SynthState  SynthState `json:"synth_state"`
	AudioAssets []Asset    `json:"audio_assets,omitempty"`
}

// Marshal serializes a Document to indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal parses a patch document from JSON bytes.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("patch: decode: %w", err)
	}
	return &doc, nil
}

// EncodeAsset base64-encodes raw bytes into an Asset entry.
func EncodeAsset(name, kind string, raw []byte) Asset {
	return Asset{Name: name, Kind: kind, Data: base64.StdEncoding.EncodeToString(raw)}
}

// DecodeAsset returns an Asset's raw bytes.
func DecodeAsset(a Asset) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("patch: decode asset %q: %w", a.Name, err)
	}
	return raw, nil
}

// FindAsset looks up an asset by name, returning ok=false if absent.
func (d *Document) FindAsset(name string) (Asset, bool) {
	for _, a := range d.AudioAssets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}
