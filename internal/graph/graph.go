package graph

import (
	"fmt"
	"sort"

	"github.com/cbegin/modsynth-go/internal/pool"
	"github.com/cbegin/modsynth-go/internal/port"
)

type nodeEntry struct {
	id   port.NodeID
	node Node
}

type bufKey struct {
	node port.NodeID
	port port.ID
}

// inputConn is one denormalized entry in input_connections: the
// destination port, the producer's already-resolved buffer handle, and the
// modulation parameters to apply when building that port's Source list.
type inputConn struct {
	port           port.ID
	sourceHandle   pool.Handle
	amount         float32
	fromNode       port.NodeID
	modType        port.ModulationType
	transformation port.Transformation
}

// AudioGraph is the per-voice DAG of processing nodes.
type AudioGraph struct {
	pool      *pool.Pool
	blockSize int

	nodes []nodeEntry

	connections map[port.ConnectionKey]port.Connection
	connOrder   []port.ConnectionKey

	outputBuffers map[bufKey]pool.Handle

	inputConnections map[port.NodeID][]inputConn

	processingOrder []port.NodeID

	gateBufferIdx pool.Handle
	freqBufferIdx pool.Handle

	globalFrequencyNode port.NodeID
	globalVelocityNode  port.NodeID
	globalGatemixerNode port.NodeID
	outputNode          port.NodeID
	haveGlobals         bool
	haveOutput          bool
}

// New constructs an empty graph backed by a buffer pool sized for blockSize
// samples, and acquires the two reserved global gate/frequency buffers.
func New(p *pool.Pool, blockSize int) *AudioGraph {
	g := &AudioGraph{
		pool:             p,
		blockSize:        blockSize,
		connections:      make(map[port.ConnectionKey]port.Connection),
		outputBuffers:    make(map[bufKey]pool.Handle),
		inputConnections: make(map[port.NodeID][]inputConn),
	}
	g.gateBufferIdx = p.Acquire()
	g.freqBufferIdx = p.Acquire()
	return g
}

// AddNode assigns the next NodeId, acquires one buffer per declared output
// port, and recomputes processing order.
func (g *AudioGraph) AddNode(n Node) port.NodeID {
	id := port.NodeID(len(g.nodes))
	g.nodes = append(g.nodes, nodeEntry{id: id, node: n})
	for p, isOutput := range n.Ports() {
		if isOutput {
			g.outputBuffers[bufKey{id, p}] = g.pool.Acquire()
		}
	}
	g.recomputeOrder()
	return id
}

// SetGlobalFrequencyNode, SetGlobalVelocityNode, SetGlobalGatemixerNode and
// SetOutputNode designate the protected nodes a voice relies on.
func (g *AudioGraph) SetGlobalFrequencyNode(id port.NodeID) { g.globalFrequencyNode = id; g.haveGlobals = true }
func (g *AudioGraph) SetGlobalVelocityNode(id port.NodeID)  { g.globalVelocityNode = id }
func (g *AudioGraph) SetGlobalGatemixerNode(id port.NodeID) { g.globalGatemixerNode = id }
func (g *AudioGraph) SetOutputNode(id port.NodeID)          { g.outputNode = id; g.haveOutput = true }

func (g *AudioGraph) node(id port.NodeID) (Node, bool) {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		return nil, false
	}
	return g.nodes[id].node, true
}

// Connect stores conn, replacing any prior connection on the same key, and
// rebuilds the denormalized input-connection index and processing order.
func (g *AudioGraph) Connect(conn port.Connection) error {
	fromNode, ok := g.node(conn.Key.FromNode)
	if !ok {
		return fmt.Errorf("graph: unknown source node %d", conn.Key.FromNode)
	}
	toNode, ok := g.node(conn.Key.ToNode)
	if !ok {
		return fmt.Errorf("graph: unknown destination node %d", conn.Key.ToNode)
	}
	if isOut, declared := fromNode.Ports()[conn.Key.FromPort]; !declared || !isOut {
		return fmt.Errorf("graph: node %d has no output port %s", conn.Key.FromNode, conn.Key.FromPort)
	}
	if isOut, declared := toNode.Ports()[conn.Key.ToPort]; !declared || isOut {
		return fmt.Errorf("graph: node %d has no input port %s", conn.Key.ToNode, conn.Key.ToPort)
	}

	if _, exists := g.connections[conn.Key]; !exists {
		if g.wouldCycle(conn.Key.FromNode, conn.Key.ToNode) {
			return fmt.Errorf("graph: connection %d->%d would introduce a cycle", conn.Key.FromNode, conn.Key.ToNode)
		}
		g.connOrder = append(g.connOrder, conn.Key)
	}
	g.connections[conn.Key] = conn

	g.rebuildInputConnections()
	if err := g.recomputeOrder(); err != nil {
		return err
	}
	return nil
}

// FindConnections returns every connection key from->to->toPort, for
// callers that identify a connection without knowing its FromPort.
func (g *AudioGraph) FindConnections(from, to port.NodeID, toPort port.ID) []port.ConnectionKey {
	var out []port.ConnectionKey
	for _, key := range g.connOrder {
		if key.FromNode == from && key.ToNode == to && key.ToPort == toPort {
			out = append(out, key)
		}
	}
	return out
}

// RemoveConnection deletes a single connection identified by its key.
func (g *AudioGraph) RemoveConnection(key port.ConnectionKey) {
	if _, ok := g.connections[key]; !ok {
		return
	}
	delete(g.connections, key)
	for i, k := range g.connOrder {
		if k == key {
			g.connOrder = append(g.connOrder[:i], g.connOrder[i+1:]...)
			break
		}
	}
	g.rebuildInputConnections()
	g.recomputeOrder()
}

func (g *AudioGraph) rebuildInputConnections() {
	g.inputConnections = make(map[port.NodeID][]inputConn)
	for _, key := range g.connOrder {
		conn, ok := g.connections[key]
		if !ok {
			continue
		}
		handle, ok := g.outputBuffers[bufKey{key.FromNode, key.FromPort}]
		if !ok {
			continue // dangling producer buffer; treated as no source
		}
		g.inputConnections[key.ToNode] = append(g.inputConnections[key.ToNode], inputConn{
			port:           key.ToPort,
			sourceHandle:   handle,
			amount:         conn.Amount,
			fromNode:       key.FromNode,
			modType:        conn.Type,
			transformation: conn.Transformation,
		})
	}
}

// wouldCycle reports whether adding an edge from->to would create a cycle,
// given the connections already present. Cycles are rejected at connection
// time rather than broken at render time.
func (g *AudioGraph) wouldCycle(from, to port.NodeID) bool {
	if from == to {
		return true
	}
	visited := make(map[port.NodeID]bool)
	var dfs func(n port.NodeID) bool
	dfs = func(n port.NodeID) bool {
		if n == from {
			return true
		}
		if visited[n] {
			return false
		}
		visited[n] = true
		for _, key := range g.connOrder {
			if key.FromNode == n && dfs(key.ToNode) {
				return true
			}
		}
		return false
	}
	return dfs(to)
}

// recomputeOrder computes a deterministic topological order over all edges
// (audio and modulation edges both participate, so a modulation producer
// is always written before its consumer reads it within the same block)
// using Kahn's algorithm with node-id tie-breaking for reproducibility.
func (g *AudioGraph) recomputeOrder() error {
	n := len(g.nodes)
	indegree := make([]int, n)
	adj := make([][]port.NodeID, n)
	for _, key := range g.connOrder {
		if _, ok := g.connections[key]; !ok {
			continue
		}
		adj[key.FromNode] = append(adj[key.FromNode], key.ToNode)
		indegree[key.ToNode]++
	}

	ready := make([]port.NodeID, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, port.NodeID(i))
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]port.NodeID, 0, n)
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, next := range adj[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(order) != n {
		return fmt.Errorf("graph: cycle detected during topological sort")
	}
	g.processingOrder = order
	return nil
}

// IndexOf returns the position of id in the current processing order, or -1.
func (g *AudioGraph) IndexOf(id port.NodeID) int {
	for i, o := range g.processingOrder {
		if o == id {
			return i
		}
	}
	return -1
}

// ProcessingOrder exposes the current topological order (used by tests).
func (g *AudioGraph) ProcessingOrder() []port.NodeID { return g.processingOrder }

// SetGate writes into the reserved gate buffer; a length-1 slice broadcasts.
func (g *AudioGraph) SetGate(values []float32) { g.writeGlobal(g.gateBufferIdx, values) }

// SetFrequency writes into the reserved frequency buffer; a length-1 slice
// broadcasts.
func (g *AudioGraph) SetFrequency(values []float32) { g.writeGlobal(g.freqBufferIdx, values) }

func (g *AudioGraph) writeGlobal(h pool.Handle, values []float32) {
	buf := g.pool.Mut(h)
	if len(values) == 1 {
		for i := range buf {
			buf[i] = values[0]
		}
		return
	}
	g.pool.CopyIn(h, values)
}

// ProcessAudio renders one block: walks processingOrder, builds each node's
// input map from input_connections plus the global gate/frequency buffers,
// invokes node.Process, then copies the designated output node's audio
// output ports into out_l/out_r (duplicating mono to stereo when only
// AudioOutput0 is declared).
func (g *AudioGraph) ProcessAudio(outL, outR []float32) error {
	n := len(outL)
	if n == 0 {
		return nil
	}
	for _, id := range g.processingOrder {
		entry := g.nodes[id]
		if !entry.node.IsActive() {
			continue
		}
		inputs := g.buildInputs(id, entry.node, n)
		outputs := g.buildOutputs(id, entry.node)
		entry.node.Process(inputs, outputs, n)
	}

	if !g.haveOutput {
		for i := 0; i < n; i++ {
			outL[i] = 0
			outR[i] = 0
		}
		return fmt.Errorf("graph: no output node designated")
	}
	l, hasL := g.outputBuffers[bufKey{g.outputNode, port.AudioOutput0}]
	if !hasL {
		for i := 0; i < n; i++ {
			outL[i] = 0
			outR[i] = 0
		}
		return nil
	}
	lBuf := g.pool.CopyOut(l)
	copy(outL, lBuf[:n])
	if rHandle, hasR := g.outputBuffers[bufKey{g.outputNode, port.AudioOutput1}]; hasR {
		copy(outR, g.pool.CopyOut(rHandle)[:n])
	} else {
		copy(outR, lBuf[:n])
	}
	return nil
}

func (g *AudioGraph) buildInputs(id port.NodeID, n Node, count int) map[port.ID][]port.Source {
	declared := n.Ports()
	inputs := make(map[port.ID][]port.Source, len(declared))
	for p, isOutput := range declared {
		if isOutput {
			continue
		}
		inputs[p] = nil
	}

	for _, ic := range g.inputConnections[id] {
		src := port.Source{
			Buffer:         g.pool.CopyOut(ic.sourceHandle)[:count],
			Amount:         ic.amount,
			Type:           ic.modType,
			Transformation: ic.transformation,
		}
		inputs[ic.port] = append(inputs[ic.port], src)
	}

	if _, wantsGate := declared[port.Gate]; wantsGate && len(inputs[port.Gate]) == 0 {
		inputs[port.Gate] = []port.Source{{Buffer: g.pool.CopyOut(g.gateBufferIdx)[:count], Amount: 1, Type: port.Additive}}
	}
	if _, wantsFreq := declared[port.GlobalFrequency]; wantsFreq && len(inputs[port.GlobalFrequency]) == 0 {
		inputs[port.GlobalFrequency] = []port.Source{{Buffer: g.pool.CopyOut(g.freqBufferIdx)[:count], Amount: 1, Type: port.Additive}}
	}
	if _, wantsGlobalGate := declared[port.GlobalGate]; wantsGlobalGate && len(inputs[port.GlobalGate]) == 0 {
		inputs[port.GlobalGate] = []port.Source{{Buffer: g.pool.CopyOut(g.gateBufferIdx)[:count], Amount: 1, Type: port.Additive}}
	}
	return inputs
}

func (g *AudioGraph) buildOutputs(id port.NodeID, n Node) map[port.ID][]float32 {
	declared := n.Ports()
	outputs := make(map[port.ID][]float32, len(declared))
	for p, isOutput := range declared {
		if !isOutput {
			continue
		}
		h := g.outputBuffers[bufKey{id, p}]
		outputs[p] = g.pool.Mut(h)[:g.blockSize]
	}
	return outputs
}

// DeleteNode removes a node and every connection touching it, releases its
// buffers, and renumbers all NodeIds above the deleted index. The
// global/output designee nodes may not be deleted.
func (g *AudioGraph) DeleteNode(id port.NodeID) error {
	if !g.nodeExists(id) {
		return fmt.Errorf("graph: unknown node %d", id)
	}
	if g.haveGlobals && (id == g.globalFrequencyNode || id == g.globalVelocityNode || id == g.globalGatemixerNode) {
		return fmt.Errorf("graph: node %d is a protected global node and cannot be deleted", id)
	}
	if g.haveOutput && id == g.outputNode {
		return fmt.Errorf("graph: node %d is the protected output node and cannot be deleted", id)
	}

	for p := range g.nodes[id].node.Ports() {
		if h, ok := g.outputBuffers[bufKey{id, p}]; ok {
			g.pool.Release(h)
			delete(g.outputBuffers, bufKey{id, p})
		}
	}

	newOrder := g.connOrder[:0:0]
	for _, key := range g.connOrder {
		if key.FromNode == id || key.ToNode == id {
			delete(g.connections, key)
			continue
		}
		newOrder = append(newOrder, key)
	}
	g.connOrder = newOrder

	g.nodes = append(g.nodes[:id], g.nodes[id+1:]...)

	renumber := func(n port.NodeID) port.NodeID {
		if n > id {
			return n - 1
		}
		return n
	}

	newConns := make(map[port.ConnectionKey]port.Connection, len(g.connections))
	newConnOrder := make([]port.ConnectionKey, 0, len(g.connOrder))
	for _, key := range g.connOrder {
		conn := g.connections[key]
		newKey := port.ConnectionKey{
			FromNode: renumber(key.FromNode),
			FromPort: key.FromPort,
			ToNode:   renumber(key.ToNode),
			ToPort:   key.ToPort,
		}
		conn.Key = newKey
		newConns[newKey] = conn
		newConnOrder = append(newConnOrder, newKey)
	}
	g.connections = newConns
	g.connOrder = newConnOrder

	newBufs := make(map[bufKey]pool.Handle, len(g.outputBuffers))
	for k, h := range g.outputBuffers {
		newBufs[bufKey{renumber(k.node), k.port}] = h
	}
	g.outputBuffers = newBufs

	for i := range g.nodes {
		g.nodes[i].id = renumber(g.nodes[i].id)
	}

	if g.haveGlobals {
		g.globalFrequencyNode = renumber(g.globalFrequencyNode)
		g.globalVelocityNode = renumber(g.globalVelocityNode)
		g.globalGatemixerNode = renumber(g.globalGatemixerNode)
	}
	if g.haveOutput {
		g.outputNode = renumber(g.outputNode)
	}

	g.rebuildInputConnections()
	return g.recomputeOrder()
}

func (g *AudioGraph) nodeExists(id port.NodeID) bool {
	_, ok := g.node(id)
	return ok
}

// Clear empties the graph, including global designations, releasing every
// acquired buffer back to the pool.
func (g *AudioGraph) Clear() {
	g.pool.ReleaseAll()
	g.nodes = nil
	g.connections = make(map[port.ConnectionKey]port.Connection)
	g.connOrder = nil
	g.outputBuffers = make(map[bufKey]pool.Handle)
	g.inputConnections = make(map[port.NodeID][]inputConn)
	g.processingOrder = nil
	g.haveGlobals = false
	g.haveOutput = false
	g.gateBufferIdx = g.pool.Acquire()
	g.freqBufferIdx = g.pool.Acquire()
}

// NodeAt returns the node stored at id, for callers that need to downcast
// for typed parameter updates.
func (g *AudioGraph) NodeAt(id port.NodeID) (Node, bool) { return g.node(id) }

// NumNodes returns the current node count.
func (g *AudioGraph) NumNodes() int { return len(g.nodes) }
