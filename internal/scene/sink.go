package scene

import (
	"sort"
	"sync"

	"github.com/Faultbox/lightgraph/pkg/math"
)

// Sink receives the per-node energy computed by propagation, addressed by
// object ID and stable node ID. Tone mapping is the sink's business.
type Sink interface {
	SetNodeEnergy(objectID string, nodeID int, energy math.Vec3)
}

// EnergyMap is a Sink that keeps the latest energy per object and node.
type EnergyMap struct {
	mu      sync.RWMutex
	objects map[string]map[int]math.Vec3
}

// NewEnergyMap creates an empty EnergyMap.
func NewEnergyMap() *EnergyMap {
	return &EnergyMap{objects: make(map[string]map[int]math.Vec3)}
}

// SetNodeEnergy implements Sink.
func (m *EnergyMap) SetNodeEnergy(objectID string, nodeID int, energy math.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nodes, ok := m.objects[objectID]
	if !ok {
		nodes = make(map[int]math.Vec3)
		m.objects[objectID] = nodes
	}
	nodes[nodeID] = energy
}

// Energy returns the stored energy of one node.
func (m *EnergyMap) Energy(objectID string, nodeID int) (math.Vec3, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.objects[objectID][nodeID]
	return e, ok
}

// Total returns the summed energy of all nodes of an object.
func (m *EnergyMap) Total(objectID string) math.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum math.Vec3
	for _, e := range m.objects[objectID] {
		sum = sum.Add(e)
	}
	return sum
}

// NodeCount returns how many nodes of an object received a value.
func (m *EnergyMap) NodeCount(objectID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects[objectID])
}

// ObjectIDs returns the IDs of all objects with energy, sorted.
func (m *EnergyMap) ObjectIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.objects))
	for id := range m.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
