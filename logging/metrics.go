package logging

import "sync"

// Metrics is a process-wide counter registry shared by the simulation and
// network layers. Keys are dotted names, e.g. "collision.pairs_resolved".
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]uint64
}

func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]uint64)}
}

func (m *Metrics) TelemetryAdd(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	m.counters[key] += delta
	m.mu.Unlock()
}

func (m *Metrics) TelemetryStore(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	m.counters[key] = value
	m.mu.Unlock()
}

func (m *Metrics) TelemetryValue(key string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[key]
}

// Snapshot copies the current counter values for a diagnostics endpoint.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	copied := make(map[string]uint64, len(m.counters))
	for k, v := range m.counters {
		copied[k] = v
	}
	return copied
}
