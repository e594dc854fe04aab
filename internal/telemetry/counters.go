package telemetry

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Well-known counter keys recorded by the movement subsystem.
const (
	KeyStepsDispatched  = "movement_steps_dispatched_total"
	KeyTurnsDispatched  = "movement_turns_dispatched_total"
	KeyStepsConfirmed   = "movement_steps_confirmed_total"
	KeyStepsCancelled   = "movement_steps_cancelled_total"
	KeyResends          = "movement_too_early_resends_total"
	KeyResyncs          = "movement_resyncs_total"
	KeyDrift            = "movement_drift_total"
	KeyPathSearches     = "movement_path_searches_total"
	KeyPathFailures     = "movement_path_failures_total"
	KeyDispatchDropped  = "movement_dispatch_dropped_total"
	KeyWorkerQueueDepth = "worker_queue_depth"
	KeyWorkerPanics     = "worker_panics_total"
	KeyNetworkSendDrops = "network_send_drops_total"
	KeyPingMillis       = "network_ping_millis"
)

// Counters is a concurrency-safe Metrics implementation keyed by name.
type Counters struct {
	mu     sync.RWMutex
	values map[string]*atomic.Uint64
}

// NewCounters constructs an empty counter set.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]*atomic.Uint64)}
}

func (c *Counters) slot(key string) *atomic.Uint64 {
	c.mu.RLock()
	v, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		return v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok = c.values[key]; ok {
		return v
	}
	v = new(atomic.Uint64)
	c.values[key] = v
	return v
}

// Add implements Metrics.
func (c *Counters) Add(key string, delta uint64) {
	if c == nil || key == "" {
		return
	}
	c.slot(key).Add(delta)
}

// Store implements Metrics.
func (c *Counters) Store(key string, value uint64) {
	if c == nil || key == "" {
		return
	}
	c.slot(key).Store(value)
}

// Value returns the current value of key.
func (c *Counters) Value(key string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.values[key]; ok {
		return v.Load()
	}
	return 0
}

// Snapshot returns a copy of every counter.
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v.Load()
	}
	return out
}

// Keys returns the recorded counter names in sorted order.
func (c *Counters) Keys() []string {
	snapshot := c.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
