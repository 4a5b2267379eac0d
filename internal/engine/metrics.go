package engine

import "sync"

// Counters is a point-in-time snapshot of the engine's in-memory counters.
// They reset on restart; durable numbers live in the store.
type Counters struct {
	Checks          int64
	Accepted        int64
	ExactRejections int64
	FuzzyRejections int64
	TopicRejections int64
	StoreErrors     int64
}

// Metrics tracks validation activity under a mutex. The engine is called
// from arbitrary producer goroutines, so every bump takes the lock.
type Metrics struct {
	mu       sync.Mutex
	counters Counters
}

func (m *Metrics) incChecks()          { m.bump(func(c *Counters) { c.Checks++ }) }
func (m *Metrics) incAccepted()        { m.bump(func(c *Counters) { c.Accepted++ }) }
func (m *Metrics) incExactRejections() { m.bump(func(c *Counters) { c.ExactRejections++ }) }
func (m *Metrics) incFuzzyRejections() { m.bump(func(c *Counters) { c.FuzzyRejections++ }) }
func (m *Metrics) incTopicRejections() { m.bump(func(c *Counters) { c.TopicRejections++ }) }
func (m *Metrics) incStoreErrors()     { m.bump(func(c *Counters) { c.StoreErrors++ }) }

func (m *Metrics) bump(f func(*Counters)) {
	m.mu.Lock()
	f(&m.counters)
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters
}
