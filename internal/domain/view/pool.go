package view

import (
	"sync"
	"time"
)

// Pool is the bounded warm set of deactivated units. Eviction order is
// oldest-pooled-first; capacity zero disables pooling entirely.
type Pool struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*unit
	order    []string // account ids, oldest pooled first
}

// NewPool creates a pool with the given capacity.
func NewPool(capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool{
		capacity: capacity,
		entries:  make(map[string]*unit),
	}
}

// Put parks a deactivated unit. When the pool is full the oldest
// pooled unit is returned for destruction; when capacity is zero the
// offered unit itself is returned.
func (p *Pool) Put(u *unit) (evicted *unit) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.capacity == 0 {
		return u
	}
	if prev, ok := p.entries[u.view.AccountID]; ok {
		// Should not happen with the one-unit-per-account invariant,
		// but never leak a surface if it does.
		evicted = prev
		p.remove(u.view.AccountID)
	}
	if len(p.entries) >= p.capacity {
		oldest := p.order[0]
		evicted = p.entries[oldest]
		p.remove(oldest)
	}

	u.view.PooledAt = time.Now()
	p.entries[u.view.AccountID] = u
	p.order = append(p.order, u.view.AccountID)
	return evicted
}

// Take removes and returns the pooled unit for an account.
func (p *Pool) Take(accountID string) (*unit, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.entries[accountID]
	if !ok {
		return nil, false
	}
	p.remove(accountID)
	return u, true
}

// SweepStale removes and returns every unit pooled longer than maxAge.
func (p *Pool) SweepStale(maxAge time.Duration) []*unit {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var stale []*unit
	for _, id := range append([]string(nil), p.order...) {
		u := p.entries[id]
		if u.view.PooledAt.Before(cutoff) {
			stale = append(stale, u)
			p.remove(id)
		}
	}
	return stale
}

// Drain removes and returns every pooled unit.
func (p *Pool) Drain() []*unit {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*unit, 0, len(p.entries))
	for _, id := range p.order {
		out = append(out, p.entries[id])
	}
	p.entries = make(map[string]*unit)
	p.order = nil
	return out
}

// Get returns the pooled unit without removing it.
func (p *Pool) Get(accountID string) (*unit, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.entries[accountID]
	return u, ok
}

// FreeSlots reports how many more units the pool can hold.
func (p *Pool) FreeSlots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity - len(p.entries)
}

// Len returns the number of pooled units.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Accounts returns pooled account ids, oldest first.
func (p *Pool) Accounts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

// remove must be called with the lock held.
func (p *Pool) remove(accountID string) {
	delete(p.entries, accountID)
	for i, id := range p.order {
		if id == accountID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}
