// Package stale discards asynchronous results that resolve after the parameters
// they were issued for have been superseded.
package stale

import "sync"

// Ticket identifies one issued request.
type Ticket[K comparable] struct {
	Key K
	gen uint64
}

// Guard tracks the most recently issued request. A resolution is accepted only
// when its ticket is still the latest one issued; older tickets are stale even
// when they carry the same key.
type Guard[K comparable] struct {
	mu      sync.Mutex
	gen     uint64
	current K
	issued  bool
}

// Issue records key as the current parameters and returns a ticket for the
// request made with them.
func (g *Guard[K]) Issue(key K) Ticket[K] {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	g.current = key
	g.issued = true
	return Ticket[K]{Key: key, gen: g.gen}
}

// Current reports the parameters of the latest issued request.
func (g *Guard[K]) Current() (K, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current, g.issued
}

// Accept runs apply under the guard's lock if t is still current and reports
// whether it ran. State mutation inside apply cannot interleave with a newer Issue.
func (g *Guard[K]) Accept(t Ticket[K], apply func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.issued || t.gen != g.gen || t.Key != g.current {
		return false
	}
	if apply != nil {
		apply()
	}
	return true
}

// Valid reports whether t is still current without applying anything.
func (g *Guard[K]) Valid(t Ticket[K]) bool {
	return g.Accept(t, nil)
}
