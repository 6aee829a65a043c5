package core

import "sync/atomic"

// Generation issues monotonically increasing tokens for state-changing
// requests whose responses can arrive out of order. A response is applied
// only if its token is still the latest issued one; anything older is
// discarded as stale.
type Generation struct {
	n atomic.Int64
}

// Next issues a new token and makes it the latest.
func (g *Generation) Next() int64 {
	return g.n.Add(1)
}

// Current returns the latest issued token.
func (g *Generation) Current() int64 {
	return g.n.Load()
}

// Latest reports whether token is still the most recently issued one.
func (g *Generation) Latest(token int64) bool {
	return g.n.Load() == token
}
