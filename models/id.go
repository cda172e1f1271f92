package models

import "sync/atomic"

// SequentialIDGenerator generates increasing ids starting at 1. Ids are never
// reused, so a destroyed renderer id cannot name a newer renderer.
type SequentialIDGenerator struct {
	lastID atomic.Uint32
}

// New returns the next id.
func (g *SequentialIDGenerator) New() uint32 {
	return g.lastID.Add(1)
}
