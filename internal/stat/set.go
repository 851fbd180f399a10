package stat

import (
	"slices"
	"strings"
)

// Holder is anything exposing stats by id.
type Holder interface {
	GetStat(id string) *Stat
	// CreateStat registers s and returns the live stat for s.ID().
	// If a stat with that id already exists it is returned unchanged.
	CreateStat(s *Stat) *Stat
}

// Set is a map-backed Holder. Zero value is ready to use.
// Embed it by value to give a type a stat block.
type Set struct {
	stats map[string]*Stat
}

var _ Holder = (*Set)(nil)

// GetStat returns the stat with id or nil.
func (s *Set) GetStat(id string) *Stat {
	return s.stats[id]
}

// CreateStat adds st unless its id is taken, and returns the stored stat.
func (s *Set) CreateStat(st *Stat) *Stat {
	if existing, ok := s.stats[st.ID()]; ok {
		return existing
	}
	if s.stats == nil {
		s.stats = make(map[string]*Stat)
	}
	s.stats[st.ID()] = st
	return st
}

// RemoveStat drops the stat with id. Returns false if absent.
func (s *Set) RemoveStat(id string) bool {
	if _, ok := s.stats[id]; !ok {
		return false
	}
	delete(s.stats, id)
	return true
}

// Stats returns all stats sorted by id.
func (s *Set) Stats() []*Stat {
	out := make([]*Stat, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b *Stat) int { return strings.Compare(a.ID(), b.ID()) })
	return out
}

// Len returns the number of stats.
func (s *Set) Len() int {
	return len(s.stats)
}
