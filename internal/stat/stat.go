package stat

import (
	"math"

	"github.com/udisondev/bodysim/internal/event"
)

// Change is delivered by BaseValueChanged and ValueChanged.
type Change struct {
	Stat *Stat
	Old  float64
	New  float64
}

// ModifierChange is delivered by the modifier events.
type ModifierChange struct {
	Stat     *Stat
	Modifier Modifier
}

// Stat is a named value with a modifier stack.
// FinalValue is always recomputed from the base value and the current
// modifiers; it is never set directly.
//
// Not safe for concurrent use. A stat belongs to one simulation goroutine.
type Stat struct {
	id string

	baseValue float64
	minValue  float64
	maxValue  float64
	overCap   bool
	underCap  bool

	finalValue float64

	mods  map[string]Modifier
	order []string // insertion order of mods keys

	baseChanged     event.Event[Change]
	valueChanged    event.Event[Change]
	modifierAdded   event.Event[ModifierChange]
	modifierUpdated event.Event[ModifierChange]
	modifierRemoved event.Event[ModifierChange]
}

// New creates a stat clamped to [min, max] (OverCap and UnderCap set).
func New(id string, base, min, max float64) *Stat {
	return NewWithCaps(id, base, min, max, true, true)
}

// NewWithCaps creates a stat with explicit cap flags. base is clamped once
// against the enabled caps only.
func NewWithCaps(id string, base, min, max float64, overCap, underCap bool) *Stat {
	s := &Stat{
		id:       id,
		minValue: min,
		maxValue: max,
		overCap:  overCap,
		underCap: underCap,
		mods:     make(map[string]Modifier),
	}
	s.baseValue = s.clampBase(base)
	s.finalValue = s.CalculateFinalValue()
	return s
}

// NewUnbounded creates a stat without Min/Max clamping.
func NewUnbounded(id string, base float64) *Stat {
	s := &Stat{
		id:        id,
		baseValue: base,
		minValue:  math.Inf(-1),
		maxValue:  math.Inf(1),
		mods:      make(map[string]Modifier),
	}
	s.finalValue = s.CalculateFinalValue()
	return s
}

func (s *Stat) ID() string         { return s.id }
func (s *Stat) BaseValue() float64 { return s.baseValue }
func (s *Stat) MinValue() float64  { return s.minValue }
func (s *Stat) MaxValue() float64  { return s.maxValue }
func (s *Stat) OverCap() bool      { return s.overCap }
func (s *Stat) UnderCap() bool     { return s.underCap }

// FinalValue returns the cached result of CalculateFinalValue.
func (s *Stat) FinalValue() float64 { return s.finalValue }

// Bounds returns the clamping parameters.
func (s *Stat) Bounds() Bounds {
	return Bounds{Min: s.minValue, Max: s.maxValue, OverCap: s.overCap, UnderCap: s.underCap}
}

// OnBaseValueChanged fires after SetBaseValue changed the base value.
func (s *Stat) OnBaseValueChanged() *event.Event[Change] { return &s.baseChanged }

// OnValueChanged fires whenever FinalValue changes.
func (s *Stat) OnValueChanged() *event.Event[Change] { return &s.valueChanged }

// OnModifierAdded fires on the first insertion of a modifier id.
func (s *Stat) OnModifierAdded() *event.Event[ModifierChange] { return &s.modifierAdded }

// OnModifierUpdated fires when an existing modifier id gets a new value or type.
func (s *Stat) OnModifierUpdated() *event.Event[ModifierChange] { return &s.modifierUpdated }

// OnModifierRemoved fires after RemoveModifier removed a modifier.
func (s *Stat) OnModifierRemoved() *event.Event[ModifierChange] { return &s.modifierRemoved }

// SetBaseValue sets the base value, clamped by the cap flags, and recomputes.
func (s *Stat) SetBaseValue(v float64) {
	v = s.clampBase(v)
	old := s.baseValue
	if v == old {
		return
	}
	s.baseValue = v
	s.baseChanged.Emit(Change{Stat: s, Old: old, New: v})
	s.recompute()
}

// SetMinValue changes the lower bound, re-clamps the base and recomputes.
func (s *Stat) SetMinValue(v float64) {
	if v == s.minValue {
		return
	}
	s.minValue = v
	s.reclamp()
}

// SetMaxValue changes the upper bound, re-clamps the base and recomputes.
func (s *Stat) SetMaxValue(v float64) {
	if v == s.maxValue {
		return
	}
	s.maxValue = v
	s.reclamp()
}

// SetOverCap toggles clamping to MaxValue.
func (s *Stat) SetOverCap(v bool) {
	if v == s.overCap {
		return
	}
	s.overCap = v
	s.reclamp()
}

// SetUnderCap toggles clamping to MinValue.
func (s *Stat) SetUnderCap(v bool) {
	if v == s.underCap {
		return
	}
	s.underCap = v
	s.reclamp()
}

// SetModifier inserts or replaces the modifier with m.ID.
// Setting a modifier identical to the stored one does nothing.
func (s *Stat) SetModifier(m Modifier) {
	prev, exists := s.mods[m.ID]
	if exists && prev == m {
		return
	}
	s.mods[m.ID] = m
	if !exists {
		s.order = append(s.order, m.ID)
	}
	s.recompute()
	if exists {
		s.modifierUpdated.Emit(ModifierChange{Stat: s, Modifier: m})
	} else {
		s.modifierAdded.Emit(ModifierChange{Stat: s, Modifier: m})
	}
}

// RemoveModifier removes the modifier with id. Returns false if absent.
func (s *Stat) RemoveModifier(id string) bool {
	m, ok := s.mods[id]
	if !ok {
		return false
	}
	delete(s.mods, id)
	for i, k := range s.order {
		if k == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.recompute()
	s.modifierRemoved.Emit(ModifierChange{Stat: s, Modifier: m})
	return true
}

// Modifier returns the modifier with id.
func (s *Stat) Modifier(id string) (Modifier, bool) {
	m, ok := s.mods[id]
	return m, ok
}

// Modifiers returns all modifiers in insertion order.
func (s *Stat) Modifiers() []Modifier {
	out := make([]Modifier, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.mods[id])
	}
	return out
}

// ModifierCount returns the number of modifiers.
func (s *Stat) ModifierCount() int {
	return len(s.order)
}

// CalculateFinalValue evaluates the modifier stack (see Calculate).
// Insertion order decides between several overrides: the most recently
// inserted id wins, re-setting an id keeps its original position.
func (s *Stat) CalculateFinalValue() float64 {
	return Calculate(s.baseValue, s.Modifiers(), s.Bounds())
}

// Clone deep-copies value, bounds and modifiers. Subscribers are not copied.
func (s *Stat) Clone() *Stat {
	c := &Stat{
		id:         s.id,
		baseValue:  s.baseValue,
		minValue:   s.minValue,
		maxValue:   s.maxValue,
		overCap:    s.overCap,
		underCap:   s.underCap,
		finalValue: s.finalValue,
		mods:       make(map[string]Modifier, len(s.mods)),
		order:      make([]string, len(s.order)),
	}
	copy(c.order, s.order)
	for k, v := range s.mods {
		c.mods[k] = v
	}
	return c
}

func (s *Stat) clampBase(v float64) float64 {
	if s.overCap && v > s.maxValue {
		v = s.maxValue
	}
	if s.underCap && v < s.minValue {
		v = s.minValue
	}
	return v
}

func (s *Stat) reclamp() {
	if v := s.clampBase(s.baseValue); v != s.baseValue {
		old := s.baseValue
		s.baseValue = v
		s.baseChanged.Emit(Change{Stat: s, Old: old, New: v})
	}
	s.recompute()
}

func (s *Stat) recompute() {
	old := s.finalValue
	s.finalValue = s.CalculateFinalValue()
	if s.finalValue != old {
		s.valueChanged.Emit(Change{Stat: s, Old: old, New: s.finalValue})
	}
}
