package body

import (
	"github.com/google/uuid"

	"github.com/udisondev/bodysim/internal/stat"
)

// HoldSlot is the reserved slot for holding (not wearing) an item.
const HoldSlot = "hold"

// Item is equipment that can occupy one slot of one part at a time.
type Item struct {
	ID       string
	Name     string
	Coverage []string // names of the parts it protects when worn

	// StatModifiers are set on the owner's stats while the item is held or
	// worn, keyed by stat id.
	StatModifiers map[string][]stat.Modifier
	// DamageModifiers apply to incoming damage on covered parts, keyed by
	// damage type id (ancestor types match too).
	DamageModifiers map[string][]stat.Modifier

	holder *Part
	slot   string
}

// NewItem creates an item. An empty id gets a random uuid.
func NewItem(id, name string, coverage ...string) *Item {
	if id == "" {
		id = uuid.NewString()
	}
	return &Item{
		ID:              id,
		Name:            name,
		Coverage:        coverage,
		StatModifiers:   make(map[string][]stat.Modifier),
		DamageModifiers: make(map[string][]stat.Modifier),
	}
}

// Holder returns the part holding the item, nil if unequipped.
func (it *Item) Holder() *Part { return it.holder }

// Slot returns the slot the item occupies, "" if unequipped.
func (it *Item) Slot() string { return it.slot }

// IsWorn reports whether the item occupies a slot other than HoldSlot.
func (it *Item) IsWorn() bool { return it.holder != nil && it.slot != HoldSlot }

// Covers reports whether the item protects a part named name.
func (it *Item) Covers(name string) bool {
	for _, c := range it.Coverage {
		if c == name {
			return true
		}
	}
	return false
}

// AddStatModifier adds a modifier applied to the owner's stat while equipped.
func (it *Item) AddStatModifier(statID string, m stat.Modifier) {
	if it.StatModifiers == nil {
		it.StatModifiers = make(map[string][]stat.Modifier)
	}
	it.StatModifiers[statID] = append(it.StatModifiers[statID], m)
}

// AddDamageModifier adds a modifier for incoming damage of damageTypeID on
// covered parts.
func (it *Item) AddDamageModifier(damageTypeID string, m stat.Modifier) {
	if it.DamageModifiers == nil {
		it.DamageModifiers = make(map[string][]stat.Modifier)
	}
	it.DamageModifiers[damageTypeID] = append(it.DamageModifiers[damageTypeID], m)
}

func (it *Item) ownerModifierID(m stat.Modifier) string {
	return it.ID + "/" + m.ID
}
