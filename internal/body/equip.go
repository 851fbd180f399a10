package body

import (
	"fmt"
	"strconv"

	"github.com/udisondev/bodysim/internal/stat"
)

// Equip puts item into slot, moving it off any previous holder and
// unequipping whatever occupied the slot. An empty slot means HoldSlot,
// which is always available and registers no coverage.
func (p *Part) Equip(item *Item, slot string) error {
	if item == nil {
		return fmt.Errorf("equipping nil item on %q", p.name)
	}
	if slot == "" {
		slot = HoldSlot
	}
	if slot != HoldSlot && !p.HasSlot(slot) {
		return fmt.Errorf("equipping %q on %q slot %q: %w", item.ID, p.name, slot, ErrUnknownSlot)
	}
	if item.holder == p && item.slot == slot {
		return nil
	}
	p.AddSlot(slot)
	if cur := p.slots[slot]; cur != nil {
		p.Unequip(cur)
	}
	if item.holder != nil {
		item.holder.Unequip(item)
	}

	p.slots[slot] = item
	item.holder = p
	item.slot = slot
	if p.body != nil {
		p.body.OnEquipped(p, item)
	}
	p.equipped.Emit(EquipmentChange{Part: p, Item: item, Slot: slot})
	return nil
}

// Unequip removes item from this part. Returns false if p does not hold it.
func (p *Part) Unequip(item *Item) bool {
	if item == nil || item.holder != p {
		return false
	}
	slot := item.slot
	if p.body != nil {
		p.body.OnUnequip(p, item)
	}
	p.slots[slot] = nil
	item.holder = nil
	item.slot = ""
	p.unequipped.Emit(EquipmentChange{Part: p, Item: item, Slot: slot})
	return true
}

// modifierID is the deterministic owner modifier id of the idx-th
// contribution of this part to statID.
func (p *Part) modifierID(statID string, idx int) string {
	path := p.Path()
	if path == "" {
		path = "."
	}
	return path + "#" + statID + "#" + strconv.Itoa(idx)
}

// UpdateStatModifiers pushes every owner-facing contribution, interpolated
// by health fraction, onto the owner's stats. Stats the owner lacks are
// skipped.
func (p *Part) UpdateStatModifiers() {
	o := p.owner()
	if o == nil {
		return
	}
	for _, id := range p.ProvidedStatIDs() {
		st := o.GetStat(id)
		if st == nil {
			continue
		}
		for i, ps := range p.providedStats[id] {
			if !ps.AppliesToOwner {
				continue
			}
			st.SetModifier(stat.Modifier{
				ID:    p.modifierID(id, i),
				Value: ps.ValueAt(p.HealthFraction(ps.StandaloneOnly)),
				Type:  ps.Operation,
			})
		}
	}
}

// RemoveStatModifiers removes what UpdateStatModifiers pushed.
func (p *Part) RemoveStatModifiers() {
	o := p.owner()
	if o == nil {
		return
	}
	for _, id := range p.ProvidedStatIDs() {
		st := o.GetStat(id)
		if st == nil {
			continue
		}
		for i, ps := range p.providedStats[id] {
			if ps.AppliesToOwner {
				st.RemoveModifier(p.modifierID(id, i))
			}
		}
	}
}

// Contributions returns every contribution of the part to statID at the
// current health, owner-facing or not.
func (p *Part) Contributions(statID string) []stat.Modifier {
	list := p.providedStats[statID]
	out := make([]stat.Modifier, 0, len(list))
	for i, ps := range list {
		out = append(out, stat.Modifier{
			ID:    p.modifierID(statID, i),
			Value: ps.ValueAt(p.HealthFraction(ps.StandaloneOnly)),
			Type:  ps.Operation,
		})
	}
	return out
}
