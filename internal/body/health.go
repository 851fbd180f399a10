package body

import (
	"fmt"
	"math"
	"slices"

	"github.com/udisondev/bodysim/internal/injury"
	"github.com/udisondev/bodysim/internal/stat"
)

// HealthStandalone is MaxHealth minus the injury severities, ignoring the
// parent. An instakill injury zeroes it.
func (p *Part) HealthStandalone() float64 {
	total := 0.0
	for _, inj := range p.injuries {
		if inj.IsInstakill() {
			return 0
		}
		total += inj.Severity
	}
	return math.Max(0, p.maxHealth-total)
}

// Health is 0 when the parent is dead, HealthStandalone otherwise.
func (p *Part) Health() float64 {
	if p.parent != nil && p.parent.Health() <= 0 {
		return 0
	}
	return p.HealthStandalone()
}

// IsAlive reports Health > 0.
func (p *Part) IsAlive() bool { return p.Health() > 0 }

// HealthFraction returns health over MaxHealth in [0, 1].
func (p *Part) HealthFraction(standalone bool) float64 {
	if p.maxHealth <= 0 {
		return 0
	}
	h := p.Health()
	if standalone {
		h = p.HealthStandalone()
	}
	return min(max(h/p.maxHealth, 0), 1)
}

// Pain sums injury pain scaled by PainMultiplier.
func (p *Part) Pain() float64 {
	total := 0.0
	for _, inj := range p.injuries {
		total += inj.Pain()
	}
	return total * p.painMultiplier
}

// Bleeding sums blood loss per second of the part's injuries.
func (p *Part) Bleeding() float64 {
	total := 0.0
	for _, inj := range p.injuries {
		total += inj.Bleeding()
	}
	return total
}

// AddInjury records inj and runs the death cascade if the subtree changed
// state.
func (p *Part) AddInjury(inj *injury.Injury) {
	if inj == nil {
		return
	}
	before := p.aliveStates()
	p.addInjury(inj)
	p.afterInjuryChange(before)
}

// RemoveInjury removes inj (by identity, else the first equal injury).
func (p *Part) RemoveInjury(inj *injury.Injury) bool {
	idx := slices.Index(p.injuries, inj)
	if idx < 0 {
		idx = slices.IndexFunc(p.injuries, inj.Equal)
	}
	if idx < 0 {
		return false
	}
	before := p.aliveStates()
	p.removeInjuryAt(idx)
	p.afterInjuryChange(before)
	return true
}

// ClearInjuries removes every injury.
func (p *Part) ClearInjuries() {
	if len(p.injuries) == 0 {
		return
	}
	before := p.aliveStates()
	for len(p.injuries) > 0 {
		p.removeInjuryAt(len(p.injuries) - 1)
	}
	p.afterInjuryChange(before)
}

func (p *Part) addInjury(inj *injury.Injury) {
	p.injuries = append(p.injuries, inj)
	p.injuryAdded.Emit(InjuryChange{Part: p, Injury: inj})
	for _, f := range p.enabledFeatures() {
		if h, ok := f.(InjuryHook); ok {
			h.OnInjured(p, inj)
		}
	}
}

func (p *Part) removeInjuryAt(idx int) {
	inj := p.injuries[idx]
	p.injuries = slices.Delete(p.injuries, idx, idx+1)
	p.injuryRemoved.Emit(InjuryChange{Part: p, Injury: inj})
}

func (p *Part) aliveStates() []bool {
	sub := p.Subtree()
	out := make([]bool, len(sub))
	for i, n := range sub {
		out[i] = n.IsAlive()
	}
	return out
}

// afterInjuryChange fires died/revived for every subtree node whose state
// flipped and recomputes owner modifiers. The subtree must be the same one
// aliveStates was taken on.
func (p *Part) afterInjuryChange(before []bool) {
	sub := p.Subtree()
	for i, n := range sub {
		if i >= len(before) {
			break
		}
		alive := n.IsAlive()
		switch {
		case before[i] && !alive:
			n.onDied()
		case !before[i] && alive:
			n.onRevived()
		}
	}
	if !p.authoritative() {
		return
	}
	for _, n := range sub {
		n.UpdateStatModifiers()
	}
}

func (p *Part) onDied() {
	p.died.Emit(p)
	for _, f := range slices.Clone(p.features) {
		if h, ok := f.(DeathHook); ok && f.Enabled() {
			h.OnPartDied(p)
		}
	}
	if p.body != nil {
		p.body.onPartDied(p)
	}
}

func (p *Part) onRevived() {
	p.revived.Emit(p)
	if p.body != nil {
		p.body.onPartRevived(p)
	}
}

// Damage applies incoming damage and returns what was applied:
//
//  1. collect damage modifiers for the source type chain, from the part,
//     from items covering it and from DamageModifierHook features;
//  2. fold them onto amount with stat.Calculate;
//  3. pass the result through DamageHook features, stopping at <= 0;
//  4. return 0 if nothing is left;
//  5. resolve an injury and record it.
func (p *Part) Damage(src injury.Source, amount float64) float64 {
	features := p.enabledFeatures()

	mods := p.incomingDamageModifiers(src, amount, features)
	damage := amount
	if len(mods) > 0 {
		damage = stat.Calculate(amount, mods, stat.Unbounded)
	}

	for _, f := range features {
		h, ok := f.(DamageHook)
		if !ok || damage <= 0 {
			continue
		}
		next, why := h.ModifyReceivingDamage(p, src, damage)
		if next != damage {
			p.log(fmt.Sprintf("%s: %s damage %.2f -> %.2f: %s", p.name, f.ID(), damage, next, why))
			damage = next
		}
	}
	if damage <= 0 {
		return 0
	}

	inj := src.Type.Resolve(src, damage, p, p.defaultInjuryType())
	if inj != nil && inj.Severity > 0 {
		p.AddInjury(inj)
	}
	return damage
}

func (p *Part) incomingDamageModifiers(src injury.Source, amount float64, features []Feature) []stat.Modifier {
	var mods []stat.Modifier
	if src.Type != nil {
		var covering []*Item
		if p.body != nil {
			covering = p.body.CoveringItems(p.name)
		}
		for _, dt := range src.Type.Chain() {
			mods = append(mods, p.damageModifiers[dt.ID]...)
			for _, it := range covering {
				mods = append(mods, it.DamageModifiers[dt.ID]...)
			}
		}
	}
	for _, f := range features {
		if h, ok := f.(DamageModifierHook); ok {
			mods = append(mods, h.ModifyReceivingDamageModifiers(p, src, amount)...)
		}
	}
	return mods
}

func (p *Part) defaultInjuryType() *injury.Type {
	if p.body == nil {
		return injury.Generic
	}
	return p.body.registry.Default()
}

// Tick advances injuries by dt seconds, runs TickHook features and recurses
// over a snapshot of the children.
func (p *Part) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	if len(p.injuries) > 0 {
		p.tickInjuries(dt)
	}
	for _, f := range slices.Clone(p.features) {
		if h, ok := f.(TickHook); ok && f.Enabled() {
			h.OnTick(p)
		}
	}
	for _, c := range slices.Clone(p.children) {
		c.Tick(dt)
	}
}

func (p *Part) tickInjuries(dt float64) {
	before := p.aliveStates()
	changed := false
	var spawned []*injury.Injury
	for _, inj := range slices.Clone(p.injuries) {
		sev := inj.Severity
		created, converted := inj.Tick(dt, p)
		if converted {
			p.injuryConverted.Emit(InjuryChange{Part: p, Injury: inj})
		}
		if converted || len(created) > 0 || inj.Severity != sev {
			changed = true
		}
		spawned = append(spawned, created...)
	}
	for i := len(p.injuries) - 1; i >= 0; i-- {
		if p.injuries[i].Severity <= 0 {
			p.removeInjuryAt(i)
		}
	}
	for _, inj := range spawned {
		p.addInjury(inj)
	}
	if changed {
		p.afterInjuryChange(before)
	}
}
