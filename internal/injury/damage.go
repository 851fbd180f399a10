package injury

import "math/rand/v2"

// Source describes incoming damage.
type Source struct {
	Type   *DamageType
	Origin string // attacker or hazard id, informational
}

// ResolverFunc turns raw damage into an injury. Returning nil means the
// damage leaves no injury.
type ResolverFunc func(src Source, amount float64, target Target) *Injury

// DamageType classifies incoming damage. Registry-resolved and immutable
// after registration.
type DamageType struct {
	ID         string
	Name       string
	Parent     *DamageType
	InjuryType *Type // used by the default resolver
	Resolver   ResolverFunc
}

// IsDerivedFrom walks the parent chain. A type is derived from itself.
func (d *DamageType) IsDerivedFrom(other *DamageType) bool {
	if other == nil {
		return false
	}
	for cur := d; cur != nil; cur = cur.Parent {
		if cur == other || cur.ID == other.ID {
			return true
		}
	}
	return false
}

// Chain returns d followed by its ancestors.
func (d *DamageType) Chain() []*DamageType {
	var out []*DamageType
	for cur := d; cur != nil; cur = cur.Parent {
		out = append(out, cur)
		if len(out) > 64 {
			break // malformed data with a parent loop
		}
	}
	return out
}

// Resolve produces the injury for amount. A nil receiver or a type without
// resolver creates an injury of its InjuryType, else fallback, with the
// full raw amount as severity.
func (d *DamageType) Resolve(src Source, amount float64, target Target, fallback *Type) *Injury {
	if d == nil || d.Resolver == nil {
		var t *Type
		if d != nil {
			t = d.InjuryType
		}
		if t == nil {
			t = fallback
		}
		if t == nil {
			t = Generic
		}
		return New(t, amount)
	}
	return d.Resolver(src, amount, target)
}

// DefaultResolve creates an injury of t with the full amount as severity,
// limited by the type's overkill range.
func DefaultResolve(t *Type, amount float64, target Target) *Injury {
	if t == nil {
		t = Generic
	}
	severity := amount
	if target != nil {
		severity = t.CapOverkill(amount, target.Health(), target.MaxHealth(), rand.Float64())
	}
	return New(t, severity)
}
