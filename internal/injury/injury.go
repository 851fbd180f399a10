package injury

import "math"

// severityTolerance is the tolerance of Injury.Equal.
const severityTolerance = 1e-6

// Target is the body part an injury is resolved against.
type Target interface {
	Name() string
	Group() string
	Health() float64
	MaxHealth() float64
}

// Injury is a recorded instance of damage.
// Equality is by (Type.ID, Severity) with floating tolerance; the rule
// clocks are runtime state and take no part in it.
type Injury struct {
	Type     *Type
	Severity float64

	age    float64
	clocks []float64 // per rule, Creations first then Conversions
}

// New creates an injury of type t.
func New(t *Type, severity float64) *Injury {
	return &Injury{Type: t, Severity: severity}
}

// Age returns seconds since creation (or since the last conversion).
func (i *Injury) Age() float64 { return i.age }

// Pain returns the pain caused by this injury.
func (i *Injury) Pain() float64 {
	if i.Type == nil {
		return 0
	}
	return i.Type.Pain * i.Severity
}

// Bleeding returns blood loss per second caused by this injury.
func (i *Injury) Bleeding() float64 {
	if i.Type == nil {
		return 0
	}
	return i.Type.BleedingRate * i.Severity
}

// IsInstakill reports whether the injury type kills the part outright.
func (i *Injury) IsInstakill() bool {
	return i.Type != nil && i.Type.Instakill
}

// Equal compares type id and severity.
func (i *Injury) Equal(o *Injury) bool {
	if i == nil || o == nil {
		return i == o
	}
	if typeID(i.Type) != typeID(o.Type) {
		return false
	}
	return math.Abs(i.Severity-o.Severity) <= severityTolerance
}

// Tick advances the injury by dt seconds against target:
// natural heal first, then creation rules, then conversion rules.
// Returns the injuries created by creation rules. A conversion replaces
// Type in place and restarts age and rule clocks.
func (i *Injury) Tick(dt float64, target Target) (created []*Injury, converted bool) {
	t := i.Type
	if t == nil || dt <= 0 {
		return nil, false
	}
	i.age += dt

	if t.NaturalHeal > 0 {
		i.Severity = math.Max(0, i.Severity-t.NaturalHeal*dt)
	}

	rules := len(t.Creations) + len(t.Conversions)
	if rules == 0 {
		return nil, false
	}
	if len(i.clocks) != rules {
		i.clocks = make([]float64, rules)
	}

	ctx := RuleContext{Injury: i, Target: target}
	for idx, rule := range t.Creations {
		if !i.due(idx, rule.Interval, dt) || rule.Create == nil {
			continue
		}
		if inj := rule.Create(ctx); inj != nil && inj.Type != nil && inj.Severity > 0 {
			created = append(created, inj)
		}
	}
	for idx, rule := range t.Conversions {
		if !i.due(len(t.Creations)+idx, rule.Interval, dt) || rule.Convert == nil {
			continue
		}
		if next := rule.Convert(ctx); next != nil && next != t {
			i.Type = next
			i.age = 0
			i.clocks = nil
			return created, true
		}
	}
	return created, false
}

// due advances clock idx and reports whether interval elapsed.
// Non-positive intervals fire every tick.
func (i *Injury) due(idx int, interval, dt float64) bool {
	if interval <= 0 {
		return true
	}
	i.clocks[idx] += dt
	if i.clocks[idx] < interval {
		return false
	}
	i.clocks[idx] -= interval
	return true
}

func typeID(t *Type) string {
	if t == nil {
		return ""
	}
	return t.ID
}
