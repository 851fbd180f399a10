package injury

// Generic is the fallback injury type used when nothing else resolves.
var Generic = &Type{ID: "generic", Name: "Generic", Pain: 1}

// RuleContext is passed to time-based injury rules.
type RuleContext struct {
	Injury *Injury
	Target Target
}

// CreationFunc returns a new injury spawned by an existing one, or nil.
type CreationFunc func(RuleContext) *Injury

// ConversionFunc returns the type the injury turns into, or nil.
type ConversionFunc func(RuleContext) *Type

// CreationRule runs Create every Interval seconds.
type CreationRule struct {
	Interval float64
	Create   CreationFunc
}

// ConversionRule runs Convert every Interval seconds.
type ConversionRule struct {
	Interval float64
	Convert  ConversionFunc
}

// Type describes a kind of injury. Types are registry-resolved and must
// not be modified after registration.
type Type struct {
	ID                 string
	Name               string
	Pain               float64 // per point of severity
	BleedingRate       float64 // per point of severity per second
	OverkillPercentMin float64
	OverkillPercentMax float64
	Instakill          bool
	NaturalHeal        float64 // severity healed per second, <= 0 disables

	Creations   []CreationRule
	Conversions []ConversionRule
}

// CapOverkill limits the part of severity exceeding the target's remaining
// health to maxHealth × overkill, where overkill is interpolated between
// OverkillPercentMin and OverkillPercentMax by roll in [0, 1].
// Types without an overkill range leave severity untouched.
func (t *Type) CapOverkill(severity, health, maxHealth, roll float64) float64 {
	if t.OverkillPercentMax <= 0 || severity <= health {
		return severity
	}
	roll = min(max(roll, 0), 1)
	pct := t.OverkillPercentMin + (t.OverkillPercentMax-t.OverkillPercentMin)*roll
	limit := health + maxHealth*pct
	return min(severity, limit)
}
