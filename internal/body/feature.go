package body

import (
	"github.com/udisondev/bodysim/internal/injury"
	"github.com/udisondev/bodysim/internal/stat"
)

// Owner is the entity hosting the stats a Body creates.
type Owner interface {
	stat.Holder
	// AddFeature adds one instance; the same feature may be added several
	// times (two eyes both granting sight) and is removed one at a time.
	AddFeature(f Feature)
	RemoveFeature(f Feature)
	Features() []Feature
	Kill(reason string)
	Log(msg string)
}

// Feature is a skill, trait or effect attached to a part or an owner.
// Hooks are optional interfaces checked with a type assertion.
type Feature interface {
	ID() string
	Enabled() bool
}

// DamageModifierHook contributes modifiers to incoming damage before it is
// folded (step 1 of Part.Damage).
type DamageModifierHook interface {
	ModifyReceivingDamageModifiers(part *Part, src injury.Source, amount float64) []stat.Modifier
}

// DamageHook transforms adjusted damage (step 3 of Part.Damage).
// The explanation is logged on the owner when the value changes.
type DamageHook interface {
	ModifyReceivingDamage(part *Part, src injury.Source, damage float64) (float64, string)
}

// InjuryHook is notified after an injury was recorded.
type InjuryHook interface {
	OnInjured(part *Part, inj *injury.Injury)
}

// TickHook runs on every part tick.
type TickHook interface {
	OnTick(part *Part)
}

// DeathHook is notified when a part the feature sits on stops being alive.
type DeathHook interface {
	OnPartDied(part *Part)
}

// BasicFeature is a hook-less, data-defined feature ("sight", "grab").
type BasicFeature struct {
	Name     string
	Disabled bool
}

// NewFeature creates an enabled BasicFeature.
func NewFeature(id string) *BasicFeature {
	return &BasicFeature{Name: id}
}

func (f *BasicFeature) ID() string    { return f.Name }
func (f *BasicFeature) Enabled() bool { return !f.Disabled }

// FeatureFactory creates the feature instance for an id.
type FeatureFactory func(id string) Feature

func defaultFeatureFactory(id string) Feature { return NewFeature(id) }
