package body

import (
	"errors"
	"fmt"
	"math"

	"github.com/udisondev/bodysim/internal/script"
	"github.com/udisondev/bodysim/internal/stat"
)

// DependencyFunc computes the modifier a dependency puts on its dependent
// stat from the dependency's value and the dependent's current final value.
type DependencyFunc func(value, current float64) (float64, stat.ModifierType, error)

// Dependency couples a stat to another one. The modifier it sets is keyed
// by StatID, so each recomputation overwrites the previous one.
type Dependency struct {
	StatID  string
	Formula DependencyFunc // nil uses Falloff
}

// Regen adds Amount per second to the stat's base, or the final value of
// StatID when set.
type Regen struct {
	Amount float64
	StatID string
}

// StatEntry declares an owner stat the body creates and maintains.
type StatEntry struct {
	ID       string
	Base     float64
	Min      float64
	Max      float64
	OverCap  bool
	UnderCap bool

	// Vital stats kill the owner when their final value drops to 0.
	Vital bool
	Regen *Regen
	// MaxDependency copies that stat's final value into MaxValue each tick.
	MaxDependency      string
	Dependencies       []Dependency
	GroupEffectiveness map[string]float64
}

// NewStat creates a fresh stat from the entry.
func (e *StatEntry) NewStat() *stat.Stat {
	return stat.NewWithCaps(e.ID, e.Base, e.Min, e.Max, e.OverCap, e.UnderCap)
}

// Effectiveness returns the group multiplier, 1 when undeclared.
func (e *StatEntry) Effectiveness(group string) float64 {
	if v, ok := e.GroupEffectiveness[group]; ok {
		return v
	}
	return 1
}

// Falloff is the built-in dependency formula: the dependent loses the same
// share the dependency lacks. The share is value over a finite positive
// MaxValue, or value over 100 otherwise.
func Falloff(dep *stat.Stat) (float64, stat.ModifierType) {
	value := dep.FinalValue()
	limit := dep.MaxValue()
	if math.IsInf(limit, 0) || math.IsNaN(limit) || limit <= 0 {
		limit = 100
	}
	fraction := min(max(value/limit, 0), 1)
	return fraction - 1, stat.Percent
}

// CompileDependency compiles a dependency formula. The program sees
// "value" and "current" and returns either a number (a Percent modifier)
// or a map {value, type}.
func CompileDependency(p script.Provider, code string) (DependencyFunc, error) {
	fn, err := script.Func(p, code, dependencyResult)
	if err != nil {
		return nil, err
	}
	return func(value, current float64) (float64, stat.ModifierType, error) {
		r, err := fn(map[string]any{"value": value, "current": current})
		if err != nil {
			return 0, 0, err
		}
		return r.value, r.typ, nil
	}, nil
}

type depResult struct {
	value float64
	typ   stat.ModifierType
}

func dependencyResult(v any) (depResult, error) {
	if n, ok := script.Number(v); ok {
		return depResult{value: n, typ: stat.Percent}, nil
	}
	m, ok := script.Map(v)
	if !ok {
		return depResult{}, fmt.Errorf("dependency result %T: want number or map", v)
	}
	n, ok := script.Number(m["value"])
	if !ok {
		return depResult{}, errors.New("dependency result: missing numeric value")
	}
	res := depResult{value: n, typ: stat.Percent}
	if s, ok := script.String(m["type"]); ok {
		t, err := stat.ParseModifierType(s)
		if err != nil {
			return depResult{}, err
		}
		res.typ = t
	}
	return res, nil
}
