package data

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/bodysim/internal/injury"
	"github.com/udisondev/bodysim/internal/script"
)

type injuryTypesFile struct {
	Default     string           `yaml:"default"`
	InjuryTypes []injuryTypeSpec `yaml:"injury_types"`
}

type injuryTypeSpec struct {
	ID                 string     `yaml:"id"`
	Name               string     `yaml:"name"`
	Pain               float64    `yaml:"pain"`
	BleedingRate       float64    `yaml:"bleeding_rate"`
	OverkillPercentMin float64    `yaml:"overkill_percent_min"`
	OverkillPercentMax float64    `yaml:"overkill_percent_max"`
	Instakill          bool       `yaml:"instakill"`
	NaturalHeal        float64    `yaml:"natural_heal"`
	Creations          []ruleSpec `yaml:"creations"`
	Conversions        []ruleSpec `yaml:"conversions"`
}

type ruleSpec struct {
	Interval float64 `yaml:"interval"`
	Script   string  `yaml:"script"`
}

// LoadInjuryTypes читает injury types из YAML файла и регистрирует их в r.
func LoadInjuryTypes(r *injury.Registry, path string, p script.Provider) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading injury types %s: %w", path, err)
	}
	if err := ParseInjuryTypes(r, raw, p); err != nil {
		return fmt.Errorf("injury types %s: %w", path, err)
	}
	return nil
}

// ParseInjuryTypes registers the injury types in raw.
// Types are registered before rules are compiled, so rules may name any
// type of the same file. A rule that fails to compile is logged and
// becomes a no-op.
func ParseInjuryTypes(r *injury.Registry, raw []byte, p script.Provider) error {
	var file injuryTypesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	types := make([]*injury.Type, 0, len(file.InjuryTypes))
	for _, def := range file.InjuryTypes {
		if def.ID == "" {
			return errors.New("injury type without id")
		}
		t := &injury.Type{
			ID:                 def.ID,
			Name:               def.Name,
			Pain:               def.Pain,
			BleedingRate:       def.BleedingRate,
			OverkillPercentMin: def.OverkillPercentMin,
			OverkillPercentMax: def.OverkillPercentMax,
			Instakill:          def.Instakill,
			NaturalHeal:        def.NaturalHeal,
		}
		if err := r.RegisterInjuryType(t); err != nil {
			return err
		}
		types = append(types, t)
	}

	// Rules are attached before the types are handed to any body.
	for i, def := range file.InjuryTypes {
		t := types[i]
		for j, rule := range def.Creations {
			t.Creations = append(t.Creations, injury.CreationRule{
				Interval: rule.Interval,
				Create:   compileCreation(r, p, t.ID, j, rule.Script),
			})
		}
		for j, rule := range def.Conversions {
			t.Conversions = append(t.Conversions, injury.ConversionRule{
				Interval: rule.Interval,
				Convert:  compileConversion(r, p, t.ID, j, rule.Script),
			})
		}
	}

	if file.Default != "" {
		if err := r.SetDefault(file.Default); err != nil {
			return err
		}
	}

	slog.Info("loaded injury types", "count", len(types), "default", r.Default().ID)
	return nil
}

func compileCreation(r *injury.Registry, p script.Provider, typeID string, idx int, code string) injury.CreationFunc {
	fn, ok := compile(p, code, "creation rule", "injury_type", typeID, "rule", idx)
	if !ok {
		return nil
	}
	return func(ctx injury.RuleContext) *injury.Injury {
		out, err := fn(ruleVars(ctx))
		if err != nil {
			slog.Error("creation rule failed", "injury_type", typeID, "rule", idx, "error", err)
			return nil
		}
		return injuryFromResult(r, out, nil, 0)
	}
}

func compileConversion(r *injury.Registry, p script.Provider, typeID string, idx int, code string) injury.ConversionFunc {
	fn, ok := compile(p, code, "conversion rule", "injury_type", typeID, "rule", idx)
	if !ok {
		return nil
	}
	return func(ctx injury.RuleContext) *injury.Type {
		out, err := fn(ruleVars(ctx))
		if err != nil {
			slog.Error("conversion rule failed", "injury_type", typeID, "rule", idx, "error", err)
			return nil
		}
		id, _ := script.String(out)
		if id == "" {
			return nil
		}
		t, ok := r.InjuryType(id)
		if !ok {
			slog.Warn("conversion to unknown injury type", "injury_type", typeID, "target", id)
			return nil
		}
		return t
	}
}

// compile wraps p.Compile. Empty code, disabled scripting and compile
// errors all yield ok == false; only the last is logged.
func compile(p script.Provider, code, what string, attrs ...any) (func(map[string]any) (any, error), bool) {
	if code == "" {
		return nil, false
	}
	fn, err := script.Func(p, code, func(v any) (any, error) { return v, nil })
	if errors.Is(err, script.ErrDisabled) {
		return nil, false
	}
	if err != nil {
		slog.Error("compiling "+what, append(attrs, "error", err)...)
		return nil, false
	}
	return fn, true
}

func ruleVars(ctx injury.RuleContext) map[string]any {
	return map[string]any{
		"injury": injuryVar(ctx.Injury),
		"part":   targetVar(ctx.Target),
	}
}

func injuryVar(inj *injury.Injury) map[string]any {
	m := map[string]any{"severity": inj.Severity, "age": inj.Age(), "type": ""}
	if inj.Type != nil {
		m["type"] = inj.Type.ID
	}
	return m
}

func targetVar(t injury.Target) map[string]any {
	if t == nil {
		return map[string]any{}
	}
	return map[string]any{
		"name":       t.Name(),
		"group":      t.Group(),
		"health":     t.Health(),
		"max_health": t.MaxHealth(),
	}
}

// injuryFromResult converts a script result: a number is a severity of
// fallback, a map is {type, severity}, anything else is no injury.
func injuryFromResult(r *injury.Registry, out any, fallback *injury.Type, amount float64) *injury.Injury {
	if n, ok := script.Number(out); ok {
		if fallback == nil || n <= 0 {
			return nil
		}
		return injury.New(fallback, n)
	}
	m, ok := script.Map(out)
	if !ok {
		return nil
	}
	t := fallback
	if id, ok := script.String(m["type"]); ok && id != "" {
		found, ok := r.InjuryType(id)
		if !ok {
			slog.Warn("script produced unknown injury type", "type", id)
			return nil
		}
		t = found
	}
	if t == nil {
		return nil
	}
	sev := amount
	if n, ok := script.Number(m["severity"]); ok {
		sev = n
	}
	if sev <= 0 {
		return nil
	}
	return injury.New(t, sev)
}
