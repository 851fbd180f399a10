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

type damageTypesFile struct {
	DamageTypes []damageTypeSpec `yaml:"damage_types"`
}

type damageTypeSpec struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Parent     string `yaml:"parent"`
	InjuryType string `yaml:"injury_type"`
	Resolver   string `yaml:"resolver"`
}

// LoadDamageTypes читает damage types из YAML. Injury types должны быть
// загружены раньше.
func LoadDamageTypes(r *injury.Registry, path string, p script.Provider) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading damage types %s: %w", path, err)
	}
	if err := ParseDamageTypes(r, raw, p); err != nil {
		return fmt.Errorf("damage types %s: %w", path, err)
	}
	return nil
}

// ParseDamageTypes registers the damage types in raw. Parents may be
// declared in any order. A resolver that fails to compile is logged and
// the type falls back to its injury type (or the registry default).
func ParseDamageTypes(r *injury.Registry, raw []byte, p script.Provider) error {
	var file damageTypesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	byID := make(map[string]*injury.DamageType, len(file.DamageTypes))
	types := make([]*injury.DamageType, 0, len(file.DamageTypes))
	for _, def := range file.DamageTypes {
		if def.ID == "" {
			return errors.New("damage type without id")
		}
		if _, dup := byID[def.ID]; dup {
			return fmt.Errorf("damage type %q declared twice", def.ID)
		}
		d := &injury.DamageType{ID: def.ID, Name: def.Name}
		if def.InjuryType != "" {
			t, ok := r.InjuryType(def.InjuryType)
			if !ok {
				return fmt.Errorf("damage type %q injury type %q: %w", def.ID, def.InjuryType, injury.ErrUnknownType)
			}
			d.InjuryType = t
		}
		byID[def.ID] = d
		types = append(types, d)
	}

	for i, def := range file.DamageTypes {
		if def.Parent == "" {
			continue
		}
		parent, ok := byID[def.Parent]
		if !ok {
			if parent, ok = r.DamageType(def.Parent); !ok {
				return fmt.Errorf("damage type %q parent %q: %w", def.ID, def.Parent, injury.ErrUnknownType)
			}
		}
		types[i].Parent = parent
	}
	for _, d := range types {
		if len(d.Chain()) > 64 {
			return fmt.Errorf("damage type %q: parent loop", d.ID)
		}
	}

	for i, def := range file.DamageTypes {
		types[i].Resolver = compileResolver(r, p, types[i], def.Resolver)
		if err := r.RegisterDamageType(types[i]); err != nil {
			return err
		}
	}

	slog.Info("loaded damage types", "count", len(types))
	return nil
}

func compileResolver(r *injury.Registry, p script.Provider, d *injury.DamageType, code string) injury.ResolverFunc {
	fn, ok := compile(p, code, "damage resolver", "damage_type", d.ID)
	if !ok {
		return nil
	}
	return func(src injury.Source, amount float64, target injury.Target) *injury.Injury {
		fallback := d.InjuryType
		if fallback == nil {
			fallback = r.Default()
		}
		out, err := fn(map[string]any{
			"amount": amount,
			"source": sourceVar(src),
			"part":   targetVar(target),
		})
		if err != nil {
			slog.Error("damage resolver failed", "damage_type", d.ID, "error", err)
			return injury.DefaultResolve(fallback, amount, target)
		}
		return injuryFromResult(r, out, fallback, amount)
	}
}

func sourceVar(src injury.Source) map[string]any {
	m := map[string]any{"origin": src.Origin, "type": ""}
	if src.Type != nil {
		m["type"] = src.Type.ID
	}
	return m
}
