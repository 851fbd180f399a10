package stat

import (
	"fmt"
	"strings"
)

// ModifierType defines how a modifier participates in the final value.
// Byte values are part of the wire format, do not reorder.
type ModifierType uint8

const (
	Flat          ModifierType = iota // added to base before percentages
	FlatPostMods                      // added after percentages and multipliers
	Percent                           // fraction of the flat-adjusted base, non-compounding
	Multiplier                        // final × (1 + value), compounding
	Capmax                            // upper bound, smallest wins
	Capmin                            // lower bound, largest wins
	OverrideBase                      // replaces base value
	OverrideFinal                     // replaces final value, skips everything else
)

var modifierTypeNames = [...]string{
	Flat:          "flat",
	FlatPostMods:  "flat_post_mods",
	Percent:       "percent",
	Multiplier:    "multiplier",
	Capmax:        "capmax",
	Capmin:        "capmin",
	OverrideBase:  "override_base",
	OverrideFinal: "override_final",
}

// String returns the snake_case name used in data files.
func (t ModifierType) String() string {
	if int(t) < len(modifierTypeNames) {
		return modifierTypeNames[t]
	}
	return fmt.Sprintf("ModifierType(%d)", uint8(t))
}

// Valid reports whether t is one of the known modifier types.
func (t ModifierType) Valid() bool {
	return int(t) < len(modifierTypeNames)
}

// ParseModifierType parses a modifier type name.
// Case, '_' and '-' are ignored: "FlatPostMods", "flat_post_mods" and
// "flat-post-mods" are the same type.
func ParseModifierType(s string) (ModifierType, error) {
	norm := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(s))
	for i, name := range modifierTypeNames {
		if strings.ReplaceAll(name, "_", "") == norm {
			return ModifierType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown modifier type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ModifierType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid modifier type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (used by yaml.v3).
func (t *ModifierType) UnmarshalText(text []byte) error {
	parsed, err := ParseModifierType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Modifier is a single typed adjustment of a stat.
// ID is unique within one stat's modifier set.
type Modifier struct {
	ID    string       `yaml:"id"`
	Value float64      `yaml:"value"`
	Type  ModifierType `yaml:"type"`
}

// String formats the modifier for logs.
func (m Modifier) String() string {
	return fmt.Sprintf("%s(%s=%g)", m.Type, m.ID, m.Value)
}
