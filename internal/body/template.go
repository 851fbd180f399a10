package body

import (
	"errors"
	"fmt"

	"github.com/udisondev/bodysim/internal/script"
	"github.com/udisondev/bodysim/internal/stat"
)

// Template is the YAML definition of a creature body. A template is
// immutable once compiled and can build any number of bodies.
type Template struct {
	Name      string         `yaml:"name"`
	BleedStat string         `yaml:"bleed_stat"`
	Root      PartTemplate   `yaml:"root"`
	Stats     []StatTemplate `yaml:"stats"`

	formulas map[string]DependencyFunc // "<stat><<dependency>"
}

// PartTemplate describes one part and its children.
type PartTemplate struct {
	Name            string                     `yaml:"name"`
	Group           string                     `yaml:"group"`
	MaxHealth       float64                    `yaml:"max_health"`
	Size            float64                    `yaml:"size"`
	PainMultiplier  *float64                   `yaml:"pain_multiplier"`
	Slots           []string                   `yaml:"slots"`
	ProvidedStats   map[string][]ProvidedStat  `yaml:"provided_stats"`
	DamageModifiers map[string][]stat.Modifier `yaml:"damage_modifiers"`
	Skills          []string                   `yaml:"skills"`
	Features        []string                   `yaml:"features"`
	OwnerFeatures   []string                   `yaml:"owner_features"`
	Tags            []string                   `yaml:"tags"`
	CustomData      map[string]string          `yaml:"custom_data"`
	Children        []PartTemplate             `yaml:"children"`
}

// StatTemplate describes one StatEntry.
type StatTemplate struct {
	ID                 string               `yaml:"id"`
	Base               float64              `yaml:"base"`
	Min                float64              `yaml:"min"`
	Max                float64              `yaml:"max"`
	OverCap            bool                 `yaml:"over_cap"`
	UnderCap           bool                 `yaml:"under_cap"`
	Vital              bool                 `yaml:"vital"`
	Regen              *RegenTemplate       `yaml:"regen"`
	MaxDependency      string               `yaml:"max_dependency"`
	Dependencies       []DependencyTemplate `yaml:"dependencies"`
	GroupEffectiveness map[string]float64   `yaml:"group_effectiveness"`
}

type RegenTemplate struct {
	Amount float64 `yaml:"amount"`
	Stat   string  `yaml:"stat"`
}

type DependencyTemplate struct {
	Stat    string `yaml:"stat"`
	Formula string `yaml:"formula"`
}

// Compile compiles dependency formulas with p. A formula that fails to
// compile is reported and falls back to Falloff; a disabled provider is
// not an error.
func (t *Template) Compile(p script.Provider) error {
	t.formulas = make(map[string]DependencyFunc)
	var errs []error
	for _, st := range t.Stats {
		for _, d := range st.Dependencies {
			if d.Formula == "" {
				continue
			}
			fn, err := CompileDependency(p, d.Formula)
			if errors.Is(err, script.ErrDisabled) {
				continue
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("template %q stat %q dependency %q: %w", t.Name, st.ID, d.Stat, err))
				continue
			}
			t.formulas[st.ID+"<"+d.Stat] = fn
		}
	}
	return errors.Join(errs...)
}

// Build instantiates a body from the template. features creates the
// feature instances named by the parts; nil creates BasicFeature.
func (t *Template) Build(features FeatureFactory, opts ...Option) (*Body, error) {
	if features == nil {
		features = defaultFeatureFactory
	}
	b := New(append([]Option{WithBleedStat(t.BleedStat)}, opts...)...)
	for _, st := range t.Stats {
		b.AddStatEntry(t.entry(st))
	}
	root, err := t.Root.build(features)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", t.Name, err)
	}
	b.SetRoot(root)
	return b, nil
}

func (t *Template) entry(st StatTemplate) *StatEntry {
	e := &StatEntry{
		ID:                 st.ID,
		Base:               st.Base,
		Min:                st.Min,
		Max:                st.Max,
		OverCap:            st.OverCap,
		UnderCap:           st.UnderCap,
		Vital:              st.Vital,
		MaxDependency:      st.MaxDependency,
		GroupEffectiveness: st.GroupEffectiveness,
	}
	if st.Regen != nil {
		e.Regen = &Regen{Amount: st.Regen.Amount, StatID: st.Regen.Stat}
	}
	for _, d := range st.Dependencies {
		e.Dependencies = append(e.Dependencies, Dependency{
			StatID:  d.Stat,
			Formula: t.formulas[st.ID+"<"+d.Stat],
		})
	}
	return e
}

func (pt *PartTemplate) build(features FeatureFactory) (*Part, error) {
	if pt.Name == "" {
		return nil, errors.New("part without name")
	}
	p := NewPart(pt.Name, pt.Group, pt.MaxHealth, pt.Size)
	if pt.PainMultiplier != nil {
		p.SetPainMultiplier(*pt.PainMultiplier)
	}
	for _, s := range pt.Slots {
		p.AddSlot(s)
	}
	for id, list := range pt.ProvidedStats {
		for _, ps := range list {
			p.AddProvidedStat(id, ps)
		}
	}
	for id, mods := range pt.DamageModifiers {
		for _, m := range mods {
			p.AddDamageModifier(id, m)
		}
	}
	for _, id := range pt.Skills {
		if f := features(id); f != nil {
			p.AddSkill(f)
		}
	}
	for _, id := range pt.Features {
		if f := features(id); f != nil {
			p.AddFeature(f)
		}
	}
	for _, id := range pt.OwnerFeatures {
		if f := features(id); f != nil {
			p.AddOwnerFeature(f)
		}
	}
	for _, tag := range pt.Tags {
		p.AddTag(tag)
	}
	for k, v := range pt.CustomData {
		p.SetCustomData(k, v)
	}
	for i := range pt.Children {
		c, err := pt.Children[i].build(features)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pt.Name, err)
		}
		if err := p.AddChild(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}
