package body

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/bodysim/internal/injury"
	"github.com/udisondev/bodysim/internal/script"
	"github.com/udisondev/bodysim/internal/stat"
)

func TestSetRootReplacesTree(t *testing.T) {
	b, parts := humanoid(t)
	other := NewPart("core", "torso", 80, 1)

	b.SetRoot(other)
	assert.Same(t, other, b.Root())
	assert.Nil(t, parts["torso"].Body())
	assert.Nil(t, parts["head"].Body())
	assert.Empty(t, b.PartsByName("head"))
	assert.Equal(t, []*Part{other}, b.PartsByGroup("torso"))

	// Moving a body's root under another part empties that body.
	b2 := New()
	b2.SetRoot(parts["torso"])
	require.NoError(t, other.AddChild(parts["torso"]))
	assert.Nil(t, b2.Root())
	assert.Same(t, b, parts["head"].Body())
	assert.Equal(t, "torso/head", parts["head"].Path())
}

func TestIndexesFollowTree(t *testing.T) {
	b, parts := humanoid(t)

	assert.Equal(t, []*Part{parts["chest-strap"]}, b.PartsWithSlot("armor"))
	assert.Equal(t, []*Part{parts["left-hand"]}, b.PartsWithSlot("ring"))
	assert.Len(t, b.Parts(), 5)

	parts["head"].AddSlot("helmet")
	assert.Equal(t, []*Part{parts["head"]}, b.PartsWithSlot("helmet"))

	armor := NewItem("plate", "Plate", "torso", "left-arm")
	require.NoError(t, parts["chest-strap"].Equip(armor, "armor"))
	strap, err := parts["torso"].RemoveChild("chest-strap")
	require.NoError(t, err)
	assert.Empty(t, b.CoveringItems("torso"), "coverage leaves with the holder")
	assert.Same(t, strap, armor.Holder())

	require.NoError(t, parts["left-arm"].AddChild(strap))
	assert.Equal(t, []*Item{armor}, b.CoveringItems("left-arm"))
}

func regenEntries() []*StatEntry {
	return []*StatEntry{
		{ID: "stamina", Base: 0, Min: 0, Max: 10, OverCap: true, UnderCap: true, Regen: &Regen{Amount: 5}},
		{ID: "vigor", Base: 2, Min: 0, Max: 10, OverCap: true, UnderCap: true},
		{ID: "focus", Base: 0, Min: 0, Max: 10, OverCap: true, UnderCap: true, Regen: &Regen{StatID: "vigor"}},
		{ID: "maxhp", Base: 50, Min: 0, Max: 500, OverCap: true, UnderCap: true},
		{ID: "hp", Base: 100, Min: 0, Max: 100, OverCap: true, UnderCap: true, MaxDependency: "maxhp"},
	}
}

func TestTickRegenAndMaxDependency(t *testing.T) {
	b := New(WithTicksPerSecond(10))
	b.SetRoot(NewPart("torso", "torso", 10, 1))
	for _, e := range regenEntries() {
		b.AddStatEntry(e)
	}
	owner := &fakeOwner{}
	b.SetOwner(owner)

	for range 4 {
		b.Tick()
	}
	assert.Equal(t, 2.0, owner.GetStat("stamina").BaseValue())
	assert.InDelta(t, 0.8, owner.GetStat("focus").BaseValue(), 1e-9)
	assert.Equal(t, 50.0, owner.GetStat("hp").MaxValue())
	assert.Equal(t, 50.0, owner.GetStat("hp").FinalValue())

	for range 100 {
		b.Tick()
	}
	assert.Equal(t, 10.0, owner.GetStat("stamina").FinalValue(), "regen is clamped")
}

func TestTickBleedsAndVitalKills(t *testing.T) {
	b := New(WithBleedStat("blood"))
	torso := NewPart("torso", "torso", 100, 1)
	b.SetRoot(torso)
	b.AddStatEntry(&StatEntry{ID: "blood", Base: 1, Min: 0, Max: 100, OverCap: true, UnderCap: true, Vital: true})
	owner := &fakeOwner{}
	b.SetOwner(owner)

	torso.AddInjury(injury.New(&injury.Type{ID: "cut", BleedingRate: 1}, 5))
	b.Tick()
	assert.InDelta(t, 0.5, owner.GetStat("blood").FinalValue(), 1e-9)
	assert.Empty(t, owner.killed)

	b.Tick()
	assert.Equal(t, 0.0, owner.GetStat("blood").FinalValue())
	assert.Equal(t, []string{"blood depleted"}, owner.killed)

	b.Tick()
	assert.Len(t, owner.killed, 1, "kill fires on the transition only")
}

func TestDependencies(t *testing.T) {
	newBody := func(deps ...Dependency) (*Body, *fakeOwner) {
		b := New()
		b.SetRoot(NewPart("torso", "torso", 10, 1))
		b.AddStatEntry(&StatEntry{ID: "stamina", Base: 50, Min: 0, Max: 100, OverCap: true, UnderCap: true})
		b.AddStatEntry(&StatEntry{ID: "speed", Base: 100, Min: 0, Max: 100, OverCap: true, UnderCap: true, Dependencies: deps})
		o := &fakeOwner{}
		b.SetOwner(o)
		return b, o
	}

	t.Run("falloff", func(t *testing.T) {
		_, o := newBody(Dependency{StatID: "stamina"})
		speed := o.GetStat("speed")
		assert.Equal(t, 50.0, speed.FinalValue())

		o.GetStat("stamina").SetBaseValue(100)
		assert.Equal(t, 100.0, speed.FinalValue())
		assert.Equal(t, 1, speed.ModifierCount(), "dependency modifier is overwritten, not stacked")
	})

	t.Run("formula", func(t *testing.T) {
		formula := func(value, current float64) (float64, stat.ModifierType, error) {
			return -value / 10, stat.Flat, nil
		}
		_, o := newBody(Dependency{StatID: "stamina", Formula: formula})
		assert.Equal(t, 95.0, o.GetStat("speed").FinalValue())
	})

	t.Run("failing formula falls back", func(t *testing.T) {
		formula := func(float64, float64) (float64, stat.ModifierType, error) {
			return 0, 0, errors.New("boom")
		}
		_, o := newBody(Dependency{StatID: "stamina", Formula: formula})
		assert.Equal(t, 50.0, o.GetStat("speed").FinalValue())
	})

	t.Run("unknown stat is inert", func(t *testing.T) {
		_, o := newBody(Dependency{StatID: "ghost"})
		assert.Equal(t, 0, o.GetStat("speed").ModifierCount())
	})

	t.Run("owner change unwires", func(t *testing.T) {
		b, o := newBody(Dependency{StatID: "stamina"})
		b.SetOwner(&fakeOwner{})
		_, ok := o.GetStat("speed").Modifier("stamina")
		assert.False(t, ok, "dependency modifier must leave the old owner")
		assert.Equal(t, 100.0, o.GetStat("speed").FinalValue())

		o.GetStat("stamina").SetBaseValue(25)
		assert.Equal(t, 0, o.GetStat("speed").ModifierCount())
	})
}

func TestFalloff(t *testing.T) {
	tests := []struct {
		name string
		st   *stat.Stat
		want float64
	}{
		{"half of max", stat.New("s", 25, 0, 50), -0.5},
		{"full", stat.New("s", 50, 0, 50), 0},
		{"unbounded uses 100", stat.NewUnbounded("s", 25), -0.75},
		{"above 100 clamps", stat.NewUnbounded("s", 250), 0},
		{"negative clamps", stat.NewUnbounded("s", -5), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, typ := Falloff(tt.st)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, stat.Percent, typ)
		})
	}
}

func TestPredictiveBody(t *testing.T) {
	b := New(WithMode(script.Predictive))
	torso := NewPart("torso", "torso", 100, 1)
	torso.AddProvidedStat("strength", ProvidedStat{AtFull: 10, Operation: stat.Flat, AppliesToOwner: true})
	b.SetRoot(torso)
	b.AddStatEntry(&StatEntry{ID: "stamina", Base: 50, Max: 100, OverCap: true, Regen: &Regen{Amount: 10}})
	b.AddStatEntry(&StatEntry{ID: "speed", Base: 100, Max: 100, OverCap: true, Dependencies: []Dependency{{StatID: "stamina"}}})
	b.AddStatEntry(&StatEntry{ID: "strength", Max: 100, OverCap: true})
	o := &fakeOwner{}
	b.SetOwner(o)

	assert.Equal(t, 100.0, o.GetStat("speed").FinalValue(), "no dependency wiring")
	assert.Equal(t, 10.0, o.GetStat("strength").FinalValue(), "parts still apply")

	b.Tick()
	assert.Equal(t, 50.0, o.GetStat("stamina").FinalValue(), "no regen")

	torso.AddInjury(injury.New(injury.Generic, 50))
	assert.Equal(t, 10.0, o.GetStat("strength").FinalValue(), "no recomputation on injury")
}

func TestGetStatByGroup(t *testing.T) {
	b, parts := humanoid(t)
	parts["left-hand"].AddProvidedStat("grip", ProvidedStat{AtFull: 10, AtZero: 0, Operation: stat.Flat})
	right := NewPart("right-hand", "hand", 25, 0.25)
	right.AddProvidedStat("grip", ProvidedStat{AtFull: 0.5, AtZero: 0, Operation: stat.Percent})
	require.NoError(t, parts["torso"].AddChild(right))
	b.AddStatEntry(&StatEntry{ID: "grip", GroupEffectiveness: map[string]float64{"hand": 2}})

	// (5*2 + 10) * 1.5
	assert.Equal(t, 30.0, b.GetStatByGroup("hand", "grip", 5))
	assert.Equal(t, 5.0, b.GetStatByGroup("arm", "grip", 5))

	right.AddInjury(injury.New(injury.Generic, 25))
	assert.Equal(t, 20.0, b.GetStatByGroup("hand", "grip", 5))
}

func TestStatEntryNewStatCaps(t *testing.T) {
	tests := []struct {
		name  string
		entry StatEntry
		base  float64
		final float64
	}{
		{"no caps keeps base above max", StatEntry{ID: "speed", Base: 50, Min: 0, Max: 10}, 50, 50},
		{"no caps without bounds", StatEntry{ID: "luck", Base: 7}, 7, 7},
		{"no under cap keeps base below min", StatEntry{ID: "mood", Base: -5, Min: 0, Max: 10, OverCap: true}, -5, -5},
		{"over cap clamps", StatEntry{ID: "hp", Base: 50, Min: 0, Max: 10, OverCap: true}, 10, 10},
		{"under cap clamps", StatEntry{ID: "hp", Base: -5, Min: 0, Max: 10, UnderCap: true}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.entry.NewStat()
			assert.Equal(t, tt.base, s.BaseValue())
			assert.Equal(t, tt.final, s.FinalValue())
			assert.Equal(t, tt.entry.OverCap, s.OverCap())
			assert.Equal(t, tt.entry.UnderCap, s.UnderCap())
		})
	}
}

func TestStatEntryReuseExistingStat(t *testing.T) {
	b := New()
	b.AddStatEntry(&StatEntry{ID: "hp", Base: 10, Max: 10})
	o := &fakeOwner{}
	existing := o.CreateStat(stat.New("hp", 3, 0, 10))
	b.SetOwner(o)
	assert.Same(t, existing, o.GetStat("hp"))
	assert.Equal(t, 3.0, existing.BaseValue())

	b.AddStatEntry(&StatEntry{ID: "hp", Base: 1})
	assert.Len(t, b.Entries(), 1, "redeclaring replaces the entry")
	assert.Equal(t, 1.0, b.Entry("hp").Base)
}
