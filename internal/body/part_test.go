package body

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/bodysim/internal/injury"
	"github.com/udisondev/bodysim/internal/stat"
)

func TestAddChildErrors(t *testing.T) {
	_, parts := humanoid(t)

	err := parts["torso"].AddChild(NewPart("head", "head", 10, 1))
	require.ErrorIs(t, err, ErrDuplicatePart)
	assert.Len(t, parts["torso"].Children(), 3, "duplicate must not be attached")

	err = parts["left-hand"].AddChild(parts["torso"])
	require.ErrorIs(t, err, ErrCycle)

	err = parts["left-hand"].AddChild(parts["left-hand"])
	require.ErrorIs(t, err, ErrCycle)
}

func TestReparentDetachesFromOldParent(t *testing.T) {
	b, parts := humanoid(t)
	head := parts["head"]

	require.NoError(t, parts["left-arm"].AddChild(head))

	assert.Nil(t, parts["torso"].Child("head"))
	assert.Same(t, parts["left-arm"], head.Parent())
	assert.Same(t, b, head.Body())
	assert.Len(t, b.PartsByName("head"), 1)
	assert.Equal(t, "left-arm/head", head.Path())
}

func TestRemoveChild(t *testing.T) {
	b, parts := humanoid(t)

	var removed *Part
	parts["torso"].OnChildRemoved().Subscribe(func(p *Part) { removed = p })

	arm, err := parts["torso"].RemoveChild("left-arm")
	require.NoError(t, err)
	assert.Same(t, parts["left-arm"], arm)
	assert.Same(t, arm, removed)
	assert.Nil(t, arm.Parent())
	assert.Nil(t, arm.Body())
	assert.Nil(t, parts["left-hand"].Body(), "subtree is detached too")
	assert.Empty(t, b.PartsByName("left-hand"))
	assert.Empty(t, b.PartsWithSlot("ring"))

	_, err = parts["torso"].RemoveChild("tail")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPathRoundTrip(t *testing.T) {
	b, parts := humanoid(t)

	assert.Equal(t, "", parts["torso"].Path())
	assert.Equal(t, "left-arm/left-hand", parts["left-hand"].Path())

	for _, p := range b.Parts() {
		assert.Same(t, p, b.Root().GetChildByPath(p.Path()), p.Name())
		assert.Same(t, p, b.Part(p.Path()), p.Name())
	}

	assert.Same(t, parts["head"], parts["left-hand"].GetChildByPath("../../head"))
	assert.Same(t, parts["left-arm"], parts["torso"].GetChildByPath("./left-arm/"))
	assert.Nil(t, parts["torso"].GetChildByPath("left-arm/nope"))
	assert.Nil(t, parts["torso"].GetChildByPath(".."))
}

func TestInjuriesKillPart(t *testing.T) {
	p := NewPart("arm", "arm", 40, 1)
	p.AddInjury(injury.New(injury.Generic, 15))
	assert.Equal(t, 25.0, p.HealthStandalone())
	assert.True(t, p.IsAlive())

	p.AddInjury(injury.New(injury.Generic, 30))
	assert.Equal(t, 0.0, p.HealthStandalone())
	assert.False(t, p.IsAlive())
}

func TestHealthPropagation(t *testing.T) {
	b, parts := humanoid(t)
	fatal := &injury.Type{ID: "decapitation", Instakill: true}

	var died []string
	for _, p := range b.Parts() {
		p.OnDied().Subscribe(func(p *Part) { died = append(died, p.Name()) })
	}

	inj := injury.New(fatal, 1)
	parts["torso"].AddInjury(inj)

	for _, p := range b.Parts() {
		assert.Zero(t, p.Health(), p.Name())
	}
	assert.Equal(t, 25.0, parts["left-hand"].HealthStandalone())
	assert.ElementsMatch(t, []string{"torso", "head", "chest-strap", "left-arm", "left-hand"}, died)

	var revived int
	parts["left-hand"].OnRevived().Subscribe(func(*Part) { revived++ })
	require.True(t, parts["torso"].RemoveInjury(inj))
	assert.Equal(t, 1, revived)
	assert.True(t, parts["left-hand"].IsAlive())
}

func TestRemoveInjuryByEquality(t *testing.T) {
	p := NewPart("leg", "leg", 50, 1)
	p.AddInjury(injury.New(injury.Generic, 10))
	p.AddInjury(injury.New(injury.Generic, 10))

	assert.True(t, p.RemoveInjury(injury.New(injury.Generic, 10)))
	assert.Len(t, p.Injuries(), 1, "duplicates are removed one at a time")
	assert.False(t, p.RemoveInjury(injury.New(injury.Generic, 11)))
}

type deathWatcher struct {
	BasicFeature
	seen []string
}

func (d *deathWatcher) OnPartDied(p *Part) { d.seen = append(d.seen, p.Name()) }

func TestOwnerFeaturesFollowLife(t *testing.T) {
	b, parts := humanoid(t)
	leftEye := NewPart("left-eye", "eye", 5, 0.1)
	rightEye := NewPart("right-eye", "eye", 5, 0.1)
	sight := NewFeature("sight")
	leftEye.AddOwnerFeature(sight)
	rightEye.AddOwnerFeature(sight)
	watcher := &deathWatcher{BasicFeature: BasicFeature{Name: "watcher"}}
	leftEye.AddFeature(watcher)
	require.NoError(t, parts["head"].AddChild(leftEye))
	require.NoError(t, parts["head"].AddChild(rightEye))

	owner := &fakeOwner{}
	b.SetOwner(owner)
	assert.Equal(t, 2, owner.countFeature("sight"))

	leftEye.AddInjury(injury.New(injury.Generic, 5))
	assert.Equal(t, 1, owner.countFeature("sight"))
	assert.Equal(t, []string{"left-eye"}, watcher.seen)

	fatal := &injury.Type{ID: "crush", Instakill: true}
	parts["head"].AddInjury(injury.New(fatal, 1))
	assert.Equal(t, 0, owner.countFeature("sight"))

	leftEye.ClearInjuries()
	assert.Equal(t, 0, owner.countFeature("sight"), "head is still dead")

	_, err := parts["head"].RemoveChild("right-eye")
	require.NoError(t, err)
	require.NoError(t, parts["torso"].AddChild(rightEye))
	assert.Equal(t, 1, owner.countFeature("sight"), "alive again once reattached to a living parent")

	b.SetOwner(nil)
	assert.Equal(t, 0, owner.countFeature("sight"))
}

type halver struct{ BasicFeature }

func (halver) ModifyReceivingDamage(_ *Part, _ injury.Source, d float64) (float64, string) {
	return d / 2, "tough skin"
}

type veto struct{ BasicFeature }

func (veto) ModifyReceivingDamage(*Part, injury.Source, float64) (float64, string) {
	return 0, "immune"
}

type shield struct{ BasicFeature }

func (shield) ModifyReceivingDamageModifiers(*Part, injury.Source, float64) []stat.Modifier {
	return []stat.Modifier{{ID: "shield", Value: -2, Type: stat.Flat}}
}

func damageTypes() (*injury.DamageType, *injury.DamageType) {
	bruise := &injury.Type{ID: "bruise", Pain: 1}
	physical := &injury.DamageType{ID: "physical"}
	blunt := &injury.DamageType{ID: "blunt", Parent: physical, InjuryType: bruise}
	return physical, blunt
}

func TestDamagePipeline(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(b *Body, torso *Part)
		amount   float64
		want     float64
		injuries int
	}{
		{
			name:     "raw",
			setup:    func(*Body, *Part) {},
			amount:   20,
			want:     20,
			injuries: 1,
		},
		{
			name: "ancestor damage type modifier",
			setup: func(_ *Body, torso *Part) {
				torso.AddDamageModifier("physical", stat.Modifier{ID: "hide", Value: -0.5, Type: stat.Multiplier})
			},
			amount:   20,
			want:     10,
			injuries: 1,
		},
		{
			name: "covering armor and part modifier",
			setup: func(b *Body, torso *Part) {
				torso.AddDamageModifier("physical", stat.Modifier{ID: "hide", Value: -0.5, Type: stat.Multiplier})
				armor := NewItem("vest", "Vest", "torso")
				armor.AddDamageModifier("blunt", stat.Modifier{ID: "padding", Value: -4, Type: stat.Flat})
				if err := b.Part("chest-strap").Equip(armor, "armor"); err != nil {
					panic(err)
				}
			},
			amount:   20,
			want:     8,
			injuries: 1,
		},
		{
			name: "feature modifiers and transform",
			setup: func(_ *Body, torso *Part) {
				torso.AddFeature(&shield{BasicFeature{Name: "shield"}})
				torso.AddFeature(&halver{BasicFeature{Name: "skin"}})
			},
			amount:   20,
			want:     9,
			injuries: 1,
		},
		{
			name: "disabled feature is skipped",
			setup: func(_ *Body, torso *Part) {
				torso.AddFeature(&veto{BasicFeature{Name: "immune", Disabled: true}})
			},
			amount:   20,
			want:     20,
			injuries: 1,
		},
		{
			name: "veto",
			setup: func(_ *Body, torso *Part) {
				torso.AddFeature(&veto{BasicFeature{Name: "immune"}})
				torso.AddFeature(&halver{BasicFeature{Name: "skin"}})
			},
			amount:   20,
			want:     0,
			injuries: 0,
		},
		{
			name:     "non-positive amount",
			setup:    func(*Body, *Part) {},
			amount:   -3,
			want:     0,
			injuries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, parts := humanoid(t)
			torso := parts["torso"]
			tt.setup(b, torso)
			_, blunt := damageTypes()

			got := torso.Damage(injury.Source{Type: blunt}, tt.amount)
			assert.InDelta(t, tt.want, got, 1e-9)
			require.Len(t, torso.Injuries(), tt.injuries)
			if tt.injuries > 0 {
				assert.Equal(t, "bruise", torso.Injuries()[0].Type.ID)
				assert.InDelta(t, tt.want, torso.Injuries()[0].Severity, 1e-9)
			}
		})
	}
}

func TestDamageLogsFeatureExplanation(t *testing.T) {
	b, parts := humanoid(t)
	owner := &fakeOwner{}
	b.SetOwner(owner)
	parts["head"].AddFeature(&halver{BasicFeature{Name: "skin"}})

	parts["head"].Damage(injury.Source{}, 10)
	require.Len(t, owner.logs, 1)
	assert.Contains(t, owner.logs[0], "tough skin")
}

func TestDamageFallsBackToRegistryDefault(t *testing.T) {
	reg := injury.NewRegistry()
	cut := &injury.Type{ID: "cut"}
	require.NoError(t, reg.RegisterInjuryType(cut))
	require.NoError(t, reg.SetDefault("cut"))

	b := New(WithRegistry(reg))
	arm := NewPart("arm", "arm", 30, 1)
	b.SetRoot(arm)

	assert.Equal(t, 12.0, arm.Damage(injury.Source{Type: &injury.DamageType{ID: "mystery"}}, 12))
	require.Len(t, arm.Injuries(), 1)
	assert.Same(t, cut, arm.Injuries()[0].Type)
	assert.Equal(t, 12.0, arm.Injuries()[0].Severity)
}

func TestEquipAtomicTransfer(t *testing.T) {
	b, parts := humanoid(t)
	hand, torso := parts["left-hand"], parts["torso"]
	ring := NewItem("ring-1", "Ring")

	require.NoError(t, hand.Equip(ring, "ring"))
	assert.Same(t, hand, ring.Holder())
	assert.True(t, ring.IsWorn())

	var seenInHand *Item
	torso.OnEquipped().Subscribe(func(EquipmentChange) { seenInHand = hand.ItemIn("ring") })

	require.NoError(t, torso.Equip(ring, ""))
	assert.Nil(t, seenInHand, "item must leave the old holder before the new one takes it")
	assert.Nil(t, hand.ItemIn("ring"))
	assert.Same(t, torso, ring.Holder())
	assert.Equal(t, HoldSlot, ring.Slot())
	assert.False(t, ring.IsWorn())

	other := NewItem("ring-2", "Other ring")
	require.NoError(t, hand.Equip(ring, "ring"))
	require.NoError(t, hand.Equip(other, "ring"))
	assert.Nil(t, ring.Holder(), "occupant is unequipped")
	assert.Same(t, other, hand.ItemIn("ring"))

	err := parts["head"].Equip(other, "boots")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	assert.Same(t, hand, other.Holder())

	assert.False(t, torso.Unequip(other))
	assert.True(t, hand.Unequip(other))
	assert.Empty(t, b.CoveringItems("left-hand"))
}

func TestCoverageRegisteredByName(t *testing.T) {
	b, parts := humanoid(t)
	armor := NewItem("breastplate", "Breastplate", "torso")

	require.NoError(t, parts["chest-strap"].Equip(armor, "armor"))
	assert.Equal(t, []*Item{armor}, b.CoveringItems("torso"))
	assert.Empty(t, b.CoveringItems("chest-strap"))
	assert.Nil(t, parts["torso"].ItemIn("armor"))

	require.NoError(t, parts["torso"].Equip(armor, HoldSlot))
	assert.Empty(t, b.CoveringItems("torso"), "held items cover nothing")
}

func TestItemStatModifiers(t *testing.T) {
	b, parts := humanoid(t)
	b.AddStatEntry(&StatEntry{ID: "defense", Max: 100})
	owner := &fakeOwner{}
	b.SetOwner(owner)

	armor := NewItem("vest", "Vest", "torso")
	armor.AddStatModifier("defense", stat.Modifier{ID: "base", Value: 5, Type: stat.Flat})

	require.NoError(t, parts["chest-strap"].Equip(armor, "armor"))
	def := owner.GetStat("defense")
	m, ok := def.Modifier("vest/base")
	require.True(t, ok)
	assert.Equal(t, 5.0, m.Value)
	assert.Equal(t, 5.0, def.FinalValue())

	parts["chest-strap"].Unequip(armor)
	assert.Equal(t, 0, def.ModifierCount())
}

func TestProvidedStatsFollowHealth(t *testing.T) {
	b, parts := humanoid(t)
	torso := parts["torso"]
	torso.AddProvidedStat("strength", ProvidedStat{AtFull: 10, AtZero: 0, Operation: stat.Flat, AppliesToOwner: true})
	parts["left-hand"].AddProvidedStat("strength", ProvidedStat{AtFull: 4, AtZero: 2, Operation: stat.Flat, AppliesToOwner: true})
	parts["left-hand"].AddProvidedStat("strength", ProvidedStat{AtFull: 1, AtZero: 1, Operation: stat.Flat, StandaloneOnly: true, AppliesToOwner: true})
	b.AddStatEntry(&StatEntry{ID: "strength", Max: 100, OverCap: true})

	owner := &fakeOwner{}
	b.SetOwner(owner)
	str := owner.GetStat("strength")
	assert.Equal(t, 15.0, str.FinalValue())
	_, ok := str.Modifier(".#strength#0")
	assert.True(t, ok)
	_, ok = str.Modifier("left-arm/left-hand#strength#1")
	assert.True(t, ok)

	torso.Damage(injury.Source{}, 50)
	assert.Equal(t, 10.0, str.FinalValue(), "torso at half health gives 5")

	parts["left-arm"].AddInjury(injury.New(&injury.Type{ID: "sever", Instakill: true}, 1))
	assert.Equal(t, 8.0, str.FinalValue(), "dead hand falls to AtZero")

	_, err := torso.RemoveChild("left-arm")
	require.NoError(t, err)
	assert.Equal(t, 5.0, str.FinalValue())
	assert.Equal(t, 1, str.ModifierCount())
}

func TestPartTickHealsAndRemovesInjuries(t *testing.T) {
	p := NewPart("arm", "arm", 10, 1)
	scratch := &injury.Type{ID: "scratch", NaturalHeal: 1}
	p.AddInjury(injury.New(scratch, 1))

	var removed int
	p.OnInjuryRemoved().Subscribe(func(InjuryChange) { removed++ })

	for range 3 {
		p.Tick(0.25)
	}
	require.Len(t, p.Injuries(), 1)
	assert.Equal(t, 0.25, p.Injuries()[0].Severity)

	p.Tick(0.25)
	assert.Empty(t, p.Injuries())
	assert.Equal(t, 1, removed)
}

func TestPartTickRules(t *testing.T) {
	infection := &injury.Type{ID: "infection", Pain: 2}
	wound := &injury.Type{
		ID: "wound",
		Conversions: []injury.ConversionRule{{
			Interval: 1,
			Convert:  func(injury.RuleContext) *injury.Type { return infection },
		}},
	}
	bleed := &injury.Type{
		ID: "bleed",
		Creations: []injury.CreationRule{{
			Interval: 0.5,
			Create: func(ctx injury.RuleContext) *injury.Injury {
				return injury.New(injury.Generic, ctx.Injury.Severity/2)
			},
		}},
	}

	p := NewPart("leg", "leg", 100, 1)
	p.AddInjury(injury.New(wound, 4))
	p.AddInjury(injury.New(bleed, 2))

	var converted []string
	p.OnInjuryConverted().Subscribe(func(c InjuryChange) { converted = append(converted, c.Injury.Type.ID) })

	p.Tick(0.5)
	require.Len(t, p.Injuries(), 3)
	assert.Equal(t, 1.0, p.Injuries()[2].Severity)
	assert.Empty(t, converted)

	p.Tick(0.5)
	assert.Equal(t, []string{"infection"}, converted)
	assert.Equal(t, "infection", p.Injuries()[0].Type.ID)
	assert.Len(t, p.Injuries(), 4)
}

func TestPartTickRunsHooksOnChildren(t *testing.T) {
	_, parts := humanoid(t)
	counter := &tickCounter{BasicFeature: BasicFeature{Name: "pulse"}}
	parts["left-hand"].AddFeature(counter)

	parts["torso"].Tick(0.1)
	parts["torso"].Tick(0)
	assert.Equal(t, 1, counter.n)
}

type tickCounter struct {
	BasicFeature
	n int
}

func (c *tickCounter) OnTick(*Part) { c.n++ }

func TestPainAndBleeding(t *testing.T) {
	b, parts := humanoid(t)
	cut := &injury.Type{ID: "cut", Pain: 1, BleedingRate: 0.5}
	parts["head"].SetPainMultiplier(2)
	parts["head"].AddInjury(injury.New(cut, 10))
	parts["left-hand"].AddInjury(injury.New(cut, 2))

	assert.Equal(t, 20.0, parts["head"].Pain())
	assert.Equal(t, 22.0, b.Pain())
	assert.Equal(t, 6.0, b.Bleeding())
}

func TestSentinelsWrap(t *testing.T) {
	_, parts := humanoid(t)
	err := parts["torso"].AddChild(NewPart("head", "x", 1, 1))
	assert.True(t, errors.Is(err, ErrDuplicatePart))
	assert.Contains(t, err.Error(), "torso")
}
