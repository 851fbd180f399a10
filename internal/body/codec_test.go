package body

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/bodysim/internal/injury"
	"github.com/udisondev/bodysim/internal/stat"
	"github.com/udisondev/bodysim/internal/wire"
)

func encodePart(t *testing.T, p *Part) []byte {
	t.Helper()
	w := wire.NewWriter(256)
	require.NoError(t, EncodePart(w, p))
	return w.BytesCopy()
}

func TestPartCodecRoundTrip(t *testing.T) {
	reg := injury.NewRegistry()
	cut := &injury.Type{ID: "cut", Pain: 1}
	require.NoError(t, reg.RegisterInjuryType(cut))

	_, parts := humanoid(t)
	torso := parts["torso"]
	torso.AddInjury(injury.New(cut, 12.5))
	torso.AddInjury(injury.New(injury.Generic, 3))
	torso.AddSkill(NewFeature("punch"))
	torso.AddFeature(NewFeature("thick-skin"))
	torso.AddTag("vital")
	torso.AddTag("core")
	torso.SetCustomData("color", "pale")
	torso.CreateStat(stat.New("temperature", 36.5, 30, 45))
	parts["head"].AddOwnerFeature(NewFeature("sight"))
	parts["left-hand"].AddProvidedStat("grip", ProvidedStat{AtFull: 10, AtZero: 2, Operation: stat.Flat, StandaloneOnly: true, AppliesToOwner: true})

	armor := NewItem("vest", "Vest", "torso")
	armor.AddStatModifier("defense", stat.Modifier{ID: "base", Value: 4, Type: stat.Flat})
	armor.AddDamageModifier("blunt", stat.Modifier{ID: "pad", Value: -0.25, Type: stat.Multiplier})
	require.NoError(t, parts["chest-strap"].Equip(armor, "armor"))

	data := encodePart(t, torso)

	got, err := DecodePart(wire.NewReader(data), Resolver{Registry: reg})
	require.NoError(t, err)

	assert.Equal(t, "torso", got.Name())
	assert.Equal(t, 100.0, got.MaxHealth())
	require.Len(t, got.Injuries(), 2)
	assert.Same(t, cut, got.Injuries()[0].Type)
	assert.Equal(t, 12.5, got.Injuries()[0].Severity)
	assert.Same(t, injury.Generic, got.Injuries()[1].Type)
	assert.Equal(t, []string{"core", "vital"}, got.Tags())
	v, ok := got.CustomData("color")
	assert.True(t, ok)
	assert.Equal(t, "pale", v)
	assert.Equal(t, 36.5, got.GetStat("temperature").BaseValue())
	require.Len(t, got.Skills(), 1)
	assert.Equal(t, "punch", got.Skills()[0].ID())
	assert.Equal(t, "sight", got.Child("head").OwnerFeatures()[0].ID())

	hand := got.GetChildByPath("left-arm/left-hand")
	require.NotNil(t, hand)
	assert.Equal(t, []ProvidedStat{{AtFull: 10, AtZero: 2, Operation: stat.Flat, StandaloneOnly: true, AppliesToOwner: true}}, hand.ProvidedStats("grip"))
	assert.True(t, hand.HasSlot("ring"))
	assert.Nil(t, hand.ItemIn("ring"))

	vest := got.Child("chest-strap").ItemIn("armor")
	require.NotNil(t, vest)
	assert.Equal(t, []string{"torso"}, vest.Coverage)
	assert.Equal(t, armor.StatModifiers, vest.StatModifiers)
	assert.Equal(t, armor.DamageModifiers, vest.DamageModifiers)

	names := func(p *Part) []string {
		var out []string
		for _, c := range p.Children() {
			out = append(out, c.Name())
		}
		return out
	}
	assert.Equal(t, names(torso), names(got), "children keep insertion order")

	assert.True(t, bytes.Equal(data, encodePart(t, got)), "re-encoding is stable")
}

func TestEncodePartLayout(t *testing.T) {
	p := NewPart("a", "g", 2, 0.5)
	data := encodePart(t, p)

	want := []byte{
		1, 'a',
		1, 'g',
		0, 0, 0, 0, 0, 0, 0, 0x40, // 2.0 double
		0, 0, 0, 0x3f, // 0.5 float
		0, // slots
		0, // injuries
		0, // skills
		0, // children
		0, // provided stats
		0, // owner features
		0, // stats
		0, // features
		0, // custom data
		0, // tags
	}
	assert.Equal(t, want, data)
}

func TestDecodePartErrors(t *testing.T) {
	reg := injury.NewRegistry()
	p := NewPart("arm", "arm", 10, 1)
	p.AddInjury(injury.New(&injury.Type{ID: "burn"}, 1))
	data := encodePart(t, p)

	_, err := DecodePart(wire.NewReader(data), Resolver{Registry: reg})
	assert.ErrorIs(t, err, injury.ErrUnknownType)

	for i := 0; i < len(data); i++ {
		_, err := DecodePart(wire.NewReader(data[:i]), Resolver{Registry: reg})
		assert.Error(t, err, "truncated at %d", i)
	}
}

func TestEncodePartTooManyTags(t *testing.T) {
	p := NewPart("arm", "arm", 10, 1)
	for i := range wire.MaxCount + 1 {
		p.AddTag(string(rune('a'+i%26)) + string(rune('a'+i/26)))
	}
	w := wire.NewWriter(0)
	assert.Error(t, EncodePart(w, p))
}

func TestDecodeUsesFeatureFactory(t *testing.T) {
	p := NewPart("arm", "arm", 10, 1)
	p.AddFeature(NewFeature("claws"))
	p.AddFeature(NewFeature("retired"))
	data := encodePart(t, p)

	factory := func(id string) Feature {
		if id == "retired" {
			return nil
		}
		return &halver{BasicFeature{Name: id}}
	}
	got, err := DecodePart(wire.NewReader(data), Resolver{Features: factory})
	require.NoError(t, err)
	require.Len(t, got.PartFeatures(), 1)
	_, ok := got.PartFeatures()[0].(DamageHook)
	assert.True(t, ok)
}
