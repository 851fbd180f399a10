package body

import (
	"fmt"
	"slices"

	"github.com/udisondev/bodysim/internal/injury"
	"github.com/udisondev/bodysim/internal/stat"
	"github.com/udisondev/bodysim/internal/wire"
)

// Resolver supplies the registry lookups DecodePart needs.
type Resolver struct {
	Registry *injury.Registry
	Features FeatureFactory // nil creates BasicFeature
}

func (r Resolver) feature(id string) Feature {
	if r.Features == nil {
		return defaultFeatureFactory(id)
	}
	return r.Features(id)
}

// EncodePart writes p and its subtree.
// Layout: name, group, maxHealth:double, size:float, slots, injuries,
// skills, children, provided stats, owner features, generic stats,
// features, custom data, tags.
func EncodePart(w *wire.Writer, p *Part) error {
	w.WriteString(p.name)
	w.WriteString(p.group)
	w.WriteDouble(p.maxHealth)
	w.WriteFloat(p.size)

	slots := p.SlotNames()
	if err := w.WriteCount(len(slots)); err != nil {
		return fmt.Errorf("part %q slots: %w", p.name, err)
	}
	for _, name := range slots {
		w.WriteString(name)
		it := p.slots[name]
		w.WriteBool(it != nil)
		if it != nil {
			if err := EncodeItem(w, it); err != nil {
				return fmt.Errorf("part %q slot %q: %w", p.name, name, err)
			}
		}
	}

	if err := w.WriteCount(len(p.injuries)); err != nil {
		return fmt.Errorf("part %q injuries: %w", p.name, err)
	}
	for _, inj := range p.injuries {
		injury.EncodeTypeRef(w, inj.Type)
		w.WriteDouble(inj.Severity)
	}

	if err := encodeFeatures(w, p.skills); err != nil {
		return fmt.Errorf("part %q skills: %w", p.name, err)
	}

	if err := w.WriteCount(len(p.children)); err != nil {
		return fmt.Errorf("part %q children: %w", p.name, err)
	}
	for _, c := range p.children {
		if err := EncodePart(w, c); err != nil {
			return err
		}
	}

	ids := p.ProvidedStatIDs()
	if err := w.WriteCount(len(ids)); err != nil {
		return fmt.Errorf("part %q provided stats: %w", p.name, err)
	}
	for _, id := range ids {
		list := p.providedStats[id]
		w.WriteString(id)
		if err := w.WriteCount(len(list)); err != nil {
			return fmt.Errorf("part %q provided stat %q: %w", p.name, id, err)
		}
		for _, ps := range list {
			w.WriteFloat(ps.AtFull)
			w.WriteFloat(ps.AtZero)
			_ = w.WriteByte(byte(ps.Operation))
			w.WriteBool(ps.StandaloneOnly)
			w.WriteBool(ps.AppliesToOwner)
		}
	}

	if err := encodeFeatures(w, p.ownerFeatures); err != nil {
		return fmt.Errorf("part %q owner features: %w", p.name, err)
	}

	stats := p.Stats()
	if err := w.WriteCount(len(stats)); err != nil {
		return fmt.Errorf("part %q stats: %w", p.name, err)
	}
	for _, st := range stats {
		if err := st.Encode(w); err != nil {
			return fmt.Errorf("part %q: %w", p.name, err)
		}
	}

	if err := encodeFeatures(w, p.features); err != nil {
		return fmt.Errorf("part %q features: %w", p.name, err)
	}

	keys := make([]string, 0, len(p.customData))
	for k := range p.customData {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if err := w.WriteCount(len(keys)); err != nil {
		return fmt.Errorf("part %q custom data: %w", p.name, err)
	}
	for _, k := range keys {
		w.WriteString(k)
		w.WriteString(p.customData[k])
	}

	tags := p.Tags()
	if err := w.WriteCount(len(tags)); err != nil {
		return fmt.Errorf("part %q tags: %w", p.name, err)
	}
	for _, t := range tags {
		w.WriteString(t)
	}
	return nil
}

// DecodePart reads a part tree written by EncodePart. The result is
// detached; attach it with Body.SetRoot.
func DecodePart(r *wire.Reader, res Resolver) (*Part, error) {
	name, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("part name: %w", err)
	}
	group, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("part %q group: %w", name, err)
	}
	maxHealth, err := r.ReadDouble()
	if err != nil {
		return nil, fmt.Errorf("part %q max health: %w", name, err)
	}
	size, err := r.ReadFloat()
	if err != nil {
		return nil, fmt.Errorf("part %q size: %w", name, err)
	}
	p := NewPart(name, group, maxHealth, size)

	n, err := r.ReadCount()
	if err != nil {
		return nil, fmt.Errorf("part %q slots: %w", name, err)
	}
	for range n {
		slot, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("part %q slot: %w", name, err)
		}
		p.AddSlot(slot)
		present, err := r.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("part %q slot %q: %w", name, slot, err)
		}
		if !present {
			continue
		}
		it, err := DecodeItem(r)
		if err != nil {
			return nil, fmt.Errorf("part %q slot %q: %w", name, slot, err)
		}
		if err := p.Equip(it, slot); err != nil {
			return nil, err
		}
	}

	if n, err = r.ReadCount(); err != nil {
		return nil, fmt.Errorf("part %q injuries: %w", name, err)
	}
	for range n {
		t, err := res.Registry.DecodeTypeRef(r)
		if err != nil {
			return nil, fmt.Errorf("part %q injury: %w", name, err)
		}
		sev, err := r.ReadDouble()
		if err != nil {
			return nil, fmt.Errorf("part %q injury severity: %w", name, err)
		}
		p.injuries = append(p.injuries, injury.New(t, sev))
	}

	if p.skills, err = decodeFeatures(r, res); err != nil {
		return nil, fmt.Errorf("part %q skills: %w", name, err)
	}

	if n, err = r.ReadCount(); err != nil {
		return nil, fmt.Errorf("part %q children: %w", name, err)
	}
	for range n {
		c, err := DecodePart(r, res)
		if err != nil {
			return nil, err
		}
		if err := p.AddChild(c); err != nil {
			return nil, err
		}
	}

	if n, err = r.ReadCount(); err != nil {
		return nil, fmt.Errorf("part %q provided stats: %w", name, err)
	}
	for range n {
		id, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("part %q provided stat: %w", name, err)
		}
		m, err := r.ReadCount()
		if err != nil {
			return nil, fmt.Errorf("part %q provided stat %q: %w", name, id, err)
		}
		for range m {
			ps, err := decodeProvidedStat(r)
			if err != nil {
				return nil, fmt.Errorf("part %q provided stat %q: %w", name, id, err)
			}
			p.AddProvidedStat(id, ps)
		}
	}

	if p.ownerFeatures, err = decodeFeatures(r, res); err != nil {
		return nil, fmt.Errorf("part %q owner features: %w", name, err)
	}

	if n, err = r.ReadCount(); err != nil {
		return nil, fmt.Errorf("part %q stats: %w", name, err)
	}
	for range n {
		st, err := stat.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("part %q: %w", name, err)
		}
		p.CreateStat(st)
	}

	if p.features, err = decodeFeatures(r, res); err != nil {
		return nil, fmt.Errorf("part %q features: %w", name, err)
	}

	if n, err = r.ReadCount(); err != nil {
		return nil, fmt.Errorf("part %q custom data: %w", name, err)
	}
	for range n {
		k, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("part %q custom data key: %w", name, err)
		}
		v, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("part %q custom data %q: %w", name, k, err)
		}
		p.customData[k] = v
	}

	if n, err = r.ReadCount(); err != nil {
		return nil, fmt.Errorf("part %q tags: %w", name, err)
	}
	for range n {
		t, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("part %q tag: %w", name, err)
		}
		p.AddTag(t)
	}
	return p, nil
}

func decodeProvidedStat(r *wire.Reader) (ProvidedStat, error) {
	var ps ProvidedStat
	var err error
	if ps.AtFull, err = r.ReadFloat(); err != nil {
		return ps, err
	}
	if ps.AtZero, err = r.ReadFloat(); err != nil {
		return ps, err
	}
	op, err := r.ReadByte()
	if err != nil {
		return ps, err
	}
	ps.Operation = stat.ModifierType(op)
	if !ps.Operation.Valid() {
		return ps, fmt.Errorf("invalid operation %d", op)
	}
	if ps.StandaloneOnly, err = r.ReadBool(); err != nil {
		return ps, err
	}
	if ps.AppliesToOwner, err = r.ReadBool(); err != nil {
		return ps, err
	}
	return ps, nil
}

func encodeFeatures(w *wire.Writer, fs []Feature) error {
	if err := w.WriteCount(len(fs)); err != nil {
		return err
	}
	for _, f := range fs {
		w.WriteString(f.ID())
	}
	return nil
}

func decodeFeatures(r *wire.Reader, res Resolver) ([]Feature, error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	var out []Feature
	for range n {
		id, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if f := res.feature(id); f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}

// EncodeItem writes id, name, coverage, stat modifiers and damage
// modifiers (both keyed maps sorted by key).
func EncodeItem(w *wire.Writer, it *Item) error {
	w.WriteString(it.ID)
	w.WriteString(it.Name)
	if err := w.WriteCount(len(it.Coverage)); err != nil {
		return fmt.Errorf("item %q coverage: %w", it.ID, err)
	}
	for _, c := range it.Coverage {
		w.WriteString(c)
	}
	if err := encodeModifierMap(w, it.StatModifiers); err != nil {
		return fmt.Errorf("item %q stat modifiers: %w", it.ID, err)
	}
	if err := encodeModifierMap(w, it.DamageModifiers); err != nil {
		return fmt.Errorf("item %q damage modifiers: %w", it.ID, err)
	}
	return nil
}

// DecodeItem reads an item written by EncodeItem.
func DecodeItem(r *wire.Reader) (*Item, error) {
	id, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("item id: %w", err)
	}
	name, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("item %q name: %w", id, err)
	}
	it := NewItem(id, name)
	n, err := r.ReadCount()
	if err != nil {
		return nil, fmt.Errorf("item %q coverage: %w", id, err)
	}
	for range n {
		c, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("item %q coverage: %w", id, err)
		}
		it.Coverage = append(it.Coverage, c)
	}
	if it.StatModifiers, err = decodeModifierMap(r); err != nil {
		return nil, fmt.Errorf("item %q stat modifiers: %w", id, err)
	}
	if it.DamageModifiers, err = decodeModifierMap(r); err != nil {
		return nil, fmt.Errorf("item %q damage modifiers: %w", id, err)
	}
	return it, nil
}

func encodeModifierMap(w *wire.Writer, mm map[string][]stat.Modifier) error {
	keys := make([]string, 0, len(mm))
	for k := range mm {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if err := w.WriteCount(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		w.WriteString(k)
		if err := w.WriteCount(len(mm[k])); err != nil {
			return err
		}
		for _, m := range mm[k] {
			w.WriteString(m.ID)
			w.WriteFloat(m.Value)
			_ = w.WriteByte(byte(m.Type))
		}
	}
	return nil
}

func decodeModifierMap(r *wire.Reader) (map[string][]stat.Modifier, error) {
	n, err := r.ReadCount()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]stat.Modifier, n)
	for range n {
		k, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		m, err := r.ReadCount()
		if err != nil {
			return nil, err
		}
		for range m {
			id, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			v, err := r.ReadFloat()
			if err != nil {
				return nil, err
			}
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			t := stat.ModifierType(b)
			if !t.Valid() {
				return nil, fmt.Errorf("modifier %q: invalid type %d", id, b)
			}
			out[k] = append(out[k], stat.Modifier{ID: id, Value: v, Type: t})
		}
	}
	return out, nil
}
