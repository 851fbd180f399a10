package body

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/udisondev/bodysim/internal/event"
	"github.com/udisondev/bodysim/internal/injury"
	"github.com/udisondev/bodysim/internal/stat"
)

var (
	ErrDuplicatePart = errors.New("duplicate part name")
	ErrCycle         = errors.New("part would become its own descendant")
	ErrUnknownSlot   = errors.New("unknown equipment slot")
	ErrNotFound      = errors.New("part not found")
)

// PathSeparator separates part names in Path and GetChildByPath.
const PathSeparator = "/"

// InjuryChange is delivered by the injury events.
type InjuryChange struct {
	Part   *Part
	Injury *injury.Injury
}

// EquipmentChange is delivered by the equipment events.
type EquipmentChange struct {
	Part *Part
	Item *Item
	Slot string
}

// Part is one node of a body tree. A part owns its children; parent and
// body are back references cleared on detach.
// Part embeds a stat.Set for its own generic stat block.
type Part struct {
	stat.Set

	name           string
	group          string
	maxHealth      float64
	size           float64
	painMultiplier float64

	providedStats   map[string][]ProvidedStat
	damageModifiers map[string][]stat.Modifier
	slots           map[string]*Item
	injuries        []*injury.Injury

	children   []*Part
	childIndex map[string]*Part
	parent     *Part
	body       *Body

	skills        []Feature
	features      []Feature
	ownerFeatures []Feature
	ownerApplied  bool // ownerFeatures currently added to the body owner

	tags       map[string]struct{}
	customData map[string]string

	childAdded      event.Event[*Part]
	childRemoved    event.Event[*Part]
	injuryAdded     event.Event[InjuryChange]
	injuryRemoved   event.Event[InjuryChange]
	injuryConverted event.Event[InjuryChange]
	died            event.Event[*Part]
	revived         event.Event[*Part]
	equipped        event.Event[EquipmentChange]
	unequipped      event.Event[EquipmentChange]
}

// NewPart creates a detached part.
func NewPart(name, group string, maxHealth, size float64) *Part {
	return &Part{
		name:            name,
		group:           group,
		maxHealth:       maxHealth,
		size:            size,
		painMultiplier:  1,
		providedStats:   make(map[string][]ProvidedStat),
		damageModifiers: make(map[string][]stat.Modifier),
		slots:           make(map[string]*Item),
		childIndex:      make(map[string]*Part),
		tags:            make(map[string]struct{}),
		customData:      make(map[string]string),
	}
}

func (p *Part) Name() string               { return p.name }
func (p *Part) Group() string              { return p.group }
func (p *Part) MaxHealth() float64         { return p.maxHealth }
func (p *Part) Size() float64              { return p.size }
func (p *Part) PainMultiplier() float64    { return p.painMultiplier }
func (p *Part) Parent() *Part              { return p.parent }
func (p *Part) Body() *Body                { return p.body }
func (p *Part) Skills() []Feature          { return slices.Clone(p.skills) }
func (p *Part) PartFeatures() []Feature    { return slices.Clone(p.features) }
func (p *Part) OwnerFeatures() []Feature   { return slices.Clone(p.ownerFeatures) }
func (p *Part) Injuries() []*injury.Injury { return slices.Clone(p.injuries) }

// Children returns the children in insertion order.
func (p *Part) Children() []*Part { return slices.Clone(p.children) }

// Child returns the direct child called name.
func (p *Part) Child(name string) *Part { return p.childIndex[name] }

func (p *Part) OnChildAdded() *event.Event[*Part]             { return &p.childAdded }
func (p *Part) OnChildRemoved() *event.Event[*Part]           { return &p.childRemoved }
func (p *Part) OnInjuryAdded() *event.Event[InjuryChange]     { return &p.injuryAdded }
func (p *Part) OnInjuryRemoved() *event.Event[InjuryChange]   { return &p.injuryRemoved }
func (p *Part) OnInjuryConverted() *event.Event[InjuryChange] { return &p.injuryConverted }
func (p *Part) OnDied() *event.Event[*Part]                   { return &p.died }
func (p *Part) OnRevived() *event.Event[*Part]                { return &p.revived }
func (p *Part) OnEquipped() *event.Event[EquipmentChange]     { return &p.equipped }
func (p *Part) OnUnequipped() *event.Event[EquipmentChange]   { return &p.unequipped }

// SetPainMultiplier scales the pain of this part's injuries.
func (p *Part) SetPainMultiplier(v float64) { p.painMultiplier = v }

// AddSlot declares an empty equipment slot.
func (p *Part) AddSlot(name string) {
	if _, ok := p.slots[name]; ok {
		return
	}
	p.slots[name] = nil
	if p.body != nil {
		p.body.partsWithSlot[name] = append(p.body.partsWithSlot[name], p)
	}
}

// HasSlot reports whether the slot is declared.
func (p *Part) HasSlot(name string) bool {
	_, ok := p.slots[name]
	return ok
}

// SlotNames returns declared slots sorted by name.
func (p *Part) SlotNames() []string {
	names := make([]string, 0, len(p.slots))
	for name := range p.slots {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ItemIn returns the item in slot, nil if empty or undeclared.
func (p *Part) ItemIn(slot string) *Item { return p.slots[slot] }

// Items returns equipped items ordered by slot name.
func (p *Part) Items() []*Item {
	var out []*Item
	for _, slot := range p.SlotNames() {
		if it := p.slots[slot]; it != nil {
			out = append(out, it)
		}
	}
	return out
}

// AddProvidedStat appends a contribution to statID.
func (p *Part) AddProvidedStat(statID string, ps ProvidedStat) {
	p.providedStats[statID] = append(p.providedStats[statID], ps)
}

// ProvidedStats returns the contributions to statID.
func (p *Part) ProvidedStats(statID string) []ProvidedStat {
	return slices.Clone(p.providedStats[statID])
}

// ProvidedStatIDs returns the ids of provided stats sorted.
func (p *Part) ProvidedStatIDs() []string {
	ids := make([]string, 0, len(p.providedStats))
	for id := range p.providedStats {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// AddDamageModifier registers a static modifier for incoming damage of
// damageTypeID (and of every type derived from it).
func (p *Part) AddDamageModifier(damageTypeID string, m stat.Modifier) {
	p.damageModifiers[damageTypeID] = append(p.damageModifiers[damageTypeID], m)
}

// AddSkill attaches a skill usable through this part.
func (p *Part) AddSkill(f Feature) { p.skills = append(p.skills, f) }

// AddFeature attaches a feature that participates in this part's hooks.
func (p *Part) AddFeature(f Feature) { p.features = append(p.features, f) }

// AddOwnerFeature attaches a feature granted to the owner while this part
// is attached and alive.
func (p *Part) AddOwnerFeature(f Feature) {
	p.ownerFeatures = append(p.ownerFeatures, f)
	if p.ownerApplied {
		if o := p.owner(); o != nil {
			o.AddFeature(f)
		}
	}
}

// AddTag tags the part.
func (p *Part) AddTag(tag string) { p.tags[tag] = struct{}{} }

// HasTag reports whether the part carries tag.
func (p *Part) HasTag(tag string) bool {
	_, ok := p.tags[tag]
	return ok
}

// Tags returns tags sorted.
func (p *Part) Tags() []string {
	out := make([]string, 0, len(p.tags))
	for t := range p.tags {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// SetCustomData stores an opaque key/value pair.
func (p *Part) SetCustomData(key, value string) { p.customData[key] = value }

// CustomData returns the value stored under key.
func (p *Part) CustomData(key string) (string, bool) {
	v, ok := p.customData[key]
	return v, ok
}

// AddChild attaches child under p. A child that already has a parent is
// detached from it first. Sibling names are unique: a clash returns
// ErrDuplicatePart and leaves both trees untouched.
func (p *Part) AddChild(child *Part) error {
	if child == nil {
		return errors.New("adding nil part")
	}
	for a := p; a != nil; a = a.parent {
		if a == child {
			return fmt.Errorf("adding %q under %q: %w", child.name, p.name, ErrCycle)
		}
	}
	if existing, ok := p.childIndex[child.name]; ok {
		if existing == child {
			return nil
		}
		return fmt.Errorf("adding %q under %q: %w", child.name, p.name, ErrDuplicatePart)
	}

	switch {
	case child.parent != nil:
		if _, err := child.parent.RemoveChild(child.name); err != nil {
			return fmt.Errorf("detaching %q: %w", child.name, err)
		}
	case child.body != nil && child.body.root == child:
		child.body.SetRoot(nil)
	}

	p.children = append(p.children, child)
	p.childIndex[child.name] = child
	child.parent = p
	if p.body != nil {
		child.attach(p.body)
	}
	p.childAdded.Emit(child)
	return nil
}

// RemoveChild detaches the child called name with its subtree.
func (p *Part) RemoveChild(name string) (*Part, error) {
	child, ok := p.childIndex[name]
	if !ok {
		return nil, fmt.Errorf("removing %q from %q: %w", name, p.name, ErrNotFound)
	}
	if p.body != nil {
		child.detach()
	}
	delete(p.childIndex, name)
	p.children = slices.DeleteFunc(p.children, func(c *Part) bool { return c == child })
	child.parent = nil
	p.childRemoved.Emit(child)
	return child, nil
}

// attach links the subtree to b, parents first.
func (p *Part) attach(b *Body) {
	for _, n := range p.Subtree() {
		n.body = b
		b.OnPartAdded(n)
	}
}

// detach unlinks the subtree from its body while paths are still intact.
func (p *Part) detach() {
	b := p.body
	for _, n := range p.Subtree() {
		if b != nil {
			b.OnPartRemoved(n)
		}
		n.body = nil
	}
}

// Subtree returns p and all descendants, parents before children.
func (p *Part) Subtree() []*Part {
	out := []*Part{p}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].children...)
	}
	return out
}

// Root returns the topmost ancestor.
func (p *Part) Root() *Part {
	r := p
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Path returns the names from the root (exclusive) down to p joined by
// PathSeparator. The root's path is "".
func (p *Part) Path() string {
	if p.parent == nil {
		return ""
	}
	var names []string
	for n := p; n.parent != nil; n = n.parent {
		names = append(names, n.name)
	}
	slices.Reverse(names)
	return strings.Join(names, PathSeparator)
}

// GetChildByPath resolves a PathSeparator-separated path relative to p.
// ".." is the parent, "." and empty segments are skipped.
// Returns nil if any segment fails to resolve.
func (p *Part) GetChildByPath(path string) *Part {
	cur := p
	for _, seg := range strings.Split(path, PathSeparator) {
		switch seg {
		case "", ".":
			continue
		case "..":
			cur = cur.parent
		default:
			cur = cur.childIndex[seg]
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (p *Part) owner() Owner {
	if p.body == nil {
		return nil
	}
	return p.body.owner
}

func (p *Part) authoritative() bool {
	return p.body == nil || p.body.authoritative()
}

func (p *Part) log(msg string) {
	if o := p.owner(); o != nil {
		o.Log(msg)
		return
	}
	slog.Debug(msg, "part", p.name)
}

// enabledFeatures returns this part's features followed by the owner's.
func (p *Part) enabledFeatures() []Feature {
	var out []Feature
	for _, f := range p.features {
		if f.Enabled() {
			out = append(out, f)
		}
	}
	if o := p.owner(); o != nil {
		for _, f := range o.Features() {
			if f.Enabled() {
				out = append(out, f)
			}
		}
	}
	return out
}
