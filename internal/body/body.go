package body

import (
	"log/slog"
	"slices"

	"github.com/udisondev/bodysim/internal/event"
	"github.com/udisondev/bodysim/internal/injury"
	"github.com/udisondev/bodysim/internal/script"
	"github.com/udisondev/bodysim/internal/stat"
)

// DefaultTicksPerSecond is the simulation rate used when none is set.
const DefaultTicksPerSecond = 10

// Body owns a part tree and bridges it to an Owner's stats.
// Not safe for concurrent use: one board goroutine drives it.
type Body struct {
	root  *Part
	owner Owner

	mode           script.Mode
	registry       *injury.Registry
	ticksPerSecond float64
	bleedStat      string

	partsByName   map[string][]*Part
	partsByGroup  map[string][]*Part
	partsWithSlot map[string][]*Part
	coveringItems map[string][]*Item

	entries    []*StatEntry
	entryIndex map[string]*StatEntry

	unsubscribe []func()
	cleanup     []func()        // undo wiring side effects on the owner, after unsubscribe
	applying    map[string]bool // dependency handlers currently running
}

// Option configures a Body.
type Option func(*Body)

// WithMode selects authoritative or predictive simulation.
func WithMode(m script.Mode) Option {
	return func(b *Body) { b.mode = m }
}

// WithRegistry sets the registry providing the default injury type.
func WithRegistry(r *injury.Registry) Option {
	return func(b *Body) { b.registry = r }
}

// WithTicksPerSecond sets the rate Tick is called at.
func WithTicksPerSecond(n float64) Option {
	return func(b *Body) {
		if n > 0 {
			b.ticksPerSecond = n
		}
	}
}

// WithBleedStat drains the owner stat id by Bleeding per second.
func WithBleedStat(id string) Option {
	return func(b *Body) { b.bleedStat = id }
}

// New creates an empty body.
func New(opts ...Option) *Body {
	b := &Body{
		mode:           script.Authoritative,
		ticksPerSecond: DefaultTicksPerSecond,
		partsByName:    make(map[string][]*Part),
		partsByGroup:   make(map[string][]*Part),
		partsWithSlot:  make(map[string][]*Part),
		coveringItems:  make(map[string][]*Item),
		entryIndex:     make(map[string]*StatEntry),
		applying:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Body) Root() *Part                { return b.root }
func (b *Body) Owner() Owner               { return b.owner }
func (b *Body) Mode() script.Mode          { return b.mode }
func (b *Body) Registry() *injury.Registry { return b.registry }
func (b *Body) TicksPerSecond() float64    { return b.ticksPerSecond }
func (b *Body) authoritative() bool        { return b.mode == script.Authoritative }

// Part resolves a path from the root.
func (b *Body) Part(path string) *Part {
	if b.root == nil {
		return nil
	}
	return b.root.GetChildByPath(path)
}

// Parts returns every attached part, parents first.
func (b *Body) Parts() []*Part {
	if b.root == nil {
		return nil
	}
	return b.root.Subtree()
}

func (b *Body) PartsByName(name string) []*Part   { return slices.Clone(b.partsByName[name]) }
func (b *Body) PartsByGroup(group string) []*Part { return slices.Clone(b.partsByGroup[group]) }
func (b *Body) PartsWithSlot(slot string) []*Part { return slices.Clone(b.partsWithSlot[slot]) }

// CoveringItems returns the worn items protecting parts named name.
func (b *Body) CoveringItems(name string) []*Item { return slices.Clone(b.coveringItems[name]) }

// SetRoot replaces the tree. The old tree is detached first.
func (b *Body) SetRoot(p *Part) {
	if b.root == p {
		return
	}
	if old := b.root; old != nil {
		old.detach()
		b.root = nil
	}
	if p == nil {
		return
	}
	switch {
	case p.parent != nil:
		if _, err := p.parent.RemoveChild(p.name); err != nil {
			slog.Error("detaching new root", "part", p.name, "error", err)
			return
		}
	case p.body != nil:
		p.body.SetRoot(nil)
	}
	b.root = p
	p.attach(b)
}

// AddStatEntry declares an owner stat. Entries added after SetOwner only
// take effect on the next SetOwner.
func (b *Body) AddStatEntry(e *StatEntry) {
	if _, ok := b.entryIndex[e.ID]; ok {
		b.entries = slices.DeleteFunc(b.entries, func(x *StatEntry) bool { return x.ID == e.ID })
	}
	b.entries = append(b.entries, e)
	b.entryIndex[e.ID] = e
}

// Entry returns the stat entry with id.
func (b *Body) Entry(id string) *StatEntry { return b.entryIndex[id] }

// Entries returns entries in declaration order.
func (b *Body) Entries() []*StatEntry { return slices.Clone(b.entries) }

// SetOwner detaches the previous owner and wires o: creates missing stats,
// wires dependencies and vital stats, and applies every part.
func (b *Body) SetOwner(o Owner) {
	if b.owner == o {
		return
	}
	if b.owner != nil {
		for _, p := range b.Parts() {
			b.UnapplyPartToOwner(p)
		}
		for _, fn := range b.unsubscribe {
			fn()
		}
		for _, fn := range b.cleanup {
			fn()
		}
		b.unsubscribe, b.cleanup = nil, nil
	}
	b.owner = o
	if o == nil {
		return
	}

	for _, e := range b.entries {
		if o.GetStat(e.ID) == nil {
			o.CreateStat(e.NewStat())
		}
	}
	if b.authoritative() {
		for _, e := range b.entries {
			b.wireEntry(e)
		}
	}
	for _, p := range b.Parts() {
		b.ApplyPartToOwner(p)
	}
}

func (b *Body) wireEntry(e *StatEntry) {
	target := b.owner.GetStat(e.ID)
	if target == nil {
		return
	}
	for _, d := range e.Dependencies {
		dep := b.owner.GetStat(d.StatID)
		if dep == nil {
			slog.Warn("stat dependency on unknown stat", "stat", e.ID, "dependency", d.StatID)
			continue
		}
		b.subscribe(dep.OnValueChanged(), func(stat.Change) { b.applyDependency(target, dep, d) })
		b.applyDependency(target, dep, d)
		b.cleanup = append(b.cleanup, func() { target.RemoveModifier(d.StatID) })
	}
	if e.Vital {
		o := b.owner
		b.subscribe(target.OnValueChanged(), func(ch stat.Change) {
			if ch.Old > 0 && ch.New <= 0 {
				o.Kill(e.ID + " depleted")
			}
		})
	}
}

func (b *Body) subscribe(ev *event.Event[stat.Change], fn func(stat.Change)) {
	h := ev.Subscribe(fn)
	b.unsubscribe = append(b.unsubscribe, func() { ev.Unsubscribe(h) })
}

func (b *Body) applyDependency(target, dep *stat.Stat, d Dependency) {
	key := target.ID() + "<" + d.StatID
	if b.applying[key] {
		return
	}
	b.applying[key] = true
	defer delete(b.applying, key)

	value, typ := Falloff(dep)
	if d.Formula != nil {
		v, t, err := d.Formula(dep.FinalValue(), target.FinalValue())
		if err != nil {
			slog.Error("stat dependency formula", "stat", target.ID(), "dependency", d.StatID, "error", err)
		} else {
			value, typ = v, t
		}
	}
	target.SetModifier(stat.Modifier{ID: d.StatID, Value: value, Type: typ})
}

// OnPartAdded indexes p and applies it to the owner.
func (b *Body) OnPartAdded(p *Part) {
	b.partsByName[p.name] = append(b.partsByName[p.name], p)
	b.partsByGroup[p.group] = append(b.partsByGroup[p.group], p)
	for slot := range p.slots {
		b.partsWithSlot[slot] = append(b.partsWithSlot[slot], p)
	}
	for _, it := range p.slots {
		if it != nil {
			b.registerCoverage(it)
		}
	}
	b.ApplyPartToOwner(p)
}

// OnPartRemoved reverses OnPartAdded.
func (b *Body) OnPartRemoved(p *Part) {
	b.UnapplyPartToOwner(p)
	for _, it := range p.slots {
		if it != nil {
			b.unregisterCoverage(it)
		}
	}
	b.partsByName[p.name] = deletePart(b.partsByName[p.name], p)
	b.partsByGroup[p.group] = deletePart(b.partsByGroup[p.group], p)
	for slot := range p.slots {
		b.partsWithSlot[slot] = deletePart(b.partsWithSlot[slot], p)
	}
}

// ApplyPartToOwner pushes the part's stat modifiers and, with an owner,
// its owner features (if alive) and the stat modifiers of items it holds.
func (b *Body) ApplyPartToOwner(p *Part) {
	p.UpdateStatModifiers()
	if b.owner == nil {
		return
	}
	if !p.ownerApplied && p.IsAlive() {
		for _, f := range p.ownerFeatures {
			b.owner.AddFeature(f)
		}
		p.ownerApplied = true
	}
	for _, it := range p.slots {
		if it != nil {
			b.applyItemStats(it)
		}
	}
}

// UnapplyPartToOwner reverses ApplyPartToOwner.
func (b *Body) UnapplyPartToOwner(p *Part) {
	p.RemoveStatModifiers()
	if b.owner == nil {
		return
	}
	b.removeOwnerFeatures(p)
	for _, it := range p.slots {
		if it != nil {
			b.removeItemStats(it)
		}
	}
}

// OnEquipped registers coverage of worn items and applies item stats.
func (b *Body) OnEquipped(p *Part, it *Item) {
	b.registerCoverage(it)
	if b.owner != nil {
		b.applyItemStats(it)
	}
}

// OnUnequip reverses OnEquipped. Called while the item is still in place.
func (b *Body) OnUnequip(p *Part, it *Item) {
	b.unregisterCoverage(it)
	if b.owner != nil {
		b.removeItemStats(it)
	}
}

func (b *Body) registerCoverage(it *Item) {
	if !it.IsWorn() {
		return
	}
	for _, name := range it.Coverage {
		if !slices.Contains(b.coveringItems[name], it) {
			b.coveringItems[name] = append(b.coveringItems[name], it)
		}
	}
}

func (b *Body) unregisterCoverage(it *Item) {
	for _, name := range it.Coverage {
		list := slices.DeleteFunc(b.coveringItems[name], func(x *Item) bool { return x == it })
		if len(list) == 0 {
			delete(b.coveringItems, name)
			continue
		}
		b.coveringItems[name] = list
	}
}

func (b *Body) applyItemStats(it *Item) {
	for id, mods := range it.StatModifiers {
		st := b.owner.GetStat(id)
		if st == nil {
			continue
		}
		for _, m := range mods {
			st.SetModifier(stat.Modifier{ID: it.ownerModifierID(m), Value: m.Value, Type: m.Type})
		}
	}
}

func (b *Body) removeItemStats(it *Item) {
	for id, mods := range it.StatModifiers {
		st := b.owner.GetStat(id)
		if st == nil {
			continue
		}
		for _, m := range mods {
			st.RemoveModifier(it.ownerModifierID(m))
		}
	}
}

func (b *Body) removeOwnerFeatures(p *Part) {
	if !p.ownerApplied {
		return
	}
	for _, f := range p.ownerFeatures {
		b.owner.RemoveFeature(f)
	}
	p.ownerApplied = false
}

func (b *Body) onPartDied(p *Part) {
	if b.owner != nil {
		b.removeOwnerFeatures(p)
	}
}

func (b *Body) onPartRevived(p *Part) {
	if b.owner == nil || p.ownerApplied {
		return
	}
	for _, f := range p.ownerFeatures {
		b.owner.AddFeature(f)
	}
	p.ownerApplied = true
}

// Tick advances the body by one simulation step: max dependencies, regen,
// bleeding, then the part tree. Predictive bodies do nothing.
func (b *Body) Tick() {
	if !b.authoritative() {
		return
	}
	dt := 1 / b.ticksPerSecond
	if b.owner != nil {
		b.tickStats(dt)
	}
	if b.root != nil {
		b.root.Tick(dt)
	}
}

func (b *Body) tickStats(dt float64) {
	for _, e := range b.entries {
		if e.MaxDependency == "" {
			continue
		}
		st, dep := b.owner.GetStat(e.ID), b.owner.GetStat(e.MaxDependency)
		if st != nil && dep != nil {
			st.SetMaxValue(dep.FinalValue())
		}
	}
	for _, e := range b.entries {
		if e.Regen == nil {
			continue
		}
		st := b.owner.GetStat(e.ID)
		if st == nil {
			continue
		}
		amount := e.Regen.Amount
		if e.Regen.StatID != "" {
			src := b.owner.GetStat(e.Regen.StatID)
			if src == nil {
				continue
			}
			amount = src.FinalValue()
		}
		if amount != 0 {
			st.SetBaseValue(st.BaseValue() + amount*dt)
		}
	}
	if b.bleedStat != "" {
		if st := b.owner.GetStat(b.bleedStat); st != nil {
			if bleeding := b.Bleeding(); bleeding > 0 {
				st.SetBaseValue(st.BaseValue() - bleeding*dt)
			}
		}
	}
}

// GetStatByGroup folds the contributions of every part in group to statID
// onto base scaled by the group effectiveness of that stat's entry.
func (b *Body) GetStatByGroup(group, statID string, base float64) float64 {
	if e := b.entryIndex[statID]; e != nil {
		base *= e.Effectiveness(group)
	}
	var mods []stat.Modifier
	for _, p := range b.partsByGroup[group] {
		mods = append(mods, p.Contributions(statID)...)
	}
	return stat.Calculate(base, mods, stat.Unbounded)
}

// Pain sums the pain of every part.
func (b *Body) Pain() float64 {
	total := 0.0
	for _, p := range b.Parts() {
		total += p.Pain()
	}
	return total
}

// Bleeding sums blood loss per second of every part.
func (b *Body) Bleeding() float64 {
	total := 0.0
	for _, p := range b.Parts() {
		total += p.Bleeding()
	}
	return total
}

func deletePart(list []*Part, p *Part) []*Part {
	return slices.DeleteFunc(list, func(x *Part) bool { return x == p })
}
