package injury

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/udisondev/bodysim/internal/wire"
)

// ErrUnknownType is returned when a registry lookup by id fails.
var ErrUnknownType = errors.New("unknown type")

// Registry resolves injury and damage types by id.
// Populated once at data-load time, read-only afterwards.
type Registry struct {
	injuryTypes map[string]*Type
	damageTypes map[string]*DamageType
	defaultID   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		injuryTypes: make(map[string]*Type),
		damageTypes: make(map[string]*DamageType),
	}
}

// RegisterInjuryType adds t. Returns error on duplicate or empty id.
func (r *Registry) RegisterInjuryType(t *Type) error {
	if t == nil || t.ID == "" {
		return errors.New("injury type without id")
	}
	if _, ok := r.injuryTypes[t.ID]; ok {
		return fmt.Errorf("duplicate injury type %q", t.ID)
	}
	r.injuryTypes[t.ID] = t
	return nil
}

// RegisterDamageType adds d. Returns error on duplicate or empty id.
func (r *Registry) RegisterDamageType(d *DamageType) error {
	if d == nil || d.ID == "" {
		return errors.New("damage type without id")
	}
	if _, ok := r.damageTypes[d.ID]; ok {
		return fmt.Errorf("duplicate damage type %q", d.ID)
	}
	r.damageTypes[d.ID] = d
	return nil
}

// InjuryType returns the injury type with id.
func (r *Registry) InjuryType(id string) (*Type, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.injuryTypes[id]
	return t, ok
}

// DamageType returns the damage type with id.
func (r *Registry) DamageType(id string) (*DamageType, bool) {
	if r == nil {
		return nil, false
	}
	d, ok := r.damageTypes[id]
	return d, ok
}

// SetDefault selects the injury type returned by Default.
func (r *Registry) SetDefault(id string) error {
	if _, ok := r.injuryTypes[id]; !ok {
		return fmt.Errorf("default injury type %q: %w", id, ErrUnknownType)
	}
	r.defaultID = id
	return nil
}

// Default returns the fallback injury type: the one chosen by SetDefault,
// else a registered "generic" type, else Generic.
func (r *Registry) Default() *Type {
	if r == nil {
		return Generic
	}
	if t, ok := r.injuryTypes[r.defaultID]; ok {
		return t
	}
	if t, ok := r.injuryTypes[Generic.ID]; ok {
		return t
	}
	return Generic
}

// InjuryTypes returns all injury types sorted by id.
func (r *Registry) InjuryTypes() []*Type {
	out := make([]*Type, 0, len(r.injuryTypes))
	for _, t := range r.injuryTypes {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Type) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// DamageTypes returns all damage types sorted by id.
func (r *Registry) DamageTypes() []*DamageType {
	out := make([]*DamageType, 0, len(r.damageTypes))
	for _, d := range r.damageTypes {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *DamageType) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// EncodeTypeRef writes an injury type as its registry id.
func EncodeTypeRef(w *wire.Writer, t *Type) {
	w.WriteString(typeID(t))
}

// DecodeTypeRef reads an injury type id and resolves it.
func (r *Registry) DecodeTypeRef(rd *wire.Reader) (*Type, error) {
	id, err := rd.ReadString()
	if err != nil {
		return nil, fmt.Errorf("reading injury type ref: %w", err)
	}
	t, ok := r.InjuryType(id)
	if !ok {
		if id == Generic.ID {
			return Generic, nil
		}
		return nil, fmt.Errorf("injury type %q: %w", id, ErrUnknownType)
	}
	return t, nil
}

// EncodeDamageTypeRef writes a damage type as its registry id.
func EncodeDamageTypeRef(w *wire.Writer, d *DamageType) {
	if d == nil {
		w.WriteString("")
		return
	}
	w.WriteString(d.ID)
}

// DecodeDamageTypeRef reads a damage type id and resolves it.
// An empty id decodes to nil.
func (r *Registry) DecodeDamageTypeRef(rd *wire.Reader) (*DamageType, error) {
	id, err := rd.ReadString()
	if err != nil {
		return nil, fmt.Errorf("reading damage type ref: %w", err)
	}
	if id == "" {
		return nil, nil
	}
	d, ok := r.DamageType(id)
	if !ok {
		return nil, fmt.Errorf("damage type %q: %w", id, ErrUnknownType)
	}
	return d, nil
}
