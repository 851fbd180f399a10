package stat

import (
	"fmt"

	"github.com/udisondev/bodysim/internal/wire"
)

// Encode writes the stat:
//
//	id:string base:float min:float max:float overCap:byte underCap:byte
//	count:byte {id:string value:float type:byte}*
func (s *Stat) Encode(w *wire.Writer) error {
	w.WriteString(s.id)
	w.WriteFloat(s.baseValue)
	w.WriteFloat(s.minValue)
	w.WriteFloat(s.maxValue)
	w.WriteBool(s.overCap)
	w.WriteBool(s.underCap)
	if err := w.WriteCount(len(s.order)); err != nil {
		return fmt.Errorf("stat %s modifiers: %w", s.id, err)
	}
	for _, id := range s.order {
		m := s.mods[id]
		w.WriteString(m.ID)
		w.WriteFloat(m.Value)
		_ = w.WriteByte(byte(m.Type))
	}
	return nil
}

// Decode reads a stat written by Encode. The final value is recomputed.
func Decode(r *wire.Reader) (*Stat, error) {
	s := &Stat{mods: make(map[string]Modifier)}

	var err error
	if s.id, err = r.ReadString(); err != nil {
		return nil, fmt.Errorf("reading stat id: %w", err)
	}
	if s.baseValue, err = r.ReadFloat(); err != nil {
		return nil, fmt.Errorf("reading stat %s base: %w", s.id, err)
	}
	if s.minValue, err = r.ReadFloat(); err != nil {
		return nil, fmt.Errorf("reading stat %s min: %w", s.id, err)
	}
	if s.maxValue, err = r.ReadFloat(); err != nil {
		return nil, fmt.Errorf("reading stat %s max: %w", s.id, err)
	}
	if s.overCap, err = r.ReadBool(); err != nil {
		return nil, fmt.Errorf("reading stat %s overCap: %w", s.id, err)
	}
	if s.underCap, err = r.ReadBool(); err != nil {
		return nil, fmt.Errorf("reading stat %s underCap: %w", s.id, err)
	}
	n, err := r.ReadCount()
	if err != nil {
		return nil, fmt.Errorf("reading stat %s modifier count: %w", s.id, err)
	}
	for i := 0; i < n; i++ {
		var m Modifier
		if m.ID, err = r.ReadString(); err != nil {
			return nil, fmt.Errorf("reading stat %s modifier %d id: %w", s.id, i, err)
		}
		if m.Value, err = r.ReadFloat(); err != nil {
			return nil, fmt.Errorf("reading stat %s modifier %s value: %w", s.id, m.ID, err)
		}
		t, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("reading stat %s modifier %s type: %w", s.id, m.ID, err)
		}
		m.Type = ModifierType(t)
		if !m.Type.Valid() {
			return nil, fmt.Errorf("stat %s modifier %s: invalid type %d", s.id, m.ID, t)
		}
		if _, dup := s.mods[m.ID]; !dup {
			s.order = append(s.order, m.ID)
		}
		s.mods[m.ID] = m
	}

	s.finalValue = s.CalculateFinalValue()
	return s, nil
}
