package board

import (
	"math/rand/v2"

	"github.com/udisondev/bodysim/internal/body"
	"github.com/udisondev/bodysim/internal/injury"
)

// Hazard deals random damage to random living parts. Not safe for
// concurrent use; call Strike from the board loop only.
type Hazard struct {
	types    []*injury.DamageType
	min, max float64
	rng      *rand.Rand
}

// NewHazard creates a hazard striking with one of types for an amount
// in [minDamage, maxDamage].
func NewHazard(types []*injury.DamageType, minDamage, maxDamage float64, seed uint64) *Hazard {
	if maxDamage < minDamage {
		minDamage, maxDamage = maxDamage, minDamage
	}
	return &Hazard{
		types: types,
		min:   minDamage,
		max:   maxDamage,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Strike damages one living part of b and returns it with the damage
// actually dealt. It returns nil when b has no living part.
func (h *Hazard) Strike(b *body.Body) (*body.Part, float64) {
	if len(h.types) == 0 {
		return nil, 0
	}
	var alive []*body.Part
	for _, p := range b.Parts() {
		if p.IsAlive() {
			alive = append(alive, p)
		}
	}
	if len(alive) == 0 {
		return nil, 0
	}

	part := alive[h.rng.IntN(len(alive))]
	dt := h.types[h.rng.IntN(len(h.types))]
	amount := h.min + (h.max-h.min)*h.rng.Float64()
	return part, part.Damage(injury.Source{Type: dt, Origin: "hazard"}, amount)
}
