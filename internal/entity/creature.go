package entity

import (
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/udisondev/bodysim/internal/body"
	"github.com/udisondev/bodysim/internal/event"
	"github.com/udisondev/bodysim/internal/stat"
)

// Death is delivered by Creature.OnDied.
type Death struct {
	Creature *Creature
	Reason   string
}

// Creature is a body owner: it hosts the stats and features its body
// grants. Not safe for concurrent use.
type Creature struct {
	stat.Set

	id       uuid.UUID
	name     string
	features []body.Feature
	body     *body.Body

	dead        bool
	deathReason string

	logger *slog.Logger
	died   event.Event[Death]
}

var _ body.Owner = (*Creature)(nil)

// New creates a living creature with a random id.
func New(name string) *Creature {
	return NewWithID(uuid.New(), name)
}

// NewWithID creates a creature with a known id, e.g. when restoring.
func NewWithID(id uuid.UUID, name string) *Creature {
	return &Creature{
		id:     id,
		name:   name,
		logger: slog.Default().With("creature", name, "id", id.String()),
	}
}

func (c *Creature) ID() uuid.UUID               { return c.id }
func (c *Creature) Name() string                { return c.name }
func (c *Creature) Body() *body.Body            { return c.body }
func (c *Creature) IsDead() bool                { return c.dead }
func (c *Creature) DeathReason() string         { return c.deathReason }
func (c *Creature) OnDied() *event.Event[Death] { return &c.died }

// AttachBody makes c the owner of b, releasing the previous body.
func (c *Creature) AttachBody(b *body.Body) {
	if c.body == b {
		return
	}
	if c.body != nil {
		c.body.SetOwner(nil)
	}
	c.body = b
	if b != nil {
		b.SetOwner(c)
	}
}

// AddFeature adds one instance of f.
func (c *Creature) AddFeature(f body.Feature) {
	c.features = append(c.features, f)
}

// RemoveFeature removes one instance of f.
func (c *Creature) RemoveFeature(f body.Feature) {
	if i := slices.Index(c.features, f); i >= 0 {
		c.features = slices.Delete(c.features, i, i+1)
	}
}

// Features returns every feature instance in insertion order.
func (c *Creature) Features() []body.Feature {
	return slices.Clone(c.features)
}

// FeatureCount returns how many instances of id the creature has.
func (c *Creature) FeatureCount(id string) int {
	n := 0
	for _, f := range c.features {
		if f.ID() == id {
			n++
		}
	}
	return n
}

// HasFeature reports whether an enabled feature with id is present.
func (c *Creature) HasFeature(id string) bool {
	for _, f := range c.features {
		if f.ID() == id && f.Enabled() {
			return true
		}
	}
	return false
}

// Kill marks the creature dead. Later calls are ignored.
func (c *Creature) Kill(reason string) {
	if c.dead {
		return
	}
	c.dead = true
	c.deathReason = reason
	c.logger.Info("creature died", "reason", reason)
	c.died.Emit(Death{Creature: c, Reason: reason})
}

// Revive clears the dead flag.
func (c *Creature) Revive() {
	if !c.dead {
		return
	}
	c.dead = false
	c.deathReason = ""
	c.logger.Info("creature revived")
}

// Log records a simulation message about the creature.
func (c *Creature) Log(msg string) {
	c.logger.Debug(msg)
}
