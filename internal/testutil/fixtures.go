package testutil

import (
	"testing"

	"github.com/udisondev/bodysim/internal/body"
	"github.com/udisondev/bodysim/internal/entity"
	"github.com/udisondev/bodysim/internal/injury"
)

// Cut — тестовый тип травмы с кровотечением.
var Cut = &injury.Type{ID: "cut", Name: "Cut", Pain: 1, BleedingRate: 0.5}

// Registry возвращает реестр с типами generic и cut.
func Registry(tb testing.TB) *injury.Registry {
	tb.Helper()
	reg := injury.NewRegistry()
	for _, t := range []*injury.Type{injury.Generic, Cut} {
		if err := reg.RegisterInjuryType(t); err != nil {
			tb.Fatalf("registering injury type %q: %v", t.ID, err)
		}
	}
	return reg
}

// Creature создаёт существо с телом torso{head, left-arm{left-hand}}.
func Creature(tb testing.TB, name string, reg *injury.Registry) *entity.Creature {
	tb.Helper()
	torso := body.NewPart("torso", "torso", 100, 1)
	head := body.NewPart("head", "head", 40, 0.5)
	arm := body.NewPart("left-arm", "arm", 50, 0.5)
	hand := body.NewPart("left-hand", "hand", 25, 0.25)
	hand.AddSlot("ring")

	for _, link := range [][2]*body.Part{{torso, head}, {torso, arm}, {arm, hand}} {
		if err := link[0].AddChild(link[1]); err != nil {
			tb.Fatalf("building fixture body: %v", err)
		}
	}

	b := body.New(body.WithRegistry(reg))
	b.SetRoot(torso)
	c := entity.New(name)
	c.AttachBody(b)
	return c
}
