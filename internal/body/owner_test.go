package body

import (
	"slices"
	"testing"

	"github.com/udisondev/bodysim/internal/stat"
)

type fakeOwner struct {
	stat.Set
	features []Feature
	killed   []string
	logs     []string
}

func (o *fakeOwner) AddFeature(f Feature) { o.features = append(o.features, f) }

func (o *fakeOwner) RemoveFeature(f Feature) {
	if i := slices.Index(o.features, f); i >= 0 {
		o.features = slices.Delete(o.features, i, i+1)
	}
}

func (o *fakeOwner) Features() []Feature { return slices.Clone(o.features) }
func (o *fakeOwner) Kill(reason string)  { o.killed = append(o.killed, reason) }
func (o *fakeOwner) Log(msg string)      { o.logs = append(o.logs, msg) }

func (o *fakeOwner) countFeature(id string) int {
	n := 0
	for _, f := range o.features {
		if f.ID() == id {
			n++
		}
	}
	return n
}

// humanoid builds torso{head, chest-strap, left-arm{left-hand}}.
func humanoid(t *testing.T) (*Body, map[string]*Part) {
	t.Helper()
	torso := NewPart("torso", "torso", 100, 1)
	head := NewPart("head", "head", 40, 0.5)
	strap := NewPart("chest-strap", "gear", 10, 0.1)
	arm := NewPart("left-arm", "arm", 50, 0.5)
	hand := NewPart("left-hand", "hand", 25, 0.25)

	strap.AddSlot("armor")
	hand.AddSlot("ring")

	mustAdd(torso, head)
	mustAdd(torso, strap)
	mustAdd(torso, arm)
	mustAdd(arm, hand)

	b := New()
	b.SetRoot(torso)
	return b, map[string]*Part{
		"torso": torso, "head": head, "chest-strap": strap, "left-arm": arm, "left-hand": hand,
	}
}

func mustAdd(parent, child *Part) {
	if err := parent.AddChild(child); err != nil {
		panic(err)
	}
}
