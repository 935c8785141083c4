package localworld

import (
	"math"
	"testing"

	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/catalogs"
)

type sent struct {
	looks   []action.Rotation
	slots   []int
	stances []bool
}

func (s *sent) SendLook(rot action.Rotation) { s.looks = append(s.looks, rot) }
func (s *sent) SendHotbar(slot int)           { s.slots = append(s.slots, slot) }
func (s *sent) SendStance(sneak bool)         { s.stances = append(s.stances, sneak) }

func newWorld(t *testing.T) *World {
	t.Helper()
	c, err := catalogs.Default()
	if err != nil {
		t.Fatal(err)
	}
	return New(c)
}

func TestWorld_BreakRateUsesHotbar(t *testing.T) {
	w := newWorld(t)
	stone, _ := w.Catalogs().BlockID("STONE")
	w.SetHotbar([]string{"DIRT", "IRON_PICKAXE"})
	if got := w.BreakRate(stone, 1); got != 0.25 {
		t.Fatalf("iron pickaxe rate: %v", got)
	}
	if got := w.BreakRate(stone, -1); got != 0.1 {
		t.Fatalf("bare hand rate: %v", got)
	}
	if got := w.BestSlot(stone); got != 1 {
		t.Fatalf("best slot: %d", got)
	}
	if got := w.DropOf(stone); got != "STONE" {
		t.Fatalf("drop: %q", got)
	}
}

func TestWorld_UnknownIsAir(t *testing.T) {
	w := newWorld(t)
	p := action.Vec3i{X: 4}
	if w.BlockAt(p) != 0 || w.Known(p) {
		t.Fatalf("unknown block should read as air")
	}
	w.SetBlock(p, 3)
	w.Reset()
	if w.Known(p) {
		t.Fatalf("reset kept blocks")
	}
}

func TestAim_BoundedTurn(t *testing.T) {
	out := &sent{}
	a := NewAim(out, 30)
	target := action.Rotation{Yaw: 75}
	if a.Submit(target) {
		t.Fatalf("75 degrees in one 30-degree tick")
	}
	if got := a.Current().Yaw; math.Abs(got-30) > 1e-9 {
		t.Fatalf("yaw after one tick: %v", got)
	}
	if a.Submit(target) {
		t.Fatalf("budget should be spent for this tick")
	}
	a.BeginTick()
	a.Submit(target)
	a.BeginTick()
	if !a.Submit(target) {
		t.Fatalf("expected aim done on third tick")
	}
	if len(out.looks) != 3 {
		t.Fatalf("looks sent: %d", len(out.looks))
	}
}

func TestAim_WrapsShortWay(t *testing.T) {
	a := NewAim(&sent{}, 30)
	a.Reset(action.Rotation{Yaw: 170})
	if !a.Submit(action.Rotation{Yaw: -170}) {
		t.Fatalf("20 degrees across the seam should fit one tick")
	}
}

func TestHotbar_HoldBlocksSwap(t *testing.T) {
	out := &sent{}
	h := NewHotbar(out, 0)
	if !h.Submit(2, 3, 0) {
		t.Fatalf("swap with no pause should be ready")
	}
	if h.Submit(4, 1, 0) || h.Selected() != 2 {
		t.Fatalf("held slot was swapped away")
	}
	for i := 0; i < 3; i++ {
		h.BeginTick()
	}
	if !h.Submit(4, 1, 0) || h.Selected() != 4 {
		t.Fatalf("hold should have expired")
	}
	if len(out.slots) != 2 {
		t.Fatalf("slot selects sent: %v", out.slots)
	}
}

func TestHotbar_Pause(t *testing.T) {
	h := NewHotbar(&sent{}, 0)
	if h.Submit(1, 1, 2) {
		t.Fatalf("pause not honoured")
	}
	h.BeginTick()
	if h.Submit(1, 1, 2) {
		t.Fatalf("pause not honoured on tick 1")
	}
	h.BeginTick()
	if !h.Submit(1, 1, 2) {
		t.Fatalf("expected ready after pause")
	}
}

func TestStance_VisibleNextTick(t *testing.T) {
	out := &sent{}
	s := NewStance(out)
	if !s.Submit(false) {
		t.Fatalf("standing is the initial stance")
	}
	if s.Submit(true) || s.Submit(true) {
		t.Fatalf("sneak should not be visible this tick")
	}
	s.BeginTick()
	if !s.Submit(true) {
		t.Fatalf("sneak should be visible next tick")
	}
	if len(out.stances) != 1 {
		t.Fatalf("stance messages: %v", out.stances)
	}
}
