package localworld

import (
	"math"

	"voxelcraft.ai/botcore/internal/sim/action"
)

// Aim turns toward submitted rotations at a bounded angular speed.
type Aim struct {
	out     Sender
	maxStep float64 // degrees per tick; 0 turns instantly
	budget  float64
	cur     action.Rotation
}

func NewAim(out Sender, maxStep float64) *Aim {
	return &Aim{out: out, maxStep: maxStep, budget: maxStep}
}

func (a *Aim) BeginTick() { a.budget = a.maxStep }

func (a *Aim) Current() action.Rotation { return a.cur }

func (a *Aim) Reset(rot action.Rotation) {
	a.cur = rot
	a.budget = a.maxStep
}

// Submit reports whether the actor already faces rot after this tick's turn.
func (a *Aim) Submit(rot action.Rotation) bool {
	dy := wrapDegrees(rot.Yaw - a.cur.Yaw)
	dp := rot.Pitch - a.cur.Pitch
	dist := math.Max(math.Abs(dy), math.Abs(dp))
	if dist < 1e-6 {
		return true
	}
	if a.maxStep <= 0 || dist <= a.budget {
		a.cur = rot
		if a.maxStep > 0 {
			a.budget -= dist
		}
		a.out.SendLook(a.cur)
		return true
	}
	if a.budget <= 0 {
		return false
	}
	f := a.budget / dist
	a.cur = action.Rotation{Yaw: wrapDegrees(a.cur.Yaw + dy*f), Pitch: a.cur.Pitch + dp*f}
	a.budget = 0
	a.out.SendLook(a.cur)
	return false
}

func wrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}

// Hotbar selects equipment slots. A slot held for minHold ticks cannot be
// swapped away until the hold runs out.
type Hotbar struct {
	out       Sender
	selected  int
	tick      int
	holdUntil int
	readyAt   int
}

func NewHotbar(out Sender, selected int) *Hotbar {
	return &Hotbar{out: out, selected: selected}
}

func (h *Hotbar) BeginTick() { h.tick++ }

func (h *Hotbar) Selected() int { return h.selected }

func (h *Hotbar) Submit(slot, minHold, pause int) bool {
	if slot == h.selected {
		if until := h.tick + minHold; until > h.holdUntil {
			h.holdUntil = until
		}
		return h.tick >= h.readyAt
	}
	if h.tick < h.holdUntil {
		return false
	}
	h.selected = slot
	h.out.SendHotbar(slot)
	h.holdUntil = h.tick + minHold
	h.readyAt = h.tick + max(pause, 0)
	return h.tick >= h.readyAt
}

// Reset adopts the server's selection and drops holds.
func (h *Hotbar) Reset(selected int) {
	h.selected = selected
	h.holdUntil = h.tick
	h.readyAt = h.tick
}

// Stance toggles sneaking. A change is visible to the server from the next
// tick on.
type Stance struct {
	out       Sender
	sneaking  bool
	tick      int
	changedAt int
}

func NewStance(out Sender) *Stance {
	return &Stance{out: out, changedAt: -1}
}

func (s *Stance) BeginTick() { s.tick++ }

func (s *Stance) Sneaking() bool { return s.sneaking }

func (s *Stance) Submit(sneak bool) bool {
	if s.sneaking != sneak {
		s.sneaking = sneak
		s.changedAt = s.tick
		s.out.SendStance(sneak)
	}
	return s.tick > s.changedAt
}

func (s *Stance) Reset() {
	s.sneaking = false
	s.changedAt = -1
}
