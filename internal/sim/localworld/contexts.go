package localworld

import (
	"math"

	"voxelcraft.ai/botcore/internal/sim/action"
)

// FacingSide is the face of pos that points toward eye.
func FacingSide(eye action.Vec3f, pos action.Vec3i) action.Side {
	c := pos.Center()
	dx, dy, dz := eye.X-c.X, eye.Y-c.Y, eye.Z-c.Z
	ax, ay, az := math.Abs(dx), math.Abs(dy), math.Abs(dz)
	switch {
	case ay >= ax && ay >= az:
		if dy < 0 {
			return action.SideDown
		}
		return action.SideUp
	case ax >= az:
		if dx < 0 {
			return action.SideWest
		}
		return action.SideEast
	default:
		if dz < 0 {
			return action.SideNorth
		}
		return action.SideSouth
	}
}

// DestroyContext derives a break context for pos from the cached block:
// target AIR, best hotbar tool, expected drop.
func (w *World) DestroyContext(pos action.Vec3i) action.Context {
	block := w.BlockAt(pos)
	return action.Context{
		Pos:        pos,
		Current:    block,
		Desired:    0,
		Side:       FacingSide(w.eye, pos),
		Slot:       w.BestSlot(block),
		ExpectDrop: w.DropOf(block),
	}
}

// PlaceContext derives a placement of the item in slot at pos, clicking
// the face of the neighbour below. It reports false when the slot holds
// nothing placeable.
func (w *World) PlaceContext(pos action.Vec3i, slot int) (action.Context, bool) {
	item := w.cat.Items.Defs[w.HotbarItem(slot)]
	block, ok := w.cat.BlockID(item.PlaceAs)
	if !ok || item.PlaceAs == "" {
		return action.Context{}, false
	}
	support := pos.Add(action.Vec3i{Y: -1})
	return action.Context{
		Pos:     pos,
		Current: w.BlockAt(pos),
		Desired: block,
		Side:    action.SideUp,
		Slot:    slot,
		Hand:    action.MainHand,
		Hit:     action.HitResult{Pos: support, Side: action.SideUp},
	}, true
}
