// Package localworld is the bot's speculative copy of the server world and
// the aim, hotbar and stance state the action coordinators gate on.
package localworld

import (
	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/catalogs"
	"voxelcraft.ai/botcore/internal/sim/mining"
)

// Sender carries the unsequenced client messages.
type Sender interface {
	SendLook(rot action.Rotation)
	SendHotbar(slot int)
	SendStance(sneak bool)
}

// World caches blocks the server has reported. Unknown positions read as
// AIR.
type World struct {
	cat    *catalogs.Catalogs
	rates  *mining.Rates
	blocks map[action.Vec3i]uint16
	eye    action.Vec3f
	hotbar []string
}

func New(cat *catalogs.Catalogs) *World {
	return &World{
		cat:    cat,
		rates:  mining.NewRates(cat),
		blocks: map[action.Vec3i]uint16{},
	}
}

func (w *World) Catalogs() *catalogs.Catalogs { return w.cat }

func (w *World) BlockAt(pos action.Vec3i) uint16 { return w.blocks[pos] }

func (w *World) Known(pos action.Vec3i) bool {
	_, ok := w.blocks[pos]
	return ok
}

func (w *World) SetBlock(pos action.Vec3i, block uint16) { w.blocks[pos] = block }

func (w *World) BreakRate(block uint16, slot int) float64 {
	return w.rates.Rate(w.cat.BlockName(block), w.HotbarItem(slot))
}

// BestSlot is the hotbar slot that breaks block fastest, or -1.
func (w *World) BestSlot(block uint16) int {
	return w.rates.BestSlot(w.cat.BlockName(block), w.hotbar)
}

func (w *World) EyePos() action.Vec3f { return w.eye }

func (w *World) SetEye(eye action.Vec3f) { w.eye = eye }

func (w *World) SetHotbar(items []string) { w.hotbar = append(w.hotbar[:0], items...) }

func (w *World) HotbarItem(slot int) string {
	if slot < 0 || slot >= len(w.hotbar) {
		return ""
	}
	return w.hotbar[slot]
}

// DropOf is the item a broken block is expected to spawn.
func (w *World) DropOf(block uint16) string {
	return w.cat.Blocks.Defs[w.cat.BlockName(block)].DropsItem
}

// Reset forgets every cached block.
func (w *World) Reset() {
	w.blocks = map[action.Vec3i]uint16{}
}
