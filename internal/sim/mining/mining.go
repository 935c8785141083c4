// Package mining turns block and tool definitions into per-tick break rates.
package mining

import (
	"strings"

	"voxelcraft.ai/botcore/internal/sim/catalogs"
)

type ToolFamily int

const (
	ToolFamilyNone ToolFamily = iota
	ToolFamilyPickaxe
	ToolFamilyAxe
	ToolFamilyShovel
)

func ParseToolFamily(s string) ToolFamily {
	switch strings.ToLower(s) {
	case "pickaxe":
		return ToolFamilyPickaxe
	case "axe":
		return ToolFamilyAxe
	case "shovel":
		return ToolFamilyShovel
	default:
		return ToolFamilyNone
	}
}

func ToolFamilyForBlock(blockName string) ToolFamily {
	switch blockName {
	case "DIRT", "GRASS", "SAND", "GRAVEL":
		return ToolFamilyShovel
	case "LOG", "PLANK":
		return ToolFamilyAxe
	default:
		return ToolFamilyPickaxe
	}
}

// WorkTicksForTier is how many ticks a block takes with a matching tool of
// tier (0 = bare hand or wrong tool).
func WorkTicksForTier(tier int) int {
	switch tier {
	case 3:
		return 4
	case 2:
		return 6
	case 1:
		return 8
	default:
		return 10
	}
}

// Rates answers break-rate queries against one catalog.
type Rates struct {
	cat *catalogs.Catalogs
}

func NewRates(c *catalogs.Catalogs) *Rates { return &Rates{cat: c} }

func (r *Rates) familyOf(block string) ToolFamily {
	def := r.cat.Blocks.Defs[block]
	if def.Tool != "" {
		return ParseToolFamily(def.Tool)
	}
	return ToolFamilyForBlock(block)
}

// Tier is the effective tier of tool against block.
func (r *Rates) Tier(block, tool string) int {
	it, ok := r.cat.Items.Defs[tool]
	if !ok || it.Kind != "TOOL" {
		return 0
	}
	if ParseToolFamily(it.Family) != r.familyOf(block) {
		return 0
	}
	return it.Tier
}

// Rate is the progress one tick adds when breaking block with tool. It is 0
// for unknown and unbreakable blocks.
func (r *Rates) Rate(block, tool string) float64 {
	def, ok := r.cat.Blocks.Defs[block]
	if !ok || !def.Breakable {
		return 0
	}
	return 1 / float64(WorkTicksForTier(r.Tier(block, tool)))
}

// BestSlot picks the hotbar slot that breaks block fastest. It returns -1
// when nothing beats an empty hand.
func (r *Rates) BestSlot(block string, hotbar []string) int {
	best, bestTier := -1, 0
	for i, item := range hotbar {
		if t := r.Tier(block, item); t > bestTier {
			best, bestTier = i, t
		}
	}
	return best
}
