package mining

import (
	"testing"

	"voxelcraft.ai/botcore/internal/sim/catalogs"
)

func rates(t *testing.T) *Rates {
	t.Helper()
	c, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return NewRates(c)
}

func TestRate_TierTable(t *testing.T) {
	r := rates(t)
	cases := []struct {
		block, tool string
		want        float64
	}{
		{"STONE", "", 0.1},
		{"STONE", "WOOD_PICKAXE", 1.0 / 8},
		{"STONE", "STONE_PICKAXE", 1.0 / 6},
		{"STONE", "IRON_PICKAXE", 0.25},
		{"STONE", "IRON_SHOVEL", 0.1},
		{"DIRT", "IRON_SHOVEL", 0.25},
		{"LOG", "STONE_AXE", 1.0 / 6},
		{"BEDROCK", "IRON_PICKAXE", 0},
		{"UNKNOWN", "IRON_PICKAXE", 0},
		{"STONE", "STONE", 0.1},
	}
	for _, tc := range cases {
		if got := r.Rate(tc.block, tc.tool); got != tc.want {
			t.Fatalf("Rate(%s,%s) = %v want %v", tc.block, tc.tool, got, tc.want)
		}
	}
}

func TestBestSlot(t *testing.T) {
	r := rates(t)
	hotbar := []string{"DIRT", "WOOD_PICKAXE", "IRON_SHOVEL", "STONE_PICKAXE"}
	if got := r.BestSlot("STONE", hotbar); got != 3 {
		t.Fatalf("stone best slot: %d", got)
	}
	if got := r.BestSlot("SAND", hotbar); got != 2 {
		t.Fatalf("sand best slot: %d", got)
	}
	if got := r.BestSlot("LOG", hotbar); got != -1 {
		t.Fatalf("log best slot: %d", got)
	}
}

func TestParseToolFamily(t *testing.T) {
	if ParseToolFamily("Pickaxe") != ToolFamilyPickaxe || ParseToolFamily("hoe") != ToolFamilyNone {
		t.Fatalf("family parse")
	}
}
