package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type Catalogs struct {
	Blocks BlockCatalog
	Items  ItemCatalog
	Digest string
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
}

type BlockDef struct {
	ID        string `yaml:"id" json:"id"`
	Solid     bool   `yaml:"solid" json:"solid"`
	Breakable bool   `yaml:"breakable" json:"breakable"`
	DropsItem string `yaml:"drops_item,omitempty" json:"drops_item,omitempty"`
	// Tool is the tool family that speeds up breaking; empty uses the
	// family rules in package mining.
	Tool string `yaml:"tool,omitempty" json:"tool,omitempty"`
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
}

type ItemDef struct {
	ID      string `yaml:"id" json:"id"`
	Kind    string `yaml:"kind" json:"kind"` // "BLOCK","TOOL","MATERIAL"
	PlaceAs string `yaml:"place_as,omitempty" json:"place_as,omitempty"`
	Family  string `yaml:"family,omitempty" json:"family,omitempty"`
	Tier    int    `yaml:"tier,omitempty" json:"tier,omitempty"`
}

type file struct {
	Blocks []BlockDef `yaml:"blocks"`
	Items  []ItemDef  `yaml:"items"`
}

// Load reads a catalog YAML file. An empty path loads the built-in catalog.
func Load(path string) (*Catalogs, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Default() (*Catalogs, error) { return Parse(defaultYAML) }

func Parse(raw []byte) (*Catalogs, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c := &Catalogs{Digest: sha256Hex(raw)}
	if err := buildBlocks(f.Blocks, &c.Blocks); err != nil {
		return nil, err
	}
	if err := buildItems(f.Items, &c.Items); err != nil {
		return nil, err
	}
	return c, nil
}

// BlockName returns the palette name of id, or "" when id is unknown.
func (c *Catalogs) BlockName(id uint16) string {
	if int(id) < len(c.Blocks.Palette) {
		return c.Blocks.Palette[id]
	}
	return ""
}

func (c *Catalogs) BlockID(name string) (uint16, bool) {
	id, ok := c.Blocks.Index[name]
	return id, ok
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func buildBlocks(defs []BlockDef, out *BlockCatalog) error {
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("catalog blocks: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// AIR is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("catalog blocks: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func buildItems(defs []ItemDef, out *ItemCatalog) error {
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("catalog items: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
