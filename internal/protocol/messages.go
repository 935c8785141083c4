package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	AgentName       string            `json:"agent_name"`
	SessionID       string            `json:"session_id,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	Ack      bool `json:"ack,omitempty"`
	MaxQueue int  `json:"max_queue,omitempty"`
}

// WELCOME (server -> client). A new WELCOME on a live connection means the
// server started a fresh session for us.
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id,omitempty"`
	AgentID         string         `json:"agent_id"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Eye             [3]float64     `json:"eye"`
	Hotbar          []string       `json:"hotbar,omitempty"`
	SelectedSlot    int            `json:"selected_slot"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	Seed       int64 `json:"seed,omitempty"`
}

type CatalogDigests struct {
	BlockPalette PaletteDigest `json:"block_palette"`
	ItemPalette  PaletteDigest `json:"item_palette"`
}

type PaletteDigest struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// DESTROY (client -> server)
type DestroyMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Action          string `json:"action"` // START, STOP, ABORT
	Pos             [3]int `json:"pos"`
	Side            string `json:"side"`
	Seq             uint32 `json:"seq"`
}

// PLACE (client -> server)
type PlaceMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Hand            string `json:"hand"`
	Pos             [3]int `json:"pos"`
	Side            string `json:"side"`
	Inside          bool   `json:"inside,omitempty"`
	Seq             uint32 `json:"seq"`
}

// HOTBAR_SELECT (client -> server)
type HotbarSelectMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Slot            int    `json:"slot"`
}

// STANCE (client -> server)
type StanceMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Sneak           bool   `json:"sneak"`
}

// LOOK (client -> server)
type LookMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Yaw             float64 `json:"yaw"`
	Pitch           float64 `json:"pitch"`
}

// ACK (server -> client) answers one sequenced action.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint32 `json:"seq"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}

// BLOCK_UPDATE (server -> client). Block is a block palette id.
type BlockUpdateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Pos             [3]int `json:"pos"`
	Block           uint16 `json:"block"`
}

// ENTITY_SPAWN / ENTITY_UPDATE (server -> client)
type EntityMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ID              string     `json:"id"`
	Item            string     `json:"item,omitempty"`
	Pos             [3]float64 `json:"pos"`
}

// ENTITY_REMOVE (server -> client)
type EntityRemoveMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
}

// VOXELS (server -> client). An RLE message carries the whole cube of
// radius Radius around Center in Data; a DELTA message lists changed cells
// in Ops instead.
type VoxelsMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	Center          [3]int         `json:"center"`
	Radius          int            `json:"radius"`
	Encoding        string         `json:"encoding"`
	Data            string         `json:"data,omitempty"`
	Ops             []VoxelDeltaOp `json:"ops,omitempty"`
}

type VoxelDeltaOp struct {
	D     [3]int `json:"d"` // offset from Center
	Block uint16 `json:"b"`
}
