package session

import "voxelcraft.ai/botcore/internal/sim/action"

// Inbound events. The transport decodes server messages into these and hands
// them to the tick goroutine through Inbox.

type BlockUpdate struct {
	Pos   action.Vec3i
	Block uint16
}

// Voxels is a batch of authoritative blocks, usually a cube snapshot. Cells
// that match an already known block are skipped.
type Voxels struct {
	Updates []BlockUpdate
}

type EntitySpawn struct{ Entity action.Entity }

type EntityUpdate struct{ Entity action.Entity }

type EntityRemove struct{ ID string }

// Reconnect starts a fresh server session: every slot and the pending queue
// are cleared without completion events.
type Reconnect struct {
	SessionID string
	Eye       action.Vec3f
	Hotbar    []string
	Selected  int
}

type Ack struct {
	Seq      uint32
	Accepted bool
	Code     string
	Message  string
}
