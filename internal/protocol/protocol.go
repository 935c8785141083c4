package protocol

import (
	"encoding/json"
	"fmt"
)

const Version = "1.0"

// Message types.
const (
	// Client -> server.
	TypeHello        = "HELLO"
	TypeDestroy      = "DESTROY"
	TypePlace        = "PLACE"
	TypeHotbarSelect = "HOTBAR_SELECT"
	TypeStance       = "STANCE"
	TypeLook         = "LOOK"

	// Server -> client.
	TypeWelcome      = "WELCOME"
	TypeAck          = "ACK"
	TypeBlockUpdate  = "BLOCK_UPDATE"
	TypeEntitySpawn  = "ENTITY_SPAWN"
	TypeEntityUpdate = "ENTITY_UPDATE"
	TypeEntityRemove = "ENTITY_REMOVE"
	TypeVoxels       = "VOXELS"
)

// Voxel encodings.
const (
	VoxelsRLE   = "RLE"
	VoxelsDelta = "DELTA"
)

// Destroy actions.
const (
	DestroyStart = "START"
	DestroyStop  = "STOP"
	DestroyAbort = "ABORT"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// DecodeServer decodes a server -> client message into its concrete type.
// Unknown types return an error wrapping ErrUnknownType.
func DecodeServer(b []byte) (any, error) {
	base, err := DecodeBase(b)
	if err != nil {
		return nil, err
	}
	var v any
	switch base.Type {
	case TypeWelcome:
		v = &WelcomeMsg{}
	case TypeAck:
		v = &AckMsg{}
	case TypeBlockUpdate:
		v = &BlockUpdateMsg{}
	case TypeEntitySpawn, TypeEntityUpdate:
		v = &EntityMsg{}
	case TypeEntityRemove:
		v = &EntityRemoveMsg{}
	case TypeVoxels:
		v = &VoxelsMsg{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, base.Type)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", base.Type, err)
	}
	return v, nil
}
