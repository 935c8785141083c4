package action

import (
	"time"

	"go.uber.org/zap"
)

type BlockReader interface {
	BlockAt(pos Vec3i) uint16
}

// World is the local, speculative view of the authoritative world.
type World interface {
	BlockReader
	SetBlock(pos Vec3i, block uint16)
	// BreakRate is the progress one tick adds when breaking block with the
	// item in slot.
	BreakRate(block uint16, slot int) float64
	EyePos() Vec3f
}

// Aim turns the actor toward rot and reports whether it is already there.
type Aim interface {
	Submit(rot Rotation) bool
}

// Tools selects equipment slots. Submit reports whether slot is selected
// and visible to the server.
type Tools interface {
	Selected() int
	Submit(slot, minHoldTicks, pauseTicks int) bool
}

type Stance interface {
	Submit(sneak bool) bool
}

type PacketKind uint8

const (
	PacketStartDestroy PacketKind = iota
	PacketStopDestroy
	PacketAbortDestroy
	PacketPlace
)

var packetKindNames = [...]string{"START", "STOP", "ABORT", "PLACE"}

func (k PacketKind) String() string {
	if int(k) < len(packetKindNames) {
		return packetKindNames[k]
	}
	return "UNKNOWN"
}

type Packet struct {
	Kind PacketKind
	Pos  Vec3i
	Side Side
	Hand Hand
	Hit  HitResult
	Seq  uint32
}

// Outbox carries protocol actions to the server.
type Outbox interface {
	NextSequence() uint32
	Send(p Packet)
}

// Env is the handle every coordinator acts through.
type Env struct {
	World    World
	Aim      Aim
	Tools    Tools
	Stance   Stance
	Out      Outbox
	Recorder Recorder
	Now      func() time.Time
	Log      *zap.Logger
}

func (e *Env) Logger() *zap.Logger {
	if e == nil || e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e *Env) Clock() time.Time {
	if e == nil || e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) SendDestroy(kind PacketKind, pos Vec3i, side Side) {
	if e.Out == nil {
		return
	}
	e.Out.Send(Packet{Kind: kind, Pos: pos, Side: side, Seq: e.Out.NextSequence()})
}

func (e *Env) SendPlace(hand Hand, hit HitResult) {
	if e.Out == nil {
		return
	}
	e.Out.Send(Packet{Kind: PacketPlace, Pos: hit.Pos, Side: hit.Side, Hand: hand, Hit: hit, Seq: e.Out.NextSequence()})
}

func (e *Env) Record(i *Info, kind ActionKind, cat Category) {
	if e == nil || e.Recorder == nil || i == nil {
		return
	}
	o := Outcome{
		At:            e.Clock(),
		Kind:          kind,
		Type:          i.Type,
		Pos:           i.Ctx.Pos,
		Category:      cat,
		ProgressTicks: i.ProgressTicks,
	}
	if i.Req != nil {
		o.RequestID = i.Req.ID
		o.Owner = i.Req.Owner
	}
	e.Recorder.Record(o)
}

// ActionKindOf reports whether i is a destroy or a place.
func ActionKindOf(i *Info) ActionKind {
	if i.Type == TypePlace {
		return KindPlace
	}
	return KindDestroy
}
