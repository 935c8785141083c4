// Package actiontest provides in-memory collaborators for coordinator tests.
package actiontest

import (
	"time"

	"voxelcraft.ai/botcore/internal/sim/action"
)

type World struct {
	Blocks      map[action.Vec3i]uint16
	Rates       map[uint16]map[int]float64
	DefaultRate float64
	Eye         action.Vec3f
	Sets        int
}

func NewWorld() *World {
	return &World{
		Blocks:      map[action.Vec3i]uint16{},
		Rates:       map[uint16]map[int]float64{},
		DefaultRate: 1,
	}
}

func (w *World) BlockAt(pos action.Vec3i) uint16 { return w.Blocks[pos] }

func (w *World) SetBlock(pos action.Vec3i, block uint16) {
	w.Sets++
	w.Blocks[pos] = block
}

func (w *World) SetRate(block uint16, slot int, rate float64) {
	m := w.Rates[block]
	if m == nil {
		m = map[int]float64{}
		w.Rates[block] = m
	}
	m[slot] = rate
}

func (w *World) BreakRate(block uint16, slot int) float64 {
	if r, ok := w.Rates[block][slot]; ok {
		return r
	}
	return w.DefaultRate
}

func (w *World) EyePos() action.Vec3f { return w.Eye }

type Aim struct {
	Ready bool
	Calls []action.Rotation
}

func (a *Aim) Submit(rot action.Rotation) bool {
	a.Calls = append(a.Calls, rot)
	return a.Ready
}

type ToolCall struct {
	Slot  int
	Hold  int
	Pause int
}

type Tools struct {
	Slot  int
	Ready bool
	Calls []ToolCall
}

func (t *Tools) Selected() int { return t.Slot }

func (t *Tools) Submit(slot, hold, pause int) bool {
	t.Calls = append(t.Calls, ToolCall{Slot: slot, Hold: hold, Pause: pause})
	if t.Ready {
		t.Slot = slot
	}
	return t.Ready
}

type Stance struct {
	Ready bool
	Calls int
}

func (s *Stance) Submit(bool) bool {
	s.Calls++
	return s.Ready
}

type Outbox struct {
	seq     uint32
	Packets []action.Packet
}

func (o *Outbox) NextSequence() uint32 {
	o.seq++
	return o.seq
}

func (o *Outbox) Send(p action.Packet) { o.Packets = append(o.Packets, p) }

func (o *Outbox) Kinds() []action.PacketKind {
	out := make([]action.PacketKind, 0, len(o.Packets))
	for _, p := range o.Packets {
		out = append(out, p.Kind)
	}
	return out
}

func (o *Outbox) Count(kind action.PacketKind) int {
	n := 0
	for _, p := range o.Packets {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

// Events records listener events.
type Events struct {
	List []action.Event
}

func (e *Events) HandleActionEvent(ev action.Event) { e.List = append(e.List, ev) }

func (e *Events) Kinds() []action.EventKind {
	out := make([]action.EventKind, 0, len(e.List))
	for _, ev := range e.List {
		out = append(out, ev.Kind)
	}
	return out
}

// Count returns how many events of kind were seen.
func (e *Events) Count(kind action.EventKind) int {
	n := 0
	for _, ev := range e.List {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type Outcomes struct {
	List []action.Outcome
}

func (o *Outcomes) Record(out action.Outcome) { o.List = append(o.List, out) }

func (o *Outcomes) Categories() []action.Category {
	out := make([]action.Category, 0, len(o.List))
	for _, x := range o.List {
		out = append(out, x.Category)
	}
	return out
}

type Clock struct{ T time.Time }

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

type Fakes struct {
	World    *World
	Aim      *Aim
	Tools    *Tools
	Stance   *Stance
	Out      *Outbox
	Outcomes *Outcomes
	Clock    *Clock
}

// NewEnv returns an Env whose collaborators are all ready.
func NewEnv() (*action.Env, *Fakes) {
	f := &Fakes{
		World:    NewWorld(),
		Aim:      &Aim{Ready: true},
		Tools:    &Tools{Ready: true},
		Stance:   &Stance{Ready: true},
		Out:      &Outbox{},
		Outcomes: &Outcomes{},
		Clock:    &Clock{T: time.Unix(1700000000, 0)},
	}
	env := &action.Env{
		World:    f.World,
		Aim:      f.Aim,
		Tools:    f.Tools,
		Stance:   f.Stance,
		Out:      f.Out,
		Recorder: f.Outcomes,
		Now:      f.Clock.Now,
	}
	return env, f
}
