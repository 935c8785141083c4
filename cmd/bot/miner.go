package main

import (
	"math"

	"go.uber.org/zap"

	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/session"
)

const eyeHeight = 1.6

// miner digs the column under the bot's feet. It keeps one request alive
// until every block in it is gone, then builds the next from whatever the
// local world knows.
type miner struct {
	s     *session.Session
	depth int
	log   *zap.Logger

	req    *action.Request
	events map[action.EventKind]int
}

func newMiner(s *session.Session, depth int, log *zap.Logger) *miner {
	return &miner{s: s, depth: depth, log: log, events: map[action.EventKind]int{}}
}

func (m *miner) tick(uint64) {
	w := m.s.World()
	if m.req == nil || m.req.Done(w) {
		ctxs := m.targets()
		if len(ctxs) == 0 {
			m.req = nil
			return
		}
		m.req = action.NewRequest("miner", ctxs, action.Policy{
			Confirm: action.OptimisticThenConfirm,
			Rebreak: true,
		}, action.ListenerFunc(m.onEvent))
	}
	m.s.SubmitBreak(m.req)
}

func (m *miner) targets() []action.Context {
	w := m.s.World()
	eye := w.EyePos()
	x, z := int(math.Floor(eye.X)), int(math.Floor(eye.Z))
	feet := int(math.Floor(eye.Y - eyeHeight))

	var out []action.Context
	for dy := 1; dy <= m.depth; dy++ {
		pos := action.Vec3i{X: x, Y: feet - dy, Z: z}
		if !w.Known(pos) || w.BlockAt(pos) == 0 {
			continue
		}
		ctx := w.DestroyContext(pos)
		if w.BreakRate(ctx.Current, ctx.Slot) <= 0 {
			// Unbreakable; nothing below it is reachable either.
			break
		}
		out = append(out, ctx)
	}
	return out
}

func (m *miner) onEvent(ev action.Event) {
	m.events[ev.Kind]++
	if ev.Kind == action.EventUpdate {
		return
	}
	m.log.Debug("miner event",
		zap.Stringer("kind", ev.Kind),
		zap.Stringer("pos", ev.Pos),
		zap.Uint64("request_id", ev.RequestID),
		zap.String("reason", ev.Reason),
	)
}
