// Package pending holds finished actions until the server echoes them.
package pending

import (
	"time"

	"go.uber.org/zap"

	"voxelcraft.ai/botcore/internal/sim/action"
)

// Overflow selects what Add does when the queue is full.
type Overflow uint8

const (
	EvictOldest Overflow = iota
	RejectNew
)

func ParseOverflow(s string) (Overflow, bool) {
	switch s {
	case "", "evict_oldest":
		return EvictOldest, true
	case "reject_new":
		return RejectNew, true
	}
	return EvictOldest, false
}

type Config struct {
	Capacity int
	Timeout  time.Duration
	Overflow Overflow
	// Rollback restores the previous block when an optimistic change
	// times out or is evicted.
	Rollback bool
}

func (c *Config) applyDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = 32
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
}

const looseDropLimit = 64

type entry struct {
	info    *action.Info
	mode    action.ConfirmMode
	addedAt time.Time
}

// Queue is bounded by capacity and by wall-clock age.
type Queue struct {
	cfg Config
	env *action.Env

	entries []*entry
	// Item entities seen before an entry could claim them.
	loose []action.Entity

	onReject func(*action.Info)
}

func New(env *action.Env, cfg Config) *Queue {
	cfg.applyDefaults()
	return &Queue{cfg: cfg, env: env}
}

// OnReject registers fn to run whenever an unconfirmed action is given up:
// rejected by the server, timed out or pushed out by the overflow policy.
func (q *Queue) OnReject(fn func(*action.Info)) { q.onReject = fn }

func (q *Queue) Len() int { return len(q.entries) }

func (q *Queue) Contains(pos action.Vec3i) bool {
	for _, e := range q.entries {
		if e.info.Ctx.Pos == pos {
			return true
		}
	}
	return false
}

// Add stores a finished action. Immediate entries only wait for their drop.
// Add reports false when the action was turned away by the overflow policy.
func (q *Queue) Add(info *action.Info, mode action.ConfirmMode) bool {
	if info == nil {
		return false
	}
	if len(q.entries) >= q.cfg.Capacity {
		switch q.cfg.Overflow {
		case RejectNew:
			if info.Confirmed || mode == action.Immediate {
				q.dropLost(&entry{info: info, mode: mode}, "pending queue full")
			} else {
				q.rejectInfo(info, mode, action.CategoryEvicted, "pending queue full")
			}
			return false
		default:
			oldest := q.entries[0]
			q.entries = q.entries[1:]
			if oldest.info.Confirmed || oldest.mode == action.Immediate {
				q.dropLost(oldest, "evicted from pending queue")
			} else {
				q.rejectInfo(oldest.info, oldest.mode, action.CategoryEvicted, "evicted from pending queue")
			}
		}
	}
	e := &entry{info: info, mode: mode, addedAt: q.env.Clock()}
	q.entries = append(q.entries, e)
	if info.Req != nil {
		info.Req.InFlight.Add(info.Ctx.Pos)
	}
	q.claimLoose(e)
	return true
}

// OnBlockUpdate reconciles an authoritative block change. It reports whether
// a tracked entry was at pos.
func (q *Queue) OnBlockUpdate(pos action.Vec3i, block uint16) bool {
	handled := false
	for i := 0; i < len(q.entries); i++ {
		e := q.entries[i]
		if e.info.Ctx.Pos != pos {
			continue
		}
		handled = true
		if e.info.Confirmed {
			continue
		}
		switch {
		case block == e.info.Ctx.Desired:
			q.confirm(e)
		case block == e.info.Ctx.Current:
			// Stale echo of the state before the action.
			continue
		default:
			q.remove(e)
			i--
			q.env.Logger().Info("action rejected",
				zap.String("category", string(action.CategoryRejected)),
				zap.Uint64("request_id", requestID(e.info)),
				zap.Stringer("pos", pos),
				zap.Uint16("expected", e.info.Ctx.Desired),
				zap.Uint16("got", block),
			)
			e.info.Emit(action.EventCancel, "rejected")
			q.env.Record(e.info, action.ActionKindOf(e.info), action.CategoryRejected)
			q.rejected(e.info)
			continue
		}
		if q.settled(e) {
			q.finalize(e, action.CategoryConfirmed)
			i--
		}
	}
	return handled
}

func (q *Queue) OnEntitySpawn(ent action.Entity) {
	if ent.Item == "" {
		return
	}
	for _, e := range q.entries {
		if q.matchDrop(e, ent) {
			return
		}
	}
	q.loose = append(q.loose, ent)
	if len(q.loose) > looseDropLimit {
		q.loose = q.loose[len(q.loose)-looseDropLimit:]
	}
}

// OnEntityUpdate re-matches a moved entity against entries still waiting
// for their drop.
func (q *Queue) OnEntityUpdate(ent action.Entity) {
	for i := range q.loose {
		if q.loose[i].ID == ent.ID {
			q.loose = append(q.loose[:i], q.loose[i+1:]...)
			break
		}
	}
	q.OnEntitySpawn(ent)
}

func (q *Queue) OnEntityRemove(id string) {
	for i := range q.loose {
		if q.loose[i].ID == id {
			q.loose = append(q.loose[:i], q.loose[i+1:]...)
			return
		}
	}
}

// Expire force-resolves entries older than the configured timeout.
func (q *Queue) Expire(now time.Time) {
	for i := 0; i < len(q.entries); i++ {
		e := q.entries[i]
		if now.Sub(e.addedAt) < q.cfg.Timeout {
			continue
		}
		q.remove(e)
		i--
		if e.info.Confirmed || e.mode == action.Immediate {
			q.dropLost(e, "timeout")
			continue
		}
		q.env.Logger().Warn("action timed out",
			zap.String("category", string(action.CategoryTimeout)),
			zap.Uint64("request_id", requestID(e.info)),
			zap.Stringer("pos", e.info.Ctx.Pos),
			zap.Duration("age", now.Sub(e.addedAt)),
		)
		q.rollback(e)
		e.info.Emit(action.EventCancel, "timeout")
		q.env.Record(e.info, action.ActionKindOf(e.info), action.CategoryTimeout)
		q.rejected(e.info)
	}
}

// dropLost settles an entry the server already accepted but whose drop never
// showed up. The world change stands and no cancel follows the completion.
func (q *Queue) dropLost(e *entry, reason string) {
	q.env.Logger().Debug("drop never observed",
		zap.Uint64("request_id", requestID(e.info)),
		zap.Stringer("pos", e.info.Ctx.Pos),
		zap.String("item", e.info.Ctx.ExpectDrop),
		zap.String("reason", reason),
	)
	e.info.CallbacksCompleted = true
	if e.info.Req != nil {
		e.info.Req.InFlight.Remove(e.info.Ctx.Pos)
	}
	q.env.Record(e.info, action.ActionKindOf(e.info), action.CategoryConfirmed)
}

func (q *Queue) rejected(info *action.Info) {
	if q.onReject != nil {
		q.onReject(info)
	}
}

// Clear drops every entry without firing callbacks.
func (q *Queue) Clear() {
	for _, e := range q.entries {
		if e.info.Req != nil {
			e.info.Req.InFlight.Remove(e.info.Ctx.Pos)
		}
		q.env.Record(e.info, action.ActionKindOf(e.info), action.CategoryReset)
	}
	q.entries = nil
	q.loose = nil
}

func (q *Queue) confirm(e *entry) {
	if e.info.Confirmed {
		return
	}
	e.info.Confirmed = true
	if e.mode != action.Immediate {
		e.info.Emit(e.info.CompletionKind(), "")
	}
}

func (q *Queue) settled(e *entry) bool {
	return (e.info.Confirmed || e.mode == action.Immediate) && !e.info.DropPending()
}

func (q *Queue) finalize(e *entry, cat action.Category) {
	q.remove(e)
	e.info.CallbacksCompleted = true
	if e.info.Req != nil {
		e.info.Req.InFlight.Remove(e.info.Ctx.Pos)
	}
	q.env.Record(e.info, action.ActionKindOf(e.info), cat)
}

func (q *Queue) matchDrop(e *entry, ent action.Entity) bool {
	if !e.info.DropPending() || ent.Item != e.info.Ctx.ExpectDrop {
		return false
	}
	if ent.Pos.Dist(e.info.Ctx.Pos.Center()) > 0.5 {
		return false
	}
	d := ent
	e.info.Drop = &d
	e.info.Emit(action.EventDropped, "")
	if q.settled(e) {
		q.finalize(e, action.CategoryConfirmed)
	}
	return true
}

func (q *Queue) claimLoose(e *entry) {
	for i := 0; i < len(q.loose); i++ {
		ent := q.loose[i]
		if q.matchDrop(e, ent) {
			q.loose = append(q.loose[:i], q.loose[i+1:]...)
			return
		}
	}
}

func (q *Queue) rejectInfo(info *action.Info, mode action.ConfirmMode, cat action.Category, reason string) {
	e := &entry{info: info, mode: mode}
	q.env.Logger().Warn("action dropped",
		zap.String("category", string(cat)),
		zap.Uint64("request_id", requestID(info)),
		zap.Stringer("pos", info.Ctx.Pos),
		zap.String("reason", reason),
	)
	if info.Req != nil {
		info.Req.InFlight.Remove(info.Ctx.Pos)
	}
	q.rollback(e)
	info.Emit(action.EventCancel, reason)
	q.env.Record(info, action.ActionKindOf(info), cat)
	q.rejected(info)
}

func (q *Queue) rollback(e *entry) {
	if !q.cfg.Rollback || e.mode == action.ConfirmThenOptimistic || q.env.World == nil {
		return
	}
	pos := e.info.Ctx.Pos
	if q.env.World.BlockAt(pos) == e.info.Ctx.Desired {
		q.env.World.SetBlock(pos, e.info.Ctx.Current)
	}
}

func (q *Queue) remove(e *entry) {
	for i, x := range q.entries {
		if x == e {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			if e.info.Req != nil {
				e.info.Req.InFlight.Remove(e.info.Ctx.Pos)
			}
			return
		}
	}
}

func requestID(i *action.Info) uint64 {
	if i == nil || i.Req == nil {
		return 0
	}
	return i.Req.ID
}
