// Package rebreak keeps the last finished break alive while the server still
// remembers its progress, so a new block at the same position can reuse it.
package rebreak

import (
	"go.uber.org/zap"

	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/action/swap"
)

type Config struct {
	Enabled   bool
	Threshold float64
	Fudge     int
	// MaxTicks drops the slot after this many ticks; 0 keeps it until invalidated.
	MaxTicks int
}

type Result uint8

const (
	ResultNone Result = iota
	ResultStillBreaking
	ResultRebroke
)

func (r Result) String() string {
	switch r {
	case ResultStillBreaking:
		return "still_breaking"
	case ResultRebroke:
		return "rebroke"
	default:
		return "none"
	}
}

// Exploiter owns the single rebreak slot.
type Exploiter struct {
	cfg  Config
	env  *action.Env
	info *action.Info
	held int
}

func New(env *action.Env, cfg Config) *Exploiter {
	return &Exploiter{cfg: cfg, env: env}
}

func (x *Exploiter) Current() *action.Info { return x.info }

// Offer takes a just-finished Primary into the slot when both the config and
// the governing request allow it. The slot holds a copy; the original stays
// with whoever still awaits its confirmation.
func (x *Exploiter) Offer(info *action.Info) bool {
	if !x.cfg.Enabled || info == nil || info.Type != action.TypePrimary {
		return false
	}
	if info.Req == nil || !info.Req.Policy.Rebreak {
		return false
	}
	n, ok := info.As(action.TypeRebreak)
	if !ok {
		return false
	}
	n.Threshold = x.cfg.Threshold
	x.info = n
	x.held = 0
	return true
}

// Classify reports how much of the held progress a candidate at ctx.Pos can
// reuse, given the break rate for the candidate's block and tool.
func (x *Exploiter) Classify(ctx action.Context, rate float64) action.Potential {
	if x.info == nil || ctx.Pos != x.info.Ctx.Pos {
		return action.PotentialNone
	}
	if swap.Progress(rate, x.info.ProgressTicks, x.cfg.Fudge) >= x.cfg.Threshold {
		return action.PotentialInstant
	}
	return action.PotentialPartial
}

// Resolve merges a candidate into the held action and empties the slot. On
// ResultRebroke the returned action is finished and must be completed by the
// caller; on ResultStillBreaking it is re-tagged Primary for the caller to
// install in its primary slot.
func (x *Exploiter) Resolve(ctx action.Context, req *action.Request, rate float64) (*action.Info, Result) {
	if x.info == nil || ctx.Pos != x.info.Ctx.Pos {
		return nil, ResultNone
	}
	info := x.info
	x.info = nil
	x.held = 0

	info.Ctx = ctx
	info.Req = req
	info.Progress = swap.Progress(rate, info.ProgressTicks, x.cfg.Fudge)
	if info.Progress >= x.cfg.Threshold {
		return info, ResultRebroke
	}
	promoted, ok := info.As(action.TypePrimary)
	if !ok {
		return nil, ResultNone
	}
	return promoted, ResultStillBreaking
}

// Tick advances the held action's elapsed count once per tick; the server
// measures the rebreak from the original start.
func (x *Exploiter) Tick() {
	if x.info == nil {
		return
	}
	x.info.ProgressTicks++
	x.held++
	if x.cfg.MaxTicks > 0 && x.held > x.cfg.MaxTicks {
		x.env.Logger().Debug("rebreak slot expired", zap.Stringer("pos", x.info.Ctx.Pos), zap.Int("held_ticks", x.held))
		x.info = nil
		x.held = 0
	}
}

// Invalidate empties the slot, e.g. after a new start or abort resets the
// server's destroy progress.
func (x *Exploiter) Invalidate() {
	x.info = nil
	x.held = 0
}

func (x *Exploiter) Reset() { x.Invalidate() }
