// Package placing drains placement contexts in order, a few per tick.
package placing

import (
	"go.uber.org/zap"

	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/action/pending"
)

type Config struct {
	MaxPerTick int
}

func (c *Config) applyDefaults() {
	if c.MaxPerTick <= 0 {
		c.MaxPerTick = 2
	}
}

type entry struct {
	ctx action.Context
	idx int
	req *action.Request
}

type Coordinator struct {
	cfg   Config
	env   *action.Env
	queue *pending.Queue

	fifo     []entry
	cooldown int
	placed   int
}

func New(env *action.Env, cfg Config, q *pending.Queue) *Coordinator {
	cfg.applyDefaults()
	return &Coordinator{cfg: cfg, env: env, queue: q}
}

// Len is the number of contexts waiting this tick.
func (c *Coordinator) Len() int { return len(c.fifo) }

// Cooldown is the number of ticks before the next placement may go out.
func (c *Coordinator) Cooldown() int { return c.cooldown }

// Accept queues the contexts of req that still need placing. It reports
// whether req has work left.
func (c *Coordinator) Accept(req *action.Request) bool {
	if req == nil {
		return false
	}
	for i, ctx := range req.Contexts {
		if ctx.Satisfied(c.env.World) || req.InFlight.Has(ctx.Pos) || c.queue.Contains(ctx.Pos) || c.queued(ctx.Pos) {
			continue
		}
		c.fifo = append(c.fifo, entry{ctx: ctx, idx: i, req: req})
	}
	return !req.Done(c.env.World)
}

func (c *Coordinator) BeginTick() {
	if c.cooldown > 0 {
		c.cooldown--
	}
	c.placed = 0
}

// Update places queued contexts while the per-tick cap and the cooldown
// allow. It stops at the first context whose dependencies or gates are not
// met; later contexts may depend on it.
func (c *Coordinator) Update() int {
	n := 0
	for len(c.fifo) > 0 && c.placed < c.cfg.MaxPerTick && c.cooldown == 0 {
		e := c.fifo[0]
		if e.ctx.Satisfied(c.env.World) || e.req.InFlight.Has(e.ctx.Pos) || c.queue.Contains(e.ctx.Pos) {
			c.fifo = c.fifo[1:]
			continue
		}
		if !c.dependenciesMet(e) {
			c.env.Logger().Debug("placement waiting on dependency",
				zap.Uint64("request_id", e.req.ID),
				zap.Stringer("pos", e.ctx.Pos),
				zap.Int("index", e.idx),
			)
			return n
		}
		if !c.gatesReady(e.ctx) {
			return n
		}
		c.fifo = c.fifo[1:]
		c.place(e)
		n++
	}
	return n
}

func (c *Coordinator) EndTick() {
	c.fifo = c.fifo[:0]
}

// OnBlockUpdate drops queued contexts whose observed block is stale.
func (c *Coordinator) OnBlockUpdate(pos action.Vec3i, block uint16) {
	kept := c.fifo[:0]
	for _, e := range c.fifo {
		if e.ctx.Pos == pos && block != e.ctx.Current && block != e.ctx.Desired {
			continue
		}
		kept = append(kept, e)
	}
	c.fifo = kept
}

func (c *Coordinator) Reset() {
	c.fifo = nil
	c.cooldown = 0
	c.placed = 0
}

func (c *Coordinator) queued(pos action.Vec3i) bool {
	for _, e := range c.fifo {
		if e.ctx.Pos == pos {
			return true
		}
	}
	return false
}

func (c *Coordinator) dependenciesMet(e entry) bool {
	for _, d := range e.ctx.DependsOn {
		if d < 0 || d >= len(e.req.Contexts) {
			return false
		}
		dep := e.req.Contexts[d]
		if !dep.Satisfied(c.env.World) && !e.req.InFlight.Has(dep.Pos) {
			return false
		}
	}
	return true
}

func (c *Coordinator) gatesReady(ctx action.Context) bool {
	if c.env.Stance != nil && !c.env.Stance.Submit(ctx.RequireSneak) {
		return false
	}
	if c.env.Aim != nil && c.env.World != nil {
		target := action.FaceCenter(ctx.Hit.Pos, ctx.Hit.Side)
		if !c.env.Aim.Submit(action.LookAt(c.env.World.EyePos(), target)) {
			return false
		}
	}
	if ctx.Slot >= 0 && c.env.Tools != nil && c.env.Tools.Selected() != ctx.Slot {
		if !c.env.Tools.Submit(ctx.Slot, 1, 0) {
			return false
		}
	}
	return true
}

func (c *Coordinator) place(e entry) {
	info := action.NewInfo(action.TypePlace, e.ctx, e.req)
	info.UpdatedThisTick = true
	info.ProgressedThisTick = true
	info.ProgressTicks = 1
	info.Progress = 1
	info.Threshold = 1

	c.env.SendPlace(e.ctx.Hand, e.ctx.Hit)
	info.Emit(action.EventStart, "")
	c.placed++
	c.cooldown += e.ctx.DelayTicks
	info.Broken = true

	switch e.req.Policy.Confirm {
	case action.Immediate:
		c.env.World.SetBlock(e.ctx.Pos, e.ctx.Desired)
		info.Emit(action.EventStop, "")
		info.CallbacksCompleted = true
		c.env.Record(info, action.KindPlace, action.CategoryImmediate)
	case action.OptimisticThenConfirm:
		c.env.World.SetBlock(e.ctx.Pos, e.ctx.Desired)
		c.queue.Add(info, e.req.Policy.Confirm)
	case action.ConfirmThenOptimistic:
		c.queue.Add(info, e.req.Policy.Confirm)
	}
}
