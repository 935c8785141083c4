// Package breaking schedules destroy actions: a primary the bot drives and an
// optional secondary the server keeps progressing on its own.
package breaking

import (
	"go.uber.org/zap"

	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/action/pending"
	"voxelcraft.ai/botcore/internal/sim/action/rebreak"
	"voxelcraft.ai/botcore/internal/sim/action/swap"
)

// Secondaries finish when the server says so; locally that is a full block.
const secondaryThreshold = 1.0

type Config struct {
	Threshold    float64
	Fudge        int
	DoubleBreak  bool
	UnsafeCancel bool

	SwapMode        swap.Mode
	ServerSwapTicks int
	SwapPauseTicks  int

	MaxStartsPerTick int
	MaxIterations    int
}

func (c *Config) applyDefaults() {
	if c.Threshold <= 0 {
		c.Threshold = 1
	}
	if c.MaxStartsPerTick <= 0 {
		c.MaxStartsPerTick = 1
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 4
	}
}

type candidate struct {
	ctx action.Context
	req *action.Request
}

type toolRequest struct {
	slot  int
	hold  int
	pause int
}

type Coordinator struct {
	cfg     Config
	env     *action.Env
	queue   *pending.Queue
	rebreak *rebreak.Exploiter

	reg        registry
	candidates []candidate
	starts     int
}

func New(env *action.Env, cfg Config, q *pending.Queue, x *rebreak.Exploiter) *Coordinator {
	cfg.applyDefaults()
	c := &Coordinator{cfg: cfg, env: env, queue: q, rebreak: x}
	q.OnReject(c.onRejected)
	return c
}

func (c *Coordinator) Primary() *action.Info   { return c.reg.get(slotPrimary) }
func (c *Coordinator) Secondary() *action.Info { return c.reg.get(slotSecondary) }
func (c *Coordinator) Rebreak() *action.Info   { return c.rebreak.Current() }

// Busy reports whether any slot holds an action.
func (c *Coordinator) Busy() bool { return c.reg.len() > 0 }

// Accept refreshes live actions matching req and queues the rest for this
// tick's drain. It reports whether req still has work left.
func (c *Coordinator) Accept(req *action.Request) bool {
	if req == nil {
		return false
	}
	for _, ctx := range req.Contexts {
		if ctx.Satisfied(c.env.World) || req.InFlight.Has(ctx.Pos) || c.queue.Contains(ctx.Pos) {
			continue
		}
		if _, info, ok := c.reg.find(ctx.Pos); ok {
			if info.Type == action.TypeRedundantSecondary {
				continue
			}
			info.Ctx = ctx
			info.Req = req
			info.UpdatedThisTick = true
			continue
		}
		if c.isCandidate(ctx.Pos) {
			continue
		}
		c.candidates = append(c.candidates, candidate{ctx: ctx, req: req})
	}
	return !req.Done(c.env.World)
}

func (c *Coordinator) BeginTick() {
	for _, info := range c.reg.ordered() {
		info.ClearTick()
	}
}

// Update runs the drain / pre-process / progress loop until nothing starts
// and nothing progresses, bounded by MaxIterations.
func (c *Coordinator) Update() {
	for i := 0; i < c.cfg.MaxIterations; i++ {
		started := c.drain()
		c.preprocess()
		progressed := c.progress()
		if started == 0 && progressed == 0 {
			return
		}
	}
}

// Sweep cancels what callers stopped asking for and ticks the passive slots.
func (c *Coordinator) Sweep() {
	if p := c.reg.get(slotPrimary); p != nil && (!p.UpdatedThisTick || p.Abandoned) {
		c.cancelPrimary(p)
	}
	if s := c.reg.get(slotSecondary); s != nil {
		switch s.Type {
		case action.TypeSecondary:
			if !s.UpdatedThisTick && c.cfg.UnsafeCancel {
				if red, ok := s.As(action.TypeRedundantSecondary); ok {
					c.reg.set(slotSecondary, red)
					c.env.Logger().Debug("secondary left to the server", zap.Stringer("pos", red.Ctx.Pos))
				}
			}
		case action.TypeRedundantSecondary:
			if !s.ProgressedThisTick {
				s.ProgressTicks++
				s.ProgressedThisTick = true
				c.updateProgress(s, c.equipped())
			}
			if s.Progress >= secondaryThreshold {
				c.reg.clear(slotSecondary)
			}
		}
	}
	c.rebreak.Tick()
}

func (c *Coordinator) EndTick() {
	c.candidates = c.candidates[:0]
	c.starts = 0
}

// OnBlockUpdate reconciles an authoritative change against the pending queue
// and the live slots.
func (c *Coordinator) OnBlockUpdate(pos action.Vec3i, block uint16) {
	c.queue.OnBlockUpdate(pos, block)
	s, info, ok := c.reg.find(pos)
	if !ok {
		return
	}
	switch {
	case block == info.Ctx.Desired:
		c.reg.clear(s)
		if info.Type == action.TypeRedundantSecondary {
			return
		}
		c.finishConfirmed(info)
	case block != info.Ctx.Current:
		if s == slotPrimary {
			info.Abandoned = true
			return
		}
		c.reg.clear(s)
		if info.Type == action.TypeSecondary {
			info.Emit(action.EventCancel, "target changed")
			c.env.Record(info, action.KindDestroy, action.CategoryCancelled)
		}
	}
}

// onRejected drops the rebreak slot when the break it was copied from never
// happened on the server.
func (c *Coordinator) onRejected(info *action.Info) {
	rb := c.rebreak.Current()
	if rb == nil || rb.Ctx.Pos != info.Ctx.Pos || action.ActionKindOf(info) != action.KindDestroy {
		return
	}
	c.env.Logger().Debug("rebreak slot invalidated", zap.Stringer("pos", rb.Ctx.Pos))
	c.rebreak.Invalidate()
}

// Reset empties every slot without callbacks.
func (c *Coordinator) Reset() {
	c.reg.reset()
	c.candidates = c.candidates[:0]
	c.starts = 0
	c.rebreak.Reset()
}

func (c *Coordinator) isCandidate(pos action.Vec3i) bool {
	for _, q := range c.candidates {
		if q.ctx.Pos == pos {
			return true
		}
	}
	return false
}

func (c *Coordinator) drain() int {
	n := 0
	for len(c.candidates) > 0 && c.starts < c.cfg.MaxStartsPerTick {
		q := c.candidates[0]
		if q.ctx.Satisfied(c.env.World) || c.queue.Contains(q.ctx.Pos) {
			c.candidates = c.candidates[1:]
			continue
		}
		if _, _, live := c.reg.find(q.ctx.Pos); live {
			c.candidates = c.candidates[1:]
			continue
		}
		if p := c.reg.get(slotPrimary); p != nil {
			if !c.cfg.DoubleBreak || c.reg.get(slotSecondary) != nil || !p.Breaking {
				return n
			}
			c.demote(p)
		}
		c.candidates = c.candidates[1:]
		info := action.NewInfo(action.TypePrimary, q.ctx, q.req)
		info.Threshold = c.cfg.Threshold
		info.UpdatedThisTick = true
		c.reg.set(slotPrimary, info)
		c.starts++
		n++
	}
	return n
}

// demote moves a breaking primary into the secondary slot. The stop tells
// the server to keep going without us.
func (c *Coordinator) demote(p *action.Info) {
	sec, ok := p.As(action.TypeSecondary)
	if !ok {
		return
	}
	sec.Threshold = secondaryThreshold
	c.env.SendDestroy(action.PacketStopDestroy, sec.Ctx.Pos, sec.Ctx.Side)
	c.reg.clear(slotPrimary)
	c.reg.set(slotSecondary, sec)
}

func (c *Coordinator) preprocess() {
	fresh := false
	var tool *toolRequest
	live := c.reg.ordered()
	for _, info := range live {
		if info.Type == action.TypeRedundantSecondary {
			continue
		}
		if !info.Preprocessed {
			c.preprocessOne(info)
			fresh = true
		}
		if !info.SwapNeeded {
			continue
		}
		hold := swap.HoldTicks(swap.Decision{ShouldSwap: true, IsLongSwap: info.SwapLong}, c.cfg.ServerSwapTicks, c.remainingTicks(info))
		if tool == nil {
			tool = &toolRequest{}
		}
		tool.slot = info.Ctx.Slot
		tool.hold = max(tool.hold, hold)
		tool.pause = max(tool.pause, c.cfg.SwapPauseTicks)
	}
	if !fresh {
		return
	}
	done := false
	if tool != nil && c.env.Tools != nil {
		done = c.env.Tools.Submit(tool.slot, tool.hold, tool.pause)
	}
	for _, info := range live {
		info.SwapDone = !info.SwapNeeded || (done && tool != nil && info.Ctx.Slot == tool.slot)
	}
}

func (c *Coordinator) preprocessOne(info *action.Info) {
	info.Preprocessed = true
	if c.env.World != nil {
		info.Aim = action.LookAt(c.env.World.EyePos(), action.FaceCenter(info.Ctx.Pos, info.Ctx.Side))
	}
	equipped := c.equipped()
	info.SwapNeeded, info.SwapLong = false, false
	info.ToolSlot = equipped
	if slot := info.Ctx.Slot; slot >= 0 && slot != equipped && c.env.World != nil && c.env.Tools != nil {
		d := swap.Decide(swap.Input{
			Mode:            c.cfg.SwapMode,
			Started:         info.Breaking,
			ProgressTicks:   info.ProgressTicks,
			Fudge:           c.cfg.Fudge,
			Threshold:       info.Threshold,
			EquippedRate:    c.env.World.BreakRate(info.Ctx.Current, equipped),
			SwapRate:        c.env.World.BreakRate(info.Ctx.Current, slot),
			ServerSwapTicks: c.cfg.ServerSwapTicks,
		})
		info.SwapNeeded, info.SwapLong = d.ShouldSwap, d.IsLongSwap
		if d.ShouldSwap {
			info.ToolSlot = slot
		}
	}
	info.Potential = action.PotentialNone
	if info.Type == action.TypePrimary && !info.Breaking {
		info.Potential = c.rebreak.Classify(info.Ctx, c.rate(info))
	}
}

// progress advances every live action at most once this tick; the primary
// goes last. It returns how many actions moved.
func (c *Coordinator) progress() int {
	n := 0
	for _, info := range c.reg.ordered() {
		if info.ProgressedThisTick {
			continue
		}
		switch info.Type {
		case action.TypeSecondary:
			c.stepSecondary(info)
			n++
		case action.TypePrimary:
			if c.stepPrimary(info) {
				n++
			}
		}
	}
	return n
}

func (c *Coordinator) stepSecondary(info *action.Info) {
	info.ProgressTicks++
	info.ProgressedThisTick = true
	c.updateProgress(info, info.ToolSlot)
	info.Emit(action.EventUpdate, "")
	if info.Progress >= info.Threshold {
		c.reg.release(info)
		c.complete(info)
	}
}

func (c *Coordinator) stepPrimary(info *action.Info) bool {
	aimDone := c.env.Aim == nil || c.env.Aim.Submit(info.Aim)
	info.AimDone = aimDone
	if info.Breaking {
		return c.stepBreaking(info)
	}
	if !aimDone {
		return false
	}
	if info.Potential != action.PotentialNone {
		return c.resolveRebreak(info)
	}
	return c.start(info)
}

func (c *Coordinator) start(info *action.Info) bool {
	if info.SwapNeeded && !info.SwapDone {
		return false
	}
	c.rebreak.Invalidate()
	c.env.SendDestroy(action.PacketStartDestroy, info.Ctx.Pos, info.Ctx.Side)
	info.Breaking = true
	info.ProgressTicks = 1
	info.ProgressedThisTick = true
	c.updateProgress(info, info.ToolSlot)
	info.Emit(action.EventStart, "")
	if info.Progress >= info.Threshold {
		// Instant break: the start alone finishes it.
		c.reg.release(info)
		c.complete(info)
	}
	return true
}

func (c *Coordinator) stepBreaking(info *action.Info) bool {
	info.ProgressTicks++
	info.ProgressedThisTick = true
	c.updateProgress(info, info.ToolSlot)
	info.Emit(action.EventUpdate, "")
	if info.Progress >= info.Threshold && info.AimDone && info.SwapDone {
		c.env.SendDestroy(action.PacketStopDestroy, info.Ctx.Pos, info.Ctx.Side)
		c.reg.release(info)
		c.complete(info)
	}
	return true
}

func (c *Coordinator) resolveRebreak(candidate *action.Info) bool {
	got, res := c.rebreak.Resolve(candidate.Ctx, candidate.Req, c.rate(candidate))
	switch res {
	case rebreak.ResultRebroke:
		c.reg.release(candidate)
		got.ProgressedThisTick = true
		c.env.SendDestroy(action.PacketStopDestroy, got.Ctx.Pos, got.Ctx.Side)
		c.complete(got)
		return true
	case rebreak.ResultStillBreaking:
		got.Threshold = c.cfg.Threshold
		got.UpdatedThisTick = true
		got.Preprocessed = true
		got.Aim, got.AimDone = candidate.Aim, candidate.AimDone
		got.ToolSlot, got.SwapNeeded, got.SwapLong, got.SwapDone = candidate.ToolSlot, candidate.SwapNeeded, candidate.SwapLong, candidate.SwapDone
		c.reg.set(slotPrimary, got)
		got.Emit(action.EventRebreakStart, "")
		return c.stepBreaking(got)
	default:
		candidate.Potential = action.PotentialNone
		return c.start(candidate)
	}
}

func (c *Coordinator) cancelPrimary(p *action.Info) {
	c.reg.clear(slotPrimary)
	if p.Breaking {
		c.env.SendDestroy(action.PacketAbortDestroy, p.Ctx.Pos, p.Ctx.Side)
		c.rebreak.Invalidate()
	}
	reason := "not updated"
	if p.Abandoned {
		reason = "target changed"
	}
	p.Emit(action.EventCancel, reason)
	c.env.Record(p, action.KindDestroy, action.CategoryCancelled)
	c.env.Logger().Debug("primary cancelled", zap.Stringer("pos", p.Ctx.Pos), zap.String("reason", reason), zap.Int("ticks", p.ProgressTicks))
}

// complete runs the completion sequence once per action.
func (c *Coordinator) complete(info *action.Info) {
	if info.Broken {
		return
	}
	info.Broken = true
	mode := action.Immediate
	if info.Req != nil {
		mode = info.Req.Policy.Confirm
	}
	switch mode {
	case action.Immediate:
		c.env.World.SetBlock(info.Ctx.Pos, info.Ctx.Desired)
		info.Emit(info.CompletionKind(), "")
		if info.DropPending() {
			c.queue.Add(info, mode)
		} else {
			info.CallbacksCompleted = true
			c.env.Record(info, action.KindDestroy, immediateCategory(info))
		}
	case action.OptimisticThenConfirm:
		c.env.World.SetBlock(info.Ctx.Pos, info.Ctx.Desired)
		c.queue.Add(info, mode)
	case action.ConfirmThenOptimistic:
		c.queue.Add(info, mode)
	}
	if info.Type == action.TypePrimary {
		c.rebreak.Offer(info)
	}
}

// finishConfirmed completes an action the server finished before we did.
func (c *Coordinator) finishConfirmed(info *action.Info) {
	if info.Broken {
		return
	}
	info.Broken = true
	info.Confirmed = true
	if !info.Breaking && !info.Fired(action.EventStart) {
		// The server got there before our start went out.
		info.Emit(action.EventStart, "")
	}
	info.Emit(info.CompletionKind(), "")
	if info.DropPending() {
		c.queue.Add(info, action.Immediate)
		return
	}
	info.CallbacksCompleted = true
	c.env.Record(info, action.KindDestroy, action.CategoryConfirmed)
}

func (c *Coordinator) equipped() int {
	if c.env.Tools == nil {
		return -1
	}
	return c.env.Tools.Selected()
}

func (c *Coordinator) rate(info *action.Info) float64 {
	if c.env.World == nil {
		return 0
	}
	return c.env.World.BreakRate(info.Ctx.Current, info.ToolSlot)
}

// updateProgress never lets progress go backwards while an action is live.
func (c *Coordinator) updateProgress(info *action.Info, toolSlot int) {
	if c.env.World == nil {
		return
	}
	rate := c.env.World.BreakRate(info.Ctx.Current, toolSlot)
	if p := swap.Progress(rate, info.ProgressTicks, c.cfg.Fudge); p > info.Progress {
		info.Progress = p
	}
}

func (c *Coordinator) remainingTicks(info *action.Info) int {
	if c.env.World == nil {
		return 0
	}
	need := swap.TicksToThreshold(c.env.World.BreakRate(info.Ctx.Current, info.Ctx.Slot), info.Threshold, c.cfg.Fudge)
	if need < 0 {
		return 0
	}
	return max(need-info.ProgressTicks, 0)
}

func immediateCategory(info *action.Info) action.Category {
	if info.CompletionKind() == action.EventRebroke {
		return action.CategoryRebroke
	}
	return action.CategoryImmediate
}
