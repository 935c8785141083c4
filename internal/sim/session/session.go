// Package session owns one bot's action core and drives it from a single
// tick goroutine.
package session

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/action/arbiter"
	"voxelcraft.ai/botcore/internal/sim/action/breaking"
	"voxelcraft.ai/botcore/internal/sim/action/pending"
	"voxelcraft.ai/botcore/internal/sim/action/placing"
	"voxelcraft.ai/botcore/internal/sim/action/rebreak"
	"voxelcraft.ai/botcore/internal/sim/catalogs"
	"voxelcraft.ai/botcore/internal/sim/localworld"
	"voxelcraft.ai/botcore/internal/sim/ticker"
)

// Outbox is the connection: sequenced actions plus look/hotbar/stance.
type Outbox interface {
	action.Outbox
	localworld.Sender
}

type Deps struct {
	Catalogs *catalogs.Catalogs
	Out      Outbox
	Recorder action.Recorder
	Log      *zap.Logger
	Now      func() time.Time
	// Inbox, when set, replaces the session's own inbound channel.
	Inbox chan any
}

type Session struct {
	cfg Config
	log *zap.Logger
	env *action.Env

	world  *localworld.World
	aim    *localworld.Aim
	hotbar *localworld.Hotbar
	stance *localworld.Stance

	queue   *pending.Queue
	rebreak *rebreak.Exploiter
	breaker *breaking.Coordinator
	placer  *placing.Coordinator

	breakMgr *arbiter.Manager
	placeMgr *arbiter.Manager

	ticks *ticker.Dispatcher
	inbox chan any

	sessionID    string
	rejectedAcks int
	status       atomic.Pointer[Status]
}

func New(cfg Config, d Deps) *Session {
	cfg.applyDefaults()
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		cfg:    cfg,
		log:    log,
		world:  localworld.New(d.Catalogs),
		aim:    localworld.NewAim(d.Out, cfg.AimMaxStep),
		hotbar: localworld.NewHotbar(d.Out, 0),
		stance: localworld.NewStance(d.Out),
		ticks:  ticker.New(log),
		inbox:  d.Inbox,
	}
	if s.inbox == nil {
		s.inbox = make(chan any, cfg.InboxSize)
	}
	s.env = &action.Env{
		World:    s.world,
		Aim:      s.aim,
		Tools:    s.hotbar,
		Stance:   s.stance,
		Out:      d.Out,
		Recorder: d.Recorder,
		Now:      d.Now,
		Log:      log,
	}
	s.queue = pending.New(s.env, cfg.Pending)
	s.rebreak = rebreak.New(s.env, cfg.Rebreak)
	s.breaker = breaking.New(s.env, cfg.Break, s.queue, s.rebreak)
	s.placer = placing.New(s.env, cfg.Place, s.queue)
	s.breakMgr = arbiter.New("break", s.breaker, log)
	s.placeMgr = arbiter.New("place", s.placer, log)
	s.registerPhases()
	return s
}

func (s *Session) registerPhases() {
	s.ticks.Register("begin", ticker.Begin, func(uint64) {
		s.aim.BeginTick()
		s.hotbar.BeginTick()
		s.stance.BeginTick()
		s.breaker.BeginTick()
		s.placer.BeginTick()
		s.setPhase(action.PhaseStart)
	})
	s.ticks.Register("intake-start", ticker.IntakeStart, func(uint64) { s.intake() })
	s.ticks.Register("progress-start", ticker.ProgressStart, func(uint64) { s.progress() })
	s.ticks.Register("phase-end", ticker.CallersEnd-1, func(uint64) { s.setPhase(action.PhaseEnd) })
	s.ticks.Register("intake-end", ticker.IntakeEnd, func(uint64) { s.intake() })
	s.ticks.Register("progress-end", ticker.ProgressEnd, func(uint64) { s.progress() })
	s.ticks.Register("sweep", ticker.Sweep, func(uint64) {
		s.breaker.Sweep()
		s.queue.Expire(s.env.Clock())
	})
	s.ticks.Register("cleanup", ticker.Cleanup, func(uint64) {
		s.publishStatus()
		s.breaker.EndTick()
		s.placer.EndTick()
	})
}

func (s *Session) setPhase(p action.Phase) {
	s.breakMgr.SetPhase(p)
	s.placeMgr.SetPhase(p)
}

func (s *Session) intake() {
	s.breakMgr.HandleRequest()
	s.placeMgr.HandleRequest()
}

func (s *Session) progress() {
	s.breaker.Update()
	s.placer.Update()
}

// OnTick registers a caller. Start-phase callers run before the first
// intake of a tick, end-phase callers before the second.
func (s *Session) OnTick(phase action.Phase, name string, fn func(tick uint64)) {
	prio := ticker.Callers
	if phase == action.PhaseEnd {
		prio = ticker.CallersEnd
	}
	s.ticks.Register(name, prio, fn)
}

func (s *Session) SubmitBreak(req *action.Request) bool { return s.breakMgr.Submit(req) }

func (s *Session) SubmitPlace(req *action.Request) bool { return s.placeMgr.Submit(req) }

func (s *Session) World() *localworld.World       { return s.world }
func (s *Session) Breaker() *breaking.Coordinator { return s.breaker }
func (s *Session) Placer() *placing.Coordinator   { return s.placer }
func (s *Session) Queue() *pending.Queue          { return s.queue }
func (s *Session) BreakManager() *arbiter.Manager { return s.breakMgr }
func (s *Session) PlaceManager() *arbiter.Manager { return s.placeMgr }
func (s *Session) Tick() uint64                   { return s.ticks.Tick() }
func (s *Session) SessionID() string              { return s.sessionID }
func (s *Session) RejectedAcks() int              { return s.rejectedAcks }
func (s *Session) Inbox() chan<- any              { return s.inbox }

// Run drives the session until ctx is cancelled. Inbound events are applied
// between ticks, in arrival order.
func (s *Session) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.inbox:
			s.Deliver(ev)
		case <-t.C:
			s.Step()
		}
	}
}

// Step runs one tick. Tick goroutine only.
func (s *Session) Step() uint64 { return s.ticks.Fire() }

// Deliver applies one inbound event. Tick goroutine only.
func (s *Session) Deliver(ev any) {
	switch e := ev.(type) {
	case BlockUpdate:
		s.applyBlock(e)
	case Voxels:
		for _, u := range e.Updates {
			if s.world.Known(u.Pos) && s.world.BlockAt(u.Pos) == u.Block && !s.queue.Contains(u.Pos) {
				continue
			}
			s.applyBlock(u)
		}
	case EntitySpawn:
		s.queue.OnEntitySpawn(e.Entity)
	case EntityUpdate:
		s.queue.OnEntityUpdate(e.Entity)
	case EntityRemove:
		s.queue.OnEntityRemove(e.ID)
	case Reconnect:
		s.reset(e)
	case Ack:
		if !e.Accepted {
			s.rejectedAcks++
			s.log.Warn("action rejected by server",
				zap.Uint32("seq", e.Seq),
				zap.String("code", e.Code),
				zap.String("message", e.Message),
			)
			return
		}
		s.log.Debug("ack", zap.Uint32("seq", e.Seq))
	default:
		s.log.Warn("unknown inbound event", zap.Any("event", ev))
	}
}

func (s *Session) reset(e Reconnect) {
	s.log.Info("session reset",
		zap.String("session_id", e.SessionID),
		zap.Int("pending", s.queue.Len()),
		zap.Bool("breaking", s.breaker.Busy()),
	)
	s.breakMgr.Clear()
	s.placeMgr.Clear()
	s.breaker.Reset()
	s.placer.Reset()
	s.queue.Clear()
	s.world.Reset()
	s.world.SetEye(e.Eye)
	s.world.SetHotbar(e.Hotbar)
	s.hotbar.Reset(e.Selected)
	s.stance.Reset()
	s.aim.Reset(s.aim.Current())
	s.sessionID = e.SessionID
	s.publishStatus()
}

func (s *Session) applyBlock(u BlockUpdate) {
	s.world.SetBlock(u.Pos, u.Block)
	s.breaker.OnBlockUpdate(u.Pos, u.Block)
	s.placer.OnBlockUpdate(u.Pos, u.Block)
}
