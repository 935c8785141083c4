// Package arbiter decides which caller's request a coordinator works on.
//
// The first eligible request wins and keeps the coordinator until it is done
// or was submitted as now-or-nothing. Requests arriving meanwhile are ignored,
// not queued: callers resubmit every tick.
package arbiter

import (
	"go.uber.org/zap"

	"voxelcraft.ai/botcore/internal/sim/action"
)

// Coordinator consumes the active request once per eligible phase and reports
// whether it still has work left.
type Coordinator interface {
	Accept(req *action.Request) bool
}

type Stats struct {
	Submitted int `json:"submitted"`
	Accepted  int `json:"accepted"`
	Ignored   int `json:"ignored"`
}

type Manager struct {
	name  string
	coord Coordinator
	log   *zap.Logger

	active   *action.Request
	phase    action.Phase
	handling bool

	stats map[string]*Stats
}

func New(name string, c Coordinator, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		name:  name,
		coord: c,
		log:   log.With(zap.String("manager", name)),
		phase: action.PhaseStart,
		stats: map[string]*Stats{},
	}
}

func (m *Manager) Name() string { return m.name }

// Submit registers req as the active request. It is a no-op returning false
// when req has no contexts, another request is active, or req does not run
// in the current phase.
func (m *Manager) Submit(req *action.Request) bool {
	if req == nil || len(req.Contexts) == 0 {
		return false
	}
	st := m.statsFor(req.Owner)
	st.Submitted++
	if m.active != nil || !req.Phases.Has(m.phase) {
		st.Ignored++
		return false
	}
	st.Accepted++
	m.active = req
	m.log.Debug("request accepted",
		zap.Uint64("request_id", req.ID),
		zap.String("owner", req.Owner),
		zap.Int("contexts", len(req.Contexts)),
	)
	return true
}

// HandleRequest hands the active request to the coordinator.
func (m *Manager) HandleRequest() {
	if m.handling || m.active == nil || !m.active.Phases.Has(m.phase) {
		return
	}
	m.handling = true
	defer func() { m.handling = false }()

	req := m.active
	more := m.coord.Accept(req)
	if !more || req.NowOrNothing {
		if m.active == req {
			m.active = nil
		}
		m.log.Debug("request released",
			zap.Uint64("request_id", req.ID),
			zap.Bool("done", !more),
		)
	}
}

func (m *Manager) SetPhase(p action.Phase) { m.phase = p }

func (m *Manager) Phase() action.Phase { return m.phase }

func (m *Manager) Active() *action.Request { return m.active }

// Clear drops the active request. In-flight actions are left to their
// coordinator's cancellation sweep.
func (m *Manager) Clear() { m.active = nil }

// Stats returns the counters for owner.
func (m *Manager) Stats(owner string) Stats {
	if st := m.stats[owner]; st != nil {
		return *st
	}
	return Stats{}
}

// AllStats copies the counters of every owner seen so far.
func (m *Manager) AllStats() map[string]Stats {
	out := make(map[string]Stats, len(m.stats))
	for owner, st := range m.stats {
		out[owner] = *st
	}
	return out
}

func (m *Manager) statsFor(owner string) *Stats {
	st := m.stats[owner]
	if st == nil {
		st = &Stats{}
		m.stats[owner] = st
	}
	return st
}
