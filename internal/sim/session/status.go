package session

import (
	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/action/arbiter"
)

// Status is a copy of the action core taken at the end of a tick. It is
// safe to read from any goroutine.
type Status struct {
	Tick         uint64 `json:"tick"`
	SessionID    string `json:"session_id"`
	RejectedAcks int    `json:"rejected_acks"`

	Primary   *SlotStatus `json:"primary,omitempty"`
	Secondary *SlotStatus `json:"secondary,omitempty"`
	Rebreak   *SlotStatus `json:"rebreak,omitempty"`

	Pending       int `json:"pending"`
	PlaceQueued   int `json:"place_queued"`
	PlaceCooldown int `json:"place_cooldown"`

	Break map[string]arbiter.Stats `json:"break_requests"`
	Place map[string]arbiter.Stats `json:"place_requests"`
}

type SlotStatus struct {
	Type          string  `json:"type"`
	Pos           [3]int  `json:"pos"`
	Owner         string  `json:"owner,omitempty"`
	ProgressTicks int     `json:"progress_ticks"`
	Progress      float64 `json:"progress"`
	Breaking      bool    `json:"breaking"`
}

func slotStatus(i *action.Info) *SlotStatus {
	if i == nil {
		return nil
	}
	st := &SlotStatus{
		Type:          i.Type.String(),
		Pos:           i.Ctx.Pos.ToArray(),
		ProgressTicks: i.ProgressTicks,
		Progress:      i.Progress,
		Breaking:      i.Breaking,
	}
	if i.Req != nil {
		st.Owner = i.Req.Owner
	}
	return st
}

func (s *Session) publishStatus() {
	st := &Status{
		Tick:          s.ticks.Tick(),
		SessionID:     s.sessionID,
		RejectedAcks:  s.rejectedAcks,
		Primary:       slotStatus(s.breaker.Primary()),
		Secondary:     slotStatus(s.breaker.Secondary()),
		Rebreak:       slotStatus(s.breaker.Rebreak()),
		Pending:       s.queue.Len(),
		PlaceQueued:   s.placer.Len(),
		PlaceCooldown: s.placer.Cooldown(),
		Break:         s.breakMgr.AllStats(),
		Place:         s.placeMgr.AllStats(),
	}
	s.status.Store(st)
}

// Status returns the snapshot published by the last tick.
func (s *Session) Status() Status {
	if st := s.status.Load(); st != nil {
		return *st
	}
	return Status{}
}
