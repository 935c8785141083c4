package session

import (
	"fmt"
	"time"

	"voxelcraft.ai/botcore/internal/sim/action/breaking"
	"voxelcraft.ai/botcore/internal/sim/action/pending"
	"voxelcraft.ai/botcore/internal/sim/action/placing"
	"voxelcraft.ai/botcore/internal/sim/action/rebreak"
	"voxelcraft.ai/botcore/internal/sim/action/swap"
	"voxelcraft.ai/botcore/internal/sim/tuning"
)

type Config struct {
	TickRateHz int
	InboxSize  int
	AimMaxStep float64

	Break   breaking.Config
	Rebreak rebreak.Config
	Place   placing.Config
	Pending pending.Config
}

func (c *Config) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.InboxSize <= 0 {
		c.InboxSize = 256
	}
}

// ConfigFromTuning maps the file/env tuning onto the coordinator configs.
func ConfigFromTuning(t tuning.Tuning) (Config, error) {
	mode, ok := swap.ParseMode(t.Break.SwapMode)
	if !ok {
		return Config{}, fmt.Errorf("break.swap_mode: unknown mode %q", t.Break.SwapMode)
	}
	overflow, ok := pending.ParseOverflow(t.Pending.Overflow)
	if !ok {
		return Config{}, fmt.Errorf("pending.overflow: unknown policy %q", t.Pending.Overflow)
	}
	return Config{
		TickRateHz: t.Session.TickRateHz,
		InboxSize:  t.Session.InboxSize,
		AimMaxStep: t.Session.AimMaxStep,
		Break: breaking.Config{
			Threshold:        t.Break.Threshold,
			Fudge:            t.Break.Fudge,
			DoubleBreak:      t.Break.DoubleBreak,
			UnsafeCancel:     t.Break.UnsafeCancel,
			SwapMode:         mode,
			ServerSwapTicks:  t.Break.ServerSwapTicks,
			SwapPauseTicks:   t.Break.SwapPauseTicks,
			MaxStartsPerTick: t.Break.MaxStartsPerTick,
			MaxIterations:    t.Break.MaxIterations,
		},
		Rebreak: rebreak.Config{
			Enabled:   t.Break.Rebreak,
			Threshold: t.Break.Threshold,
			Fudge:     t.Break.Fudge,
			MaxTicks:  t.Break.RebreakMaxTicks,
		},
		Place: placing.Config{MaxPerTick: t.Place.MaxPerTick},
		Pending: pending.Config{
			Capacity: t.Pending.Capacity,
			Timeout:  time.Duration(t.Pending.TimeoutMs) * time.Millisecond,
			Overflow: overflow,
			Rollback: t.Pending.Rollback,
		},
	}, nil
}
