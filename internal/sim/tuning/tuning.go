package tuning

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" env:"VC_PROTOCOL_VERSION"`

	Session Session `yaml:"session"`
	Break   Break   `yaml:"break"`
	Place   Place   `yaml:"place"`
	Pending Pending `yaml:"pending"`
}

type Session struct {
	TickRateHz int     `yaml:"tick_rate_hz" env:"VC_TICK_RATE_HZ"`
	InboxSize  int     `yaml:"inbox_size" env:"VC_INBOX_SIZE"`
	AimMaxStep float64 `yaml:"aim_max_step" env:"VC_AIM_MAX_STEP"`
}

type Break struct {
	Threshold        float64 `yaml:"threshold" env:"VC_BREAK_THRESHOLD"`
	Fudge            int     `yaml:"fudge" env:"VC_BREAK_FUDGE"`
	DoubleBreak      bool    `yaml:"double_break" env:"VC_BREAK_DOUBLE"`
	UnsafeCancel     bool    `yaml:"unsafe_cancel" env:"VC_BREAK_UNSAFE_CANCEL"`
	SwapMode         string  `yaml:"swap_mode" env:"VC_BREAK_SWAP_MODE"`
	ServerSwapTicks  int     `yaml:"server_swap_ticks" env:"VC_BREAK_SERVER_SWAP_TICKS"`
	SwapPauseTicks   int     `yaml:"swap_pause_ticks" env:"VC_BREAK_SWAP_PAUSE_TICKS"`
	MaxStartsPerTick int     `yaml:"max_starts_per_tick" env:"VC_BREAK_MAX_STARTS_PER_TICK"`
	MaxIterations    int     `yaml:"max_iterations" env:"VC_BREAK_MAX_ITERATIONS"`
	Rebreak          bool    `yaml:"rebreak" env:"VC_BREAK_REBREAK"`
	RebreakMaxTicks  int     `yaml:"rebreak_max_ticks" env:"VC_BREAK_REBREAK_MAX_TICKS"`
}

type Place struct {
	MaxPerTick int `yaml:"max_per_tick" env:"VC_PLACE_MAX_PER_TICK"`
}

type Pending struct {
	Capacity  int    `yaml:"capacity" env:"VC_PENDING_CAPACITY"`
	TimeoutMs int    `yaml:"timeout_ms" env:"VC_PENDING_TIMEOUT_MS"`
	Overflow  string `yaml:"overflow" env:"VC_PENDING_OVERFLOW"`
	Rollback  bool   `yaml:"rollback" env:"VC_PENDING_ROLLBACK"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		Session:         Session{TickRateHz: 20, InboxSize: 256, AimMaxStep: 45},
		Break: Break{
			Threshold:        1,
			Fudge:            1,
			DoubleBreak:      true,
			SwapMode:         "end",
			ServerSwapTicks:  1,
			SwapPauseTicks:   0,
			MaxStartsPerTick: 1,
			MaxIterations:    4,
			Rebreak:          true,
			RebreakMaxTicks:  40,
		},
		Place:   Place{MaxPerTick: 2},
		Pending: Pending{Capacity: 32, TimeoutMs: 3000, Overflow: "evict_oldest", Rollback: true},
	}
}

// Load reads path over Defaults and then applies VC_* environment
// overrides. An empty path skips the file.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return t, err
		}
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return t, fmt.Errorf("tuning.yaml: %w", err)
		}
	}
	if err := env.Parse(&t); err != nil {
		return t, fmt.Errorf("tuning env: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.Session.TickRateHz <= 0:
		return fmt.Errorf("tuning: session.tick_rate_hz must be > 0")
	case t.Break.Threshold <= 0:
		return fmt.Errorf("tuning: break.threshold must be > 0")
	case t.Break.Fudge < 0:
		return fmt.Errorf("tuning: break.fudge must be >= 0")
	case t.Pending.Capacity <= 0:
		return fmt.Errorf("tuning: pending.capacity must be > 0")
	case t.Pending.TimeoutMs <= 0:
		return fmt.Errorf("tuning: pending.timeout_ms must be > 0")
	}
	return nil
}
