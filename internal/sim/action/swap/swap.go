// Package swap decides when a break should hold its best tool.
package swap

type Mode uint8

const (
	Never Mode = iota
	StartOnly
	EndOnly
	Both
	Always
)

var modeNames = [...]string{"never", "start", "end", "both", "always"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

func ParseMode(s string) (Mode, bool) {
	if s == "" {
		return EndOnly, true
	}
	for i, n := range modeNames {
		if n == s {
			return Mode(i), true
		}
	}
	return Never, false
}

type Decision struct {
	ShouldSwap bool
	// IsLongSwap holds the tool across several ticks instead of a single
	// tick around the packet that needs it.
	IsLongSwap bool
}

type Input struct {
	Mode Mode

	// Started is false on the tick the start packet would go out.
	Started bool
	// ProgressTicks is the elapsed count before this tick's increment.
	ProgressTicks int
	Fudge         int
	Threshold     float64

	EquippedRate float64
	SwapRate     float64
	// ServerSwapTicks is how long a selection takes to become visible to
	// the server.
	ServerSwapTicks int
}

// Progress is the break progress after ticks with rate.
func Progress(rate float64, ticks, fudge int) float64 {
	n := ticks - fudge
	if n < 0 {
		n = 0
	}
	return rate * float64(n)
}

// Decide runs one tick before the progress counter increments, so every
// extrapolation looks one tick further than ProgressTicks.
func Decide(in Input) Decision {
	if in.Mode == Never || in.SwapRate <= in.EquippedRate {
		return Decision{}
	}
	switch in.Mode {
	case Always:
		return Decision{ShouldSwap: true, IsLongSwap: true}
	case StartOnly:
		return startDecision(in)
	case EndOnly:
		return endDecision(in)
	case Both:
		if d := startDecision(in); d.ShouldSwap {
			return d
		}
		return endDecision(in)
	}
	return Decision{}
}

func startDecision(in Input) Decision {
	if in.Started {
		return Decision{}
	}
	return Decision{ShouldSwap: true}
}

func endDecision(in Input) Decision {
	if !in.Started {
		// Instant breaks finish on the start tick and need the tool now.
		if Progress(in.SwapRate, 1, in.Fudge) >= in.Threshold {
			return Decision{ShouldSwap: true}
		}
		return Decision{}
	}
	ahead := in.ProgressTicks + 1 + in.ServerSwapTicks
	if Progress(in.EquippedRate, ahead, in.Fudge) >= in.Threshold {
		return Decision{}
	}
	if Progress(in.SwapRate, ahead, in.Fudge) >= in.Threshold {
		return Decision{ShouldSwap: true, IsLongSwap: in.ServerSwapTicks > 0}
	}
	return Decision{}
}

// HoldTicks is how long a decision needs the tool held.
func HoldTicks(d Decision, serverSwapTicks, remaining int) int {
	if !d.ShouldSwap {
		return 0
	}
	hold := 1 + serverSwapTicks
	if d.IsLongSwap && remaining > hold {
		hold = remaining
	}
	return hold
}

// TicksToThreshold is the smallest tick count whose progress meets threshold,
// or -1 when rate never gets there.
func TicksToThreshold(rate, threshold float64, fudge int) int {
	if rate <= 0 {
		return -1
	}
	n := int(threshold / rate)
	for Progress(rate, n+fudge, fudge) < threshold {
		n++
	}
	for n > 0 && Progress(rate, n-1+fudge, fudge) >= threshold {
		n--
	}
	return n + fudge
}
