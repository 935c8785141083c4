package action

// Type tags what role an Info plays for its coordinator.
type Type uint8

const (
	TypePrimary Type = iota
	TypeSecondary
	TypeRedundantSecondary
	TypeRebreak
	TypePlace
)

var typeNames = [...]string{"PRIMARY", "SECONDARY", "REDUNDANT_SECONDARY", "REBREAK", "PLACE"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "UNKNOWN"
}

// Potential is how much of the rebreak slot's progress a new target can reuse.
type Potential uint8

const (
	PotentialNone Potential = iota
	PotentialPartial
	PotentialInstant
)

func (p Potential) String() string {
	switch p {
	case PotentialPartial:
		return "PARTIAL"
	case PotentialInstant:
		return "INSTANT"
	default:
		return "NONE"
	}
}

var transitions = map[Type][]Type{
	TypePrimary:   {TypeSecondary, TypeRebreak},
	TypeSecondary: {TypeRedundantSecondary},
	TypeRebreak:   {TypePrimary},
}

func CanTransition(from, to Type) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Info is the per-tick state of one action.
type Info struct {
	Type Type
	Ctx  Context
	Req  *Request

	// Tick-local; cleared once per tick boundary.
	UpdatedThisTick    bool
	ProgressedThisTick bool
	Preprocessed       bool

	Breaking      bool
	Abandoned     bool
	FromRebreak   bool
	ProgressTicks int
	Progress      float64
	Threshold     float64

	// Pre-processing output.
	Aim        Rotation
	AimDone    bool
	ToolSlot   int
	SwapNeeded bool
	SwapLong   bool
	SwapDone   bool
	Potential  Potential

	// Post-completion bookkeeping.
	Broken             bool
	Confirmed          bool
	Drop               *Entity
	CallbacksCompleted bool

	fired uint16
}

func NewInfo(t Type, ctx Context, req *Request) *Info {
	return &Info{Type: t, Ctx: ctx, Req: req, ToolSlot: ctx.Slot}
}

// As returns a copy of i re-tagged as t. A Rebreak copy starts with fresh
// post-completion bookkeeping and is marked breaking.
func (i *Info) As(t Type) (*Info, bool) {
	if i == nil || !CanTransition(i.Type, t) {
		return nil, false
	}
	n := *i
	n.Type = t
	switch t {
	case TypeRebreak:
		n.Broken = false
		n.Confirmed = false
		n.Drop = nil
		n.CallbacksCompleted = false
		n.Breaking = true
		n.Abandoned = false
		n.fired = 0
	case TypePrimary:
		n.FromRebreak = true
	}
	return &n, true
}

func (i *Info) ClearTick() {
	i.UpdatedThisTick = false
	i.ProgressedThisTick = false
	i.Preprocessed = false
}

// DropPending reports whether a drop is expected but not yet seen.
func (i *Info) DropPending() bool {
	return i.Ctx.ExpectDrop != "" && i.Drop == nil
}

// Fired reports whether kind has already been emitted for this action.
func (i *Info) Fired(kind EventKind) bool { return i.fired&(1<<kind) != 0 }

// Emit sends ev to the request listener. One-shot kinds fire at most once
// per Info; Emit reports whether the event went out.
func (i *Info) Emit(kind EventKind, reason string) bool {
	if kind.once() {
		if i.Fired(kind) {
			return false
		}
		i.fired |= 1 << kind
	}
	i.Req.emit(Event{
		Kind:     kind,
		Pos:      i.Ctx.Pos,
		Type:     i.Type,
		Progress: i.Progress,
		Drop:     i.Drop,
		Reason:   reason,
	})
	return true
}

// CompletionKind is the event a finished action reports: rebreaks report
// EventRebroke, everything else EventStop.
func (i *Info) CompletionKind() EventKind {
	if i.Type == TypeRebreak || i.FromRebreak {
		return EventRebroke
	}
	return EventStop
}
