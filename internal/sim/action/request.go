package action

import "sync/atomic"

// ConfirmMode selects how a finished action waits for the server.
type ConfirmMode uint8

const (
	// Immediate applies the change and fires completion at once.
	Immediate ConfirmMode = iota
	// OptimisticThenConfirm applies the change locally, completion waits for the echo.
	OptimisticThenConfirm
	// ConfirmThenOptimistic waits for the echo before applying anything.
	ConfirmThenOptimistic
)

func (m ConfirmMode) String() string {
	switch m {
	case OptimisticThenConfirm:
		return "optimistic_then_confirm"
	case ConfirmThenOptimistic:
		return "confirm_then_optimistic"
	default:
		return "immediate"
	}
}

func ParseConfirmMode(s string) (ConfirmMode, bool) {
	switch s {
	case "", "immediate":
		return Immediate, true
	case "optimistic_then_confirm":
		return OptimisticThenConfirm, true
	case "confirm_then_optimistic":
		return ConfirmThenOptimistic, true
	}
	return Immediate, false
}

// Phase is a bit mask of the tick phases a request may be handled in.
type Phase uint8

const (
	PhaseStart Phase = 1 << iota
	PhaseEnd

	PhaseAll = PhaseStart | PhaseEnd
)

func (p Phase) Has(q Phase) bool { return p&q != 0 }

type Policy struct {
	Confirm ConfirmMode
	Rebreak bool
}

// Request bundles the contexts one caller wants applied. The contexts are
// not modified after construction.
type Request struct {
	ID       uint64
	Owner    string
	Contexts []Context

	// InFlight is shared with the pending queue: positions whose action
	// finished locally but is still waiting on the server.
	InFlight *InFlight

	Listener     Listener
	Policy       Policy
	Phases       Phase
	NowOrNothing bool
}

var requestSeq atomic.Uint64

// NextRequestID returns a process-wide monotonic request id.
func NextRequestID() uint64 { return requestSeq.Add(1) }

func NewRequest(owner string, contexts []Context, policy Policy, l Listener) *Request {
	return &Request{
		ID:       NextRequestID(),
		Owner:    owner,
		Contexts: append([]Context(nil), contexts...),
		InFlight: NewInFlight(),
		Listener: l,
		Policy:   policy,
		Phases:   PhaseAll,
	}
}

// Done reports whether every context already matches its desired block.
func (r *Request) Done(w BlockReader) bool {
	if r == nil {
		return true
	}
	for _, c := range r.Contexts {
		if !c.Satisfied(w) {
			return false
		}
	}
	return true
}

func (r *Request) emit(ev Event) {
	if r == nil || r.Listener == nil {
		return
	}
	ev.RequestID = r.ID
	r.Listener.HandleActionEvent(ev)
}

type InFlight struct {
	set map[Vec3i]struct{}
}

func NewInFlight() *InFlight { return &InFlight{set: map[Vec3i]struct{}{}} }

func (f *InFlight) Add(pos Vec3i) {
	if f == nil {
		return
	}
	f.set[pos] = struct{}{}
}

func (f *InFlight) Remove(pos Vec3i) {
	if f == nil {
		return
	}
	delete(f.set, pos)
}

func (f *InFlight) Has(pos Vec3i) bool {
	if f == nil {
		return false
	}
	_, ok := f.set[pos]
	return ok
}

func (f *InFlight) Len() int {
	if f == nil {
		return 0
	}
	return len(f.set)
}
