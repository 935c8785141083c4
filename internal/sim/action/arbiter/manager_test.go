package arbiter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"voxelcraft.ai/botcore/internal/sim/action"
)

type fakeCoord struct {
	more  bool
	calls int
	hook  func()
}

func (f *fakeCoord) Accept(*action.Request) bool {
	f.calls++
	if f.hook != nil {
		f.hook()
	}
	return f.more
}

func req(owner string, n int) *action.Request {
	ctxs := make([]action.Context, n)
	for i := range ctxs {
		ctxs[i] = action.Context{Pos: action.Vec3i{X: i}, Desired: 1}
	}
	return action.NewRequest(owner, ctxs, action.Policy{}, nil)
}

func TestSubmit_EmptyContextsDoNothing(t *testing.T) {
	m := New("break", &fakeCoord{}, nil)
	if m.Submit(req("a", 0)) || m.Active() != nil {
		t.Fatalf("empty request must not activate")
	}
	first := req("a", 1)
	m.Submit(first)
	if m.Submit(req("b", 0)) || m.Active() != first {
		t.Fatalf("empty request altered state")
	}
	if got := m.Stats("b"); got != (Stats{}) {
		t.Fatalf("empty request counted: %+v", got)
	}
}

func TestSubmit_FirstCallerWins(t *testing.T) {
	m := New("break", &fakeCoord{more: true}, nil)
	a, b := req("a", 1), req("b", 1)
	if !m.Submit(a) {
		t.Fatalf("first submit refused")
	}
	if m.Submit(b) {
		t.Fatalf("second submit accepted")
	}
	if m.Active() != a {
		t.Fatalf("active request changed")
	}
	// Same owner does not refresh either.
	if m.Submit(req("a", 2)) || m.Active() != a {
		t.Fatalf("same-owner submit replaced the active request")
	}
	if st := m.Stats("b"); st.Ignored != 1 || st.Accepted != 0 {
		t.Fatalf("stats for b: %+v", st)
	}
	want := map[string]Stats{
		"a": {Submitted: 2, Accepted: 1, Ignored: 1},
		"b": {Submitted: 1, Ignored: 1},
	}
	if diff := cmp.Diff(want, m.AllStats()); diff != "" {
		t.Fatalf("all stats (-want +got):\n%s", diff)
	}
}

func TestSubmit_PhaseMask(t *testing.T) {
	m := New("break", &fakeCoord{}, nil)
	r := req("a", 1)
	r.Phases = action.PhaseEnd
	if m.Submit(r) {
		t.Fatalf("end-phase request accepted during start")
	}
	m.SetPhase(action.PhaseEnd)
	if !m.Submit(r) {
		t.Fatalf("end-phase request refused during end")
	}
}

func TestHandleRequest_ClearsWhenDone(t *testing.T) {
	c := &fakeCoord{more: true}
	m := New("break", c, nil)
	m.Submit(req("a", 1))
	m.HandleRequest()
	if m.Active() == nil {
		t.Fatalf("request with work left was cleared")
	}
	c.more = false
	m.HandleRequest()
	if m.Active() != nil || c.calls != 2 {
		t.Fatalf("expected clear after done, calls=%d", c.calls)
	}
	if !m.Submit(req("b", 1)) {
		t.Fatalf("slot should be free for the next caller")
	}
}

func TestHandleRequest_NowOrNothing(t *testing.T) {
	c := &fakeCoord{more: true}
	m := New("place", c, nil)
	r := req("a", 1)
	r.NowOrNothing = true
	m.Submit(r)
	m.HandleRequest()
	if m.Active() != nil {
		t.Fatalf("now-or-nothing request should be dropped after one pass")
	}
}

func TestHandleRequest_NoReentry(t *testing.T) {
	c := &fakeCoord{more: true}
	m := New("break", c, nil)
	c.hook = func() { m.HandleRequest() }
	m.Submit(req("a", 1))
	m.HandleRequest()
	if c.calls != 1 {
		t.Fatalf("re-entered: %d calls", c.calls)
	}
}

func TestHandleRequest_SkipsOtherPhase(t *testing.T) {
	c := &fakeCoord{more: true}
	m := New("break", c, nil)
	r := req("a", 1)
	r.Phases = action.PhaseStart
	m.Submit(r)
	m.SetPhase(action.PhaseEnd)
	m.HandleRequest()
	if c.calls != 0 {
		t.Fatalf("handled outside the request's phase")
	}
}

func TestClear(t *testing.T) {
	m := New("break", &fakeCoord{}, nil)
	m.Submit(req("a", 1))
	m.Clear()
	if m.Active() != nil {
		t.Fatalf("clear kept the request")
	}
}
