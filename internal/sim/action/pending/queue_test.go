package pending

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/action/actiontest"
)

const (
	air   uint16 = 0
	stone uint16 = 1
)

func finished(pos action.Vec3i, events *actiontest.Events) *action.Info {
	req := action.NewRequest("test", []action.Context{{Pos: pos, Current: stone, Desired: air}}, action.Policy{}, events)
	info := action.NewInfo(action.TypePrimary, req.Contexts[0], req)
	info.Broken = true
	return info
}

func TestQueue_ConfirmFiresStopOnce(t *testing.T) {
	env, f := actiontest.NewEnv()
	q := New(env, Config{Capacity: 4, Timeout: time.Second})
	events := &actiontest.Events{}
	pos := action.Vec3i{X: 1}
	info := finished(pos, events)

	q.Add(info, action.ConfirmThenOptimistic)
	if !info.Req.InFlight.Has(pos) {
		t.Fatalf("expected position registered in flight")
	}
	if !q.OnBlockUpdate(pos, air) {
		t.Fatalf("expected update handled")
	}
	q.OnBlockUpdate(pos, air)

	if diff := cmp.Diff([]action.EventKind{action.EventStop}, events.Kinds()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if q.Len() != 0 || info.Req.InFlight.Has(pos) {
		t.Fatalf("expected entry finalized, len=%d", q.Len())
	}
	if !info.CallbacksCompleted {
		t.Fatalf("expected callbacks completed")
	}
	if got := f.Outcomes.Categories(); len(got) != 1 || got[0] != action.CategoryConfirmed {
		t.Fatalf("outcomes: %v", got)
	}
}

func TestQueue_StaleEchoKeepsWaiting(t *testing.T) {
	env, _ := actiontest.NewEnv()
	q := New(env, Config{Capacity: 4, Timeout: time.Second})
	events := &actiontest.Events{}
	pos := action.Vec3i{Y: 3}
	q.Add(finished(pos, events), action.OptimisticThenConfirm)

	q.OnBlockUpdate(pos, stone)
	if q.Len() != 1 || len(events.List) != 0 {
		t.Fatalf("stale echo should not resolve: len=%d events=%v", q.Len(), events.Kinds())
	}
}

func TestQueue_RejectionCancels(t *testing.T) {
	env, f := actiontest.NewEnv()
	q := New(env, Config{Capacity: 4, Timeout: time.Second})
	events := &actiontest.Events{}
	pos := action.Vec3i{Z: 2}
	q.Add(finished(pos, events), action.OptimisticThenConfirm)

	q.OnBlockUpdate(pos, 7)
	if q.Len() != 0 {
		t.Fatalf("expected rejection to remove entry")
	}
	if events.Count(action.EventCancel) != 1 || events.Count(action.EventStop) != 0 {
		t.Fatalf("unexpected events: %v", events.Kinds())
	}
	if got := f.Outcomes.Categories(); len(got) != 1 || got[0] != action.CategoryRejected {
		t.Fatalf("outcomes: %v", got)
	}
}

func TestQueue_UntrackedPositionIsNoop(t *testing.T) {
	env, _ := actiontest.NewEnv()
	q := New(env, Config{})
	if q.OnBlockUpdate(action.Vec3i{X: 9}, air) {
		t.Fatalf("expected untracked update ignored")
	}
}

func TestQueue_OverflowEvictsOldestOnce(t *testing.T) {
	env, f := actiontest.NewEnv()
	q := New(env, Config{Capacity: 2, Timeout: 3000 * time.Millisecond, Overflow: EvictOldest})
	evs := []*actiontest.Events{{}, {}, {}}
	for i, e := range evs {
		q.Add(finished(action.Vec3i{X: i}, e), action.OptimisticThenConfirm)
	}
	if q.Len() != 2 {
		t.Fatalf("expected capacity held, got %d", q.Len())
	}
	if evs[0].Count(action.EventCancel) != 1 {
		t.Fatalf("expected evicted action cancelled once, got %v", evs[0].Kinds())
	}
	if len(evs[1].List) != 0 || len(evs[2].List) != 0 {
		t.Fatalf("survivors should not fire")
	}
	// Eviction is final: a late echo for the evicted position does nothing.
	q.OnBlockUpdate(action.Vec3i{X: 0}, air)
	if evs[0].Count(action.EventCancel) != 1 || evs[0].Count(action.EventStop) != 0 {
		t.Fatalf("evicted action fired again: %v", evs[0].Kinds())
	}
	if got := f.Outcomes.Categories(); len(got) != 1 || got[0] != action.CategoryEvicted {
		t.Fatalf("outcomes: %v", got)
	}
}

func TestQueue_EvictingConfirmedEntryKeepsWorld(t *testing.T) {
	env, f := actiontest.NewEnv()
	q := New(env, Config{Capacity: 1, Timeout: 3 * time.Second, Rollback: true})
	var rejected []action.Vec3i
	q.OnReject(func(i *action.Info) { rejected = append(rejected, i.Ctx.Pos) })
	events := &actiontest.Events{}
	pos := action.Vec3i{X: 4}
	info := finished(pos, events)
	info.Ctx.ExpectDrop = "STONE"
	f.World.Blocks[pos] = air
	q.Add(info, action.OptimisticThenConfirm)

	q.OnBlockUpdate(pos, air)
	if !info.Confirmed || q.Len() != 1 {
		t.Fatalf("expected confirmed entry waiting for its drop")
	}

	q.Add(finished(action.Vec3i{X: 8}, &actiontest.Events{}), action.OptimisticThenConfirm)
	if diff := cmp.Diff([]action.EventKind{action.EventStop}, events.Kinds()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if f.World.Blocks[pos] != air {
		t.Fatalf("confirmed block rolled back to %d", f.World.Blocks[pos])
	}
	if got := f.Outcomes.Categories(); len(got) != 1 || got[0] != action.CategoryConfirmed {
		t.Fatalf("outcomes: %v", got)
	}
	if len(rejected) != 0 || info.Req.InFlight.Has(pos) || !info.CallbacksCompleted {
		t.Fatalf("evicted confirmed entry not settled: rejected=%v", rejected)
	}
}

func TestQueue_RejectNewImmediateEntrySettles(t *testing.T) {
	env, f := actiontest.NewEnv()
	q := New(env, Config{Capacity: 1, Overflow: RejectNew, Rollback: true})
	q.Add(finished(action.Vec3i{}, &actiontest.Events{}), action.OptimisticThenConfirm)

	events := &actiontest.Events{}
	pos := action.Vec3i{Z: 1}
	info := finished(pos, events)
	info.Ctx.ExpectDrop = "STONE"
	f.World.Blocks[pos] = air
	if q.Add(info, action.Immediate) {
		t.Fatalf("full queue accepted entry")
	}
	if len(events.List) != 0 || f.World.Blocks[pos] != air {
		t.Fatalf("immediate entry undone: events=%v block=%d", events.Kinds(), f.World.Blocks[pos])
	}
	if got := f.Outcomes.Categories(); len(got) != 1 || got[0] != action.CategoryConfirmed {
		t.Fatalf("outcomes: %v", got)
	}
}

func TestQueue_ReportsGivenUpActions(t *testing.T) {
	env, f := actiontest.NewEnv()
	q := New(env, Config{Capacity: 4, Timeout: time.Second})
	var rejected []action.Vec3i
	q.OnReject(func(i *action.Info) { rejected = append(rejected, i.Ctx.Pos) })
	a, b := action.Vec3i{X: 1}, action.Vec3i{X: 2}
	q.Add(finished(a, &actiontest.Events{}), action.OptimisticThenConfirm)
	q.Add(finished(b, &actiontest.Events{}), action.OptimisticThenConfirm)

	q.OnBlockUpdate(a, 7)
	f.Clock.Advance(time.Second)
	q.Expire(f.Clock.Now())
	if diff := cmp.Diff([]action.Vec3i{a, b}, rejected); diff != "" {
		t.Fatalf("rejections (-want +got):\n%s", diff)
	}
}

func TestQueue_LogCategories(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	env, f := actiontest.NewEnv()
	env.Log = zap.New(core)
	q := New(env, Config{Capacity: 4, Timeout: time.Second})
	a, b := action.Vec3i{X: 1}, action.Vec3i{X: 2}
	q.Add(finished(a, &actiontest.Events{}), action.OptimisticThenConfirm)
	q.Add(finished(b, &actiontest.Events{}), action.OptimisticThenConfirm)

	q.OnBlockUpdate(a, 7)
	f.Clock.Advance(time.Second)
	q.Expire(f.Clock.Now())

	var got []string
	for _, e := range logs.All() {
		got = append(got, e.Message+"/"+e.ContextMap()["category"].(string))
	}
	want := []string{"action rejected/rejected", "action timed out/timeout"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("log categories (-want +got):\n%s", diff)
	}
}

func TestQueue_OverflowRejectNew(t *testing.T) {
	env, _ := actiontest.NewEnv()
	q := New(env, Config{Capacity: 2, Overflow: RejectNew})
	evs := []*actiontest.Events{{}, {}, {}}
	for i, e := range evs {
		ok := q.Add(finished(action.Vec3i{X: i}, e), action.OptimisticThenConfirm)
		if want := i < 2; ok != want {
			t.Fatalf("add %d: got %v want %v", i, ok, want)
		}
	}
	if evs[2].Count(action.EventCancel) != 1 || evs[0].Count(action.EventCancel) != 0 {
		t.Fatalf("expected newest rejected")
	}
}

func TestQueue_TimeoutRollsBack(t *testing.T) {
	env, f := actiontest.NewEnv()
	q := New(env, Config{Capacity: 4, Timeout: 3 * time.Second, Rollback: true})
	events := &actiontest.Events{}
	pos := action.Vec3i{X: 5}
	f.World.Blocks[pos] = air // optimistic change already applied
	q.Add(finished(pos, events), action.OptimisticThenConfirm)

	f.Clock.Advance(2 * time.Second)
	q.Expire(f.Clock.Now())
	if q.Len() != 1 {
		t.Fatalf("expired too early")
	}
	f.Clock.Advance(time.Second)
	q.Expire(f.Clock.Now())
	if q.Len() != 0 {
		t.Fatalf("expected timeout")
	}
	if f.World.Blocks[pos] != stone {
		t.Fatalf("expected rollback to stone, got %d", f.World.Blocks[pos])
	}
	if events.Count(action.EventCancel) != 1 {
		t.Fatalf("expected cancel on timeout: %v", events.Kinds())
	}
	if got := f.Outcomes.Categories(); len(got) != 1 || got[0] != action.CategoryTimeout {
		t.Fatalf("outcomes: %v", got)
	}
}

func TestQueue_DropMatching(t *testing.T) {
	env, _ := actiontest.NewEnv()
	q := New(env, Config{Capacity: 4, Timeout: time.Second})
	events := &actiontest.Events{}
	pos := action.Vec3i{X: 2, Y: 1}
	info := finished(pos, events)
	info.Ctx.ExpectDrop = "STONE"

	q.Add(info, action.Immediate)
	q.OnBlockUpdate(pos, air)
	if q.Len() != 1 {
		t.Fatalf("immediate entry should wait for its drop")
	}
	// Wrong type, then too far away.
	q.OnEntitySpawn(action.Entity{ID: "e1", Item: "DIRT", Pos: pos.Center()})
	q.OnEntitySpawn(action.Entity{ID: "e2", Item: "STONE", Pos: action.Vec3f{X: 4, Y: 1.5, Z: 0.5}})
	if info.Drop != nil {
		t.Fatalf("unexpected drop match")
	}
	q.OnEntityUpdate(action.Entity{ID: "e2", Item: "STONE", Pos: action.Vec3f{X: 2.6, Y: 1.4, Z: 0.5}})
	if info.Drop == nil || info.Drop.ID != "e2" {
		t.Fatalf("expected e2 captured, got %+v", info.Drop)
	}
	if q.Len() != 0 {
		t.Fatalf("expected finalized after drop")
	}
	if diff := cmp.Diff([]action.EventKind{action.EventDropped}, events.Kinds()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestQueue_LooseDropClaimedOnAdd(t *testing.T) {
	env, _ := actiontest.NewEnv()
	q := New(env, Config{Capacity: 4, Timeout: time.Second})
	pos := action.Vec3i{}
	q.OnEntitySpawn(action.Entity{ID: "early", Item: "STONE", Pos: pos.Center()})

	info := finished(pos, &actiontest.Events{})
	info.Ctx.ExpectDrop = "STONE"
	q.Add(info, action.OptimisticThenConfirm)
	if info.Drop == nil || info.Drop.ID != "early" {
		t.Fatalf("expected loose drop claimed")
	}
	if q.Len() != 1 {
		t.Fatalf("still waiting for confirmation")
	}
}

func TestQueue_ClearFiresNothing(t *testing.T) {
	env, _ := actiontest.NewEnv()
	q := New(env, Config{Capacity: 4})
	events := &actiontest.Events{}
	info := finished(action.Vec3i{}, events)
	q.Add(info, action.ConfirmThenOptimistic)
	q.Clear()
	if q.Len() != 0 || len(events.List) != 0 {
		t.Fatalf("clear should be silent: len=%d events=%v", q.Len(), events.Kinds())
	}
	if info.Req.InFlight.Len() != 0 {
		t.Fatalf("clear should release in-flight positions")
	}
}
