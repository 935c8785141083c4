package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/catalogs"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan action.Outcome, 1)}
	s.ch <- action.Outcome{RequestID: 1}

	s.Record(action.Outcome{RequestID: 2})
	s.Record(action.Outcome{RequestID: 3})

	st := s.Stats()
	if st.DropTotal != 2 {
		t.Fatalf("DropTotal=%d want=2", st.DropTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_SummaryByRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "index", "outcomes.sqlite")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	other, err := OpenSQLite(path, "run-0")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	other.Record(action.Outcome{At: at, Kind: action.KindDestroy, Category: action.CategoryConfirmed})
	if err := other.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err := OpenSQLite(path, "run-1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	for _, o := range []action.Outcome{
		{At: at, RequestID: 1, Owner: "miner", Kind: action.KindDestroy, Type: action.TypePrimary, Category: action.CategoryConfirmed, ProgressTicks: 4},
		{At: at, RequestID: 1, Owner: "miner", Kind: action.KindDestroy, Type: action.TypeSecondary, Category: action.CategoryConfirmed},
		{At: at, RequestID: 2, Owner: "miner", Kind: action.KindDestroy, Type: action.TypePrimary, Category: action.CategoryRejected},
		{At: at, RequestID: 3, Owner: "builder", Kind: action.KindPlace, Type: action.TypePlace, Category: action.CategoryTimeout},
	} {
		s.Record(o)
	}
	cat, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	ctx := context.Background()
	if err := s.UpsertCatalogs(ctx, cat); err != nil {
		t.Fatalf("upsert catalogs: %v", err)
	}
	// Closing flushes the writer; reopen under the same run to query.
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s, err = OpenSQLite(path, "run-1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := []CategoryCount{
		{Kind: "destroy", Category: "confirmed", Count: 2},
		{Kind: "destroy", Category: "rejected", Count: 1},
		{Kind: "place", Category: "timeout", Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
	digest, err := s.Meta(ctx, "block_palette_digest")
	if err != nil || digest != cat.Blocks.PaletteDigest {
		t.Fatalf("meta digest %q err=%v", digest, err)
	}
	if missing, err := s.Meta(ctx, "nope"); err != nil || missing != "" {
		t.Fatalf("missing meta %q err=%v", missing, err)
	}
}
