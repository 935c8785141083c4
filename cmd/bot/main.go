// Command bot connects one agent to a world server and runs its action core.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"voxelcraft.ai/botcore/internal/persistence/indexdb"
	plog "voxelcraft.ai/botcore/internal/persistence/log"
	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/catalogs"
	"voxelcraft.ai/botcore/internal/sim/session"
	"voxelcraft.ai/botcore/internal/sim/tuning"
	"voxelcraft.ai/botcore/internal/transport/observer"
	"voxelcraft.ai/botcore/internal/transport/ws"
)

type options struct {
	url         string
	name        string
	tuningPath  string
	catalogPath string
	dataDir     string
	disableDB   bool
	statusAddr  string
	digDepth    int
}

func main() {
	var o options
	flag.StringVar(&o.url, "url", "ws://localhost:8080/v1/ws", "world ws url")
	flag.StringVar(&o.name, "name", "bot", "agent name")
	flag.StringVar(&o.tuningPath, "tuning", "", "path to tuning.yaml (optional; VC_* env vars override)")
	flag.StringVar(&o.catalogPath, "catalogs", "", "path to catalogs.yaml (default: built-in catalogs)")
	flag.StringVar(&o.dataDir, "data", "./data", "runtime data directory")
	flag.BoolVar(&o.disableDB, "disable_db", false, "disable the sqlite outcome index")
	flag.StringVar(&o.statusAddr, "status_listen", "127.0.0.1:8091", "status http listen address (empty to disable)")
	flag.IntVar(&o.digDepth, "dig_depth", 0, "dig this many blocks under the bot (0 disables)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	config := zap.NewProductionConfig()
	if *debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, o, logger)
	stop()
	if err != nil {
		logger.Error("bot stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(ctx context.Context, o options, logger *zap.Logger) error {
	tune, err := tuning.Load(o.tuningPath)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	cats, err := catalogs.Load(o.catalogPath)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	scfg, err := session.ConfigFromTuning(tune)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	journal := plog.NewOutcomeJournal(filepath.Join(o.dataDir, "outcomes"), runID, logger)
	defer func() { _ = journal.Close() }()
	recorders := action.MultiRecorder{journal}

	var index *indexdb.SQLiteIndex
	if !o.disableDB {
		index, err = indexdb.OpenSQLite(filepath.Join(o.dataDir, "index", "outcomes.sqlite"), runID)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer func() { _ = index.Close() }()
		if err := index.UpsertCatalogs(ctx, cats); err != nil {
			logger.Warn("index catalogs", zap.Error(err))
		}
		recorders = append(recorders, index)
	}

	inbox := make(chan any, scfg.InboxSize)
	client := ws.NewClient(ws.Config{URL: o.url, AgentName: o.name, Catalogs: cats}, inbox, logger.Named("ws"))
	sess := session.New(scfg, session.Deps{
		Catalogs: cats,
		Out:      client,
		Recorder: recorders,
		Log:      logger.Named("session"),
		Inbox:    inbox,
	})
	if o.digDepth > 0 {
		m := newMiner(sess, o.digDepth, logger.Named("miner"))
		sess.OnTick(action.PhaseStart, "miner", m.tick)
	}

	logger.Info("bot starting",
		zap.String("url", o.url),
		zap.String("name", o.name),
		zap.String("catalogs_digest", cats.Digest),
		zap.Int("tick_rate_hz", tune.Session.TickRateHz),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })
	g.Go(func() error { return client.Run(gctx) })
	if o.statusAddr != "" {
		srv := &http.Server{
			Addr:              o.statusAddr,
			Handler:           observer.NewServer(sess, logger.Named("status")).Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logSummary(logger, sess.Status(), client, journal, index)
	return err
}

func logSummary(logger *zap.Logger, st session.Status, client *ws.Client, journal *plog.OutcomeJournal, index *indexdb.SQLiteIndex) {
	logger.Info("bot stopped",
		zap.Uint64("ticks", st.Tick),
		zap.Int("pending", st.Pending),
		zap.Int("rejected_acks", st.RejectedAcks),
		zap.Int64("outbox_dropped", client.Dropped()),
		zap.Int("journal_errors", journal.Errors()),
	)
	for owner, s := range st.Break {
		logger.Info("break requests", zap.String("owner", owner), zap.Int("submitted", s.Submitted), zap.Int("accepted", s.Accepted), zap.Int("ignored", s.Ignored))
	}
	for owner, s := range st.Place {
		logger.Info("place requests", zap.String("owner", owner), zap.Int("submitted", s.Submitted), zap.Int("accepted", s.Accepted), zap.Int("ignored", s.Ignored))
	}
	if index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rows, err := index.Summary(ctx)
	if err != nil {
		logger.Warn("outcome summary", zap.Error(err))
		return
	}
	for _, r := range rows {
		logger.Info("outcomes", zap.String("kind", r.Kind), zap.String("category", r.Category), zap.Int("count", r.Count))
	}
	qs := index.Stats()
	if qs.DropTotal > 0 {
		logger.Warn("outcome index dropped rows", zap.Uint64("dropped", qs.DropTotal))
	}
}
