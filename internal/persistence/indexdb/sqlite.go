package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelcraft.ai/botcore/internal/sim/action"
	"voxelcraft.ai/botcore/internal/sim/catalogs"
)

// SQLiteIndex keeps a queryable copy of every action outcome. Writes go
// through a buffered channel to a single writer goroutine so the tick
// goroutine never waits on disk.
type SQLiteIndex struct {
	db    *sql.DB
	runID string

	ch   chan action.Outcome
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ action.Recorder = (*SQLiteIndex)(nil)

type QueueStats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
}

// CategoryCount is one row of the outcome summary.
type CategoryCount struct {
	Kind     string
	Category string
	Count    int
}

func OpenSQLite(path, runID string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:    db,
		runID: runID,
		ch:    make(chan action.Outcome, 8192),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			at TEXT NOT NULL,
			request_id INTEGER NOT NULL,
			owner TEXT NOT NULL,
			kind TEXT NOT NULL,
			type TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			category TEXT NOT NULL,
			progress_ticks INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run_category ON outcomes(run_id, category);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_pos ON outcomes(x, z, y);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Record queues o for the writer. It drops rather than blocks when the
// writer falls behind; the journal remains the source of truth.
func (s *SQLiteIndex) Record(o action.Outcome) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- o:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) Stats() QueueStats {
	if s == nil {
		return QueueStats{}
	}
	return QueueStats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropped.Load(),
	}
}

// UpsertCatalogs records which catalog digests the run was started with.
func (s *SQLiteIndex) UpsertCatalogs(ctx context.Context, cats *catalogs.Catalogs) error {
	if cats == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	kv := [][2]string{
		{"catalogs_digest", cats.Digest},
		{"block_palette_digest", cats.Blocks.PaletteDigest},
		{"item_palette_digest", cats.Items.PaletteDigest},
		{"last_run_id", s.runID},
	}
	for _, p := range kv {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, p[0], p[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// Summary counts this run's outcomes by kind and category.
func (s *SQLiteIndex) Summary(ctx context.Context) ([]CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, category, COUNT(*) FROM outcomes WHERE run_id=? GROUP BY kind, category ORDER BY kind, category`,
		s.runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Kind, &c.Category, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insert, _ := s.db.Prepare(`INSERT INTO outcomes(run_id,at,request_id,owner,kind,type,x,y,z,category,progress_ticks) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insert != nil {
			_ = insert.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for o := range s.ch {
		begin()
		if tx == nil || insert == nil {
			continue
		}
		if _, err := tx.Stmt(insert).Exec(
			s.runID,
			o.At.UTC().Format(time.RFC3339Nano),
			int64(o.RequestID),
			o.Owner,
			string(o.Kind),
			o.Type.String(),
			o.Pos.X, o.Pos.Y, o.Pos.Z,
			string(o.Category),
			o.ProgressTicks,
		); err != nil {
			rollback()
			continue
		}
		opCount++
		// Commit whenever the queue runs dry so readers see recent rows.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	commit()
}
