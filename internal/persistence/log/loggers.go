package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"voxelcraft.ai/botcore/internal/sim/action"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// JournalEntry is one finished action as written to the outcome journal.
type JournalEntry struct {
	RunID         string    `json:"run_id"`
	At            time.Time `json:"at"`
	RequestID     uint64    `json:"request_id"`
	Owner         string    `json:"owner"`
	Kind          string    `json:"kind"`
	Type          string    `json:"type"`
	Pos           [3]int    `json:"pos"`
	Category      string    `json:"category"`
	ProgressTicks int       `json:"progress_ticks"`
}

func EntryFromOutcome(runID string, o action.Outcome) JournalEntry {
	return JournalEntry{
		RunID:         runID,
		At:            o.At.UTC(),
		RequestID:     o.RequestID,
		Owner:         o.Owner,
		Kind:          string(o.Kind),
		Type:          o.Type.String(),
		Pos:           o.Pos.ToArray(),
		Category:      string(o.Category),
		ProgressTicks: o.ProgressTicks,
	}
}

// OutcomeJournal writes one compressed JSONL entry per finished action.
// It implements action.Recorder.
type OutcomeJournal struct {
	w     *JSONLZstdWriter
	runID string
	log   *zap.Logger

	mu     sync.Mutex
	errors int
}

var _ action.Recorder = (*OutcomeJournal)(nil)

func NewOutcomeJournal(dir, runID string, logger *zap.Logger) *OutcomeJournal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeJournal{w: NewJSONLZstdWriter(dir, "outcomes"), runID: runID, log: logger}
}

func (j *OutcomeJournal) Record(o action.Outcome) {
	if err := j.w.Write(EntryFromOutcome(j.runID, o)); err != nil {
		j.mu.Lock()
		j.errors++
		n := j.errors
		j.mu.Unlock()
		// The first failure is loud; the rest would only repeat it.
		if n == 1 {
			j.log.Error("outcome journal write failed", zap.Error(err))
		}
	}
}

// Errors counts failed writes.
func (j *OutcomeJournal) Errors() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errors
}

func (j *OutcomeJournal) Close() error { return j.w.Close() }

// ReadJournal decodes every entry of one journal file.
func ReadJournal(path string) ([]JournalEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []JournalEntry
	jd := json.NewDecoder(dec)
	for {
		var e JournalEntry
		if err := jd.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("%s: entry %d: %w", path, len(out)+1, err)
		}
		out = append(out, e)
	}
}
