// Command outcomes summarizes the bot's compressed outcome journal.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	plog "voxelcraft.ai/botcore/internal/persistence/log"
)

func main() {
	var (
		dir   = flag.String("dir", "./data/outcomes", "journal dir containing outcomes-*.jsonl.zst")
		runID = flag.String("run", "", "only count this run id (optional)")
		owner = flag.String("owner", "", "only count this request owner (optional)")
	)
	flag.Parse()

	files, err := listJournalFiles(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", *dir)
		os.Exit(1)
	}

	var entries []plog.JournalEntry
	for _, path := range files {
		es, err := plog.ReadJournal(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		entries = append(entries, es...)
	}
	printSummary(os.Stdout, summarize(entries, *runID, *owner))
}

func listJournalFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "outcomes-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

type row struct {
	Owner    string
	Kind     string
	Category string
	Count    int
	// Ticks sums progress ticks over the counted outcomes.
	Ticks int
}

func summarize(entries []plog.JournalEntry, runID, owner string) []row {
	type key struct{ owner, kind, category string }
	acc := map[key]*row{}
	for _, e := range entries {
		if runID != "" && e.RunID != runID {
			continue
		}
		if owner != "" && e.Owner != owner {
			continue
		}
		k := key{e.Owner, e.Kind, e.Category}
		r := acc[k]
		if r == nil {
			r = &row{Owner: e.Owner, Kind: e.Kind, Category: e.Category}
			acc[k] = r
		}
		r.Count++
		r.Ticks += e.ProgressTicks
	}
	out := make([]row, 0, len(acc))
	for _, r := range acc {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func printSummary(w io.Writer, rows []row) {
	total := 0
	for _, r := range rows {
		avg := 0.0
		if r.Count > 0 {
			avg = float64(r.Ticks) / float64(r.Count)
		}
		fmt.Fprintf(w, "%-12s %-8s %-10s %6d  avg_ticks=%.1f\n", r.Owner, r.Kind, r.Category, r.Count, avg)
		total += r.Count
	}
	fmt.Fprintf(w, "total=%d\n", total)
}
