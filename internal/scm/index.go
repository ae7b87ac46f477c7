// Package scm implements the local source-control changeset oracle over a
// directory of Mercurial checkouts. Lookups are memoized per index: a report
// run probes the same (repo, synopsis) pairs repeatedly while attributing
// pushes.
package scm

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/scarson/backport-monitor/internal/tracker"
)

// Template field/record separators for `hg log` output. Unit separator and
// record separator keep free-text synopses unambiguous.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"

	logTemplate = "{node|short}" + fieldSep + "{desc|firstline}" + fieldSep + "{author}" + recordSep
)

// Index resolves changesets from local Mercurial checkouts under one root
// directory. Implements tracker.ChangesetIndex. Oracle semantics: failures
// degrade to empty results, never errors.
type Index struct {
	root string
	log  *slog.Logger

	// run executes hg; swapped out in tests.
	run func(dir string, args ...string) ([]byte, error)

	mu    sync.Mutex
	cache map[string][]tracker.ChangesetRecord
}

// NewIndex creates an Index over the checkouts under root.
func NewIndex(root string, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	return &Index{
		root:  root,
		log:   log,
		run:   runHg,
		cache: make(map[string][]tracker.ChangesetRecord),
	}
}

// HasRepo reports whether a Mercurial checkout named name exists under the
// index root.
func (x *Index) HasRepo(name string) bool {
	info, err := os.Stat(filepath.Join(x.root, name, ".hg"))
	return err == nil && info.IsDir()
}

// Search returns the changesets in repo whose synopsis starts with
// synopsisPrefix. Results are memoized for the lifetime of the index.
func (x *Index) Search(repo, synopsisPrefix string) []tracker.ChangesetRecord {
	key := repo + fieldSep + synopsisPrefix

	x.mu.Lock()
	if cached, ok := x.cache[key]; ok {
		x.mu.Unlock()
		return cached
	}
	x.mu.Unlock()

	records := x.search(repo, synopsisPrefix)

	x.mu.Lock()
	x.cache[key] = records
	x.mu.Unlock()
	return records
}

func (x *Index) search(repo, synopsisPrefix string) []tracker.ChangesetRecord {
	if !x.HasRepo(repo) {
		return nil
	}
	out, err := x.run(filepath.Join(x.root, repo),
		"log", "--keyword", synopsisPrefix, "--template", logTemplate)
	if err != nil {
		x.log.Warn("changeset search failed", "repo", repo, "keyword", synopsisPrefix, "err", err)
		return nil
	}

	var records []tracker.ChangesetRecord
	for _, raw := range strings.Split(string(out), recordSep) {
		parts := strings.SplitN(raw, fieldSep, 3)
		if len(parts) != 3 {
			continue
		}
		synopsis := strings.TrimSpace(parts[1])
		// --keyword matches anywhere in the changeset; the oracle contract
		// is a synopsis prefix match.
		if !strings.HasPrefix(synopsis, synopsisPrefix) {
			continue
		}
		records = append(records, tracker.ChangesetRecord{
			Repo:     repo,
			Revision: strings.TrimSpace(parts[0]),
			Synopsis: synopsis,
			Author:   strings.TrimSpace(parts[2]),
		})
	}
	return records
}

func runHg(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("hg", append([]string{"-R", dir}, args...)...)
	return cmd.Output()
}
