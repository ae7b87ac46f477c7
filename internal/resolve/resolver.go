// Package resolve builds the per-issue backport graph: the root issue plus
// every linked backport, fetched concurrently through the session's
// retry-and-cache layer.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/scarson/backport-monitor/internal/fetch"
	"github.com/scarson/backport-monitor/internal/tracker"
	"github.com/scarson/backport-monitor/internal/version"
)

const (
	// defaultFetchLimit caps concurrent remote fetches per resolver. The
	// tracker has no documented connection budget; stay polite.
	defaultFetchLimit = 8

	// pageSize is the search page size for batch resolution.
	pageSize = 50

	// progressEvery is how often the batch progress hook fires.
	progressEvery = 50

	// internalMarker flags fix versions that exist only in the vendor's
	// internal forest. Such ports are invisible to the public and do not
	// count as ports at all.
	internalMarker = "internal"

	// releaseNoteLabel and releaseNotePrefix mark release-note issues among
	// subtasks and related links.
	releaseNoteLabel  = "release-note"
	releaseNotePrefix = "release note"
)

// Resolver resolves issue graphs through one fetch session. Safe for
// concurrent use.
type Resolver struct {
	session *fetch.Session
	limit   int
	log     *slog.Logger
}

// New creates a Resolver over session. limit bounds concurrent fetches;
// non-positive selects the default.
func New(session *fetch.Session, limit int, log *slog.Logger) *Resolver {
	if limit <= 0 {
		limit = defaultFetchLimit
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{session: session, limit: limit, log: log}
}

// Resolve fetches key and all its outbound backport links, in parallel, and
// merges them into a ResolvedGraph. Gathering the backport links is a hard
// join point: a transient failure that survives the retry budget fails the
// whole resolution. Release notes are optional data; their fetch failures
// degrade to log warnings.
func (r *Resolver) Resolve(ctx context.Context, key string) (*tracker.ResolvedGraph, error) {
	root, err := r.session.Issue(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", key, err)
	}

	g := &tracker.ResolvedGraph{
		Root:        root,
		Ports:       make(map[int][]*tracker.IssueRecord),
		OraclePorts: make(map[int][]*tracker.IssueRecord),
	}

	var mu sync.Mutex
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.limit)
	for _, linked := range root.Backports {
		linked := linked
		eg.Go(func() error {
			port, err := r.session.Issue(gctx, linked)
			if err != nil {
				return fmt.Errorf("resolve backport %s of %s: %w", linked, key, err)
			}
			mu.Lock()
			defer mu.Unlock()
			addPort(g, port)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.ReleaseNotes = r.collectReleaseNotes(ctx, root)

	r.log.Debug("resolved issue graph",
		"run", r.session.RunID(), "key", key,
		"ports", len(root.Backports), "release_notes", len(g.ReleaseNotes))
	return g, nil
}

// addPort files one backport under its fix-version major. Internal-only fix
// versions are dropped entirely; Oracle-exclusive fixes go to the separate
// OraclePorts map so they never satisfy a public release.
func addPort(g *tracker.ResolvedGraph, port *tracker.IssueRecord) {
	fix := port.FixVersion()
	if fix == "" || strings.Contains(strings.ToLower(fix), internalMarker) {
		return
	}
	major := version.ParseMajor(fix)
	if major <= 0 {
		return
	}
	if version.IsOracleExclusive(fix) {
		g.OraclePorts[major] = append(g.OraclePorts[major], port)
		return
	}
	g.Ports[major] = append(g.Ports[major], port)
}

// collectReleaseNotes scans subtasks and "Relates" links one level deep (not
// transitively) for release-note issues, deduplicated by normalized summary.
func (r *Resolver) collectReleaseNotes(ctx context.Context, root *tracker.IssueRecord) []*tracker.IssueRecord {
	candidates := make([]string, 0, len(root.Subtasks)+len(root.RelatedLinks))
	candidates = append(candidates, root.Subtasks...)
	candidates = append(candidates, root.RelatedLinks...)

	var notes []*tracker.IssueRecord
	seen := make(map[string]struct{})
	for _, key := range candidates {
		issue, err := r.session.Issue(ctx, key)
		if err != nil {
			r.log.Warn("skipping release-note candidate",
				"run", r.session.RunID(), "key", key, "err", err)
			continue
		}
		if !isReleaseNote(issue) {
			continue
		}
		norm := normalizeNote(issue.Summary)
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		notes = append(notes, issue)
	}
	return notes
}

func isReleaseNote(issue *tracker.IssueRecord) bool {
	if issue.HasLabel(releaseNoteLabel) {
		return true
	}
	return strings.HasPrefix(strings.ToLower(issue.Summary), releaseNotePrefix)
}

// normalizeNote reduces a release-note summary to its deduplication key:
// lowercase, prefix and punctuation noise stripped, whitespace collapsed.
func normalizeNote(summary string) string {
	s := strings.ToLower(summary)
	s = strings.TrimPrefix(s, releaseNotePrefix)
	s = strings.TrimLeft(s, ":- ")
	return strings.Join(strings.Fields(s), " ")
}

// Parent resolves the parent-resolution primitive: the issue behind key's
// first inbound backport link, or nil when key is itself a root.
func (r *Resolver) Parent(ctx context.Context, key string) (*tracker.IssueRecord, error) {
	issue, err := r.session.Issue(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", key, err)
	}
	if len(issue.BackportOf) == 0 {
		return nil, nil
	}
	parent, err := r.session.Issue(ctx, issue.BackportOf[0])
	if err != nil {
		return nil, fmt.Errorf("resolve parent of %s: %w", key, err)
	}
	return parent, nil
}

// BatchFailure records one root issue that could not be resolved during a
// batch run. The batch continues past failures; the caller decides whether
// they abort the report.
type BatchFailure struct {
	Key string
	Err error
}

// ResolveBatch resolves every issue matched by query. Root identities come
// from a single paged search first; each root's full graph is then resolved
// with batch-level parallelism. progress, when non-nil, is invoked roughly
// every 50 resolved items with the running count.
func (r *Resolver) ResolveBatch(ctx context.Context, query string, progress func(done int)) ([]*tracker.ResolvedGraph, []BatchFailure, error) {
	var roots []*tracker.IssueRecord
	for offset := 0; ; {
		total, page, err := r.session.Search(ctx, query, pageSize, offset)
		if err != nil {
			return nil, nil, fmt.Errorf("search %q at offset %d: %w", query, offset, err)
		}
		roots = append(roots, page...)
		offset += len(page)
		if offset >= total || len(page) == 0 {
			break
		}
	}
	r.log.Info("batch search complete", "run", r.session.RunID(), "query", query, "issues", len(roots))

	var (
		mu       sync.Mutex
		graphs   []*tracker.ResolvedGraph
		failures []BatchFailure
		done     int
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.limit)
	for _, root := range roots {
		root := root
		eg.Go(func() error {
			g, err := r.Resolve(gctx, root.Key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, BatchFailure{Key: root.Key, Err: err})
			} else {
				graphs = append(graphs, g)
			}
			done++
			if progress != nil && done%progressEvery == 0 {
				progress(done)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	if progress != nil {
		progress(done)
	}
	return graphs, failures, nil
}
