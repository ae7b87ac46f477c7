// Package tracker defines the canonical issue types shared by the graph
// resolver and the classification engine, plus the abstract capabilities the
// core consumes from external collaborators. Concrete adapter implementations
// live in subdirectories (jira).
package tracker

import "context"

// IssueRecord is one remote defect as fetched from the tracker. Records are
// owned by the per-run cache for the duration of one report run and are never
// persisted.
//
// FixVersions carries the raw field as fetched; tracker convention allows at
// most one entry and the classification engine fails fast on more.
type IssueRecord struct {
	Key     string
	Summary string

	FixVersions      []string
	AffectedVersions []string
	Labels           map[string]struct{}

	// Backport links are directional: Backports point at descendants,
	// BackportOf at parents.
	Backports  []string
	BackportOf []string

	Subtasks     []string
	RelatedLinks []string

	// Push is nil until the fix has been pushed publicly.
	Push *PushMetadata
}

// PushMetadata describes the most recent public push of an issue's fix.
type PushMetadata struct {
	PusherID string
	URL      string
	DaysAgo  int
}

// HasLabel reports whether the issue carries the given label.
func (r *IssueRecord) HasLabel(label string) bool {
	_, ok := r.Labels[label]
	return ok
}

// FixVersion returns the single fix version, or "" when none is recorded.
// Callers that must enforce the at-most-one convention check len(FixVersions)
// themselves.
func (r *IssueRecord) FixVersion() string {
	if len(r.FixVersions) == 0 {
		return ""
	}
	return r.FixVersions[0]
}

// ResolvedGraph is one root issue plus its resolved backport neighborhood.
// Built once per root issue by the resolver; read-only afterward.
type ResolvedGraph struct {
	Root *IssueRecord

	// Ports maps release major version to the public backports landed in
	// that release. Internal-only fix versions never appear here.
	Ports map[int][]*IssueRecord

	// OraclePorts maps release major version to backports whose fix version
	// is Oracle-exclusive. Kept separate: a vendor-internal port does not
	// satisfy a release, but it does feed the missing-at-Oracle heuristic.
	OraclePorts map[int][]*IssueRecord

	// ReleaseNotes are release-note issues found among subtasks and related
	// links, deduplicated by normalized summary text.
	ReleaseNotes []*IssueRecord
}

// HighestPort returns the highest major with a public port, floored at the
// root issue's own fix major.
func (g *ResolvedGraph) HighestPort(fixMajor int) int {
	highest := fixMajor
	for major := range g.Ports {
		if major > highest {
			highest = major
		}
	}
	return highest
}

// ChangesetRecord is one source-control changeset from the local index.
type ChangesetRecord struct {
	Repo     string
	Revision string
	Synopsis string
	Author   string
}

// Client is the abstract issue-fetch capability. Implementations perform a
// single remote call per invocation; retry and caching are layered on top by
// the fetch package.
type Client interface {
	// FetchIssue fetches one issue by key.
	FetchIssue(ctx context.Context, key string) (*IssueRecord, error)

	// SearchIssues fetches one page of a query. total is the full result
	// count; callers issue enough pages to cover it.
	SearchIssues(ctx context.Context, query string, pageSize, offset int) (total int, page []*IssueRecord, err error)
}

// ChangesetIndex is the local source-control existence/search oracle.
type ChangesetIndex interface {
	HasRepo(name string) bool
	Search(repo, synopsisPrefix string) []ChangesetRecord
}

// Directory resolves user identifiers to display data.
type Directory interface {
	DisplayName(id string) string
	Affiliation(id string) string
}
