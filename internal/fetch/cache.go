package fetch

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/scarson/backport-monitor/internal/tracker"
)

// Session is the shared per-run fetch context: one tracker client plus one
// issue cache with the lifetime of a single report run. Concurrent report
// runs each build their own Session and never interfere.
//
// The first fetch for a key wins; every other caller, concurrent or later,
// is short-circuited to the same entry instead of issuing a duplicate remote
// call.
type Session struct {
	client tracker.Client
	runID  uuid.UUID

	mu     sync.Mutex
	issues map[string]*cacheEntry
}

// cacheEntry is the resolution slot for one issue key. ready is closed once
// issue/err are set; waiters block on it.
type cacheEntry struct {
	ready chan struct{}
	issue *tracker.IssueRecord
	err   error
}

// NewSession creates a fetch session for one report run.
func NewSession(client tracker.Client) *Session {
	return &Session{
		client: client,
		runID:  uuid.New(),
		issues: make(map[string]*cacheEntry),
	}
}

// RunID identifies this session in logs.
func (s *Session) RunID() uuid.UUID { return s.runID }

// Issue resolves key through the retry layer, de-duplicated against every
// other fetch for the same key within this session. The losing callers of a
// race inherit the winner's result, including its error.
func (s *Session) Issue(ctx context.Context, key string) (*tracker.IssueRecord, error) {
	s.mu.Lock()
	if e, ok := s.issues[key]; ok {
		s.mu.Unlock()
		select {
		case <-e.ready:
			return e.issue, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e := &cacheEntry{ready: make(chan struct{})}
	s.issues[key] = e
	s.mu.Unlock()

	r := NewRetryable(func(ctx context.Context) (*tracker.IssueRecord, error) {
		return s.client.FetchIssue(ctx, key)
	})
	e.issue, e.err = r.Claim(ctx)
	close(e.ready)
	return e.issue, e.err
}

// Register stores an issue resolved by some other path (a search page) so a
// later Issue call for the same key is served from the cache. First writer
// wins: an existing entry, resolved or in flight, is left untouched.
func (s *Session) Register(issue *tracker.IssueRecord) {
	if issue == nil || issue.Key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[issue.Key]; ok {
		return
	}
	e := &cacheEntry{ready: make(chan struct{}), issue: issue}
	close(e.ready)
	s.issues[issue.Key] = e
}

// Search fetches one result page through the retry layer and registers every
// returned issue in the cache.
func (s *Session) Search(ctx context.Context, query string, pageSize, offset int) (int, []*tracker.IssueRecord, error) {
	type pageResult struct {
		total int
		page  []*tracker.IssueRecord
	}
	r := NewRetryable(func(ctx context.Context) (pageResult, error) {
		total, page, err := s.client.SearchIssues(ctx, query, pageSize, offset)
		return pageResult{total: total, page: page}, err
	})
	res, err := r.Claim(ctx)
	if err != nil {
		return 0, nil, err
	}
	for _, issue := range res.page {
		s.Register(issue)
	}
	return res.total, res.page, nil
}
