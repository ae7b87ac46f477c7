package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/scarson/backport-monitor/internal/tracker"
)

// fakeClient serves canned issues and counts remote calls per key.
type fakeClient struct {
	mu     sync.Mutex
	issues map[string]*tracker.IssueRecord
	calls  map[string]int

	searchTotal int
	searchPages map[int][]*tracker.IssueRecord
	searchCalls atomic.Int64
}

func newFakeClient(issues ...*tracker.IssueRecord) *fakeClient {
	c := &fakeClient{
		issues: make(map[string]*tracker.IssueRecord),
		calls:  make(map[string]int),
	}
	for _, i := range issues {
		c.issues[i.Key] = i
	}
	return c
}

func (c *fakeClient) FetchIssue(_ context.Context, key string) (*tracker.IssueRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[key]++
	issue, ok := c.issues[key]
	if !ok {
		return nil, Terminal(errors.New("issue not found: " + key))
	}
	return issue, nil
}

func (c *fakeClient) SearchIssues(_ context.Context, _ string, pageSize, offset int) (int, []*tracker.IssueRecord, error) {
	c.searchCalls.Add(1)
	return c.searchTotal, c.searchPages[offset/pageSize], nil
}

func (c *fakeClient) callCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key]
}

func TestSessionDeduplicatesConcurrentFetches(t *testing.T) {
	t.Parallel()

	client := newFakeClient(&tracker.IssueRecord{Key: "JDK-1", Summary: "a bug"})
	s := NewSession(client)

	const waiters = 16
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issue, err := s.Issue(context.Background(), "JDK-1")
			if err != nil {
				t.Errorf("Issue: %v", err)
				return
			}
			if issue.Summary != "a bug" {
				t.Errorf("Summary = %q", issue.Summary)
			}
		}()
	}
	wg.Wait()

	if got := client.callCount("JDK-1"); got != 1 {
		t.Errorf("remote calls = %d, want 1", got)
	}
}

func TestSessionRegisterShortCircuitsLaterFetch(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	s := NewSession(client)
	s.Register(&tracker.IssueRecord{Key: "JDK-2", Summary: "from search page"})

	issue, err := s.Issue(context.Background(), "JDK-2")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issue.Summary != "from search page" {
		t.Errorf("Summary = %q, want registered record", issue.Summary)
	}
	if got := client.callCount("JDK-2"); got != 0 {
		t.Errorf("remote calls = %d, want 0", got)
	}
}

func TestSessionRegisterFirstWriterWins(t *testing.T) {
	t.Parallel()

	s := NewSession(newFakeClient())
	s.Register(&tracker.IssueRecord{Key: "JDK-3", Summary: "first"})
	s.Register(&tracker.IssueRecord{Key: "JDK-3", Summary: "second"})

	issue, err := s.Issue(context.Background(), "JDK-3")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issue.Summary != "first" {
		t.Errorf("Summary = %q, want %q", issue.Summary, "first")
	}
}

func TestSessionTerminalErrorPropagates(t *testing.T) {
	t.Parallel()

	s := NewSession(newFakeClient())
	_, err := s.Issue(context.Background(), "JDK-404")
	if err == nil {
		t.Fatal("Issue succeeded, want not-found")
	}
	if !IsTerminal(err) {
		t.Errorf("error = %v, want terminal", err)
	}
}

func TestSessionSearchRegistersPage(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.searchTotal = 2
	client.searchPages = map[int][]*tracker.IssueRecord{
		0: {
			{Key: "JDK-10", Summary: "ten"},
			{Key: "JDK-11", Summary: "eleven"},
		},
	}
	s := NewSession(client)

	total, page, err := s.Search(context.Background(), "labels = x", 50, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 2 || len(page) != 2 {
		t.Fatalf("Search = (%d, %d issues)", total, len(page))
	}

	issue, err := s.Issue(context.Background(), "JDK-10")
	if err != nil {
		t.Fatalf("Issue after Search: %v", err)
	}
	if issue.Summary != "ten" {
		t.Errorf("Summary = %q, want cached page record", issue.Summary)
	}
	if got := client.callCount("JDK-10"); got != 0 {
		t.Errorf("remote issue calls = %d, want 0", got)
	}
}
