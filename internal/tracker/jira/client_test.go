package jira

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scarson/backport-monitor/internal/fetch"
)

const issueJSON = `{
	"key": "JDK-8241234",
	"fields": {
		"summary": "Crash in C2 during escape analysis",
		"fixVersions": [{"name": "17"}],
		"versions": [{"name": "8u252"}, {"name": "11.0.7"}, {"name": "17"}],
		"labels": ["jdk11u-fix-request"],
		"issuelinks": [
			{
				"type": {"name": "Backport"},
				"outwardIssue": {"key": "JDK-8251111"}
			},
			{
				"type": {"name": "Backport"},
				"inwardIssue": {"key": "JDK-8230000"}
			},
			{
				"type": {"name": "Relates"},
				"inwardIssue": {"key": "JDK-8260000"}
			},
			{
				"type": {"name": "Duplicate"},
				"outwardIssue": {"key": "JDK-8270000"}
			}
		],
		"subtasks": [{"key": "JDK-8241235"}],
		"comment": {
			"comments": [
				{
					"author": {"name": "duke"},
					"body": "Changeset: abcdef012345\nURL: https://hg.openjdk.org/jdk/jdk/rev/abcdef012345",
					"created": "2024-03-10T08:00:00.000+0000"
				},
				{
					"author": {"name": "someone"},
					"body": "Looks good to me",
					"created": "2024-03-11T08:00:00.000+0000"
				}
			]
		}
	}
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, srv.Client(), nil)
	// Fast limiter and a fixed clock for deterministic DaysAgo.
	c.limiter.SetLimit(1e6)
	c.now = func() time.Time {
		return time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC)
	}
	return c
}

func TestFetchIssueParsesRecord(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, issuePath+"JDK-8241234", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("fields"), "issuelinks")
		_, _ = w.Write([]byte(issueJSON))
	})

	rec, err := c.FetchIssue(context.Background(), "JDK-8241234")
	require.NoError(t, err)

	assert.Equal(t, "JDK-8241234", rec.Key)
	assert.Equal(t, "Crash in C2 during escape analysis", rec.Summary)
	assert.Equal(t, []string{"17"}, rec.FixVersions)
	assert.Equal(t, []string{"8u252", "11.0.7", "17"}, rec.AffectedVersions)
	assert.True(t, rec.HasLabel("jdk11u-fix-request"))

	assert.Equal(t, []string{"JDK-8251111"}, rec.Backports)
	assert.Equal(t, []string{"JDK-8230000"}, rec.BackportOf)
	assert.Equal(t, []string{"JDK-8260000"}, rec.RelatedLinks, "non-Backport/Relates link types ignored")
	assert.Equal(t, []string{"JDK-8241235"}, rec.Subtasks)

	require.NotNil(t, rec.Push)
	assert.Equal(t, "duke", rec.Push.PusherID)
	assert.Equal(t, "https://hg.openjdk.org/jdk/jdk/rev/abcdef012345", rec.Push.URL)
	assert.Equal(t, 10, rec.Push.DaysAgo)
}

func TestFetchIssueNoPushComment(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"key": "JDK-1", "fields": {"summary": "s"}}`))
	})

	rec, err := c.FetchIssue(context.Background(), "JDK-1")
	require.NoError(t, err)
	assert.Nil(t, rec.Push, "absent push metadata means not yet pushed, never an error")
}

func TestFetchIssueNotFoundIsTerminal(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.FetchIssue(context.Background(), "JDK-0")
	require.Error(t, err)
	assert.True(t, fetch.IsTerminal(err), "4xx must not consume retry budget")
}

func TestFetchIssueServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FetchIssue(context.Background(), "JDK-0")
	require.Error(t, err)
	assert.False(t, fetch.IsTerminal(err), "5xx is retryable")
}

func TestSearchIssuesPaging(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, searchPath, r.URL.Path)
		assert.Equal(t, "labels = jdk11u-fix-request", r.URL.Query().Get("jql"))
		assert.Equal(t, "50", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "100", r.URL.Query().Get("startAt"))
		_, _ = w.Write([]byte(`{"total": 123, "issues": [{"key": "JDK-1", "fields": {"summary": "a"}}]}`))
	})

	total, page, err := c.SearchIssues(context.Background(), "labels = jdk11u-fix-request", 50, 100)
	require.NoError(t, err)
	assert.Equal(t, 123, total)
	require.Len(t, page, 1)
	assert.Equal(t, "JDK-1", page[0].Key)
}

func TestBasicAuthHeader(t *testing.T) {
	t.Parallel()

	var gotUser, gotPass string
	var gotOK bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		_, _ = w.Write([]byte(`{"key": "JDK-1", "fields": {}}`))
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, srv.Client(), &Credentials{Username: "duke", Password: "hunter2"})
	c.limiter.SetLimit(1e6)

	_, err := c.FetchIssue(context.Background(), "JDK-1")
	require.NoError(t, err)
	assert.True(t, gotOK)
	assert.Equal(t, "duke", gotUser)
	assert.Equal(t, "hunter2", gotPass)
}
