// Package jira implements tracker.Client against a JIRA REST API v2
// instance (the OpenJDK bug system).
//
// The client performs exactly one remote call per invocation and classifies
// failures as terminal (4xx, where retrying cannot help) or transient (5xx,
// timeouts, transport errors). Retry policy lives in the fetch package, not
// here: one combinator, not per-call-site loops.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/scarson/backport-monitor/internal/fetch"
	"github.com/scarson/backport-monitor/internal/tracker"
)

const (
	// issuePath and searchPath are the JIRA REST API v2 endpoints.
	issuePath  = "/rest/api/2/issue/"
	searchPath = "/rest/api/2/search"

	// issueFields is the field list requested on every fetch; everything
	// else on an issue is dead weight for classification.
	issueFields = "summary,fixVersions,versions,labels,issuelinks,subtasks,comment"

	// requestInterval paces requests to the shared public instance.
	requestInterval = 200 * time.Millisecond

	// linkBackport and linkRelates are the link type names the resolver
	// cares about.
	linkBackport = "Backport"
	linkRelates  = "Relates"
)

// Credentials optionally authenticates requests via HTTP basic auth.
type Credentials struct {
	Username string
	Password string
}

// Client is a rate-limited JIRA REST adapter.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	creds   *Credentials
	now     func() time.Time
}

// New creates a Client for the JIRA instance at baseURL. A nil httpClient
// selects http.DefaultClient; a nil creds issues anonymous requests.
func New(baseURL string, httpClient *http.Client, creds *Credentials) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(requestInterval), 1),
		creds:   creds,
		now:     time.Now,
	}
}

// FetchIssue fetches one issue by key.
func (c *Client) FetchIssue(ctx context.Context, key string) (*tracker.IssueRecord, error) {
	q := url.Values{}
	q.Set("fields", issueFields)

	var env issueEnvelope
	if err := c.get(ctx, issuePath+url.PathEscape(key), q, &env); err != nil {
		return nil, err
	}
	return c.toRecord(env), nil
}

// SearchIssues fetches one page of a JQL query.
func (c *Client) SearchIssues(ctx context.Context, query string, pageSize, offset int) (int, []*tracker.IssueRecord, error) {
	q := url.Values{}
	q.Set("jql", query)
	q.Set("fields", issueFields)
	q.Set("maxResults", strconv.Itoa(pageSize))
	q.Set("startAt", strconv.Itoa(offset))

	var env searchEnvelope
	if err := c.get(ctx, searchPath, q, &env); err != nil {
		return 0, nil, err
	}
	page := make([]*tracker.IssueRecord, 0, len(env.Issues))
	for _, issue := range env.Issues {
		page = append(page, c.toRecord(issue))
	}
	return env.Total, page, nil
}

// get executes one rate-limited GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("jira: rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fetch.Terminal(fmt.Errorf("jira: build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fetch.Transient(fmt.Errorf("jira: request %s: %w", path, err))
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fetch.Terminal(fmt.Errorf("jira: HTTP %d for %s", resp.StatusCode, path))
	default:
		return fetch.Transient(fmt.Errorf("jira: HTTP %d for %s", resp.StatusCode, path))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fetch.Transient(fmt.Errorf("jira: decode %s: %w", path, err))
	}
	return nil
}

// ── Wire types ────────────────────────────────────────────────────────────────

type searchEnvelope struct {
	Total  int             `json:"total"`
	Issues []issueEnvelope `json:"issues"`
}

type issueEnvelope struct {
	Key    string      `json:"key"`
	Fields wireFields `json:"fields"`
}

type wireFields struct {
	Summary     string       `json:"summary"`
	FixVersions []namedField `json:"fixVersions"`
	Versions    []namedField `json:"versions"`
	Labels      []string     `json:"labels"`
	IssueLinks  []issueLink  `json:"issuelinks"`
	Subtasks    []issueRef   `json:"subtasks"`
	Comment     commentField `json:"comment"`
}

type namedField struct {
	Name string `json:"name"`
}

type issueLink struct {
	Type struct {
		Name string `json:"name"`
	} `json:"type"`
	InwardIssue  *issueRef `json:"inwardIssue"`
	OutwardIssue *issueRef `json:"outwardIssue"`
}

type issueRef struct {
	Key string `json:"key"`
}

type commentField struct {
	Comments []comment `json:"comments"`
}

type comment struct {
	Author struct {
		Name string `json:"name"`
	} `json:"author"`
	Body    string `json:"body"`
	Created string `json:"created"`
}

// ── Conversion ────────────────────────────────────────────────────────────────

// toRecord converts a wire envelope into the canonical IssueRecord.
func (c *Client) toRecord(env issueEnvelope) *tracker.IssueRecord {
	rec := &tracker.IssueRecord{
		Key:     env.Key,
		Summary: env.Fields.Summary,
		Labels:  make(map[string]struct{}, len(env.Fields.Labels)),
	}
	for _, v := range env.Fields.FixVersions {
		rec.FixVersions = append(rec.FixVersions, v.Name)
	}
	for _, v := range env.Fields.Versions {
		rec.AffectedVersions = append(rec.AffectedVersions, v.Name)
	}
	for _, l := range env.Fields.Labels {
		rec.Labels[l] = struct{}{}
	}
	for _, st := range env.Fields.Subtasks {
		rec.Subtasks = append(rec.Subtasks, st.Key)
	}
	for _, link := range env.Fields.IssueLinks {
		switch link.Type.Name {
		case linkBackport:
			// Outbound points at descendants, inbound at the parent.
			if link.OutwardIssue != nil {
				rec.Backports = append(rec.Backports, link.OutwardIssue.Key)
			}
			if link.InwardIssue != nil {
				rec.BackportOf = append(rec.BackportOf, link.InwardIssue.Key)
			}
		case linkRelates:
			if link.OutwardIssue != nil {
				rec.RelatedLinks = append(rec.RelatedLinks, link.OutwardIssue.Key)
			}
			if link.InwardIssue != nil {
				rec.RelatedLinks = append(rec.RelatedLinks, link.InwardIssue.Key)
			}
		}
	}
	rec.Push = c.pushMetadata(env.Fields.Comment.Comments)
	return rec
}

// pushMetadata extracts the most recent public push from the bot comments
// the integration tooling leaves on an issue ("URL: https://..." lines).
// Returns nil when no push comment exists; the fix is not yet public.
func (c *Client) pushMetadata(comments []comment) *tracker.PushMetadata {
	var push *tracker.PushMetadata
	var pushTime time.Time
	for _, cm := range comments {
		pushURL, ok := pushURLFrom(cm.Body)
		if !ok {
			continue
		}
		created := tracker.ParseTime(cm.Created)
		if push != nil && created.Before(pushTime) {
			continue
		}
		pushTime = created
		push = &tracker.PushMetadata{
			PusherID: cm.Author.Name,
			URL:      pushURL,
			DaysAgo:  tracker.DaysSince(created, c.now()),
		}
	}
	return push
}

// pushURLFrom scans a comment body for the integration bot's "URL:" line.
func pushURLFrom(body string) (string, bool) {
	for _, line := range strings.Split(body, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "URL:")
		if !ok {
			continue
		}
		u := strings.TrimSpace(rest)
		if strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://") {
			return u, true
		}
	}
	return "", false
}
