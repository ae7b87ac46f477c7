package report

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scarson/backport-monitor/internal/classify"
)

func sampleResults() []*classify.Result {
	return []*classify.Result{
		{
			Key:     "JDK-1",
			Summary: "Crash in C2",
			DaysAgo: 20,
			Releases: []classify.ReleaseClassification{
				{Release: 8, Status: classify.StatusMissing},
				{Release: 11, Status: classify.StatusApproved, Detail: "critical approval"},
			},
			Warnings: []string{"no affected versions declared"},
			Events:   []classify.Event{{Level: classify.ActionMissing, Weight: 10}},
		},
		{
			Key:     "JDK-2",
			Summary: "Typo in docs",
			DaysAgo: -1,
			Releases: []classify.ReleaseClassification{
				{Release: 11, Status: classify.StatusNotAffected},
			},
		},
	}
}

func TestTextReport(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	r := &Renderer{}
	require.NoError(t, r.Text(&sb, sampleResults()))
	out := sb.String()

	assert.Contains(t, out, "JDK-1: Crash in C2")
	assert.Contains(t, out, "pushed 20 days ago")
	assert.Contains(t, out, "8: MISSING")
	assert.Contains(t, out, "11: APPROVED (critical approval)")
	assert.Contains(t, out, "WARNING: no affected versions declared")
	assert.Contains(t, out, "actionable: MISSING, importance 10")
	assert.Contains(t, out, "not yet pushed")
	assert.NotContains(t, out, "\x1b[", "plain renderer emits no ANSI escapes")
}

func TestCSVReport(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	r := &Renderer{}
	require.NoError(t, r.CSV(&sb, sampleResults()))

	rows, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4, "header plus one row per issue-release pair")
	assert.Equal(t, "issue", rows[0][0])
	assert.Equal(t, []string{"JDK-1", "Crash in C2", "8", "MISSING", "", "MISSING", "10", "20"}, rows[1])
	assert.Equal(t, "11", rows[2][2])
	assert.Equal(t, "NOT_AFFECTED", rows[3][3])
}
