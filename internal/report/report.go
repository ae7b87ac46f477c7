// Package report renders classified issues as text or CSV. Renderers are
// pure formatting over the engine's exported output; nothing here re-derives
// classification logic.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/scarson/backport-monitor/internal/classify"
)

// urgencyStyles colors the actionability footer per urgency tier.
var urgencyStyles = map[classify.Actionable]lipgloss.Style{
	classify.ActionCritical:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	classify.ActionMissing:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	classify.ActionPushable:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	classify.ActionRequested: lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	classify.ActionWaiting:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
}

// Renderer writes report output. The zero value renders plain text.
type Renderer struct {
	// Color enables ANSI styling of urgency levels in text output.
	Color bool
}

// Text writes one block per issue, already sorted by the caller.
func (r *Renderer) Text(w io.Writer, results []*classify.Result) error {
	for i, res := range results {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := r.textBlock(w, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) textBlock(w io.Writer, res *classify.Result) error {
	if _, err := fmt.Fprintf(w, "%s: %s\n", res.Key, res.Summary); err != nil {
		return err
	}
	if res.DaysAgo >= 0 {
		if _, err := fmt.Fprintf(w, "  pushed %d days ago\n", res.DaysAgo); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintln(w, "  not yet pushed"); err != nil {
			return err
		}
	}
	for _, rc := range res.Releases {
		line := fmt.Sprintf("  %3d: %s", rc.Release, rc.Status)
		if rc.Detail != "" {
			line += " (" + rc.Detail + ")"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, warn := range res.Warnings {
		if _, err := fmt.Fprintf(w, "  WARNING: %s\n", warn); err != nil {
			return err
		}
	}
	actions := res.Actions()
	level := actions.Level.String()
	if r.Color {
		if style, ok := urgencyStyles[actions.Level]; ok {
			level = style.Render(level)
		}
	}
	_, err := fmt.Fprintf(w, "  actionable: %s, importance %d\n", level, actions.Importance)
	return err
}

// CSV writes one row per (issue, release) pair, preceded by a header.
func (r *Renderer) CSV(w io.Writer, results []*classify.Result) error {
	cw := csv.NewWriter(w)
	header := []string{"issue", "summary", "release", "status", "detail", "actionable", "importance", "days_since_push"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, res := range results {
		actions := res.Actions()
		for _, rc := range res.Releases {
			row := []string{
				res.Key,
				res.Summary,
				strconv.Itoa(rc.Release),
				rc.Status.String(),
				rc.Detail,
				actions.Level.String(),
				strconv.Itoa(actions.Importance),
				strconv.Itoa(res.DaysAgo),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
