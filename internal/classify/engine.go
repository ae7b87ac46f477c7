package classify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/scarson/backport-monitor/internal/tracker"
	"github.com/scarson/backport-monitor/internal/version"
)

// DefaultBakeDays is the mandatory waiting period after a fix lands before
// it is considered ready to backport.
const DefaultBakeDays = 10

// Weights is the importance contribution of one release at each
// urgency-raising site. Values are policy, not structure: LTS lines carry
// higher weights, short-term lines lower.
type Weights struct {
	Default  int
	Critical int
	Oracle   int
}

// WeightTable maps release major version to its weights. Releases absent
// from the table fall back to baseline weights.
type WeightTable map[int]Weights

var baselineWeights = Weights{Default: 1, Critical: 4, Oracle: 2}

func (t WeightTable) forRelease(r int) Weights {
	if w, ok := t[r]; ok {
		return w
	}
	return baselineWeights
}

// InconsistentDataError reports an issue whose source data violates tracker
// conventions hard enough that classification cannot proceed.
type InconsistentDataError struct {
	Key    string
	Reason string
}

func (e *InconsistentDataError) Error() string {
	return fmt.Sprintf("inconsistent data on %s: %s", e.Key, e.Reason)
}

// Options configures an Engine. The zero value of each field selects a
// default; the tracked release set is the only required input.
type Options struct {
	// Releases are the tracked release major versions.
	Releases []int
	// BakeDays overrides DefaultBakeDays when positive.
	BakeDays int
	// Weights is the per-release importance table.
	Weights WeightTable
	// AssumeAffected infers an affected release from an observed backport
	// when the release is not declared affected. Heuristic policy, kept
	// switchable.
	AssumeAffected bool
	Log            *slog.Logger
}

// Engine classifies resolved issue graphs against a fixed set of tracked
// releases. Safe for concurrent use: Classify touches no engine state.
type Engine struct {
	releases       []int
	bakeDays       int
	weights        WeightTable
	assumeAffected bool
	log            *slog.Logger
}

// New creates an Engine from opts.
func New(opts Options) *Engine {
	bake := opts.BakeDays
	if bake <= 0 {
		bake = DefaultBakeDays
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		releases:       opts.Releases,
		bakeDays:       bake,
		weights:        opts.Weights,
		assumeAffected: opts.AssumeAffected,
		log:            log,
	}
}

// ReleaseClassification is the engine's verdict for one tracked release.
type ReleaseClassification struct {
	Release int
	Status  Status
	Detail  string
}

// Result is the classification of one issue across all tracked releases,
// exposed to report renderers together with the reduced ordering key.
type Result struct {
	Key     string
	Summary string
	// DaysAgo is days since the most recent public push, -1 if not pushed.
	DaysAgo  int
	Releases []ReleaseClassification
	Warnings []string
	Events   []Event
}

// Actions reduces the pass's events into the aggregate ordering key.
func (r *Result) Actions() Actions {
	return Reduce(r.Events)
}

// Classify evaluates every tracked release against g. Importance is only
// accumulated, never decremented, within one pass; statuses are final once
// assigned. The only hard failure is inconsistent source data (more than
// one fix version); all other anomalies degrade to warnings and the pass
// continues.
func (e *Engine) Classify(g *tracker.ResolvedGraph) (*Result, error) {
	root := g.Root
	if len(root.FixVersions) > 1 {
		return nil, &InconsistentDataError{
			Key:    root.Key,
			Reason: fmt.Sprintf("multiple fix versions: %s", strings.Join(root.FixVersions, ", ")),
		}
	}

	fixMajor := version.ParseMajor(root.FixVersion())
	res := &Result{
		Key:     root.Key,
		Summary: root.Summary,
		DaysAgo: daysAgo(root),
	}

	affected := e.affectedReleases(g, res)
	highest := g.HighestPort(fixMajor)

	for _, r := range e.releases {
		if r == fixMajor {
			continue // the original fix, not a backport
		}
		rc := e.classifyRelease(g, r, fixMajor, highest, affected, res)
		res.Releases = append(res.Releases, rc)
	}

	e.log.Debug("classified issue",
		"key", root.Key, "fix_major", fixMajor,
		"releases", len(res.Releases), "warnings", len(res.Warnings))
	return res, nil
}

// classifyRelease walks the precedence ladder for one release. First match
// wins; the order is a contract, not an optimization.
func (e *Engine) classifyRelease(
	g *tracker.ResolvedGraph,
	r, fixMajor, highest int,
	affected map[int]bool,
	res *Result,
) ReleaseClassification {
	w := e.weights.forRelease(r)

	switch {
	case len(g.Ports[r]) > 0:
		return verdict(r, StatusFixed, portKeys(g.Ports[r]))

	case r > highest:
		return verdict(r, StatusInherited, "")

	case g.Root.HasLabel(criticalApprovedLabel(r)):
		res.raise(ActionPushable, w.Critical)
		return verdict(r, StatusApproved, "critical approval")

	case g.Root.HasLabel(fixApprovedLabel(r)):
		res.raise(ActionPushable, w.Default)
		return verdict(r, StatusApproved, "")

	case g.Root.HasLabel(fixRejectedLabel(r)):
		return verdict(r, StatusRejected, "")

	case g.Root.HasLabel(criticalRequestedLabel(r)) || g.Root.HasLabel(fixRequestedLabel(r)):
		res.raise(ActionRequested, 0)
		return verdict(r, StatusRequested, "")

	case !affected[r]:
		return verdict(r, StatusNotAffected, "")

	case 0 <= res.DaysAgo && res.DaysAgo < e.bakeDays:
		res.raise(ActionWaiting, 0)
		return verdict(r, StatusBaking, fmt.Sprintf("%d days left to bake", e.bakeDays-res.DaysAgo))

	case e.onOracleBackportList(g, r):
		res.raise(ActionMissing, w.Oracle)
		return verdict(r, StatusMissingOracle, "")

	default:
		res.raise(ActionMissing, w.Default)
		return verdict(r, StatusMissing, "")
	}
}

// affectedReleases builds the set of release majors the issue is declared to
// affect, cross-checked against observed ports. Anomalies in the declared
// data are soft: recorded as warnings with a CRITICAL raise, and the pass
// continues.
func (e *Engine) affectedReleases(g *tracker.ResolvedGraph, res *Result) map[int]bool {
	affected := make(map[int]bool)

	if len(g.Root.AffectedVersions) == 0 {
		res.warn("no affected versions declared")
	}
	for _, raw := range g.Root.AffectedVersions {
		tag := version.Parse(raw)
		switch {
		case tag.Major >= 0:
			affected[tag.Major] = true
		case tag.ShenandoahMajor >= 0, tag.AArch64Major >= 0:
			// Variant lines are tracked by their own reports.
		default:
			res.warn(fmt.Sprintf("unparsable affected version %q", raw))
		}
	}

	if e.assumeAffected {
		for major := range g.Ports {
			if !affected[major] {
				affected[major] = true
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("release %d inferred affected from an observed backport", major))
			}
		}
	}
	return affected
}

// onOracleBackportList is the release-specific heuristic for fixes the
// vendor backports internally: an Oracle-exclusive 8u sibling past 8u212,
// or an explicit "-oracle" sibling tag on 11 and later.
func (e *Engine) onOracleBackportList(g *tracker.ResolvedGraph, r int) bool {
	for _, port := range g.OraclePorts[r] {
		fix := port.FixVersion()
		switch {
		case r == 8 && version.ParseMinor(fix) > 212:
			return true
		case r >= 11 && strings.HasSuffix(fix, "-oracle"):
			return true
		}
	}
	return false
}

// raise appends one urgency-raising event.
func (r *Result) raise(level Actionable, weight int) {
	r.Events = append(r.Events, Event{Level: level, Weight: weight})
}

// warn records a data anomaly and raises urgency to CRITICAL. Non-terminal.
func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	r.raise(ActionCritical, 0)
}

func verdict(release int, s Status, detail string) ReleaseClassification {
	return ReleaseClassification{Release: release, Status: s, Detail: detail}
}

func daysAgo(root *tracker.IssueRecord) int {
	if root.Push == nil {
		return -1
	}
	return root.Push.DaysAgo
}

func portKeys(ports []*tracker.IssueRecord) string {
	keys := make([]string, len(ports))
	for i, p := range ports {
		keys[i] = p.Key
	}
	return strings.Join(keys, ", ")
}

// Label conventions for per-release approval state.

func criticalApprovedLabel(r int) string  { return fmt.Sprintf("jdk%du-critical-yes", r) }
func fixApprovedLabel(r int) string       { return fmt.Sprintf("jdk%du-fix-yes", r) }
func fixRejectedLabel(r int) string       { return fmt.Sprintf("jdk%du-fix-no", r) }
func criticalRequestedLabel(r int) string { return fmt.Sprintf("jdk%du-critical-request", r) }
func fixRequestedLabel(r int) string      { return fmt.Sprintf("jdk%du-fix-request", r) }
