// Package classify turns one resolved issue graph into a per-release
// backport status map and an aggregate actionability signal. Everything here
// is a pure function over its inputs; the tracked release list, bake window,
// and importance weights are injected, never hard-coded.
package classify

// Status is the backport state of one issue against one tracked release.
// Assigned once per classification pass and never retroactively changed.
type Status int

const (
	// StatusNotAffected: the release does not exhibit the defect.
	StatusNotAffected Status = iota
	// StatusInherited: the release branched after the fix landed and
	// inherits it automatically.
	StatusInherited
	// StatusFixed: a public backport has landed in the release.
	StatusFixed
	// StatusBaking: the fix is inside the mandatory bake window.
	StatusBaking
	// StatusMissing: the release needs a backport and none exists.
	StatusMissing
	// StatusMissingOracle: missing publicly, but on the vendor's own
	// internal backport list.
	StatusMissingOracle
	// StatusApproved: maintainers approved the backport for the release.
	StatusApproved
	// StatusRejected: maintainers rejected the backport. Terminal.
	StatusRejected
	// StatusRequested: approval has been requested and is pending.
	StatusRequested
	// StatusWarning: the issue data is inconsistent for this release.
	StatusWarning
)

var statusNames = map[Status]string{
	StatusNotAffected:   "NOT_AFFECTED",
	StatusInherited:     "INHERITED",
	StatusFixed:         "FIXED",
	StatusBaking:        "BAKING",
	StatusMissing:       "MISSING",
	StatusMissingOracle: "MISSING_ORACLE",
	StatusApproved:      "APPROVED",
	StatusRejected:      "REJECTED",
	StatusRequested:     "REQUESTED",
	StatusWarning:       "WARNING",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}
