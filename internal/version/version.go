// Package version parses and compares JDK release version tags.
//
// Tags come from tracker fix-version and affected-version fields and are
// wildly heterogeneous: "17", "11.0.3", "8u212", "openjdk8u212", "13-pool",
// "11.0.3-oracle", "8-shenandoah", "8u292-aarch64". Every function in this
// package is total: malformed input yields the -1 sentinel, never a panic.
package version

import (
	"strconv"
	"strings"
)

const (
	// vendorPrefix marks builds published under the open vendor name.
	vendorPrefix = "openjdk"

	// oracleSuffix marks vendor-internal-only release tags.
	oracleSuffix = "-oracle"

	// irregularTag is a historical one-off in the tracker data that does not
	// follow any version scheme. Mapped to major 0 ("ignore, not a real
	// release") so it never matches a tracked release line.
	irregularTag = "solaris_10u7"

	shenandoahSuffix = "-shenandoah"
	aarch64Suffix    = "-aarch64"
	poolSuffix       = "-pool"
)

// Tag is the parsed form of one raw version string. Derived on demand by
// [Parse]; never mutated.
type Tag struct {
	Raw             string
	Major           int // -1 if unparsable or a variant tag
	Minor           int // -1 if not applicable
	Stripped        string
	OracleExclusive bool
	SharedRange     bool
	ShenandoahMajor int // -1 unless a "<n>-shenandoah" tag
	AArch64Major    int // -1 unless a "<n>-aarch64" tag
}

// Parse classifies raw into a Tag.
func Parse(raw string) Tag {
	return Tag{
		Raw:             raw,
		Major:           ParseMajor(raw),
		Minor:           ParseMinor(raw),
		Stripped:        StripVendor(raw),
		OracleExclusive: IsOracleExclusive(raw),
		SharedRange:     IsSharedRange(raw),
		ShenandoahMajor: ParseMajorShenandoah(raw),
		AArch64Major:    ParseMajorAArch64(raw),
	}
}

// ParseMajor extracts the mainline major release from a version tag.
// Variant tags ("<n>-shenandoah") deliberately return -1: a Shenandoah
// backport is not a mainline release and must never satisfy one.
func ParseMajor(v string) int {
	s := stripVendorPrefix(v)
	if s == irregularTag {
		return 0
	}
	if strings.HasSuffix(s, shenandoahSuffix) {
		return -1
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return atoiOr(s[:i], -1)
	}
	if i := strings.IndexByte(s, 'u'); i >= 0 {
		return atoiOr(s[:i], -1)
	}
	if rest, ok := strings.CutSuffix(s, poolSuffix); ok {
		return atoiOr(rest, -1)
	}
	return atoiOr(s, -1)
}

// ParseMinor extracts the update/patch component: the digits after the "u"
// infix for majors up to 8 ("8u212" → 212, "8u" → 0), the third dot
// component for 11 and later ("11.0.3" → 3). -1 otherwise.
func ParseMinor(v string) int {
	switch major := ParseMajor(v); {
	case major > 0 && major <= 8:
		s := stripVendorPrefix(v)
		i := strings.IndexByte(s, 'u')
		if i < 0 {
			return -1
		}
		rest := s[i+1:]
		if rest == "" {
			return 0
		}
		return atoiOr(leadingDigits(rest), -1)
	case major >= 11:
		parts := strings.Split(StripVendor(v), ".")
		if len(parts) < 3 {
			return -1
		}
		return atoiOr(parts[2], -1)
	default:
		return -1
	}
}

// ParseMajorShenandoah extracts the major from a "<n>-shenandoah" tag,
// -1 if the suffix is absent or the prefix is not a plain integer.
func ParseMajorShenandoah(v string) int {
	return variantMajor(v, shenandoahSuffix)
}

// ParseMajorAArch64 extracts the major from a "<n>-aarch64" tag,
// -1 if the suffix is absent or the prefix is not a plain integer.
func ParseMajorAArch64(v string) int {
	return variantMajor(v, aarch64Suffix)
}

func variantMajor(v, suffix string) int {
	rest, ok := strings.CutSuffix(v, suffix)
	if !ok {
		return -1
	}
	return atoiOr(rest, -1)
}

// IsOracleExclusive reports whether the tag names a vendor-internal-only
// release: an explicit "-oracle" tag on 11+, or an 8u release past the
// 8u211 public-updates boundary that is not published under the open vendor
// prefix.
func IsOracleExclusive(v string) bool {
	major := ParseMajor(v)
	if major >= 11 && strings.HasSuffix(v, oracleSuffix) {
		return true
	}
	return major == 8 && ParseMinor(v) >= 211 && !hasVendorPrefix(v)
}

// IsSharedRange reports whether the tag falls in the window where open and
// vendor builds are indistinguishable for parity purposes: the first two
// updates of an 11+ release line, or 8u releases before the 8u211 boundary.
func IsSharedRange(v string) bool {
	if IsOracleExclusive(v) {
		return false
	}
	major := ParseMajor(v)
	minor := ParseMinor(v)
	if major >= 11 && minor <= 2 {
		return true
	}
	return major == 8 && minor < 211
}

// StripVendor removes the "-oracle" suffix or the "openjdk" prefix, leaving
// the canonical comparison form.
func StripVendor(v string) string {
	if rest, ok := strings.CutSuffix(v, oracleSuffix); ok {
		return rest
	}
	return stripVendorPrefix(v)
}

// Compare orders two version tags lexicographically on their vendor-stripped
// forms, with one deliberate exception: two 8u tags whose minors differ by
// at most one compare equal. Adjacent 8u micro-releases are not meaningfully
// orderable for parity tracking, so they are treated as the same release.
func Compare(a, b string) int {
	if ParseMajor(a) == 8 && ParseMajor(b) == 8 {
		d := ParseMinor(a) - ParseMinor(b)
		if -1 <= d && d <= 1 {
			return 0
		}
	}
	return strings.Compare(StripVendor(a), StripVendor(b))
}

func hasVendorPrefix(v string) bool {
	return len(v) >= len(vendorPrefix) && strings.EqualFold(v[:len(vendorPrefix)], vendorPrefix)
}

func stripVendorPrefix(v string) string {
	if hasVendorPrefix(v) {
		return v[len(vendorPrefix):]
	}
	return v
}

// leadingDigits returns the maximal digit prefix of s ("" if none).
func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

// atoiOr parses s as a non-negative decimal integer, returning fallback on
// empty or malformed input.
func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
