package versioning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Default is the version given to new or repaired manifests.
const Default = "1.0.0"

var grammar = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)

// Kind selects which component Increment bumps.
type Kind string

const (
	Patch Kind = "patch"
	Minor Kind = "minor"
	Major Kind = "major"
)

// ParseKind validates an increment kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case Patch, Minor, Major:
		return k, nil
	}
	return "", fmt.Errorf("invalid increment %q (want patch, minor, or major)", s)
}

// Valid reports whether v matches MAJOR.MINOR.PATCH[-PRERELEASE].
func Valid(v string) bool {
	return grammar.MatchString(v)
}

// splitPrerelease separates the numeric core from everything after the
// first hyphen.
func splitPrerelease(v string) (core, pre string) {
	core, pre, _ = strings.Cut(v, "-")
	return core, pre
}

// parseCore reads up to three dot-separated integers, padding missing
// components with zero.
func parseCore(core string, exact bool) ([3]uint64, bool) {
	var out [3]uint64
	parts := strings.Split(core, ".")
	if len(parts) > 3 || (exact && len(parts) != 3) {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	return out, true
}

// Compare orders two versions by their numeric core, returning -1, 0 or 1.
// Prerelease suffixes are ignored and missing components count as zero.
// If either side cannot be read the versions compare equal.
func Compare(a, b string) int {
	coreA, _ := splitPrerelease(a)
	coreB, _ := splitPrerelease(b)
	na, okA := parseCore(coreA, false)
	nb, okB := parseCore(coreB, false)
	if !okA || !okB {
		return 0
	}
	va := semver.New(na[0], na[1], na[2], "", "")
	vb := semver.New(nb[0], nb[1], nb[2], "", "")
	return va.Compare(vb)
}

// Increment bumps the requested component, resetting the lower ones, and
// keeps any prerelease suffix. Malformed input and unknown kinds return v
// unchanged.
func Increment(v string, kind Kind) string {
	core, pre := splitPrerelease(v)
	n, ok := parseCore(core, true)
	if !ok {
		return v
	}

	var next *semver.Version
	switch kind {
	case Patch:
		next = semver.New(n[0], n[1], n[2]+1, pre, "")
	case Minor:
		next = semver.New(n[0], n[1]+1, 0, pre, "")
	case Major:
		next = semver.New(n[0]+1, 0, 0, pre, "")
	default:
		return v
	}
	return next.String()
}

// Latest returns the highest version among tags of the form v<version>,
// stripped of the leading "v". Tags that do not follow the grammar are
// ignored. The boolean is false when no tag qualifies.
func Latest(tags []string) (string, bool) {
	best := ""
	for _, tag := range tags {
		if !strings.HasPrefix(tag, "v") {
			continue
		}
		v := strings.TrimPrefix(tag, "v")
		if !Valid(v) {
			continue
		}
		if best == "" || Compare(v, best) > 0 {
			best = v
		}
	}
	return best, best != ""
}
