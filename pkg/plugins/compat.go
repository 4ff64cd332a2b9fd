package plugins

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// HostAPIVersion is the plugin API version this host implements.
const HostAPIVersion = "1.0.0"

// versionRegex accepts "1", "1.2", "v1.2.3" and semver pre-release/build suffixes.
var versionRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// Version is a parsed plugin version. Missing minor and patch parts are zero.
type Version struct {
	Major, Minor, Patch int
	Pre                 string // pre-release without the leading '-'
}

// ParseVersion parses a plugin-reported version string.
func ParseVersion(s string) (Version, error) {
	m := versionRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	var v Version
	var err error
	if v.Major, err = strconv.Atoi(m[1]); err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if m[2] != "" {
		v.Minor, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	v.Pre = strings.TrimPrefix(m[4], "-")
	return v, nil
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	return s
}

// Compare returns -1, 0 or 1. A pre-release sorts before its release;
// pre-release tags compare lexically.
func (v Version) Compare(o Version) int {
	for _, d := range [][2]int{{v.Major, o.Major}, {v.Minor, o.Minor}, {v.Patch, o.Patch}} {
		if d[0] != d[1] {
			if d[0] < d[1] {
				return -1
			}
			return 1
		}
	}
	switch {
	case v.Pre == o.Pre:
		return 0
	case v.Pre == "":
		return 1
	case o.Pre == "":
		return -1
	case v.Pre < o.Pre:
		return -1
	default:
		return 1
	}
}

// CompatibilityPolicy decides whether a plugin's reported version may run
// in this host. Check returns an error wrapping ErrIncompatible otherwise.
type CompatibilityPolicy interface {
	Check(version string) error
	String() string
}

// AnyVersion accepts every version, including unparsable ones.
type AnyVersion struct{}

func (AnyVersion) Check(string) error { return nil }
func (AnyVersion) String() string     { return "any" }

// ExactVersion accepts only versions equal to Want. "1.0" equals "1.0.0".
type ExactVersion struct {
	Want Version
}

func (p ExactVersion) Check(version string) error {
	v, err := ParseVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatible, err)
	}
	if v.Compare(p.Want) != 0 {
		return fmt.Errorf("%w: version %s, host requires exactly %s", ErrIncompatible, version, p.Want)
	}
	return nil
}

func (p ExactVersion) String() string { return "exact " + p.Want.String() }

// SameMajor accepts versions with the same major number as Host.
type SameMajor struct {
	Host Version
}

func (p SameMajor) Check(version string) error {
	v, err := ParseVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatible, err)
	}
	if v.Major != p.Host.Major {
		return fmt.Errorf("%w: version %s, host requires %d.x", ErrIncompatible, version, p.Host.Major)
	}
	return nil
}

func (p SameMajor) String() string { return fmt.Sprintf("major %d", p.Host.Major) }

// VersionRange accepts Min <= version < Max. A zero Max means no upper bound.
type VersionRange struct {
	Min, Max Version
}

func (p VersionRange) Check(version string) error {
	v, err := ParseVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatible, err)
	}
	if v.Compare(p.Min) < 0 || (p.Max != (Version{}) && v.Compare(p.Max) >= 0) {
		return fmt.Errorf("%w: version %s outside %s", ErrIncompatible, version, p)
	}
	return nil
}

func (p VersionRange) String() string {
	if p.Max == (Version{}) {
		return ">=" + p.Min.String()
	}
	return fmt.Sprintf(">=%s <%s", p.Min, p.Max)
}

// DefaultPolicy accepts plugins built against the host's major API version.
func DefaultPolicy() CompatibilityPolicy {
	v, _ := ParseVersion(HostAPIVersion)
	return SameMajor{Host: v}
}

// ParsePolicy builds a policy from configuration. Modes are "any",
// "exact", "major" and "range"; for "range" version is "MIN,MAX" or "MIN".
// An empty mode selects DefaultPolicy.
func ParsePolicy(mode, version string) (CompatibilityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "":
		if version == "" {
			return DefaultPolicy(), nil
		}
		fallthrough
	case "major":
		if version == "" {
			version = HostAPIVersion
		}
		v, err := ParseVersion(version)
		if err != nil {
			return nil, err
		}
		return SameMajor{Host: v}, nil
	case "any":
		return AnyVersion{}, nil
	case "exact":
		v, err := ParseVersion(version)
		if err != nil {
			return nil, err
		}
		return ExactVersion{Want: v}, nil
	case "range":
		lo, hi, _ := strings.Cut(version, ",")
		lower, err := ParseVersion(lo)
		if err != nil {
			return nil, err
		}
		var upper Version
		if strings.TrimSpace(hi) != "" {
			if upper, err = ParseVersion(hi); err != nil {
				return nil, err
			}
			if upper.Compare(lower) <= 0 {
				return nil, fmt.Errorf("invalid version range %q: upper bound must exceed lower bound", version)
			}
		}
		return VersionRange{Min: lower, Max: upper}, nil
	default:
		return nil, fmt.Errorf("unknown compatibility mode %q", mode)
	}
}
