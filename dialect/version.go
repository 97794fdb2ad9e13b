package dialect

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// Version is a backend version as a comparable (major, minor, patch) tuple.
type Version struct {
	Major, Minor, Patch int
}

// V returns a Version from its parts. Missing parts are zero.
func V(parts ...int) Version {
	var v Version
	for i, p := range parts {
		switch i {
		case 0:
			v.Major = p
		case 1:
			v.Minor = p
		case 2:
			v.Patch = p
		}
	}
	return v
}

// ParseVersion extracts the first dotted numeric run of s and parses it
// with go-version, which accepts any number of segments. For example,
// "16.1 (Debian 16.1-1.pgdg120+1)" yields 16.1.0, "10.11.2-MariaDB" yields
// 10.11.2 and "19.0.0.0.0" yields 19.0.0.
func ParseVersion(s string) (Version, error) {
	start := strings.IndexAny(s, "0123456789")
	if start == -1 {
		return Version{}, fmt.Errorf("dialect: invalid version %q", s)
	}
	end := start
	for end < len(s) && (s[end] == '.' || s[end] >= '0' && s[end] <= '9') {
		end++
	}
	gv, err := version.NewVersion(strings.Trim(s[start:end], "."))
	if err != nil {
		return Version{}, fmt.Errorf("dialect: invalid version %q: %w", s, err)
	}
	return V(gv.Segments()...), nil
}

// MustParseVersion is like ParseVersion but panics if s is invalid.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or +1 depending on whether v is less than, equal
// to, or greater than u.
func (v Version) Compare(u Version) int {
	for _, d := range [...]int{v.Major - u.Major, v.Minor - u.Minor, v.Patch - u.Patch} {
		switch {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
	}
	return 0
}

// Less reports whether v is strictly below u.
func (v Version) Less(u Version) bool { return v.Compare(u) < 0 }

// IsZero reports whether v is the zero version.
func (v Version) IsZero() bool { return v == Version{} }

// String implements the fmt.Stringer interface.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	p, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = p
	return nil
}
