// Package version provides scenario format version parsing and comparison.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the scenario format version understood by this module.
const Current = "1.0"

// FormatVersion represents a parsed "major.minor" format version.
type FormatVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (FormatVersion, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minor, ".") {
		return FormatVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	ma, err := strconv.ParseUint(major, 10, 16)
	if err != nil {
		return FormatVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	mi, err := strconv.ParseUint(minor, 10, 16)
	if err != nil {
		return FormatVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return FormatVersion{Major: uint16(ma), Minor: uint16(mi)}, nil
}

// String returns the version as "major.minor".
func (v FormatVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible reports whether a file written for other can be read by v:
// same major version and a minor version no newer than v.
func (v FormatVersion) Compatible(other FormatVersion) bool {
	return v.Major == other.Major && other.Minor <= v.Minor
}

// Check parses s and verifies it is compatible with Current. An empty
// string is accepted as Current.
func Check(s string) error {
	if s == "" {
		return nil
	}
	want, err := Parse(s)
	if err != nil {
		return err
	}
	current, _ := Parse(Current)
	if !current.Compatible(want) {
		return fmt.Errorf("unsupported version %s (supported: %d.0 to %s)", want, current.Major, current)
	}
	return nil
}
