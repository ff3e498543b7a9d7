package model

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// A Version identifies an installed database schema. Major selects the base schema, Patch counts the migrations
// applied on top of it.
type Version struct {
	Major int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Patch)
}

// IsZero reports whether v is the version of a database with no schema installed.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Patch == 0
}

// Before reports whether v should be ordered before v2
func (v Version) Before(v2 Version) bool {
	return v.Compare(v2) < 0
}

// Compare returns -1 if v < o, +1 if v > o and 0 if they are equal.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return sign(v.Major - o.Major)
	default:
		return sign(v.Patch - o.Patch)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// ParseVersion parses a version written as major.patch.
func ParseVersion(s string) (Version, error) {
	major, patch, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Version{}, xerrors.Errorf("invalid version %q: expected major.patch", s)
	}

	var v Version
	var err error
	if v.Major, err = strconv.Atoi(major); err != nil || v.Major < 0 {
		return Version{}, xerrors.Errorf("invalid major version in %q", s)
	}
	if v.Patch, err = strconv.Atoi(patch); err != nil || v.Patch < 0 {
		return Version{}, xerrors.Errorf("invalid patch version in %q", s)
	}
	return v, nil
}
