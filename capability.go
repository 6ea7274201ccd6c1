package rescheduler

import (
	"fmt"
	"strconv"
	"strings"
)

// minAtomicVersion is the first Redis release with EVAL.
var minAtomicVersion = Version{Major: 2, Minor: 6, Patch: 0}

// Version is a server version triple.
type Version struct {
	Major, Minor, Patch int
}

// ParseVersion parses a dotted version string such as "7.2.4". Missing
// components default to zero, so "2.6" parses as 2.6.0.
func ParseVersion(s string) (Version, error) {
	var v Version
	parts := strings.SplitN(strings.TrimSpace(s), ".", 3)
	dst := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, p := range parts {
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("rescheduler: bad version %q: %w", s, err)
		}
		*dst[i] = n
	}
	return v, nil
}

// AtLeast reports whether v is lexicographically >= min.
func (v Version) AtLeast(min Version) bool {
	if v.Major != min.Major {
		return v.Major > min.Major
	}
	if v.Minor != min.Minor {
		return v.Minor > min.Minor
	}
	return v.Patch >= min.Patch
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// negotiateAtomic decides, once per scheduler instance, whether the atomic
// promotion path is usable. The decision needs the conn to speak Lua, the
// server to be new enough for EVAL, and the caller not to have forced the
// fallback.
func negotiateAtomic(conn Conn, info ServerInfo, forceFallback bool) bool {
	if forceFallback {
		return false
	}
	if _, ok := conn.(Scripter); !ok {
		return false
	}
	return info.Version.AtLeast(minAtomicVersion)
}
