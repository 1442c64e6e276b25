package index

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Version directory names are a 'v' prefix plus digits (vYYYYMMDD by
// convention). Bare digit names are accepted when reading existing trees.
var versionRe = regexp.MustCompile(`^v?(\d+)$`)

// IsVersionID reports whether name looks like a version directory name.
func IsVersionID(name string) bool {
	return versionRe.MatchString(name)
}

// versionOrdinal extracts the numeric ordinal of a version identifier.
func versionOrdinal(id string) (int64, bool) {
	m := versionRe.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CompareVersions orders two version identifiers by their numeric ordinal,
// so zero-padded date forms and mixed v-prefixed/bare names compare
// correctly. Returns -1, 0, or 1.
func CompareVersions(a, b string) int {
	na, _ := versionOrdinal(a)
	nb, _ := versionOrdinal(b)
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	}
	return 0
}

// Normalize canonicalizes a user-supplied version identifier to the
// 'v' + digits form.
func Normalize(id string) (string, error) {
	m := versionRe.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return "", fmt.Errorf("invalid version identifier '%s' — expected 'v' followed by digits (e.g. v20260827)", id)
	}
	return "v" + m[1], nil
}

// TodayVersion derives the date-based version identifier for now.
func TodayVersion(now time.Time) string {
	return now.Format("v20060102")
}

// NextVersion picks the derived version for a new snapshot: today's
// date-based identifier, bumped past latest if the dataset already has a
// version from today or the future (version order must stay strictly
// increasing even on same-day reruns).
func NextVersion(latest string, now time.Time) string {
	today := TodayVersion(now)
	if latest == "" || CompareVersions(today, latest) > 0 {
		return today
	}
	n, _ := versionOrdinal(latest)
	return fmt.Sprintf("v%d", n+1)
}
