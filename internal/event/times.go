package event

import (
	"strings"
	"time"
)

// Layouts accepted by ParseInstant, tried in order. Naive layouts (no
// zone designator) are resolved as UTC, never as local time.
var instantLayouts = []struct {
	layout string
	naive  bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02T15:04:05.999999999", true},
	{"2006-01-02T15:04:05", true},
	{"20060102T150405Z", false},
	{"20060102T150405", true},
	{"2006-01-02", true},
}

// ParseInstant parses one of the timestamp representations seen in
// feeds and snapshot documents. It reports false for empty or
// unparseable input; a malformed instant is "unknown", not an error.
func ParseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range instantLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if l.naive {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		}
		return t, true
	}
	return time.Time{}, false
}

// DefaultRetentionWindow is how long after an event's start time its
// disappearance from the feed is still trusted as a real cancellation.
const DefaultRetentionWindow = 10 * time.Hour

// RetentionPolicy decides whether a stored event that vanished from the
// feed should be deleted. Feeds truncate their visible range; events far
// in the past that silently drop out are feed artifacts, not
// cancellations, and must be left in the snapshot.
type RetentionPolicy struct {
	Window time.Duration
	Now    func() time.Time // nil means time.Now
}

// NewRetentionPolicy returns a policy with the given window, falling
// back to DefaultRetentionWindow when window is zero or negative.
func NewRetentionPolicy(window time.Duration) RetentionPolicy {
	if window <= 0 {
		window = DefaultRetentionWindow
	}
	return RetentionPolicy{Window: window}
}

func (p RetentionPolicy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Threshold returns now minus the retention window, in UTC.
func (p RetentionPolicy) Threshold() time.Time {
	return p.now().UTC().Add(-p.Window)
}

// Within reports whether t lies strictly after the threshold. The zero
// instant is never within the window.
func (p RetentionPolicy) Within(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return t.After(p.Threshold())
}

const stampPrefix = "stamp:"

// StripStamp removes any line carrying a transport-added "stamp:"
// marker from a description. Feeds re-insert a fresh stamp on every
// export, so the marker must not count as a content change.
func StripStamp(s string) string {
	if !strings.Contains(s, stampPrefix) {
		return s
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), stampPrefix) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimRight(strings.Join(kept, "\n"), "\n")
}
