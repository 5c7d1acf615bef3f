package event

import (
	"testing"
	"time"
)

func TestParseInstant_Formats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{
			name:  "RFC3339 with zone",
			input: "2024-01-15T14:00:00+02:00",
			want:  time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "RFC3339 UTC",
			input: "2024-01-15T14:00:00Z",
			want:  time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "naive ISO assumed UTC",
			input: "2024-01-15T14:00:00",
			want:  time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "naive ISO with fraction",
			input: "2024-01-15T14:00:00.500000",
			want:  time.Date(2024, 1, 15, 14, 0, 0, 500000000, time.UTC),
			ok:    true,
		},
		{
			name:  "compact iCalendar UTC",
			input: "20240115T140000Z",
			want:  time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "compact iCalendar floating",
			input: "20240115T140000",
			want:  time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "date only",
			input: "2024-01-15",
			want:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{name: "empty", input: "", ok: false},
		{name: "whitespace", input: "   ", ok: false},
		{name: "garbage", input: "not-a-time", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseInstant(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseInstant(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseInstant(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRetentionPolicy_StrictBoundary(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	policy := RetentionPolicy{
		Window: 10 * time.Hour,
		Now:    func() time.Time { return now },
	}

	threshold := now.Add(-10 * time.Hour)

	if policy.Within(threshold) {
		t.Error("instant exactly at the threshold must not be within the window")
	}
	if !policy.Within(threshold.Add(time.Second)) {
		t.Error("instant just after the threshold must be within the window")
	}
	if policy.Within(threshold.Add(-time.Second)) {
		t.Error("instant before the threshold must not be within the window")
	}
	if !policy.Within(now.Add(5 * time.Hour)) {
		t.Error("future instant must be within the window")
	}
	if policy.Within(time.Time{}) {
		t.Error("zero instant must never be within the window")
	}
}

func TestNewRetentionPolicy_Default(t *testing.T) {
	if got := NewRetentionPolicy(0).Window; got != DefaultRetentionWindow {
		t.Errorf("zero window: got %v, want %v", got, DefaultRetentionWindow)
	}
	if got := NewRetentionPolicy(3 * time.Hour).Window; got != 3*time.Hour {
		t.Errorf("explicit window: got %v, want 3h", got)
	}
}

func TestStripStamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no stamp", input: "Weekly planning", want: "Weekly planning"},
		{name: "trailing stamp line", input: "Weekly planning\nstamp:1705312800", want: "Weekly planning"},
		{name: "stamp only", input: "stamp:1705312800", want: ""},
		{name: "stamp between lines", input: "First\nstamp:99\nSecond", want: "First\nSecond"},
		{name: "indented stamp line", input: "Notes\n  stamp:42", want: "Notes"},
		{name: "stamp inside a line is kept", input: "see stamp:42 for details", want: "see stamp:42 for details"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripStamp(tt.input); got != tt.want {
				t.Errorf("StripStamp(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatInstant(t *testing.T) {
	if got := FormatInstant(time.Time{}); got != "" {
		t.Errorf("zero instant: got %q, want empty", got)
	}
	in := time.Date(2024, 1, 15, 14, 0, 0, 0, time.FixedZone("CET", 3600))
	if got := FormatInstant(in); got != "2024-01-15T13:00:00Z" {
		t.Errorf("got %q, want 2024-01-15T13:00:00Z", got)
	}
}
