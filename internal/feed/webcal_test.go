package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:evt-1
SUMMARY:Flight briefing
DTSTART:20240115T140000Z
DTEND:20240115T150000Z
DESCRIPTION:Route overview\nstamp:1705312800
LOCATION:Hangar 3
END:VEVENT
BEGIN:VEVENT
UID:evt-2
SUMMARY:Private appointment
DTSTART:20240116T090000Z
DTEND:20240116T100000Z
LOCATION: Privat
END:VEVENT
BEGIN:VEVENT
SUMMARY:No uid\, dropped
DTSTART:20240117T090000Z
DTEND:20240117T100000Z
END:VEVENT
END:VCALENDAR
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func icsServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWebcalSource_FetchParsesAndFilters(t *testing.T) {
	server := icsServer(t, strings.ReplaceAll(sampleICS, "\n", "\r\n"), http.StatusOK)
	source := NewWebcalSource(testLogger(), server.URL, DefaultExcludedLocations)

	events, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event after filtering, got %d: %+v", len(events), events)
	}

	ev := events[0]
	if ev.UID != "evt-1" {
		t.Errorf("UID = %q, want evt-1", ev.UID)
	}
	if ev.Summary != "Flight briefing" {
		t.Errorf("Summary = %q, want Flight briefing", ev.Summary)
	}
	if ev.Location != "Hangar 3" {
		t.Errorf("Location = %q, want Hangar 3", ev.Location)
	}
	wantStart := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	if !ev.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", ev.Start, wantStart)
	}
	wantEnd := time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)
	if !ev.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", ev.End, wantEnd)
	}
	if !strings.Contains(ev.Description, "stamp:1705312800") {
		t.Errorf("Description = %q, want the raw stamp line preserved", ev.Description)
	}
}

func TestWebcalSource_LocationFilterIsCaseInsensitive(t *testing.T) {
	ics := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:p1\r\nSUMMARY:Hidden\r\nLOCATION:  PRIVAT \r\nEND:VEVENT\r\n" +
		"BEGIN:VEVENT\r\nUID:k1\r\nSUMMARY:Kept\r\nLOCATION:Office\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	server := icsServer(t, ics, http.StatusOK)
	source := NewWebcalSource(testLogger(), server.URL, []string{"privat"})

	events, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() returned error: %v", err)
	}

	if len(events) != 1 || events[0].UID != "k1" {
		t.Fatalf("expected only k1 to survive, got %+v", events)
	}
}

func TestWebcalSource_HTTPErrorPropagates(t *testing.T) {
	server := icsServer(t, "gone", http.StatusNotFound)
	source := NewWebcalSource(testLogger(), server.URL, nil)

	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for HTTP 404")
	}
}

func TestNewWebcalSource_RewritesWebcalScheme(t *testing.T) {
	source := NewWebcalSource(testLogger(), "webcal://example.com/cal.ics", nil)
	if source.url != "https://example.com/cal.ics" {
		t.Errorf("url = %q, want https://example.com/cal.ics", source.url)
	}
}
