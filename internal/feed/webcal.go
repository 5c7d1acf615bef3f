package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/beekhof/calwatch/internal/event"
	"github.com/beekhof/calwatch/internal/lib/logger/sl"
)

// WebcalSource fetches an ICS document over HTTP and converts its
// VEVENTs into normalized events.
type WebcalSource struct {
	log      *slog.Logger
	url      string
	client   *http.Client
	excluded map[string]struct{}
}

// NewWebcalSource creates a source for the given webcal/ICS URL.
// A webcal:// scheme is rewritten to https://.
func NewWebcalSource(log *slog.Logger, url string, excludedLocations []string) *WebcalSource {
	if strings.HasPrefix(url, "webcal://") {
		url = "https://" + strings.TrimPrefix(url, "webcal://")
	}
	return &WebcalSource{
		log:      log,
		url:      url,
		client:   &http.Client{Timeout: 15 * time.Second},
		excluded: exclusionSet(excludedLocations),
	}
}

// Fetch downloads and parses the feed. Malformed VEVENTs are logged
// and skipped; records without a UID are dropped.
func (s *WebcalSource) Fetch(ctx context.Context) ([]event.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch feed: HTTP %d", resp.StatusCode)
	}

	cal, err := ical.NewDecoder(resp.Body).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var events []event.Event
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		ev, err := veventToEvent(comp)
		if err != nil {
			s.log.Warn("skipping malformed vevent", sl.Err(err))
			continue
		}
		if ev.UID == "" {
			continue
		}
		events = append(events, ev)
	}

	return filterExcluded(events, s.excluded), nil
}

// veventToEvent maps an iCalendar component onto the canonical event
// shape. Date-time parsing is delegated to the property's own helper,
// which resolves floating values as UTC when no location is supplied.
func veventToEvent(vevent *ical.Component) (event.Event, error) {
	var ev event.Event

	if uid := vevent.Props.Get(ical.PropUID); uid != nil {
		ev.UID = strings.TrimSpace(uid.Value)
	}
	if summary := vevent.Props.Get(ical.PropSummary); summary != nil {
		ev.Summary = summary.Value
	}
	if desc := vevent.Props.Get(ical.PropDescription); desc != nil {
		ev.Description = strings.ReplaceAll(desc.Value, `\n`, "\n")
	}
	if loc := vevent.Props.Get(ical.PropLocation); loc != nil {
		ev.Location = loc.Value
	}

	if dtstart := vevent.Props.Get(ical.PropDateTimeStart); dtstart != nil {
		start, err := dtstart.DateTime(nil)
		if err != nil {
			return ev, fmt.Errorf("failed to parse DTSTART: %w", err)
		}
		ev.Start = start.UTC()
	}
	if dtend := vevent.Props.Get(ical.PropDateTimeEnd); dtend != nil {
		end, err := dtend.DateTime(nil)
		if err != nil {
			return ev, fmt.Errorf("failed to parse DTEND: %w", err)
		}
		ev.End = end.UTC()
	}

	return ev, nil
}
