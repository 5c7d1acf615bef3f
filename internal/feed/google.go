package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/beekhof/calwatch/internal/event"
)

// GoogleSource fetches events from a Google Calendar instead of a
// webcal feed. Recurring events are expanded to individual instances
// so every record carries its own uid.
type GoogleSource struct {
	service    *calendar.Service
	calendarID string
	excluded   map[string]struct{}
	lookahead  time.Duration
}

// NewGoogleSource creates a source for the given calendar using an
// authenticated HTTP client.
func NewGoogleSource(ctx context.Context, httpClient *http.Client, calendarID string, excludedLocations []string) (*GoogleSource, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}

	return &GoogleSource{
		service:    service,
		calendarID: calendarID,
		excluded:   exclusionSet(excludedLocations),
		lookahead:  365 * 24 * time.Hour,
	}, nil
}

// Fetch lists upcoming events within the lookahead window. The lower
// bound reaches one day back so events still inside the engine's
// retention window keep appearing in the batch.
func (s *GoogleSource) Fetch(ctx context.Context) ([]event.Event, error) {
	now := time.Now().UTC()
	timeMin := now.Add(-24 * time.Hour)
	timeMax := now.Add(s.lookahead)

	var events []event.Event
	pageToken := ""
	for {
		call := s.service.Events.List(s.calendarID).
			Context(ctx).
			SingleEvents(true).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			OrderBy("startTime")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list calendar events: %w", err)
		}

		for _, item := range resp.Items {
			ev := googleItemToEvent(item)
			if ev.UID == "" {
				continue
			}
			events = append(events, ev)
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return filterExcluded(events, s.excluded), nil
}

func googleItemToEvent(item *calendar.Event) event.Event {
	ev := event.Event{
		UID:         item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
	}
	ev.Start = googleInstant(item.Start)
	ev.End = googleInstant(item.End)
	return ev
}

// googleInstant resolves either an RFC 3339 date-time or an all-day
// date. Absence on both fields yields the zero instant.
func googleInstant(edt *calendar.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	value := edt.DateTime
	if value == "" {
		value = edt.Date
	}
	t, ok := event.ParseInstant(value)
	if !ok {
		return time.Time{}
	}
	return t
}
