package event

import "time"

// Event is the canonical, normalized form of a fetched calendar event.
// Sources are responsible for producing this shape; a zero Start or End
// means the feed did not carry a usable value.
type Event struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// Stored is the persisted snapshot document for a single event.
// At most one document exists per uid; start and end are kept as
// RFC 3339 strings so the snapshot survives clients with differing
// native time handling.
type Stored struct {
	UID         string `bson:"uid" json:"uid"`
	Summary     string `bson:"summary" json:"summary"`
	StartTime   string `bson:"start_time" json:"start_time"`
	EndTime     string `bson:"end_time" json:"end_time"`
	Description string `bson:"description" json:"description,omitempty"`
	Location    string `bson:"location" json:"location,omitempty"`
}

// ToStored converts a fetched event into its snapshot document form.
func (e Event) ToStored() Stored {
	return Stored{
		UID:         e.UID,
		Summary:     e.Summary,
		StartTime:   FormatInstant(e.Start),
		EndTime:     FormatInstant(e.End),
		Description: e.Description,
		Location:    e.Location,
	}
}

// FormatInstant renders an instant as RFC 3339 in UTC, or "" for the
// zero value.
func FormatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
