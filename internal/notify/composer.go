package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/beekhof/calwatch/internal/event"
)

const (
	placeholder = "N/A"
	divider     = "--------------------------"
)

// Message is one rendered change notification, ready for delivery.
type Message struct {
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Compose renders the three partitions into a single notification.
// It returns nil when there is nothing to report; callers must send
// nothing in that case.
func Compose(added []event.Event, removed []event.Stored, updated []event.Update) *Message {
	if len(added) == 0 && len(removed) == 0 && len(updated) == 0 {
		return nil
	}

	return &Message{
		Subject: fmt.Sprintf("Events update: %d added, %d removed, %d updated",
			len(added), len(removed), len(updated)),
		PlainBody: composePlain(added, removed, updated),
		HTMLBody:  composeHTML(added, removed, updated),
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func composePlain(added []event.Event, removed []event.Stored, updated []event.Update) string {
	var b strings.Builder
	b.WriteString("Events Update:\n\n")

	if len(added) > 0 {
		b.WriteString("Added Events:\n\n")
		for _, ev := range added {
			fmt.Fprintf(&b, "Summary: %s\n", orPlaceholder(ev.Summary))
			fmt.Fprintf(&b, "Start Time: %s\n", orPlaceholder(event.FormatInstant(ev.Start)))
			fmt.Fprintf(&b, "End Time: %s\n", orPlaceholder(event.FormatInstant(ev.End)))
			fmt.Fprintf(&b, "Description: %s\n", orPlaceholder(ev.Description))
			fmt.Fprintf(&b, "Location: %s\n", orPlaceholder(ev.Location))
			b.WriteString(divider + "\n")
		}
	}

	if len(removed) > 0 {
		b.WriteString("Removed Events:\n\n")
		for _, doc := range removed {
			fmt.Fprintf(&b, "Summary: %s\n", orPlaceholder(doc.Summary))
			fmt.Fprintf(&b, "Start Time: %s\n", orPlaceholder(doc.StartTime))
			fmt.Fprintf(&b, "End Time: %s\n", orPlaceholder(doc.EndTime))
			fmt.Fprintf(&b, "Description: %s\n", orPlaceholder(doc.Description))
			fmt.Fprintf(&b, "Location: %s\n", orPlaceholder(doc.Location))
			b.WriteString(divider + "\n")
		}
	}

	if len(updated) > 0 {
		b.WriteString("Updated Events:\n\n")
		for _, u := range updated {
			fmt.Fprintf(&b, "Summary: %s\n", orPlaceholder(u.Summary))
			fmt.Fprintf(&b, "Old Start: %s\n", orPlaceholder(u.OldStart))
			fmt.Fprintf(&b, "Old End: %s\n", orPlaceholder(u.OldEnd))
			fmt.Fprintf(&b, "Old Description: %s\n", orPlaceholder(u.OldDescription))
			fmt.Fprintf(&b, "Old Location: %s\n", orPlaceholder(u.OldLocation))
			fmt.Fprintf(&b, "New Start: %s\n", orPlaceholder(u.NewStart))
			fmt.Fprintf(&b, "New End: %s\n", orPlaceholder(u.NewEnd))
			fmt.Fprintf(&b, "New Description: %s\n", orPlaceholder(u.NewDescription))
			fmt.Fprintf(&b, "New Location: %s\n", orPlaceholder(u.NewLocation))
			b.WriteString(divider + "\n")
		}
	}

	return b.String()
}

// htmlValue escapes a value for HTML output, substituting the
// placeholder for empty values and bold-wrapping changed ones.
func htmlValue(s string, changed bool) string {
	escaped := html.EscapeString(orPlaceholder(s))
	if changed {
		return "<b>" + escaped + "</b>"
	}
	return escaped
}

func composeHTML(added []event.Event, removed []event.Stored, updated []event.Update) string {
	var b strings.Builder
	b.WriteString("<html><body>\n<p>Events Update:</p>\n")

	if len(added) > 0 {
		b.WriteString("<h3>Added Events</h3>\n")
		for _, ev := range added {
			fmt.Fprintf(&b, "<p>Summary: %s<br>\n", htmlValue(ev.Summary, false))
			fmt.Fprintf(&b, "Start Time: %s<br>\n", htmlValue(event.FormatInstant(ev.Start), false))
			fmt.Fprintf(&b, "End Time: %s<br>\n", htmlValue(event.FormatInstant(ev.End), false))
			fmt.Fprintf(&b, "Description: %s<br>\n", htmlValue(ev.Description, false))
			fmt.Fprintf(&b, "Location: %s</p>\n<hr>\n", htmlValue(ev.Location, false))
		}
	}

	if len(removed) > 0 {
		b.WriteString("<h3>Removed Events</h3>\n")
		for _, doc := range removed {
			fmt.Fprintf(&b, "<p>Summary: %s<br>\n", htmlValue(doc.Summary, false))
			fmt.Fprintf(&b, "Start Time: %s<br>\n", htmlValue(doc.StartTime, false))
			fmt.Fprintf(&b, "End Time: %s<br>\n", htmlValue(doc.EndTime, false))
			fmt.Fprintf(&b, "Description: %s<br>\n", htmlValue(doc.Description, false))
			fmt.Fprintf(&b, "Location: %s</p>\n<hr>\n", htmlValue(doc.Location, false))
		}
	}

	if len(updated) > 0 {
		b.WriteString("<h3>Updated Events</h3>\n")
		for _, u := range updated {
			fmt.Fprintf(&b, "<p>Summary: %s<br>\n", htmlValue(u.Summary, false))
			fmt.Fprintf(&b, "Old Start: %s<br>\n", htmlValue(u.OldStart, u.StartChanged))
			fmt.Fprintf(&b, "Old End: %s<br>\n", htmlValue(u.OldEnd, u.EndChanged))
			fmt.Fprintf(&b, "Old Description: %s<br>\n", htmlValue(u.OldDescription, u.DescriptionChanged))
			fmt.Fprintf(&b, "Old Location: %s<br>\n", htmlValue(u.OldLocation, u.LocationChanged))
			fmt.Fprintf(&b, "New Start: %s<br>\n", htmlValue(u.NewStart, u.StartChanged))
			fmt.Fprintf(&b, "New End: %s<br>\n", htmlValue(u.NewEnd, u.EndChanged))
			fmt.Fprintf(&b, "New Description: %s<br>\n", htmlValue(u.NewDescription, u.DescriptionChanged))
			fmt.Fprintf(&b, "New Location: %s</p>\n<hr>\n", htmlValue(u.NewLocation, u.LocationChanged))
		}
	}

	b.WriteString("</body></html>\n")
	return b.String()
}
