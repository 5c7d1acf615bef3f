package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beekhof/calwatch/internal/event"
)

func TestCompose_EmptyPartitionsYieldNothing(t *testing.T) {
	if msg := Compose(nil, nil, nil); msg != nil {
		t.Fatalf("expected nil message for empty partitions, got %+v", msg)
	}
	if msg := Compose([]event.Event{}, []event.Stored{}, []event.Update{}); msg != nil {
		t.Fatalf("expected nil message for empty slices, got %+v", msg)
	}
}

func TestCompose_SubjectCounts(t *testing.T) {
	added := []event.Event{{UID: "a1", Summary: "New meeting"}}
	removed := []event.Stored{{UID: "r1", Summary: "Cancelled"}, {UID: "r2", Summary: "Also gone"}}

	msg := Compose(added, removed, nil)
	require.NotNil(t, msg)
	assert.Equal(t, "Events update: 1 added, 2 removed, 0 updated", msg.Subject)
}

func TestCompose_PlainSectionsInOrder(t *testing.T) {
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	added := []event.Event{{UID: "a1", Summary: "Briefing", Start: start, End: start.Add(time.Hour), Location: "Hangar 3"}}
	removed := []event.Stored{{UID: "r1", Summary: "Old standup", StartTime: "2024-01-15T08:00:00Z"}}
	updated := []event.Update{{
		UID: "u1", Summary: "Moved meeting",
		OldStart: "2024-01-15T10:00:00Z", NewStart: "2024-01-15T11:00:00Z",
		StartChanged: true, Persisted: true,
	}}

	msg := Compose(added, removed, updated)
	require.NotNil(t, msg)

	body := msg.PlainBody
	addedIdx := strings.Index(body, "Added Events:")
	removedIdx := strings.Index(body, "Removed Events:")
	updatedIdx := strings.Index(body, "Updated Events:")
	require.True(t, addedIdx >= 0 && removedIdx >= 0 && updatedIdx >= 0, "all sections present")
	assert.True(t, addedIdx < removedIdx && removedIdx < updatedIdx, "sections in fixed order")

	assert.Contains(t, body, "Summary: Briefing")
	assert.Contains(t, body, "Start Time: 2024-01-15T09:00:00Z")
	assert.Contains(t, body, "Location: Hangar 3")
	assert.Contains(t, body, "Summary: Old standup")
	assert.Contains(t, body, "Old Start: 2024-01-15T10:00:00Z")
	assert.Contains(t, body, "New Start: 2024-01-15T11:00:00Z")
	assert.Contains(t, body, divider)
}

func TestCompose_MissingValuesRenderPlaceholder(t *testing.T) {
	msg := Compose([]event.Event{{UID: "a1", Summary: "No times"}}, nil, nil)
	require.NotNil(t, msg)
	assert.Contains(t, msg.PlainBody, "Start Time: N/A")
	assert.Contains(t, msg.PlainBody, "End Time: N/A")
	assert.Contains(t, msg.PlainBody, "Description: N/A")
	assert.Contains(t, msg.HTMLBody, "Start Time: N/A")
}

func TestCompose_HTMLHighlightsOnlyChangedAxes(t *testing.T) {
	updated := []event.Update{{
		UID:            "u1",
		Summary:        "Room change",
		OldStart:       "2024-01-15T10:00:00Z",
		NewStart:       "2024-01-15T10:00:00Z",
		OldDescription: "Same text",
		NewDescription: "Same text",
		OldLocation:    "Room A",
		NewLocation:    "Room B",
		LocationChanged: true,
	}}

	msg := Compose(nil, nil, updated)
	require.NotNil(t, msg)

	html := msg.HTMLBody
	assert.Contains(t, html, "Old Location: <b>Room A</b>")
	assert.Contains(t, html, "New Location: <b>Room B</b>")
	assert.Contains(t, html, "Old Description: Same text")
	assert.NotContains(t, html, "<b>Same text</b>")
	assert.NotContains(t, html, "<b>2024-01-15T10:00:00Z</b>")
}

func TestCompose_HTMLEscapesFields(t *testing.T) {
	added := []event.Event{{UID: "a1", Summary: `Launch <review> & "retro"`}}
	msg := Compose(added, nil, nil)
	require.NotNil(t, msg)
	assert.Contains(t, msg.HTMLBody, "Launch &lt;review&gt; &amp; &#34;retro&#34;")
	assert.NotContains(t, msg.HTMLBody, "Launch <review>")
}

type recordingMailer struct {
	sent []struct {
		recipient, subject, plain, html string
	}
	err error
}

func (m *recordingMailer) Send(recipient, subject, plain, html string) error {
	m.sent = append(m.sent, struct {
		recipient, subject, plain, html string
	}{recipient, subject, plain, html})
	return m.err
}

func TestNotifier_SkipsEmptyDiff(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewNotifier(testLogger(), mailer, "ops@example.com")

	n.Notify(nil, nil, nil)

	assert.Empty(t, mailer.sent, "no mail for an empty diff")
}

func TestNotifier_SendsOnce(t *testing.T) {
	mailer := &recordingMailer{}
	n := NewNotifier(testLogger(), mailer, "ops@example.com")

	n.Notify([]event.Event{{UID: "a1", Summary: "New"}}, nil, nil)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ops@example.com", mailer.sent[0].recipient)
	assert.Equal(t, "Events update: 1 added, 0 removed, 0 updated", mailer.sent[0].subject)
	assert.NotEmpty(t, mailer.sent[0].plain)
	assert.NotEmpty(t, mailer.sent[0].html)
}

func TestNotifier_SwallowsSendFailure(t *testing.T) {
	mailer := &recordingMailer{err: assert.AnError}
	n := NewNotifier(testLogger(), mailer, "ops@example.com")

	// Must not panic or propagate; the engine's state is already
	// updated by the time delivery happens.
	n.Notify([]event.Event{{UID: "a1"}}, nil, nil)

	require.Len(t, mailer.sent, 1)
}
