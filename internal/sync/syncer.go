package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/beekhof/calwatch/internal/event"
	"github.com/beekhof/calwatch/internal/lib/logger/sl"
	"github.com/beekhof/calwatch/internal/store"
)

// Source produces one normalized batch of feed events per fetch.
// Records without a uid and location-excluded events never leave the
// source.
type Source interface {
	Fetch(ctx context.Context) ([]event.Event, error)
}

// Notifier delivers one consolidated change notification. Delivery
// failures must be handled (logged) by the implementation; the engine
// neither sees nor retries them.
type Notifier interface {
	Notify(added []event.Event, removed []event.Stored, updated []event.Update)
}

// Syncer reconciles fetched event batches against the persisted
// snapshot. It holds no state of its own between runs; the repository
// is the only shared mutable resource, and its uid-level
// insert-if-absent is the only guard against overlapping runs.
type Syncer struct {
	log       *slog.Logger
	source    Source
	repo      store.Repository
	notifier  Notifier
	retention event.RetentionPolicy
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(log *slog.Logger, source Source, repo store.Repository, notifier Notifier, retention event.RetentionPolicy) *Syncer {
	return &Syncer{
		log:       log,
		source:    source,
		repo:      repo,
		notifier:  notifier,
		retention: retention,
	}
}

// SyncAndNotify fetches the current batch, reconciles it against the
// snapshot, sends at most one notification, and returns the added
// events. A fetch failure aborts the run before any mutation.
func (s *Syncer) SyncAndNotify(ctx context.Context) ([]event.Event, error) {
	const op = "sync.SyncAndNotify"

	events, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.Reconcile(ctx, events)
}

// Reconcile classifies every fetched event into exactly one of
// {added, removed, updated, unchanged}, applies the matching snapshot
// mutation, and sends one notification covering the whole diff. It
// returns the added events.
func (s *Syncer) Reconcile(ctx context.Context, fetched []event.Event) ([]event.Event, error) {
	const op = "sync.Reconcile"
	log := s.log.With(slog.String("op", op))

	fetchedUIDs := make(map[string]struct{}, len(fetched))
	for _, ev := range fetched {
		fetchedUIDs[ev.UID] = struct{}{}
	}

	existingMatching, err := s.repo.MatchingUIDs(ctx, uidList(fetchedUIDs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	existingAll, err := s.repo.AllUIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// A backend whose $in projection disagrees with its full scan
	// would misclassify every matching event as added. Trust the full
	// scan when the two queries contradict each other.
	if len(existingMatching) == 0 {
		if inter := intersect(existingAll, fetchedUIDs); len(inter) > 0 {
			existingMatching = inter
		}
	}

	var added []event.Event
	for _, ev := range fetched {
		if _, ok := existingMatching[ev.UID]; !ok {
			added = append(added, ev)
		}
	}

	updated, err := s.detectUpdates(ctx, log, fetched, existingMatching)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	removed, err := s.detectRemoved(ctx, log, existingAll, fetchedUIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, ev := range added {
		// Second uid check inside the repository guards against a
		// concurrent run racing the partition computed above.
		if err := s.repo.InsertIfAbsent(ctx, ev); err != nil {
			log.Warn("failed to store added event", slog.String("uid", ev.UID), sl.Err(err))
		}
	}

	if len(added) > 0 || len(removed) > 0 || len(updated) > 0 {
		log.Info("reconciliation produced changes",
			slog.Int("added", len(added)),
			slog.Int("removed", len(removed)),
			slog.Int("updated", len(updated)),
		)
		s.notifier.Notify(added, removed, updated)
	}

	return added, nil
}

// detectUpdates compares each still-present fetched event against its
// stored document on four independent axes and applies a partial
// update for every changed event. Events whose content is identical
// (after stamp-line stripping on the fetched description) are silently
// dropped: no record, no write.
func (s *Syncer) detectUpdates(ctx context.Context, log *slog.Logger, fetched []event.Event, matching map[string]struct{}) ([]event.Update, error) {
	if len(matching) == 0 {
		return nil, nil
	}

	docs, err := s.repo.FindByUIDs(ctx, uidList(matching))
	if err != nil {
		return nil, err
	}
	byUID := make(map[string]event.Stored, len(docs))
	for _, doc := range docs {
		byUID[doc.UID] = doc
	}

	var updates []event.Update
	for _, ev := range fetched {
		stored, ok := byUID[ev.UID]
		if !ok {
			continue
		}

		oldStart, oldStartOK := event.ParseInstant(stored.StartTime)
		oldEnd, oldEndOK := event.ParseInstant(stored.EndTime)

		startChanged := instantChanged(oldStart, oldStartOK, ev.Start)
		endChanged := instantChanged(oldEnd, oldEndOK, ev.End)
		// Feeds re-stamp the description on every export; strip the
		// marker line before comparing so a re-fetch is not a change.
		descChanged := stored.Description != event.StripStamp(ev.Description)
		locChanged := stored.Location != ev.Location

		if !startChanged && !endChanged && !descChanged && !locChanged {
			continue
		}

		// Only present values go into the payload: an absent fetched
		// field must never erase what the snapshot already has.
		fields := make(map[string]string)
		if !ev.Start.IsZero() {
			fields["start_time"] = event.FormatInstant(ev.Start)
		}
		if !ev.End.IsZero() {
			fields["end_time"] = event.FormatInstant(ev.End)
		}
		if ev.Summary != "" {
			fields["summary"] = ev.Summary
		}
		if ev.Description != "" {
			fields["description"] = ev.Description
		}
		if ev.Location != "" {
			fields["location"] = ev.Location
		}

		persisted := true
		if len(fields) > 0 {
			if err := s.repo.UpdateFields(ctx, ev.UID, fields); err != nil {
				// Non-fatal: the change is still reported, and the
				// next run's diff picks the write up again.
				log.Warn("failed to update stored event", slog.String("uid", ev.UID), sl.Err(err))
				persisted = false
			}
		}

		summary := ev.Summary
		if summary == "" {
			summary = stored.Summary
		}

		updates = append(updates, event.Update{
			UID:                ev.UID,
			Summary:            summary,
			OldStart:           formatIf(oldStart, oldStartOK),
			NewStart:           event.FormatInstant(ev.Start),
			OldEnd:             formatIf(oldEnd, oldEndOK),
			NewEnd:             event.FormatInstant(ev.End),
			OldDescription:     stored.Description,
			NewDescription:     ev.Description,
			OldLocation:        stored.Location,
			NewLocation:        ev.Location,
			StartChanged:       startChanged,
			EndChanged:         endChanged,
			DescriptionChanged: descChanged,
			LocationChanged:    locChanged,
			Persisted:          persisted,
		})
	}

	return updates, nil
}

// detectRemoved deletes and returns stored events that vanished from
// the feed, but only those whose start instant is still inside the
// retention window. Older events that drop out are feed-visibility
// artifacts and stay in the snapshot untouched.
func (s *Syncer) detectRemoved(ctx context.Context, log *slog.Logger, existingAll, fetchedUIDs map[string]struct{}) ([]event.Stored, error) {
	var candidates []string
	for uid := range existingAll {
		if _, ok := fetchedUIDs[uid]; !ok {
			candidates = append(candidates, uid)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	docs, err := s.repo.FindByUIDs(ctx, candidates)
	if err != nil {
		return nil, err
	}

	var removed []event.Stored
	var removedUIDs []string
	for _, doc := range docs {
		start, ok := event.ParseInstant(doc.StartTime)
		if !ok || !s.retention.Within(start) {
			continue
		}
		removed = append(removed, doc)
		removedUIDs = append(removedUIDs, doc.UID)
	}

	if len(removedUIDs) > 0 {
		if err := s.repo.DeleteByUIDs(ctx, removedUIDs); err != nil {
			log.Warn("failed to delete removed events", slog.Int("count", len(removedUIDs)), sl.Err(err))
		}
	}

	return removed, nil
}

// FetchNew fetches the current batch and returns only the events not
// yet present in the snapshot. Nothing is written or notified.
func (s *Syncer) FetchNew(ctx context.Context) ([]event.Event, error) {
	const op = "sync.FetchNew"

	events, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	uids := make([]string, 0, len(events))
	for _, ev := range events {
		uids = append(uids, ev.UID)
	}
	matching, err := s.repo.MatchingUIDs(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var fresh []event.Event
	for _, ev := range events {
		if _, ok := matching[ev.UID]; !ok {
			fresh = append(fresh, ev)
		}
	}
	return fresh, nil
}

// PersistNew stores the given events, skipping uids that already
// exist. Individual insert failures are logged and do not stop the
// batch.
func (s *Syncer) PersistNew(ctx context.Context, events []event.Event) {
	const op = "sync.PersistNew"
	log := s.log.With(slog.String("op", op))

	for _, ev := range events {
		if err := s.repo.InsertIfAbsent(ctx, ev); err != nil {
			log.Warn("failed to store event", slog.String("uid", ev.UID), sl.Err(err))
		}
	}
}

// instantChanged applies the conservative comparison rule: a presence
// mismatch counts as changed so a malformed timestamp never hides an
// update.
func instantChanged(old time.Time, oldOK bool, cur time.Time) bool {
	curOK := !cur.IsZero()
	if oldOK != curOK {
		return true
	}
	return oldOK && curOK && !old.Equal(cur)
}

func formatIf(t time.Time, ok bool) string {
	if !ok {
		return ""
	}
	return event.FormatInstant(t)
}

func uidList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for uid := range set {
		out = append(out, uid)
	}
	return out
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}
