package store

import (
	"context"
	"errors"

	"github.com/beekhof/calwatch/internal/event"
)

var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("event not found")
	// ErrUpdateUnsupported is returned by backends that cannot perform
	// partial updates. Callers treat it as non-fatal.
	ErrUpdateUnsupported = errors.New("partial update not supported")
)

// Repository is the narrow contract the reconciliation engine needs
// from the snapshot collection. Every operation is idempotent, and
// implementations must return full documents from FindByUIDs, never
// uid-only projections.
type Repository interface {
	// MatchingUIDs returns the subset of uids already present in the
	// snapshot. Empty input yields an empty set without a round trip.
	MatchingUIDs(ctx context.Context, uids []string) (map[string]struct{}, error)

	// AllUIDs returns every uid currently stored.
	AllUIDs(ctx context.Context) (map[string]struct{}, error)

	// FindByUIDs bulk-fetches the documents for the given uids. Empty
	// input yields an empty slice without a round trip.
	FindByUIDs(ctx context.Context, uids []string) ([]event.Stored, error)

	// DeleteByUIDs bulk-deletes the given uids. No-op on empty input.
	DeleteByUIDs(ctx context.Context, uids []string) error

	// UpdateFields applies a partial update to the document with the
	// given uid. Only the provided fields are touched.
	UpdateFields(ctx context.Context, uid string, fields map[string]string) error

	// InsertIfAbsent stores the event's snapshot document unless a
	// document with that uid already exists. This uid-level dedup is
	// the sole guard against concurrent reconciliation runs inserting
	// the same event twice.
	InsertIfAbsent(ctx context.Context, ev event.Event) error
}
