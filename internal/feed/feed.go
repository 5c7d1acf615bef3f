// Package feed fetches event batches from remote calendar sources and
// normalizes them into the engine's canonical event shape. Filtering
// happens here, at the boundary: excluded events never reach the
// snapshot and never generate notifications.
package feed

import (
	"strings"

	"github.com/beekhof/calwatch/internal/event"
)

// DefaultExcludedLocations is the out-of-the-box location exclusion
// list.
var DefaultExcludedLocations = []string{"privat"}

// exclusionSet normalizes an exclusion list for case-insensitive,
// whitespace-tolerant matching.
func exclusionSet(locations []string) map[string]struct{} {
	set := make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		set[strings.ToLower(strings.TrimSpace(loc))] = struct{}{}
	}
	return set
}

// filterExcluded drops events whose location, trimmed and lowercased,
// is on the exclusion list. Events without a location always pass.
func filterExcluded(events []event.Event, excluded map[string]struct{}) []event.Event {
	if len(excluded) == 0 {
		return events
	}
	filtered := events[:0]
	for _, ev := range events {
		if ev.Location != "" {
			if _, ok := excluded[strings.ToLower(strings.TrimSpace(ev.Location))]; ok {
				continue
			}
		}
		filtered = append(filtered, ev)
	}
	return filtered
}
