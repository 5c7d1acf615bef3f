package event

// Update describes one event whose content changed between the
// snapshot and the latest fetch. Old/new values are carried for all
// four axes, not just the changed ones; the Changed flags record which
// axes actually differed so renderers can highlight them. An empty
// value means the side had no usable instant or text.
type Update struct {
	UID     string `json:"uid"`
	Summary string `json:"summary"`

	OldStart string `json:"old_start,omitempty"`
	NewStart string `json:"new_start,omitempty"`
	OldEnd   string `json:"old_end,omitempty"`
	NewEnd   string `json:"new_end,omitempty"`

	OldDescription string `json:"old_description,omitempty"`
	NewDescription string `json:"new_description,omitempty"`
	OldLocation    string `json:"old_location,omitempty"`
	NewLocation    string `json:"new_location,omitempty"`

	StartChanged       bool `json:"start_changed"`
	EndChanged         bool `json:"end_changed"`
	DescriptionChanged bool `json:"description_changed"`
	LocationChanged    bool `json:"location_changed"`

	// Persisted reports whether the snapshot write for this change
	// took effect. A false value means the change is best-effort: it
	// was detected and reported, but the write failed and will be
	// retried implicitly by the next run's diff.
	Persisted bool `json:"persisted"`
}

// HasChange reports whether any axis differed.
func (u Update) HasChange() bool {
	return u.StartChanged || u.EndChanged || u.DescriptionChanged || u.LocationChanged
}
