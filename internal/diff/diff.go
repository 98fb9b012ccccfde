package diff

import (
	"room-diff-alerts/internal/storage"
)

// ChangeRecord marks a watched key whose availability crossed zero between
// two consecutive snapshots. Opened and Closed are mutually exclusive by
// construction; both false means no transition.
type ChangeRecord struct {
	Key    storage.AvailabilityKey
	Opened bool
	Closed bool
}

// Transitioned reports whether the record carries an actual transition.
func (r ChangeRecord) Transitioned() bool {
	return r.Opened || r.Closed
}

// Diff compares the freshly fetched snapshot against the prior one for every
// key in watch. Missing entries default to zero: a key never fetched is
// treated as unavailable. The result holds exactly one record per distinct
// watch key, in first-occurrence order, so callers can index metadata for
// every watched key regardless of what was actually fetched. Pure, no I/O.
func Diff(current, prior map[storage.AvailabilityKey]int, watch []storage.AvailabilityKey) []ChangeRecord {
	records := make([]ChangeRecord, 0, len(watch))
	seen := make(map[storage.AvailabilityKey]struct{}, len(watch))

	for _, key := range watch {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		cur := current[key]
		prev := prior[key]
		records = append(records, ChangeRecord{
			Key:    key,
			Opened: cur > 0 && prev == 0,
			Closed: cur == 0 && prev > 0,
		})
	}
	return records
}

// AnyTransition reports whether at least one record opened or closed.
func AnyTransition(records []ChangeRecord) bool {
	for _, rec := range records {
		if rec.Transitioned() {
			return true
		}
	}
	return false
}
