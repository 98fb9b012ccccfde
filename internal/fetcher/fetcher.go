package fetcher

import (
	"context"
	"time"

	"room-diff-alerts/internal/storage"
)

// AvailabilityFetcher retrieves availability samples for one hotel across a
// bounded, inclusive date window.
type AvailabilityFetcher interface {
	Fetch(ctx context.Context, hotelCode string, from, to time.Time) ([]storage.AvailabilitySample, error)
}
