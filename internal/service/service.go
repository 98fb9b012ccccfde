package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"room-diff-alerts/internal/alerting"
	"room-diff-alerts/internal/catalog"
	"room-diff-alerts/internal/diff"
	"room-diff-alerts/internal/fetcher"
	"room-diff-alerts/internal/storage"
)

// Options wire the orchestrator's collaborators and watch parameters.
type Options struct {
	Metadata  catalog.MetadataStore
	Fetcher   fetcher.AvailabilityFetcher
	Snapshots storage.SnapshotStore
	History   storage.HistoryStore
	Notifier  alerting.Notifier

	Hotels     []string
	WatchKeys  []storage.AvailabilityKey
	DateFrom   time.Time
	DateTo     time.Time
	Recipients []string

	BookingBaseURL string
	AlertsEnabled  bool
}

// Service drives one reconciliation cycle: load metadata, fetch the watched
// hotels' full date window, diff against the prior snapshot, persist, and
// notify on watched transitions.
type Service struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs the reconciliation service.
func New(opts Options, logger zerolog.Logger) *Service {
	return &Service{
		opts:   opts,
		logger: logger.With().Str("component", "service").Logger(),
	}
}

// RunCycle executes a single reconciliation cycle. The cycle either
// completes with all stores updated, or returns an error with the persisted
// state untouched by any step that had not yet run; the external trigger is
// the sole retry mechanism.
func (s *Service) RunCycle(ctx context.Context) error {
	started := time.Now()

	metadataRows, err := s.opts.Metadata.Load(ctx)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	prior, err := s.opts.Snapshots.Load()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	// All hotels are fetched before anything is flushed, so a failed cycle
	// never leaves a partially updated snapshot behind.
	var samples []storage.AvailabilitySample
	for _, hotel := range s.opts.Hotels {
		hotelSamples, fetchErr := s.opts.Fetcher.Fetch(ctx, hotel, s.opts.DateFrom, s.opts.DateTo)
		if fetchErr != nil {
			return fmt.Errorf("fetch availability for %s: %w", hotel, fetchErr)
		}
		samples = append(samples, hotelSamples...)
	}

	current := make(map[storage.AvailabilityKey]int, len(samples))
	for _, sample := range samples {
		current[sample.Key()] = sample.Available
	}

	changes := diff.Diff(current, prior, s.opts.WatchKeys)

	historyRows := s.changedSamples(samples, prior)
	if err := s.opts.History.Append(historyRows); err != nil {
		s.logger.Error().Err(err).Msg("failed to append history")
		return fmt.Errorf("append history: %w", err)
	}

	if err := s.opts.Snapshots.Save(current); err != nil {
		s.logger.Error().Err(err).Msg("failed to save snapshot")
		return fmt.Errorf("save snapshot: %w", err)
	}

	metadataRows = updateLatestPrices(metadataRows, samples)
	if err := s.opts.Metadata.Save(metadataRows); err != nil {
		s.logger.Error().Err(err).Msg("failed to save metadata")
		return fmt.Errorf("save metadata: %w", err)
	}

	transitions := diff.AnyTransition(changes)
	if transitions && s.opts.AlertsEnabled && s.opts.Notifier != nil {
		note := s.buildNotification(changes, catalog.Index(metadataRows))
		if err := s.opts.Notifier.Notify(ctx, note); err != nil {
			// Persisted state stands regardless of delivery: availability is
			// ground truth independent of whether the alert arrived.
			s.logger.Error().Err(err).Msg("failed to deliver notification")
		}
	}

	s.logger.Info().
		Int("samples", len(samples)).
		Int("history_rows", len(historyRows)).
		Bool("transitions", transitions).
		Dur("elapsed", time.Since(started)).
		Msg("cycle complete")
	return nil
}

// changedSamples selects the rows worth recording: only samples whose value
// differs from the prior snapshot, except that a brand-new history log gets
// the whole first cycle unconditionally.
func (s *Service) changedSamples(samples []storage.AvailabilitySample, prior map[storage.AvailabilityKey]int) []storage.AvailabilitySample {
	if !s.opts.History.Exists() {
		return samples
	}

	var changed []storage.AvailabilitySample
	for _, sample := range samples {
		if prior[sample.Key()] != sample.Available {
			changed = append(changed, sample)
		}
	}
	return changed
}

// updateLatestPrices sets each room's latest price to the mean of the
// cycle's observed prices for that room, rounded to two decimals. Rooms with
// no priced observation keep their previous value.
func updateLatestPrices(rows []catalog.RoomMetadata, samples []storage.AvailabilitySample) []catalog.RoomMetadata {
	prices := make(map[catalog.RoomKey][]decimal.Decimal)
	for _, sample := range samples {
		if sample.Price == nil {
			continue
		}
		key := catalog.RoomKey{HotelCode: sample.HotelCode, RoomCode: sample.RoomCode}
		prices[key] = append(prices[key], *sample.Price)
	}

	for i, row := range rows {
		observed, ok := prices[row.Key()]
		if !ok {
			continue
		}
		mean := decimal.Avg(observed[0], observed[1:]...).Round(2)
		rows[i].LatestPrice = &mean
	}
	return rows
}

func (s *Service) buildNotification(changes []diff.ChangeRecord, index map[catalog.RoomKey]catalog.RoomMetadata) alerting.Notification {
	var joined []alerting.Change
	for _, rec := range changes {
		if !rec.Transitioned() {
			continue
		}

		date, err := time.Parse(storage.DateLayout, rec.Key.Date)
		if err != nil {
			s.logger.Warn().Str("date", rec.Key.Date).Msg("skipping change with unparseable date")
			continue
		}

		change := alerting.Change{
			Date:       date,
			HotelCode:  rec.Key.HotelCode,
			RoomCode:   rec.Key.RoomCode,
			HotelTitle: rec.Key.HotelCode,
			RoomTitle:  rec.Key.RoomCode,
			Opened:     rec.Opened,
			Closed:     rec.Closed,
			Link:       alerting.BookingLink(s.opts.BookingBaseURL, rec.Key.HotelCode, date),
		}
		if meta, ok := index[catalog.RoomKey{HotelCode: rec.Key.HotelCode, RoomCode: rec.Key.RoomCode}]; ok {
			change.HotelTitle = meta.HotelTitle
			change.RoomTitle = meta.RoomTitle
			change.MaxOccupancy = meta.MaxOccupancy
		}
		joined = append(joined, change)
	}

	return alerting.Notification{
		Changes:    joined,
		Recipients: s.opts.Recipients,
	}
}
