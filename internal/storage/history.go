package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryStore defines operations for the append-only change log.
type HistoryStore interface {
	Append(samples []AvailabilitySample) error
	Exists() bool
	ListRecent(limit int) ([]AvailabilitySample, error)
}

var historyHeader = []string{"date", "hotel_code", "room_code", "available", "price", "sampled_at", "updated_at"}

// HistoryFile is a durable append-only CSV log of observed changes. The
// header is written exactly once, when the file is first created.
type HistoryFile struct {
	path string
}

// NewHistoryFile wires a history log backed by the given path.
func NewHistoryFile(path string) *HistoryFile {
	return &HistoryFile{path: path}
}

// Exists reports whether the log has been created by a previous cycle.
func (f *HistoryFile) Exists() bool {
	if f.path == "" {
		return false
	}
	_, err := os.Stat(f.path)
	return err == nil
}

// Append adds rows to the log, writing the header first when the file does
// not yet exist.
func (f *HistoryFile) Append(samples []AvailabilitySample) error {
	if f.path == "" {
		return ErrNotConfigured
	}
	if len(samples) == 0 {
		return nil
	}
	if err := ensureDir(f.path); err != nil {
		return err
	}

	writeHeader := !f.Exists()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(historyHeader); err != nil {
			return fmt.Errorf("write history header: %w", err)
		}
	}

	for _, sample := range samples {
		price := ""
		if sample.Price != nil {
			price = sample.Price.String()
		}
		record := []string{
			sample.Date.Format(DateLayout),
			sample.HotelCode,
			sample.RoomCode,
			strconv.Itoa(sample.Available),
			price,
			sample.SampledAt.UTC().Format(time.RFC3339),
			sample.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write history row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush history: %w", err)
	}
	return nil
}

// ListRecent returns up to limit rows from the tail of the log, oldest
// first. An absent log yields no rows.
func (f *HistoryFile) ListRecent(limit int) ([]AvailabilitySample, error) {
	if f.path == "" {
		return nil, ErrNotConfigured
	}

	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	rows := records[1:]
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	samples := make([]AvailabilitySample, 0, len(rows))
	for i, rec := range rows {
		sample, parseErr := parseHistoryRow(rec)
		if parseErr != nil {
			return nil, fmt.Errorf("history row %d: %w", i+1, parseErr)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func parseHistoryRow(rec []string) (AvailabilitySample, error) {
	if len(rec) != len(historyHeader) {
		return AvailabilitySample{}, fmt.Errorf("expected %d columns, got %d", len(historyHeader), len(rec))
	}

	date, err := time.Parse(DateLayout, rec[0])
	if err != nil {
		return AvailabilitySample{}, fmt.Errorf("parse date: %w", err)
	}
	available, err := strconv.Atoi(rec[3])
	if err != nil {
		return AvailabilitySample{}, fmt.Errorf("parse available: %w", err)
	}

	sample := AvailabilitySample{
		Date:      date,
		HotelCode: rec[1],
		RoomCode:  rec[2],
		Available: available,
	}

	if rec[4] != "" {
		price, convErr := decimal.NewFromString(rec[4])
		if convErr != nil {
			return AvailabilitySample{}, fmt.Errorf("parse price: %w", convErr)
		}
		sample.Price = &price
	}
	if rec[5] != "" {
		sampledAt, convErr := time.Parse(time.RFC3339, rec[5])
		if convErr != nil {
			return AvailabilitySample{}, fmt.Errorf("parse sampled_at: %w", convErr)
		}
		sample.SampledAt = sampledAt
	}
	if rec[6] != "" {
		updatedAt, convErr := time.Parse(time.RFC3339, rec[6])
		if convErr != nil {
			return AvailabilitySample{}, fmt.Errorf("parse updated_at: %w", convErr)
		}
		sample.UpdatedAt = updatedAt
	}
	return sample, nil
}

var _ HistoryStore = (*HistoryFile)(nil)
