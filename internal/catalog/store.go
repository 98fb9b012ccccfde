package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"room-diff-alerts/internal/storage"
)

// MetadataStore defines operations for the room reference table.
type MetadataStore interface {
	Load(ctx context.Context) ([]RoomMetadata, error)
	Save(rows []RoomMetadata) error
}

var titlesHeader = []string{"hotel_code", "room_code", "room_title", "max_occupancy", "hotel_title", "latest_price"}

// Store reads the reference table from disk, falling back to the upstream
// catalog when no table has been persisted yet. The catalog-built table is
// returned without persisting it; the save happens at end-of-cycle, so a
// first run whose catalog fetch fails leaves no half-written file behind.
type Store struct {
	path   string
	client *Client
	logger zerolog.Logger
}

// NewStore wires a metadata store.
func NewStore(path string, client *Client, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		client: client,
		logger: logger.With().Str("component", "metadata_store").Logger(),
	}
}

// Load returns the full reference table.
func (s *Store) Load(ctx context.Context) ([]RoomMetadata, error) {
	if s.path == "" {
		return nil, storage.ErrNotConfigured
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read titles: %w", err)
		}
		if s.client == nil {
			return nil, errors.New("titles file absent and no catalog client configured")
		}
		s.logger.Info().Str("path", s.path).Msg("titles file absent, building table from upstream catalog")
		return s.client.HotelRooms(ctx)
	}

	return parseTitles(data)
}

// Save atomically overwrites the persisted table.
func (s *Store) Save(rows []RoomMetadata) error {
	if s.path == "" {
		return storage.ErrNotConfigured
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(titlesHeader); err != nil {
		return fmt.Errorf("write titles header: %w", err)
	}

	for _, row := range rows {
		price := ""
		if row.LatestPrice != nil {
			price = row.LatestPrice.String()
		}
		record := []string{
			row.HotelCode,
			row.RoomCode,
			row.RoomTitle,
			strconv.Itoa(row.MaxOccupancy),
			row.HotelTitle,
			price,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write titles row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	return storage.WriteFileAtomic(s.path, buf.Bytes())
}

func parseTitles(data []byte) ([]RoomMetadata, error) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse titles: %w", err)
	}

	rows := make([]RoomMetadata, 0, len(records))
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) != len(titlesHeader) {
			return nil, fmt.Errorf("titles row %d: expected %d columns, got %d", i, len(titlesHeader), len(rec))
		}

		occupancy := 0
		if rec[3] != "" {
			occupancy, err = strconv.Atoi(rec[3])
			if err != nil {
				return nil, fmt.Errorf("titles row %d: parse max_occupancy: %w", i, err)
			}
		}

		row := RoomMetadata{
			HotelCode:    rec[0],
			RoomCode:     rec[1],
			RoomTitle:    rec[2],
			MaxOccupancy: occupancy,
			HotelTitle:   rec[4],
		}
		if rec[5] != "" {
			price, convErr := decimal.NewFromString(rec[5])
			if convErr != nil {
				return nil, fmt.Errorf("titles row %d: parse latest_price: %w", i, convErr)
			}
			row.LatestPrice = &price
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var _ MetadataStore = (*Store)(nil)
