package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// ErrNotConfigured indicates a store was constructed without a path.
var ErrNotConfigured = errors.New("storage: path not configured")

// SnapshotStore defines operations for the latest-availability view.
type SnapshotStore interface {
	Load() (map[AvailabilityKey]int, error)
	Save(snapshot map[AvailabilityKey]int) error
}

var snapshotHeader = []string{"date", "hotel_code", "room_code", "available"}

// SnapshotFile persists the snapshot as a CSV file that is fully rewritten
// each cycle. It is a point-in-time materialised view, not a log.
type SnapshotFile struct {
	path string
}

// NewSnapshotFile wires a snapshot store backed by the given path.
func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Load reads the prior snapshot, returning an empty mapping when no prior
// run exists.
func (f *SnapshotFile) Load() (map[AvailabilityKey]int, error) {
	if f.path == "" {
		return nil, ErrNotConfigured
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[AvailabilityKey]int{}, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	snapshot := make(map[AvailabilityKey]int, len(records))
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) != len(snapshotHeader) {
			return nil, fmt.Errorf("snapshot row %d: expected %d columns, got %d", i, len(snapshotHeader), len(rec))
		}
		available, convErr := strconv.Atoi(rec[3])
		if convErr != nil {
			return nil, fmt.Errorf("snapshot row %d: parse available: %w", i, convErr)
		}
		key := AvailabilityKey{Date: rec[0], HotelCode: rec[1], RoomCode: rec[2]}
		snapshot[key] = available
	}
	return snapshot, nil
}

// Save overwrites the snapshot file with the full current mapping, using
// write-temp-then-rename so a crash cannot corrupt the previous snapshot.
func (f *SnapshotFile) Save(snapshot map[AvailabilityKey]int) error {
	if f.path == "" {
		return ErrNotConfigured
	}

	keys := make([]AvailabilityKey, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		if keys[i].HotelCode != keys[j].HotelCode {
			return keys[i].HotelCode < keys[j].HotelCode
		}
		return keys[i].RoomCode < keys[j].RoomCode
	})

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(snapshotHeader); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, key := range keys {
		record := []string{key.Date, key.HotelCode, key.RoomCode, strconv.Itoa(snapshot[key])}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write snapshot row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	return WriteFileAtomic(f.path, buf.Bytes())
}

var _ SnapshotStore = (*SnapshotFile)(nil)
