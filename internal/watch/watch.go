package watch

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"room-diff-alerts/internal/storage"
)

// HotelEntry selects room codes within one hotel.
type HotelEntry struct {
	HotelCode string   `json:"hotel_code"`
	RoomCodes []string `json:"room_codes"`
}

// Entry is one operator-supplied watch rule: the cross product of its dates,
// hotels, and per-hotel room codes is eligible for notification.
type Entry struct {
	Dates  []string     `json:"dates"`
	Hotels []HotelEntry `json:"hotels"`
}

// Load reads and validates the watch-list file.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watch list: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse watch list: %w", err)
	}

	for i, entry := range entries {
		for _, date := range entry.Dates {
			if _, err := time.Parse(storage.DateLayout, date); err != nil {
				return nil, fmt.Errorf("watch entry %d: invalid date %q: %w", i, date, err)
			}
		}
		for _, hotel := range entry.Hotels {
			if hotel.HotelCode == "" {
				return nil, fmt.Errorf("watch entry %d: empty hotel_code", i)
			}
		}
	}
	return entries, nil
}

// Expand flattens entries into the AvailabilityKey list consumed by the
// diff engine.
func Expand(entries []Entry) []storage.AvailabilityKey {
	var keys []storage.AvailabilityKey
	for _, entry := range entries {
		for _, date := range entry.Dates {
			for _, hotel := range entry.Hotels {
				for _, room := range hotel.RoomCodes {
					keys = append(keys, storage.AvailabilityKey{
						Date:      date,
						HotelCode: hotel.HotelCode,
						RoomCode:  room,
					})
				}
			}
		}
	}
	return keys
}

// Hotels returns the distinct hotel codes named by entries, in
// first-occurrence order. These are the hotels a cycle fetches.
func Hotels(entries []Entry) []string {
	var hotels []string
	seen := make(map[string]struct{})
	for _, entry := range entries {
		for _, hotel := range entry.Hotels {
			if _, dup := seen[hotel.HotelCode]; dup {
				continue
			}
			seen[hotel.HotelCode] = struct{}{}
			hotels = append(hotels, hotel.HotelCode)
		}
	}
	return hotels
}
