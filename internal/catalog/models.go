package catalog

import (
	"github.com/shopspring/decimal"
)

// RoomKey identifies one room type within one hotel.
type RoomKey struct {
	HotelCode string
	RoomCode  string
}

// RoomMetadata is one row of the hotel/room reference table. LatestPrice is
// nil until the room has been observed with a price at least once.
type RoomMetadata struct {
	HotelCode    string
	RoomCode     string
	RoomTitle    string
	MaxOccupancy int
	HotelTitle   string
	LatestPrice  *decimal.Decimal
}

// Key returns the composite key for the row.
func (m RoomMetadata) Key() RoomKey {
	return RoomKey{HotelCode: m.HotelCode, RoomCode: m.RoomCode}
}

// Index maps a metadata slice by RoomKey for join lookups.
func Index(rows []RoomMetadata) map[RoomKey]RoomMetadata {
	index := make(map[RoomKey]RoomMetadata, len(rows))
	for _, row := range rows {
		index[row.Key()] = row
	}
	return index
}
