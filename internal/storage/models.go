package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used in keys and durable files.
const DateLayout = "2006-01-02"

// AvailabilityKey identifies one (date, hotel, room) sample. Date is held as
// a plain YYYY-MM-DD string so the struct is usable as a map key.
type AvailabilityKey struct {
	Date      string
	HotelCode string
	RoomCode  string
}

// AvailabilitySample is one observed availability row. Samples are produced
// fresh every cycle and never mutated after creation.
type AvailabilitySample struct {
	Date      time.Time
	HotelCode string
	RoomCode  string
	Available int
	Price     *decimal.Decimal
	SampledAt time.Time
	UpdatedAt time.Time
}

// Key returns the composite key for the sample.
func (s AvailabilitySample) Key() AvailabilityKey {
	return AvailabilityKey{
		Date:      s.Date.Format(DateLayout),
		HotelCode: s.HotelCode,
		RoomCode:  s.RoomCode,
	}
}
