package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func sample(day string, hotel, room string, available int, price string) AvailabilitySample {
	date, err := time.Parse(DateLayout, day)
	if err != nil {
		panic(err)
	}
	s := AvailabilitySample{
		Date:      date,
		HotelCode: hotel,
		RoomCode:  room,
		Available: available,
		SampledAt: time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 6, 29, 23, 45, 0, 0, time.UTC),
	}
	if price != "" {
		p := decimal.RequireFromString(price)
		s.Price = &p
	}
	return s
}

func TestHistoryHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.csv")
	f := NewHistoryFile(path)

	if f.Exists() {
		t.Fatal("history should not exist before first append")
	}

	if err := f.Append([]AvailabilitySample{sample("2024-07-01", "LMT", "K2", 2, "199.00")}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := f.Append([]AvailabilitySample{sample("2024-07-01", "LMT", "K2", 0, "")}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "date,hotel_code") {
		t.Fatalf("first line should be the header, got %q", lines[0])
	}
	if strings.HasPrefix(lines[2], "date,") {
		t.Fatal("header repeated on second append")
	}
}

func TestHistoryAppendEmptyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.csv")
	f := NewHistoryFile(path)

	if err := f.Append(nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if f.Exists() {
		t.Fatal("empty append should not create the file")
	}
}

func TestHistoryListRecent(t *testing.T) {
	f := NewHistoryFile(filepath.Join(t.TempDir(), "saved.csv"))

	rows := []AvailabilitySample{
		sample("2024-07-01", "LMT", "K2", 0, ""),
		sample("2024-07-02", "LMT", "K2", 2, "215.50"),
		sample("2024-07-03", "MGH", "Q1", 1, "180.00"),
	}
	if err := f.Append(rows); err != nil {
		t.Fatalf("append: %v", err)
	}

	recent, err := f.ListRecent(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recent))
	}
	if recent[0].Date.Format(DateLayout) != "2024-07-02" {
		t.Errorf("tail should start at the second row, got %s", recent[0].Date)
	}

	got := recent[0]
	if got.Price == nil || got.Price.StringFixed(2) != "215.50" {
		t.Errorf("price mismatch: %#v", got.Price)
	}
	if got.Available != 2 || got.HotelCode != "LMT" || got.RoomCode != "K2" {
		t.Errorf("row mismatch: %#v", got)
	}
	if !got.SampledAt.Equal(rows[1].SampledAt) {
		t.Errorf("sampled_at mismatch: %s", got.SampledAt)
	}

	if recent[1].Price == nil {
		t.Error("third row should carry its price")
	}
}

func TestHistoryListRecentMissingFile(t *testing.T) {
	f := NewHistoryFile(filepath.Join(t.TempDir(), "saved.csv"))
	recent, err := f.ListRecent(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if recent != nil {
		t.Fatalf("expected no rows, got %d", len(recent))
	}
}

func TestHistoryNilPriceRoundTrip(t *testing.T) {
	f := NewHistoryFile(filepath.Join(t.TempDir(), "saved.csv"))

	if err := f.Append([]AvailabilitySample{sample("2024-07-01", "LMT", "K2", 0, "")}); err != nil {
		t.Fatalf("append: %v", err)
	}
	recent, err := f.ListRecent(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 row, got %d", len(recent))
	}
	if recent[0].Price != nil {
		t.Errorf("missing price should stay nil, got %v", recent[0].Price)
	}
}
