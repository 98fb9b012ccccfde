package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func date(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func availabilityPayload(days map[string][]map[string]any) map[string]any {
	availability := make(map[string]any, len(days))
	for day, rooms := range days {
		availability[day] = map[string]any{"date": day, "rooms": rooms}
	}
	return map[string]any{"availability": availability}
}

func room(code string, available int, rateCode string) map[string]any {
	return map[string]any{
		"roomCode": code,
		"available": available,
		"price":    199.0,
		"rateCode": rateCode,
		"updated":  "2024-06-30T12:00:00Z",
	}
}

func testClient(baseURL string) *Client {
	return NewClient(Options{
		BaseURL:      baseURL,
		Property:     "glaciernationalparklodges",
		RateCode:     "INTERNET",
		MaxChunkDays: 31,
		RequestDelay: time.Millisecond,
		Timeout:      time.Second,
		UserAgent:    "test",
	}, noopLogger())
}

func TestSplitRange(t *testing.T) {
	from := date("2024-06-01")

	cases := []struct {
		name    string
		days    int
		max     int
		lengths []int
	}{
		{"65 days in 31-day chunks", 65, 31, []int{31, 31, 3}},
		{"single day", 1, 31, []int{1}},
		{"exact multiple", 62, 31, []int{31, 31}},
		{"window smaller than limit", 10, 31, []int{10}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := splitRange(from, from.AddDate(0, 0, tc.days-1), tc.max)
			if len(chunks) != len(tc.lengths) {
				t.Fatalf("expected %d chunks, got %d", len(tc.lengths), len(chunks))
			}
			next := from
			for i, ch := range chunks {
				if !ch.start.Equal(next) {
					t.Errorf("chunk %d start %s, want %s", i, ch.start, next)
				}
				if ch.days != tc.lengths[i] {
					t.Errorf("chunk %d days %d, want %d", i, ch.days, tc.lengths[i])
				}
				next = next.AddDate(0, 0, ch.days)
			}
		})
	}
}

func TestFetchChunking(t *testing.T) {
	var limits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limits = append(limits, r.URL.Query().Get("limit"))
		if got := r.URL.Query().Get("rate_code"); got != "INTERNET" {
			t.Errorf("rate_code = %q, want INTERNET", got)
		}
		if got := r.URL.Query().Get("nights"); got != "1" {
			t.Errorf("nights = %q, want 1", got)
		}
		_ = json.NewEncoder(w).Encode(availabilityPayload(nil))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if _, err := c.Fetch(context.Background(), "LMT", date("2024-06-01"), date("2024-08-04")); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []string{"31", "31", "3"}
	if len(limits) != len(want) {
		t.Fatalf("期望 %d 次请求, 实际 %d 次", len(want), len(limits))
	}
	for i, limit := range limits {
		if limit != want[i] {
			t.Errorf("request %d limit = %s, want %s", i, limit, want[i])
		}
	}
}

func TestFetchFiltersExclusiveRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := availabilityPayload(map[string][]map[string]any{
			"2024-07-01": {
				room("K2", 2, "INTERNET"),
				room("K2", 4, "EMPLOYEE"),
			},
		})
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	samples, err := c.Fetch(context.Background(), "LMT", date("2024-07-01"), date("2024-07-01"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(samples) != 1 {
		t.Fatalf("非公开价应被过滤, 期望 1 条样本, 实际 %d", len(samples))
	}
	s := samples[0]
	if s.RoomCode != "K2" || s.HotelCode != "LMT" || s.Available != 2 {
		t.Errorf("unexpected sample: %#v", s)
	}
	if s.Price == nil || s.Price.StringFixed(2) != "199.00" {
		t.Errorf("price not carried through: %#v", s.Price)
	}
	if s.SampledAt.IsZero() {
		t.Error("sampled_at should be set to the fetch-time clock")
	}
	if s.UpdatedAt.IsZero() {
		t.Error("updated_at should be parsed from the response")
	}
}

func TestFetchMalformedChunkSkipped(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			fmt.Fprint(w, "not json at all")
			return
		}
		payload := availabilityPayload(map[string][]map[string]any{
			r.URL.Query().Get("date"): nil,
			"2024-08-01":              {room("Q1", 1, "INTERNET")},
		})
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	samples, err := c.Fetch(context.Background(), "MGH", date("2024-06-01"), date("2024-08-04"))
	if err != nil {
		t.Fatalf("坏块不应中断整个抓取: %v", err)
	}
	if requests != 3 {
		t.Fatalf("expected all 3 chunks requested, got %d", requests)
	}
	if len(samples) != 2 {
		t.Fatalf("expected samples from the 2 good chunks, got %d", len(samples))
	}
}

func TestFetchErrorStatusSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	samples, err := c.Fetch(context.Background(), "LMT", date("2024-07-01"), date("2024-07-05"))
	if err != nil {
		t.Fatalf("HTTP 错误应按块跳过: %v", err)
	}
	if len(samples) != 0 {
		t.Fatalf("expected zero samples, got %d", len(samples))
	}
}

func TestFetchDateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := availabilityPayload(map[string][]map[string]any{
			"2024-07-03": {room("K2", 1, "INTERNET")},
			"2024-07-01": {room("K2", 0, "INTERNET")},
			"2024-07-02": {room("K2", 2, "INTERNET")},
		})
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	samples, err := c.Fetch(context.Background(), "LMT", date("2024-07-01"), date("2024-07-03"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Date.Before(samples[i-1].Date) {
			t.Fatalf("samples not in date order: %s before %s", samples[i].Date, samples[i-1].Date)
		}
	}
}

func TestFetchInvalidArguments(t *testing.T) {
	c := testClient("http://localhost")

	if _, err := c.Fetch(context.Background(), "", date("2024-07-01"), date("2024-07-02")); err == nil {
		t.Error("缺少酒店代码时应报错")
	}
	if _, err := c.Fetch(context.Background(), "LMT", date("2024-07-02"), date("2024-07-01")); err == nil {
		t.Error("日期窗口颠倒时应报错")
	}
}
