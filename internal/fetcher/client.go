package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"room-diff-alerts/internal/storage"
)

const (
	defaultMaxChunkDays = 31
	defaultRequestDelay = 10 * time.Millisecond
)

// requestDateLayout is the upstream query-parameter date format.
const requestDateLayout = "01/02/2006"

// ChunkError marks a single chunk request whose response could not be used.
// The chunk contributes zero samples; the rest of the fetch proceeds.
type ChunkError struct {
	HotelCode string
	Start     time.Time
	Days      int
	Err       error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("availability chunk %s %s +%dd: %v", e.HotelCode, e.Start.Format(storage.DateLayout), e.Days, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Options parameterise the availability client.
type Options struct {
	BaseURL      string
	Property     string
	RateCode     string
	MaxChunkDays int
	RequestDelay time.Duration
	Timeout      time.Duration
	UserAgent    string
}

// Client fetches room availability from the upstream inventory API,
// partitioning the requested window into chunks no larger than the upstream
// per-request span limit and pacing consecutive requests.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient constructs an availability client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.MaxChunkDays <= 0 {
		opts.MaxChunkDays = defaultMaxChunkDays
	}
	if opts.RequestDelay <= 0 {
		opts.RequestDelay = defaultRequestDelay
	}
	if opts.RateCode == "" {
		opts.RateCode = "INTERNET"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "availability_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// Fetch retrieves the hotel's availability over [from, to] inclusive. Failed
// chunks are logged and skipped; the aggregate is the concatenation of the
// surviving chunk results in date order.
func (c *Client) Fetch(ctx context.Context, hotelCode string, from, to time.Time) ([]storage.AvailabilitySample, error) {
	if c.baseURL == "" {
		return nil, errors.New("availability base url not configured")
	}
	if c.opts.Property == "" {
		return nil, errors.New("availability property not configured")
	}
	if hotelCode == "" {
		return nil, errors.New("hotel code required")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("date window inverted: %s after %s", from.Format(storage.DateLayout), to.Format(storage.DateLayout))
	}

	var samples []storage.AvailabilitySample
	for _, ch := range splitRange(from, to, c.opts.MaxChunkDays) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunkSamples, err := c.fetchChunk(ctx, hotelCode, ch)
		if err != nil {
			c.logger.Warn().Err(err).
				Str("hotel", hotelCode).
				Str("chunk_start", ch.start.Format(storage.DateLayout)).
				Int("chunk_days", ch.days).
				Msg("chunk fetch failed, skipping")
			continue
		}
		samples = append(samples, chunkSamples...)
	}
	return samples, nil
}

type chunk struct {
	start time.Time
	days  int
}

// splitRange partitions the inclusive window into consecutive chunks of at
// most maxDays calendar days.
func splitRange(from, to time.Time, maxDays int) []chunk {
	from = truncateDate(from)
	to = truncateDate(to)

	var chunks []chunk
	for start := from; !start.After(to); {
		days := daysBetween(start, to) + 1
		if days > maxDays {
			days = maxDays
		}
		chunks = append(chunks, chunk{start: start, days: days})
		start = start.AddDate(0, 0, days)
	}
	return chunks
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

type availabilityResponse struct {
	Availability map[string]availabilityDay `json:"availability"`
}

type availabilityDay struct {
	Date  string             `json:"date"`
	Rooms []availabilityRoom `json:"rooms"`
}

type availabilityRoom struct {
	RoomCode  string           `json:"roomCode"`
	Available int              `json:"available"`
	Price     *decimal.Decimal `json:"price"`
	RateCode  string           `json:"rateCode"`
	Updated   string           `json:"updated"`
}

func (c *Client) fetchChunk(ctx context.Context, hotelCode string, ch chunk) ([]storage.AvailabilitySample, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("date", ch.start.Format(requestDateLayout))
	params.Set("nights", "1")
	params.Set("limit", strconv.Itoa(ch.days))
	params.Set("rate_code", c.opts.RateCode)
	params.Set("is_group", "false")

	endpoint := fmt.Sprintf("%s/availability/rooms/%s/%s?%s", c.baseURL, c.opts.Property, hotelCode, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ChunkError{HotelCode: hotelCode, Start: ch.start, Days: ch.days, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ChunkError{HotelCode: hotelCode, Start: ch.start, Days: ch.days, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ChunkError{HotelCode: hotelCode, Start: ch.start, Days: ch.days, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		return nil, &ChunkError{HotelCode: hotelCode, Start: ch.start, Days: ch.days, Err: err}
	}

	samples, err := c.parseChunk(hotelCode, payload)
	if err != nil {
		return nil, &ChunkError{HotelCode: hotelCode, Start: ch.start, Days: ch.days, Err: err}
	}
	return samples, nil
}

func (c *Client) parseChunk(hotelCode string, payload []byte) ([]storage.AvailabilitySample, error) {
	var parsed availabilityResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Availability == nil {
		return nil, errors.New("response missing availability key")
	}

	sampledAt := time.Now().UTC()

	type dayRow struct {
		date time.Time
		day  availabilityDay
	}
	days := make([]dayRow, 0, len(parsed.Availability))
	for _, day := range parsed.Availability {
		date, err := parseUpstreamDate(day.Date)
		if err != nil {
			return nil, fmt.Errorf("parse day date %q: %w", day.Date, err)
		}
		days = append(days, dayRow{date: date, day: day})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })

	var samples []storage.AvailabilitySample
	for _, row := range days {
		for _, room := range row.day.Rooms {
			// Exclusive and negotiated rates do not represent public
			// availability.
			if room.RateCode != c.opts.RateCode {
				continue
			}
			samples = append(samples, storage.AvailabilitySample{
				Date:      row.date,
				HotelCode: hotelCode,
				RoomCode:  room.RoomCode,
				Available: room.Available,
				Price:     room.Price,
				SampledAt: sampledAt,
				UpdatedAt: parseUpstreamTimestamp(room.Updated),
			})
		}
	}
	return samples, nil
}

// pace blocks until at least the configured delay has elapsed since the
// previous request, keeping the aggregate request rate within the upstream
// limit even when hotels are fetched concurrently.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	wait := c.opts.RequestDelay - time.Since(c.lastRequest)
	if !c.lastRequest.IsZero() && wait > 0 {
		c.lastRequest = c.lastRequest.Add(c.opts.RequestDelay)
		c.mu.Unlock()

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		return nil
	}

	c.lastRequest = time.Now()
	c.mu.Unlock()
	return nil
}

var upstreamDateLayouts = []string{
	storage.DateLayout,
	requestDateLayout,
	"2006-01-02T15:04:05",
}

func parseUpstreamDate(value string) (time.Time, error) {
	for _, layout := range upstreamDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return truncateDate(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date format %q", value)
}

var upstreamTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	storage.DateLayout,
}

func parseUpstreamTimestamp(value string) time.Time {
	for _, layout := range upstreamTimestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

var _ AvailabilityFetcher = (*Client)(nil)
