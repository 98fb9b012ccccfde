package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ClientOptions parameterise the catalog client.
type ClientOptions struct {
	BaseURL   string
	Property  string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches the hotel and room reference data from the upstream
// property catalog.
type Client struct {
	opts    ClientOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a catalog client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "catalog_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type hotelEntry struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

type roomEntry struct {
	Code         string `json:"code"`
	Title        string `json:"title"`
	OccupancyMax int    `json:"occupancyMax"`
}

// HotelRooms builds the full reference table: the hotel list joined with
// each hotel's room list.
func (c *Client) HotelRooms(ctx context.Context) ([]RoomMetadata, error) {
	hotels, err := c.hotels(ctx)
	if err != nil {
		return nil, err
	}

	var rows []RoomMetadata
	for _, hotel := range hotels {
		rooms, err := c.rooms(ctx, hotel.Code)
		if err != nil {
			return nil, err
		}
		for _, room := range rooms {
			rows = append(rows, RoomMetadata{
				HotelCode:    hotel.Code,
				RoomCode:     room.Code,
				RoomTitle:    room.Title,
				MaxOccupancy: room.OccupancyMax,
				HotelTitle:   hotel.Title,
			})
		}
	}
	return rows, nil
}

func (c *Client) hotels(ctx context.Context) ([]hotelEntry, error) {
	endpoint := fmt.Sprintf("%s/property/hotels/%s", c.baseURL, c.opts.Property)

	var byCode map[string]hotelEntry
	if err := c.getJSON(ctx, endpoint, &byCode); err != nil {
		return nil, fmt.Errorf("fetch hotels: %w", err)
	}
	if len(byCode) == 0 {
		return nil, errors.New("catalog returned no hotels")
	}
	return sortedValues(byCode), nil
}

func (c *Client) rooms(ctx context.Context, hotelCode string) ([]roomEntry, error) {
	endpoint := fmt.Sprintf("%s/property/rooms/%s/%s", c.baseURL, c.opts.Property, hotelCode)

	var byCode map[string]roomEntry
	if err := c.getJSON(ctx, endpoint, &byCode); err != nil {
		return nil, fmt.Errorf("fetch rooms for %s: %w", hotelCode, err)
	}

	rooms := make([]roomEntry, 0, len(byCode))
	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		rooms = append(rooms, byCode[code])
	}
	return rooms, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	if c.baseURL == "" {
		return errors.New("catalog base url not configured")
	}
	if c.opts.Property == "" {
		return errors.New("catalog property not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp.StatusCode, payload)
	}

	return json.Unmarshal(payload, out)
}

func sortedValues(byCode map[string]hotelEntry) []hotelEntry {
	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	hotels := make([]hotelEntry, 0, len(codes))
	for _, code := range codes {
		hotels = append(hotels, byCode[code])
	}
	return hotels
}

type errorResponse struct {
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Description != "" {
			return fmt.Errorf("catalog api error (%d): %s", status, apiErr.Description)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("catalog api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.ErrorType != "" {
			return fmt.Errorf("catalog api error (%d): %s", status, apiErr.ErrorType)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("catalog api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("catalog api error (%d)", status)
}
