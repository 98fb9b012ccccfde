package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/property/hotels/glaciernationalparklodges":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"LMT": map[string]any{"code": "LMT", "title": "Lake McDonald Lodge"},
				"MGH": map[string]any{"code": "MGH", "title": "Many Glacier Hotel"},
			})
		case "/property/rooms/glaciernationalparklodges/LMT":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"K2": map[string]any{"code": "K2", "title": "Main Lodge King", "occupancyMax": 2},
			})
		case "/property/rooms/glaciernationalparklodges/MGH":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"Q1": map[string]any{"code": "Q1", "title": "Value Double Queen", "occupancyMax": 4},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(baseURL string) *Client {
	return NewClient(ClientOptions{
		BaseURL:   baseURL,
		Property:  "glaciernationalparklodges",
		Timeout:   time.Second,
		UserAgent: "test",
	}, noopLogger())
}

func TestStoreLoadBuildsFromCatalog(t *testing.T) {
	srv := catalogServer(t)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "titles.csv")
	store := NewStore(path, newTestClient(srv.URL), noopLogger())

	rows, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := []RoomMetadata{
		{HotelCode: "LMT", RoomCode: "K2", RoomTitle: "Main Lodge King", MaxOccupancy: 2, HotelTitle: "Lake McDonald Lodge"},
		{HotelCode: "MGH", RoomCode: "Q1", RoomTitle: "Value Double Queen", MaxOccupancy: 4, HotelTitle: "Many Glacier Hotel"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("catalog table mismatch:\ngot:  %#v\nwant: %#v", rows, want)
	}

	// Persistence is deferred to end-of-cycle: a catalog-built table must
	// not touch the disk.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("load from catalog should not create the titles file")
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.csv")
	store := NewStore(path, nil, noopLogger())

	price := decimal.RequireFromString("212.34")
	want := []RoomMetadata{
		{HotelCode: "LMT", RoomCode: "K2", RoomTitle: "Main Lodge King", MaxOccupancy: 2, HotelTitle: "Lake McDonald Lodge", LatestPrice: &price},
		{HotelCode: "MGH", RoomCode: "Q1", RoomTitle: "Value Double Queen", MaxOccupancy: 4, HotelTitle: "Many Glacier Hotel"},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("roundtrip mismatch:\ngot:  %#v\nwant: %#v", got, want)
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.csv")
	store := NewStore(path, nil, noopLogger())

	if err := store.Save([]RoomMetadata{{HotelCode: "LMT", RoomCode: "K2"}}); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second := []RoomMetadata{{HotelCode: "MGH", RoomCode: "Q1", HotelTitle: "Many Glacier Hotel"}}
	if err := store.Save(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, second) {
		t.Fatalf("save should overwrite atomically, got %#v", got)
	}
}

func TestStoreLoadMissingWithoutClient(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "titles.csv"), nil, noopLogger())
	if _, err := store.Load(context.Background()); err == nil {
		t.Fatal("expected error when titles absent and catalog unreachable")
	}
}

func TestClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "down for maintenance"})
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).HotelRooms(context.Background()); err == nil {
		t.Fatal("目录接口失败时应报错")
	}
}

func TestIndex(t *testing.T) {
	rows := []RoomMetadata{
		{HotelCode: "LMT", RoomCode: "K2", HotelTitle: "Lake McDonald Lodge"},
	}
	index := Index(rows)
	meta, ok := index[RoomKey{HotelCode: "LMT", RoomCode: "K2"}]
	if !ok || meta.HotelTitle != "Lake McDonald Lodge" {
		t.Fatalf("index lookup failed: %#v", index)
	}
}
