package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"room-diff-alerts/internal/storage"
)

// Export renders recorded history as CSV and/or a PNG availability chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.PNGPath != "" && (opts.HotelCode == "" || opts.RoomCode == "") {
		return errors.New("--hotel and --room are required when exporting a chart")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	history := storage.NewHistoryFile(a.Config.Files.HistoryPath)
	samples, err := history.ListRecent(0)
	if err != nil {
		return err
	}

	filtered := filterSamples(samples, opts.HotelCode, opts.RoomCode)
	if len(filtered) == 0 {
		a.Logger.Info().Msg("no history rows matched the export filter")
		return nil
	}

	downsampled := downsampleSamples(filtered, opts.MaxPoints)
	a.Logger.Info().Int("total", len(filtered)).Int("exported", len(downsampled)).Msg("exporting history")

	if opts.CSVPath != "" {
		if err := writeSamplesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSamplesPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func filterSamples(samples []storage.AvailabilitySample, hotelCode, roomCode string) []storage.AvailabilitySample {
	if hotelCode == "" && roomCode == "" {
		return samples
	}
	var filtered []storage.AvailabilitySample
	for _, sample := range samples {
		if hotelCode != "" && sample.HotelCode != hotelCode {
			continue
		}
		if roomCode != "" && sample.RoomCode != roomCode {
			continue
		}
		filtered = append(filtered, sample)
	}
	return filtered
}

func downsampleSamples(samples []storage.AvailabilitySample, max int) []storage.AvailabilitySample {
	if max <= 0 || len(samples) <= max {
		return samples
	}

	result := make([]storage.AvailabilitySample, 0, max)
	step := float64(len(samples)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		result = append(result, samples[idx])
	}
	return result
}

func writeSamplesCSV(path string, samples []storage.AvailabilitySample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "hotel_code", "room_code", "available", "price", "sampled_at", "updated_at"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sample := range samples {
		price := ""
		if sample.Price != nil {
			price = sample.Price.String()
		}
		updated := ""
		if !sample.UpdatedAt.IsZero() {
			updated = sample.UpdatedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			sample.Date.Format(storage.DateLayout),
			sample.HotelCode,
			sample.RoomCode,
			strconv.Itoa(sample.Available),
			price,
			sample.SampledAt.UTC().Format(time.RFC3339),
			updated,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSamplesPNG(path string, samples []storage.AvailabilitySample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(samples))
	available := make([]float64, len(samples))
	price := make([]float64, len(samples))
	hasPrice := false

	for i, sample := range samples {
		x[i] = sample.SampledAt
		available[i] = float64(sample.Available)
		if sample.Price != nil {
			price[i] = sample.Price.InexactFloat64()
			hasPrice = true
		}
	}

	countFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Rooms available",
			ValueFormatter: countFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Available",
				XValues: x,
				YValues: available,
			},
		},
	}
	if hasPrice {
		graph.YAxisSecondary = chart.YAxis{
			Name: "Price",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.2f")
			},
		}
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "Price",
			XValues: x,
			YValues: price,
			YAxis:   chart.YAxisSecondary,
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
