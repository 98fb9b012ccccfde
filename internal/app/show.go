package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"room-diff-alerts/internal/storage"
)

// Show prints the most recent history rows.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	history := storage.NewHistoryFile(a.Config.Files.HistoryPath)

	samples, err := history.ListRecent(opts.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no history recorded")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tHotel\tRoom\tAvailable\tPrice\tSampled (UTC)\tUpdated (UTC)")

	for _, sample := range samples {
		price := ""
		if sample.Price != nil {
			price = sample.Price.StringFixed(2)
		}
		updated := ""
		if !sample.UpdatedAt.IsZero() {
			updated = sample.UpdatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			sample.Date.Format(storage.DateLayout),
			sample.HotelCode,
			sample.RoomCode,
			sample.Available,
			price,
			sample.SampledAt.UTC().Format(time.RFC3339),
			updated,
		)
	}

	writer.Flush()
	return nil
}
