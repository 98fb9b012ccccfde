package cli

import (
	"github.com/spf13/cobra"

	"room-diff-alerts/internal/app"
)

var (
	exportHotel     string
	exportRoom      string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			HotelCode: exportHotel,
			RoomCode:  exportRoom,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportHotel, "hotel", "", "Restrict export to one hotel code")
	exportCmd.Flags().StringVar(&exportRoom, "room", "", "Restrict export to one room code")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart (requires --hotel and --room)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
