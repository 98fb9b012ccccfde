package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"room-diff-alerts/internal/app"
	"room-diff-alerts/internal/config"
)

var (
	simulateDate   string
	simulateHotel  string
	simulateRoom   string
	simulateClosed bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次可用性变更并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateHotel == "" || simulateRoom == "" {
			return errors.New("--hotel 与 --room 必须提供")
		}

		date, err := time.Parse(config.DateLayout, simulateDate)
		if err != nil {
			return fmt.Errorf("invalid --date value: %w", err)
		}

		opts := app.SimulateOptions{
			Date:      date,
			HotelCode: simulateHotel,
			RoomCode:  simulateRoom,
			Closed:    simulateClosed,
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateDate, "date", "", "入住日期 (YYYY-MM-DD)")
	simulateCmd.Flags().StringVar(&simulateHotel, "hotel", "", "酒店代码")
	simulateCmd.Flags().StringVar(&simulateRoom, "room", "", "房型代码")
	simulateCmd.Flags().BoolVar(&simulateClosed, "closed", false, "模拟房型变为不可用")
}
