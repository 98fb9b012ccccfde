package app

import (
	"context"
	"errors"

	"room-diff-alerts/internal/alerting"
	"room-diff-alerts/internal/catalog"
)

// SimulateAlert 构造一次合成的可用性变更并走完整的告警投递流程。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	change := alerting.Change{
		Date:       opts.Date,
		HotelCode:  opts.HotelCode,
		RoomCode:   opts.RoomCode,
		HotelTitle: opts.HotelCode,
		RoomTitle:  opts.RoomCode,
		Opened:     !opts.Closed,
		Closed:     opts.Closed,
		Link:       alerting.BookingLink(a.Config.Alerting.BookingBaseURL, opts.HotelCode, opts.Date),
	}

	// Join titles when the reference table is reachable; codes are good
	// enough for a simulated message otherwise.
	if rows, err := a.newMetadataStore().Load(ctx); err == nil {
		key := catalog.RoomKey{HotelCode: opts.HotelCode, RoomCode: opts.RoomCode}
		if meta, ok := catalog.Index(rows)[key]; ok {
			change.HotelTitle = meta.HotelTitle
			change.RoomTitle = meta.RoomTitle
			change.MaxOccupancy = meta.MaxOccupancy
		}
	} else {
		a.Logger.Warn().Err(err).Msg("metadata unavailable for simulation, using raw codes")
	}

	note := alerting.Notification{
		Changes:    []alerting.Change{change},
		Recipients: a.Config.Alerting.Recipients,
	}
	return notifier.Notify(ctx, note)
}
