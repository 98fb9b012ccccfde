package alerting

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"room-diff-alerts/internal/storage"
)

// Change 是一条已与房型元数据联接的可用性变更。
type Change struct {
	Date         time.Time
	HotelCode    string
	RoomCode     string
	HotelTitle   string
	RoomTitle    string
	MaxOccupancy int
	Opened       bool
	Closed       bool
	Link         string
}

// Notification 封装一次告警的全部上下文。
type Notification struct {
	Changes    []Change
	Recipients []string
}

// Notifier 定义告警投递接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// linkDateLayout is the booking page's query-parameter date format.
const linkDateLayout = "01-02-2006"

// BookingLink builds the deep-link into the booking flow for one hotel and
// date.
func BookingLink(baseURL, hotelCode string, date time.Time) string {
	params := url.Values{}
	params.Set("dateFrom", date.Format(linkDateLayout))
	params.Set("nights", "1")
	params.Set("destination", hotelCode)
	params.Set("adults", "1")
	params.Set("children", "0")
	return strings.TrimRight(baseURL, "/") + "?" + params.Encode()
}

func renderBody(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("<pre>")

	if opened := filterChanges(note.Changes, func(c Change) bool { return c.Opened }); len(opened) > 0 {
		builder.WriteString("The following hotel rooms have become <b>available</b>:<hr><p>")
		writeChangeRows(&builder, opened)
		builder.WriteString("</p><hr>")
	}
	if closed := filterChanges(note.Changes, func(c Change) bool { return c.Closed }); len(closed) > 0 {
		builder.WriteString("The following hotel rooms have become <b>unavailable</b>:<br><p>")
		writeChangeRows(&builder, closed)
		builder.WriteString("</p><hr>")
	}

	builder.WriteString("</pre>")
	return builder.String()
}

func writeChangeRows(builder *strings.Builder, changes []Change) {
	for _, change := range changes {
		builder.WriteString(fmt.Sprintf(
			"%s  %s  %s  <a href='%s'>link</a>\n",
			change.Date.Format(storage.DateLayout),
			html.EscapeString(change.HotelTitle),
			html.EscapeString(change.RoomTitle),
			change.Link,
		))
	}
}

func filterChanges(changes []Change, keep func(Change) bool) []Change {
	var out []Change
	for _, change := range changes {
		if keep(change) {
			out = append(out, change)
		}
	}
	return out
}
