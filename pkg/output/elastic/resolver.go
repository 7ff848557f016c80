package elastic

import (
	"strings"
	"time"

	"github.com/certtools/intelmq-elastic-output/pkg/output/model"
)

const (
	// Event timestamps carry a fixed UTC offset suffix; anything else
	// is treated as unparseable and skipped.
	timestampLayout = "2006-01-02T15:04:05"
	utcOffsetSuffix = "+00:00"

	dateLayout = "2006-01-02"
)

// Timestamp fields examined for index rotation, in priority order.
// Names are post-sanitization ("time.source" -> "time_source").
var rotationTimeFields = []string{"time_source", "time_observation"}

// ResolveIndex returns the index an event should be written to. With
// rotation off that is always baseName. With rotation on, the name is
// suffixed with the calendar date of the first parseable timestamp
// field, or with defaultDate when the event carries none; the caller
// supplies the current date as defaultDate, so the fallback is the
// processing date.
func ResolveIndex(event model.Event, baseName string, rotate bool, defaultDate string) string {
	if !rotate {
		return baseName
	}

	eventDate := defaultDate

	for _, field := range rotationTimeFields {
		date, ok := parseEventDate(event[field])
		if ok {
			eventDate = date
			break
		}
	}

	return baseName + "-" + eventDate
}

// CurrentDate returns today's UTC date in the form used for rotated
// index suffixes.
func CurrentDate() string {
	return time.Now().UTC().Format(dateLayout)
}

func parseEventDate(value any) (string, bool) {
	s, ok := value.(string)
	if !ok || !strings.HasSuffix(s, utcOffsetSuffix) {
		return "", false
	}

	t, err := time.Parse(timestampLayout, strings.TrimSuffix(s, utcOffsetSuffix))
	if err != nil {
		return "", false
	}

	return t.Format(dateLayout), true
}
