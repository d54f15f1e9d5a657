// Package wire holds small wire-format types shared by every ingress
// transport (HTTP and MQTT), so each transport's DTOs decode payloads the
// same way without depending on each other.
package wire

import (
	"fmt"
	"strings"
	"time"
)

// localDateTimeLayout is the ISO-8601 local datetime format vehicle units
// send: no timezone offset, matching the device's own clock.
const localDateTimeLayout = "2006-01-02T15:04:05"

// LocalDateTime unmarshals JSON string timestamps in local-datetime form
// (yyyy-MM-ddTHH:mm:ss). Go's time.Time default JSON codec requires an
// RFC3339 offset and rejects this format outright.
type LocalDateTime struct {
	time.Time
}

func (t *LocalDateTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	parsed, err := time.Parse(localDateTimeLayout, raw)
	if err != nil {
		return fmt.Errorf("timestamp must be formatted as %s: %w", localDateTimeLayout, err)
	}
	t.Time = parsed
	return nil
}

func (t LocalDateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Time.Format(localDateTimeLayout) + `"`), nil
}
