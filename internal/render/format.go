package render

import (
	"io"
	"log"
	"strings"
	"time"
)

// DisplayLayout is the long-form layout used for every displayed timestamp
const DisplayLayout = "January 2, 2006 at 15:04"

// Logger receives formatter diagnostics. Discarded unless replaced.
var Logger = log.New(io.Discard, "", 0)

var timestampLayouts = []string{
	"2006-01-02T15:04:05", // also accepts fractional seconds
	"2006-01-02T15:04",
}

// FormatTimestamp turns a server timestamp such as "2025-01-19 18:30:00" into
// "January 19, 2025 at 18:30". Input that does not parse is returned as is.
func FormatTimestamp(s string) string {
	normalized := strings.Replace(strings.TrimSpace(s), " ", "T", 1)

	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, normalized)
		if err == nil {
			return t.Format(DisplayLayout)
		}
		lastErr = err
	}

	Logger.Printf("Error formatting date %q: %v", s, lastErr)
	return s
}
