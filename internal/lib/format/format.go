// Package format renders sizes, confidences and backend timestamps the way the
// dashboard shows them.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

var sizes = []string{"Bytes", "KB", "MB", "GB"}

// Bytes renders n with a base-1024 unit, rounded to two decimals with trailing
// zeros dropped. Values past the GB range stay in GB.
func Bytes(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}

	v := float64(n)
	i := 0
	for v >= 1024 && i < len(sizes)-1 {
		v /= 1024
		i++
	}

	v = math.Round(v*100) / 100

	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizes[i]
}

// Confidence renders a [0,1] score as a percentage with one decimal.
func Confidence(c float64) string {
	return fmt.Sprintf("%.1f%%", c*100)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

const displayLayout = "Jan 02, 2006, 03:04:05 PM"

// Timestamp renders a backend timestamp. Unknown layouts are returned as is.
func Timestamp(s string) string {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(displayLayout)
		}
	}

	return s
}
