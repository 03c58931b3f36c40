// Package evidence renders retrieved restaurants into the numbered context block handed to generation.
package evidence

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/platepick/internal/domain/restaurant"
)

// Format numbers each record's evidence text from 1, one per line.
// An empty input yields an empty string.
func Format(records []restaurant.Restaurant) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	for i := range records {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(records[i].Evidence)
		b.WriteByte('\n')
	}
	return b.String()
}
