package invoice

import (
	"fmt"
	"time"
)

// Counter is the persisted allocation state for invoice numbers. A single
// counter document is shared by all writers and mutated only inside a
// store transaction.
type Counter struct {
	Prefix     string `json:"prefix"`
	NextNumber int64  `json:"next_number"`
}

// FormatNumber renders an invoice number as {prefix}-{year}-{seq} with the
// sequence zero padded to six digits
func FormatNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, seq)
}

// NumberForYear formats the counter's current value for the year of now
func (c *Counter) NumberForYear(now time.Time) string {
	return FormatNumber(c.Prefix, now.UTC().Year(), c.NextNumber)
}
