package handler

import (
	"fmt"
	"time"

	"github.com/jmerrifield20/hotelledger/internal/ledger"
)

// DisplayLayout is how block timestamps are shown to operators.
const DisplayLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders fractional Unix seconds in loc.
func FormatTimestamp(ts float64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return ledger.UnixSeconds(ts).In(loc).Format(DisplayLayout)
}

// FormatAmount renders a booking amount with two decimals. Text that does not
// parse as a number (only possible after tampering) is shown as stored.
func FormatAmount(amount ledger.Amount) string {
	v, err := amount.Float64()
	if err != nil {
		return amount.String()
	}
	return fmt.Sprintf("%.2f", v)
}
