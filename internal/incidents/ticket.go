package incidents

import (
	"fmt"
	"strconv"
	"time"
)

// TicketNumber builds an internal ticket number of the form CY-XXXXXX-NNN,
// where XXXXXX are the trailing six digits of the millisecond timestamp and
// NNN is a zero-padded random suffix that disambiguates tickets created
// within the same millisecond.
func TicketNumber(now time.Time, suffix int) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return fmt.Sprintf("CY-%s-%03d", ms, suffix%1000)
}
