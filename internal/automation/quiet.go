package automation

import (
	"time"

	"github.com/leadengine/backend/internal/models"
)

// InQuietHours reports whether the instant falls inside the supplier's quiet
// window, evaluated in the supplier's configured timezone.
func InQuietHours(qh models.QuietHours, now time.Time) (bool, error) {
	loc, err := time.LoadLocation(qh.Timezone)
	if err != nil {
		return false, err
	}
	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()
	return minuteInWindow(minute, qh.StartMinute, qh.EndMinute), nil
}

// minuteInWindow checks membership in [start,end) minutes-of-day, wrapping
// past midnight when end < start. start == end means no window.
func minuteInWindow(m, start, end int) bool {
	if start == end {
		return false
	}
	if end > start {
		return m >= start && m < end
	}
	return m >= start || m < end
}
