package normalize

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FormatMarketCap renders a market cap as an abbreviated dollar string:
// "$1.5B", "$7.2M", "$2.5K", "$999". Nil or NaN renders as "N/A".
func FormatMarketCap(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "N/A"
	}
	val := *v
	switch {
	case val >= 1e9:
		return fmt.Sprintf("$%.1fB", val/1e9)
	case val >= 1e6:
		return fmt.Sprintf("$%.1fM", val/1e6)
	case val >= 1e3:
		return fmt.Sprintf("$%.1fK", val/1e3)
	default:
		return "$" + strconv.FormatFloat(val, 'f', -1, 64)
	}
}

// FormatChange renders a percentage-change field, or "-" when absent.
func FormatChange(v *float64) string {
	if v == nil || math.IsNaN(*v) {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// FormatAge derives the human age string, the age in seconds and the creation
// timestamp in ms from an RFC3339 creation time. A missing or unparsable
// value fails soft to ("Unknown", 0, 0).
func FormatAge(created *string, now time.Time) (age string, ageValue int64, timestamp int64) {
	if created == nil {
		return "Unknown", 0, 0
	}
	t, err := time.Parse(time.RFC3339, *created)
	if err != nil {
		return "Unknown", 0, 0
	}

	timestamp = t.UnixMilli()
	secs := int64(now.Sub(t).Seconds())
	ageValue = secs

	mins := secs / 60
	hours := mins / 60
	days := hours / 24
	months := days / 30
	years := months / 12

	switch {
	case secs < 60:
		age = fmt.Sprintf("%ds", secs)
	case mins < 60:
		age = fmt.Sprintf("%dm", mins)
	case hours < 24:
		age = fmt.Sprintf("%dh", hours)
	case days < 30:
		age = fmt.Sprintf("%dd", days)
	case months < 12:
		age = fmt.Sprintf("%dmo", months)
	default:
		age = fmt.Sprintf("%dy", years)
	}
	return age, ageValue, timestamp
}
