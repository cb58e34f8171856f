package engine

import (
	"time"

	"github.com/atlas-desktop/session-engine/pkg/types"
)

// kst is the fixed UTC+9 offset the market-hours gate uses. It is
// never derived from the host's local timezone (spec.md §4.6).
var kst = time.FixedZone("KST", 9*60*60)

func minuteOfDay(hour, minute int) int { return hour*60 + minute }

// marketStatus evaluates the KST market-hours gate at the given UTC
// instant against cfg's open/close minutes, matching
// original_source/backend/app/engine/executor.py's _get_market_status
// exactly (weekday name substitution aside — Go has no
// locale-dependent Korean string tables, so these are literal
// constants mirroring the Python original's hardcoded strings).
func marketStatus(utcNow time.Time, cfg types.MarketHoursConfig) types.MarketStatus {
	now := utcNow.In(kst)
	weekday := now.Weekday()
	minute := minuteOfDay(now.Hour(), now.Minute())
	openMinutes := minuteOfDay(cfg.OpenHour, cfg.OpenMinute)
	closeMinutes := minuteOfDay(cfg.CloseHour, cfg.CloseMinute)

	isOpen := weekday != time.Saturday && weekday != time.Sunday &&
		minute >= openMinutes && minute <= closeMinutes

	var reason, nextOpen string
	switch {
	case weekday == time.Saturday || weekday == time.Sunday:
		reason = "weekend"
		nextOpen = "월요일 09:00"
	case minute < openMinutes:
		reason = "before_open"
		nextOpen = "오늘 09:00"
	case minute > closeMinutes:
		reason = "after_close"
		nextOpen = "내일 09:00"
	default:
		reason = "open"
	}

	return types.MarketStatus{
		IsOpen:      isOpen,
		Reason:      reason,
		NextOpen:    nextOpen,
		CurrentTime: now.Format("15:04:05"),
	}
}
