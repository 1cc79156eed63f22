package report

import (
	"fmt"
	"strings"
	"time"
)

// Period is the width of a revenue bucket
type Period string

const (
	PeriodDaily     Period = "DAILY"
	PeriodWeekly    Period = "WEEKLY"
	PeriodMonthly   Period = "MONTHLY"
	PeriodQuarterly Period = "QUARTERLY"
	PeriodYearly    Period = "YEARLY"
)

// ParsePeriod accepts a period name in any case; empty means MONTHLY
func ParsePeriod(s string) (Period, bool) {
	p := Period(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case "":
		return PeriodMonthly, true
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return p, true
	}
	return "", false
}

// BucketKey returns the bucket t falls in. Weeks start on Sunday and are
// keyed by that day; quarters are keyed "2024-Q1".
func BucketKey(t time.Time, p Period) string {
	t = t.UTC()
	switch p {
	case PeriodDaily:
		return t.Format("2006-01-02")
	case PeriodWeekly:
		return t.AddDate(0, 0, -int(t.Weekday())).Format("2006-01-02")
	case PeriodQuarterly:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	case PeriodYearly:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}
