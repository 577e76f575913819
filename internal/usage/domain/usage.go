package usage

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRange is returned when a date range is empty or inverted.
	ErrInvalidRange = errors.New("usage: invalid date range")
	// ErrInvalidDate is returned when a usage record has no date.
	ErrInvalidDate = errors.New("usage: invalid date")
	// ErrEmptyWAP is returned when a usage record has a blank WAP.
	ErrEmptyWAP = errors.New("usage: empty WAP")
)

// Default dataset types selected for daily usage.
var DefaultDatasetTypeIDs = []string{"9", "12"}

// FinancialYearStartMonth is the first month of a financial year.
const FinancialYearStartMonth = time.July

// DailyUsage is one daily telemetry value for a WAP.
type DailyUsage struct {
	WAP           string
	DatasetTypeID string
	Date          time.Time
	// Volume is nil when the source value is NULL.
	Volume *float64
}

// FinancialYear labels t with the calendar year its July to June year starts in.
func FinancialYear(t time.Time) int {
	if t.Month() < FinancialYearStartMonth {
		return t.Year() - 1
	}
	return t.Year()
}

// FinancialYearLabel renders the year as "2018/19".
func FinancialYearLabel(fy int) string {
	return fmt.Sprintf("%d/%02d", fy, (fy+1)%100)
}

// Filter selects daily usage records.
type Filter struct {
	DatasetTypeIDs []string
	WAPs           []string
	Range          DateRange
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange validates and truncates the bounds to days.
func NewDateRange(from, to time.Time) (DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return DateRange{}, ErrInvalidRange
	}
	from = truncateToDay(from)
	to = truncateToDay(to)
	if to.Before(from) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{From: from, To: to}, nil
}

// EndExclusive returns the first day after the range.
func (r DateRange) EndExclusive() time.Time {
	return r.To.AddDate(0, 0, 1)
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.EndExclusive())
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
