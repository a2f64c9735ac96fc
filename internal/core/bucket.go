package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Granularity selects how order timestamps are grouped into periods.
type Granularity int

const (
	Day Granularity = iota
	Month
	Quarter
	HalfYear
)

// DefaultGranularity is the selector value every chart starts with.
const DefaultGranularity = Month

// Granularities lists the selectable values in menu order.
var Granularities = []Granularity{Day, Month, Quarter, HalfYear}

// String returns the canonical lowercase name.
func (g Granularity) String() string {
	switch g {
	case Day:
		return "day"
	case Month:
		return "month"
	case Quarter:
		return "quarter"
	case HalfYear:
		return "halfyear"
	}
	return fmt.Sprintf("granularity(%d)", int(g))
}

// Code returns the short selector code (D, M, Q, 2Q).
func (g Granularity) Code() string {
	switch g {
	case Month:
		return "M"
	case Quarter:
		return "Q"
	case HalfYear:
		return "2Q"
	}
	return "D"
}

// Label returns the Portuguese menu label.
func (g Granularity) Label() string {
	switch g {
	case Month:
		return "Mês"
	case Quarter:
		return "Trimestre"
	case HalfYear:
		return "Semestre"
	}
	return "Dia"
}

// ParseGranularity maps a selector value to a Granularity. It accepts the
// short codes and the canonical names, case-insensitively. Anything else
// falls back to Day.
func ParseGranularity(s string) Granularity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "month", "mes", "mês":
		return Month
	case "q", "quarter", "trimestre":
		return Quarter
	case "2q", "halfyear", "half-year", "semestre":
		return HalfYear
	}
	return Day
}

// Bucket identifies one period. Start is the first instant of the period in
// the order's location; sort on Start, never on Label.
type Bucket struct {
	Label string
	Start time.Time
}

// BucketOf maps t to its period under g. Unknown granularities use Day.
func BucketOf(t time.Time, g Granularity) Bucket {
	y, m, d := t.Date()
	loc := t.Location()
	switch g {
	case Month:
		return Bucket{
			Label: fmt.Sprintf("%04d-%02d", y, int(m)),
			Start: time.Date(y, m, 1, 0, 0, 0, 0, loc),
		}
	case Quarter:
		q := (int(m)-1)/3 + 1
		return Bucket{
			Label: fmt.Sprintf("%04dQ%d", y, q),
			Start: time.Date(y, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, loc),
		}
	case HalfYear:
		h := (int(m)-1)/6 + 1
		return Bucket{
			Label: fmt.Sprintf("%04d-S%d", y, h),
			Start: time.Date(y, time.Month((h-1)*6+1), 1, 0, 0, 0, 0, loc),
		}
	}
	return Bucket{
		Label: fmt.Sprintf("%04d-%02d-%02d", y, int(m), d),
		Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
	}
}

// BucketLabel returns only the label of BucketOf(t, g).
func BucketLabel(t time.Time, g Granularity) string {
	return BucketOf(t, g).Label
}

// SortBuckets orders buckets chronologically, breaking ties by label.
func SortBuckets(bs []Bucket) {
	sort.SliceStable(bs, func(i, j int) bool {
		if !bs[i].Start.Equal(bs[j].Start) {
			return bs[i].Start.Before(bs[j].Start)
		}
		return bs[i].Label < bs[j].Label
	})
}
