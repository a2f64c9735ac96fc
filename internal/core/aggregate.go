package core

import (
	"sort"
	"strings"
	"time"
)

// Key is one component of a group key. Start is set for period keys and
// zero for categorical ones.
type Key struct {
	Value string
	Start time.Time
}

// KeyFunc extracts one group key component from an order.
type KeyFunc func(Order) Key

// AggregateRow holds the metrics of one non-empty group.
type AggregateRow struct {
	Keys  []Key
	Sum   Money
	Count int
	Mean  float64
}

// Value returns the i-th key value, or "" when out of range.
func (r AggregateRow) Value(i int) string {
	if i < 0 || i >= len(r.Keys) {
		return ""
	}
	return r.Keys[i].Value
}

// ByBucket groups by the period of the order time under g.
func ByBucket(g Granularity) KeyFunc {
	return func(o Order) Key {
		b := BucketOf(o.Time, g)
		return Key{Value: b.Label, Start: b.Start}
	}
}

// ByOrigin groups by origin channel.
func ByOrigin(o Order) Key { return Key{Value: o.Origin} }

// ByPayment groups by payment condition.
func ByPayment(o Order) Key { return Key{Value: o.Payment} }

// ByPickup groups by pickup type.
func ByPickup(o Order) Key { return Key{Value: o.Pickup} }

const keySep = "\x1f"

// Aggregate groups orders by the tuple produced by keys and computes sum,
// count and mean per group. Rows come out in first-seen order of their
// group, so the result is deterministic for a given input. An empty input
// yields an empty, non-nil slice.
func Aggregate(orders []Order, keys ...KeyFunc) []AggregateRow {
	rows := make([]AggregateRow, 0)
	index := make(map[string]int)
	var sb strings.Builder
	for _, o := range orders {
		tuple := make([]Key, len(keys))
		sb.Reset()
		for i, fn := range keys {
			tuple[i] = fn(o)
			if i > 0 {
				sb.WriteString(keySep)
			}
			sb.WriteString(tuple[i].Value)
		}
		id := sb.String()
		pos, ok := index[id]
		if !ok {
			pos = len(rows)
			index[id] = pos
			rows = append(rows, AggregateRow{Keys: tuple})
		}
		rows[pos].Sum = rows[pos].Sum.Add(o.Total)
		rows[pos].Count++
	}
	for i := range rows {
		rows[i].Mean = MeanOf(rows[i].Sum, rows[i].Count)
	}
	return rows
}

// Aggregate groups the ledger orders; see Aggregate.
func (l Ledger) Aggregate(keys ...KeyFunc) []AggregateRow {
	return Aggregate(l.orders, keys...)
}

// SortRows orders rows key by key: period keys by Start, then values as text.
func SortRows(rows []AggregateRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Keys, rows[j].Keys
		for k := 0; k < len(a) && k < len(b); k++ {
			if !a[k].Start.Equal(b[k].Start) {
				return a[k].Start.Before(b[k].Start)
			}
			if a[k].Value != b[k].Value {
				return a[k].Value < b[k].Value
			}
		}
		return len(a) < len(b)
	})
}

// Totals sums counts and amounts over rows.
func Totals(rows []AggregateRow) (count int, sum Money) {
	for _, r := range rows {
		count += r.Count
		sum = sum.Add(r.Sum)
	}
	return count, sum
}
