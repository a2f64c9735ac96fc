package sheets

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"lanchonete/internal/core"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Column titles of the ledger sheet.
const (
	ColID      = "Número do Pedido"
	ColDate    = "Data"
	ColTotal   = "Valor total"
	ColOrigin  = "Origem"
	ColPayment = "Condição de pagamento"
	ColPickup  = "Retirada"
)

// Columns lists the ledger header in sheet order.
var Columns = []string{ColID, ColDate, ColTotal, ColOrigin, ColPayment, ColPickup}

var (
	ErrMissingColumns = errors.New("missing columns")
	ErrEmptyTable     = errors.New("empty table")
	ErrInvalidDate    = errors.New("invalid date")
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
}

// Excel serial day numbers covering 1900-01-01 through 9999-12-31.
const (
	minSerial = 1
	maxSerial = 2958465
)

// ParseTable turns a raw string matrix (header row first) into a cleaned
// ledger. Rows with an unparseable date or a non-numeric total are dropped
// and counted; blank totals count as zero. Times without a zone are read in
// loc (UTC when nil).
func ParseTable(rows [][]string, loc *time.Location) (core.Ledger, LoadStats, error) {
	return parseTable(rows, loc, core.ParseDecimalToCents)
}

// ParseFormattedTable is ParseTable for text exports typed in the pt-BR
// locale: a total like "1.234" is read as one thousand two hundred
// thirty-four reais.
func ParseFormattedTable(rows [][]string, loc *time.Location) (core.Ledger, LoadStats, error) {
	return parseTable(rows, loc, core.ParseBRLToCents)
}

func parseTable(rows [][]string, loc *time.Location, amount func(string) (int64, error)) (core.Ledger, LoadStats, error) {
	var stats LoadStats
	if loc == nil {
		loc = time.UTC
	}
	if len(rows) == 0 {
		return core.Ledger{}, stats, ErrEmptyTable
	}
	cols, err := mapHeader(rows[0])
	if err != nil {
		return core.Ledger{}, stats, err
	}

	orders := make([]core.Order, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if blankRow(row) {
			continue
		}
		stats.Rows++
		ts, err := ParseDate(safeGet(row, cols[ColDate]), loc)
		if err != nil {
			stats.DroppedDates++
			continue
		}
		total, err := parseTotal(safeGet(row, cols[ColTotal]), amount)
		if err != nil {
			stats.DroppedValues++
			continue
		}
		rawOrigin := safeGet(row, cols[ColOrigin])
		if rawOrigin == "" {
			stats.FilledOrigins++
		}
		id := safeGet(row, cols[ColID])
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		orders = append(orders, core.Order{
			ID:      id,
			Time:    ts,
			Total:   total,
			Origin:  core.NormalizeOrigin(rawOrigin),
			Payment: safeGet(row, cols[ColPayment]),
			Pickup:  safeGet(row, cols[ColPickup]),
		})
	}
	stats.Kept = len(orders)
	ledger, err := core.NewLedger(orders)
	if err != nil {
		return core.Ledger{}, stats, err
	}
	return ledger, stats, nil
}

// mapHeader resolves every ledger column to its index. The order number is
// optional; a missing one is replaced by the sheet row number.
func mapHeader(header []string) (map[string]int, error) {
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = FoldHeader(h)
	}
	cols := make(map[string]int, len(Columns))
	var missing []string
	for _, name := range Columns {
		idx := indexOf(folded, FoldHeader(name))
		if idx == -1 && name != ColID {
			missing = append(missing, name)
		}
		cols[name] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s; got headers=%v", ErrMissingColumns, strings.Join(missing, ","), header)
	}
	return cols, nil
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldHeader lowercases s, strips accents and collapses whitespace so that
// "Condição de  Pagamento" and "condicao de pagamento" compare equal.
func FoldHeader(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}

// ParseDate reads a ledger date cell: an Excel serial number or one of the
// supported text layouts.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if loc == nil {
		loc = time.UTC
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < minSerial || f > maxSerial {
			return time.Time{}, ErrInvalidDate
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, ErrInvalidDate
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

func parseTotal(s string, amount func(string) (int64, error)) (core.Money, error) {
	if strings.TrimSpace(s) == "" {
		return core.Money{}, nil
	}
	cents, err := amount(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if v == target {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return strings.TrimSpace(arr[idx])
	}
	return ""
}
