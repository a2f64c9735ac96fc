package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// NullOrigin replaces blank origin cells.
	NullOrigin = "Nulo"
	// PointOfSaleCode is the raw origin code exported by the POS system.
	PointOfSaleCode = "PDV"
	// PointOfSaleLabel is the human-readable label for PointOfSaleCode.
	PointOfSaleLabel = "Ponto de Venda"
)

type (
	Money struct {
		Cents int64
	}

	// Order is one row of the sales ledger.
	Order struct {
		ID      string
		Time    time.Time
		Total   Money
		Origin  string // Origem
		Payment string // Condição de pagamento
		Pickup  string // Retirada
	}

	// Ledger is the cleaned, read-only collection of orders loaded at startup.
	Ledger struct {
		orders []Order
	}
)

var (
	ErrZeroTime      = errors.New("order time is zero")
	ErrEmptyOrigin   = errors.New("empty origin")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Validate reports whether the order satisfies the cleaned-ledger invariants.
func (o Order) Validate() error {
	if o.Time.IsZero() {
		return ErrZeroTime
	}
	if strings.TrimSpace(o.Origin) == "" {
		return ErrEmptyOrigin
	}
	return nil
}

// NormalizeOrigin fills a blank origin and expands the POS code.
func NormalizeOrigin(origin string) string {
	origin = strings.TrimSpace(origin)
	switch origin {
	case "":
		return NullOrigin
	case PointOfSaleCode:
		return PointOfSaleLabel
	}
	return origin
}

// NewLedger copies orders into an immutable ledger. Orders that violate the
// cleaned-ledger invariants are rejected with the first validation error.
func NewLedger(orders []Order) (Ledger, error) {
	cp := make([]Order, len(orders))
	copy(cp, orders)
	for _, o := range cp {
		if err := o.Validate(); err != nil {
			return Ledger{}, fmt.Errorf("order %s: %w", o.ID, err)
		}
	}
	return Ledger{orders: cp}, nil
}

// Len returns the number of orders.
func (l Ledger) Len() int {
	return len(l.orders)
}

// Orders returns a copy of the ledger rows.
func (l Ledger) Orders() []Order {
	out := make([]Order, len(l.orders))
	copy(out, l.orders)
	return out
}

// Each calls fn for every order in ledger order.
func (l Ledger) Each(fn func(Order)) {
	for _, o := range l.orders {
		fn(o)
	}
}

// Span returns the earliest and latest order time. Both are zero for an empty ledger.
func (l Ledger) Span() (first, last time.Time) {
	for i, o := range l.orders {
		if i == 0 || o.Time.Before(first) {
			first = o.Time
		}
		if i == 0 || o.Time.After(last) {
			last = o.Time
		}
	}
	return first, last
}
