package http

import (
	"net/http/httptest"
	"testing"

	"lanchonete/internal/core"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		query string
		want  core.Granularity
	}{
		{"", core.Month},
		{"?period=", core.Month},
		{"?period=D", core.Day},
		{"?period=M", core.Month},
		{"?period=Q", core.Quarter},
		{"?period=2Q", core.HalfYear},
		{"?period=halfyear", core.HalfYear},
		{"?period=weekly", core.Day},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/api/charts/sales"+tt.query, nil)
		if got := parsePeriod(r); got != tt.want {
			t.Errorf("parsePeriod(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "R$ 0,00"},
		{12.5, "R$ 12,50"},
		{1234.56, "R$ 1.234,56"},
		{1234567.8, "R$ 1.234.567,80"},
		{-3.05, "-R$ 3,05"},
	}
	for _, tt := range tests {
		if got := formatBRL(tt.in); got != tt.want {
			t.Errorf("formatBRL(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
