package http

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"lanchonete/internal/core"
)

// parsePeriod reads the period selector from the query string. An absent
// selector means the page default; anything unrecognised means Day.
func parsePeriod(r *http.Request) core.Granularity {
	v := strings.TrimSpace(r.URL.Query().Get("period"))
	if v == "" {
		return core.DefaultGranularity
	}
	return core.ParseGranularity(v)
}

// formatBRL formats a currency amount the Brazilian way (e.g., "R$ 1.234,56").
func formatBRL(v float64) string {
	cents := int64(math.Round(v * 100))
	neg := cents < 0
	if neg {
		cents = -cents
	}
	reais := strconv.FormatInt(cents/100, 10)
	rem := cents % 100

	var sb strings.Builder
	for i, c := range reais {
		if i > 0 && (len(reais)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(c)
	}
	s := "R$ " + sb.String() + "," + strconv.FormatInt(rem/10, 10) + strconv.FormatInt(rem%10, 10)
	if neg {
		return "-" + s
	}
	return s
}
