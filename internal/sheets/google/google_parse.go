package google

import (
	"fmt"
	"strconv"
	"strings"
)

// toStrings renders one row of unformatted Sheets values as text. Numbers
// come back as float64 and are printed without exponent so serial dates and
// amounts survive the round trip.
func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(x)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
