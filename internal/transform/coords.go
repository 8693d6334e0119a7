package transform

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// parseCoordinate reads a coordinate as a float. Strings must parse in full
// after trimming; NaN and infinities are rejected.
func parseCoordinate(raw any) (float64, bool) {
	var v float64
	switch value := raw.(type) {
	case float64:
		v = value
	case float32:
		v = float64(value)
	case int:
		v = float64(value)
	case int64:
		v = float64(value)
	case string:
		s := strings.TrimSpace(value)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// formatCoordinate renders v as 6-decimal degrees or as degrees, minutes
// and seconds.
func formatCoordinate(v float64, format string) string {
	if format == FormatDMS {
		return formatDMS(v)
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// formatDMS renders D° M' S.SS" with a leading "-" for negative values.
func formatDMS(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	// Work in hundredths of a second so rounding carries into minutes and
	// degrees instead of printing 60.00".
	total := int64(math.Round(v * 3600 * 100))
	deg := total / (3600 * 100)
	total -= deg * 3600 * 100
	minutes := total / (60 * 100)
	total -= minutes * 60 * 100
	sec := float64(total) / 100

	if deg == 0 && minutes == 0 && total == 0 {
		sign = ""
	}
	return fmt.Sprintf("%s%d° %d' %.2f\"", sign, deg, minutes, sec)
}

var dmsPattern = regexp.MustCompile(`^-?\d+° \d+' \d+(\.\d+)?"$`)

// IsDMS reports whether s is a coordinate in the form formatDMS renders.
func IsDMS(s string) bool {
	return dmsPattern.MatchString(strings.TrimSpace(s))
}
