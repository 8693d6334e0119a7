package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DateParser names one strategy of the automatic date detection chain.
type DateParser string

const (
	// ParserNative accepts RFC 3339 / ISO-8601 timestamps and the RFC 1123,
	// RFC 822 and ANSI C styles.
	ParserNative DateParser = "native"

	// ParserUS accepts MM/DD/YYYY with an optional 24h or AM/PM time.
	ParserUS DateParser = "us"

	// ParserISO accepts YYYY-MM-DD with an optional HH:MM[:SS] time.
	ParserISO DateParser = "iso"

	// ParserUnix accepts epoch seconds (10 digits) or milliseconds (11-13).
	ParserUnix DateParser = "unix"
)

// DefaultDateOrder is the order automatic detection tries the parsers in.
var DefaultDateOrder = []DateParser{ParserNative, ParserUS, ParserISO, ParserUnix}

// ParseDateOrder validates a configured parser order.
// An empty list yields DefaultDateOrder.
func ParseDateOrder(names []string) ([]DateParser, error) {
	if len(names) == 0 {
		return append([]DateParser(nil), DefaultDateOrder...), nil
	}
	order := make([]DateParser, 0, len(names))
	seen := make(map[DateParser]bool)
	for _, name := range names {
		p := DateParser(strings.ToLower(strings.TrimSpace(name)))
		if _, ok := parserLayouts[p]; !ok && p != ParserUnix {
			return nil, fmt.Errorf("unknown date parser %q", name)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		order = append(order, p)
	}
	return order, nil
}

// parserLayouts are the time layouts each layout-based parser tries.
var parserLayouts = map[DateParser][]string{
	ParserNative: {
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		time.RFC1123,
		time.RFC1123Z,
		time.RFC850,
		time.RFC822,
		time.RFC822Z,
		time.ANSIC,
		time.UnixDate,
		"Mon Jan 2 2006 15:04:05 GMT-0700",
		"Mon Jan 2 2006 15:04:05",
		"Mon Jan 2 2006",
		"January 2, 2006 15:04:05",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 Jan 2006",
	},
	ParserUS: {
		"1/2/2006",
		"1/2/2006 15:04",
		"1/2/2006 15:04:05",
		"1/2/2006 3:04 PM",
		"1/2/2006 3:04:05 PM",
		"1/2/2006 3:04PM",
		"1/2/2006 3:04:05PM",
	},
	ParserISO: {
		"2006-01-02",
		"2006-01-02 15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.000",
	},
}

// targetLayouts render each target format.
var targetLayouts = map[string]string{
	TargetISO8601: "2006-01-02T15:04:05.000Z",
	TargetUS:      "01/02/2006",
	TargetEU:      "02/01/2006",
}

// parseAuto tries each parser in order and returns the first success.
// Values without a zone are read as UTC.
func parseAuto(value string, order []DateParser) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, p := range order {
		if t, ok := parseWith(p, value); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseWith(p DateParser, value string) (time.Time, bool) {
	if p == ParserUnix {
		return parseUnix(value)
	}
	if p == ParserUS {
		value = strings.ToUpper(value)
	}
	for _, layout := range parserLayouts[p] {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseUnix reads a bare epoch integer: seconds when it has exactly 10
// digits, milliseconds otherwise.
func parseUnix(value string) (time.Time, bool) {
	for _, r := range value {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	if len(value) == 10 {
		return time.Unix(n, 0).UTC(), true
	}
	return time.UnixMilli(n).UTC(), true
}

// parsePattern parses value with an explicit token pattern. There is no
// fallback to automatic detection.
func parsePattern(value, pattern string) (time.Time, bool) {
	layout, err := compilePattern(pattern)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// formatDate renders t in a target format, in UTC.
func formatDate(t time.Time, target string) (string, bool) {
	layout, ok := targetLayouts[target]
	if !ok {
		return "", false
	}
	return t.UTC().Format(layout), true
}

// IsDate reports whether value is recognized as a date by the default
// automatic chain or by any of the target formats.
func IsDate(value string) bool {
	value = strings.TrimSpace(value)
	if _, ok := parseAuto(value, DefaultDateOrder); ok {
		return true
	}
	for _, layout := range targetLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// =============================================================================
// PATTERN SYNTAX
// =============================================================================

// patternTokens maps pattern tokens to Go layout elements. Longer tokens
// must be listed before their prefixes.
var patternTokens = []struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MM", "01"},
	{"M", "1"},
	{"DD", "02"},
	{"D", "2"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"ss", "05"},
	{"SSS", "000"},
	{"A", "PM"},
	{"a", "pm"},
}

// compilePattern converts a pattern like "DD/MM/YYYY HH:mm" to a Go layout.
// Letters other than the tokens, T and Z are rejected, as are digits, so a
// literal can never be mistaken for a layout element.
func compilePattern(pattern string) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", fmt.Errorf("empty date pattern")
	}

	var b strings.Builder
	rest := pattern
next:
	for rest != "" {
		for _, tok := range patternTokens {
			if strings.HasPrefix(rest, tok.token) {
				b.WriteString(tok.layout)
				rest = rest[len(tok.token):]
				continue next
			}
		}
		r, size := utf8.DecodeRuneInString(rest)
		switch {
		case r == 'T' || r == 'Z':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return "", fmt.Errorf("unsupported element %q in date pattern %q", r, pattern)
		}
		b.WriteString(rest[:size])
		rest = rest[size:]
	}
	return b.String(), nil
}
