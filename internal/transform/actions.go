// =============================================================================
// Incident Field Mapper - Value Actions
// =============================================================================
//
// Actions clean up a raw source value before the field's type transform
// runs. A mapping file rule lists them in order:
//
//   rules:
//     - target: Incident Number
//       source: INC_NO
//       actions:
//         - type: extract_digits
//         - type: pad_zeros_to_length
//           value: "8"
//         - type: prepend_string
//           value: "FD-"
//
// Actions are compiled once when the mapping is built. A bad action is a
// configuration error; a compiled action never fails on a value.
//
// =============================================================================

package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Action is one value action as written in a mapping file.
type Action struct {
	// Type selects the action. See the cases in compileAction.
	Type string `json:"type" yaml:"type"`

	// Value is the action argument: the text to add, the replacement, a
	// length or a "start,end" range.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// Find is the substring or pattern replaced by replace and regex_replace.
	Find string `json:"find,omitempty" yaml:"find,omitempty"`
}

// Actions is a compiled, ordered action list.
type Actions []func(string) string

// Apply runs every action on s in order.
func (a Actions) Apply(s string) string {
	for _, fn := range a {
		s = fn(s)
	}
	return s
}

var (
	nonDigits      = regexp.MustCompile(`\D+`)
	nonLetters     = regexp.MustCompile(`[^\pL]+`)
	specialChars   = regexp.MustCompile(`[^\pL\pN]+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// CompileActions validates and compiles an action list.
//
// RETURNS:
//   - The compiled actions, nil for an empty list.
//   - An error wrapping ErrInvalidConfig naming the first bad action.
func CompileActions(actions []Action) (Actions, error) {
	if len(actions) == 0 {
		return nil, nil
	}
	compiled := make(Actions, 0, len(actions))
	for i, action := range actions {
		fn, err := compileAction(action)
		if err != nil {
			return nil, fmt.Errorf("%w: action %d (%s): %v", ErrInvalidConfig, i+1, action.Type, err)
		}
		compiled = append(compiled, fn)
	}
	return compiled, nil
}

func compileAction(action Action) (func(string) string, error) {
	switch strings.ToLower(strings.TrimSpace(action.Type)) {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "prepend_string":
		return func(s string) string { return action.Value + s }, nil

	case "append_string":
		return func(s string) string { return s + action.Value }, nil

	case "trim":
		return strings.TrimSpace, nil

	case "trim_left":
		return func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }, nil

	case "trim_right":
		return func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }, nil

	case "replace":
		if action.Find == "" {
			return nil, fmt.Errorf("find is required")
		}
		return func(s string) string { return strings.ReplaceAll(s, action.Find, action.Value) }, nil

	case "regex_replace":
		re, err := regexp.Compile(action.Find)
		if err != nil || action.Find == "" {
			return nil, fmt.Errorf("invalid pattern %q", action.Find)
		}
		return func(s string) string { return re.ReplaceAllString(s, action.Value) }, nil

	case "substring":
		start, end, err := parseRange(action.Value)
		if err != nil {
			return nil, err
		}
		return func(s string) string { return substring(s, start, end) }, nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "pad_zeros_to_length":
		n, err := parseLength(action.Value)
		if err != nil {
			return nil, err
		}
		return func(s string) string { return padLeft(s, n, '0') }, nil

	case "ensure_length":
		n, err := parseLength(action.Value)
		if err != nil {
			return nil, err
		}
		return func(s string) string {
			if r := []rune(s); len(r) > n {
				return string(r[:n])
			}
			return padLeft(s, n, '0')
		}, nil

	case "format_number":
		places, err := strconv.Atoi(strings.TrimSpace(action.Value))
		if err != nil || places < 0 {
			return nil, fmt.Errorf("invalid decimal places %q", action.Value)
		}
		return func(s string) string {
			num, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return s
			}
			return strconv.FormatFloat(num, 'f', places, 64)
		}, nil

	case "remove_leading_zeros":
		return func(s string) string {
			if strings.TrimSpace(s) == "" {
				return s
			}
			if trimmed := strings.TrimLeft(s, "0"); trimmed != "" {
				return trimmed
			}
			return "0"
		}, nil

	// =========================================================================
	// CONDITIONAL
	// =========================================================================

	case "if_empty_use_default":
		return func(s string) string {
			if strings.TrimSpace(s) == "" {
				return action.Value
			}
			return s
		}, nil

	// =========================================================================
	// CLEANUP
	// =========================================================================

	case "extract_digits":
		return func(s string) string { return nonDigits.ReplaceAllString(s, "") }, nil

	case "extract_letters":
		return func(s string) string { return nonLetters.ReplaceAllString(s, "") }, nil

	case "remove_special_chars":
		return func(s string) string { return specialChars.ReplaceAllString(s, "") }, nil

	case "normalize_whitespace":
		return func(s string) string { return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " ")) }, nil

	default:
		return nil, fmt.Errorf("unknown action")
	}
}

// parseLength reads a positive length argument.
func parseLength(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid length %q", value)
	}
	return n, nil
}

// parseRange reads a "start,end" argument. end is exclusive.
func parseRange(value string) (int, int, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range must be \"start,end\", got %q", value)
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || start < 0 || end <= start {
		return 0, 0, fmt.Errorf("invalid range %q", value)
	}
	return start, end, nil
}

// substring returns runes [start, end) of s, clamped to its length.
func substring(s string, start, end int) string {
	r := []rune(s)
	if start >= len(r) {
		return ""
	}
	return string(r[start:min(end, len(r))])
}

// padLeft pads s on the left with pad up to length runes.
func padLeft(s string, length int, pad rune) string {
	if n := length - len([]rune(s)); n > 0 {
		return strings.Repeat(string(pad), n) + s
	}
	return s
}
