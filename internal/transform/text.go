package transform

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// applyText converts the case of s. Casers are stateful, so a new one is
// made per call; Apply may run on several goroutines.
func applyText(s, transform string) string {
	switch transform {
	case TextUppercase:
		return cases.Upper(language.Und).String(s)
	case TextLowercase:
		return cases.Lower(language.Und).String(s)
	case TextCapitalize:
		// NoLower keeps the rest of each word as written ("E12 engine" -> "E12 Engine").
		return cases.Title(language.Und, cases.NoLower).String(s)
	default:
		return s
	}
}
