// =============================================================================
// Incident Field Mapper - Field Matcher
// =============================================================================
//
// This module proposes a mapping from target fields to source columns using
// names only. Sample values are never consulted.
//
// MATCHING ALGORITHM:
//   For each target field, in catalog order:
//     1. Build the candidate names: the field name, the schema aliases (in
//        declaration order), configured aliases, then built-in aliases.
//     2. EXACT PASS: take the first unclaimed column (index order) whose
//        name equals any candidate, ignoring case and separators.
//     3. SUBSTRING PASS (only if the exact pass found nothing): take the
//        first unclaimed column whose name contains a candidate, or is
//        contained in one.
//   A column claimed by one field is never offered to a later field.
//
// AUTO-APPLY POLICY:
//   Suggestions are applied as the live mapping only when at least
//   ceil(required * ratio) required fields were matched (ratio 0.5 by
//   default). Otherwise they are kept for display and one-click apply.
//
// =============================================================================

package matcher

import (
	"log/slog"
	"math"
	"strings"

	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// =============================================================================
// MATCHER
// =============================================================================

// Matcher computes mapping suggestions.
type Matcher struct {
	aliases map[string][]string
	logger  *slog.Logger
}

// New creates a Matcher. extra adds aliases keyed by field name; they are
// tried after the schema's own aliases and before the built-in table.
func New(extra map[string][]string, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	merged := make(map[string][]string, len(builtinAliases)+len(extra))
	for key, names := range extra {
		k := aliasKey(key)
		merged[k] = append(merged[k], names...)
	}
	for key, names := range builtinAliases {
		merged[key] = append(merged[key], names...)
	}
	return &Matcher{aliases: merged, logger: logger}
}

// Suggest matches with the built-in alias table only.
func Suggest(catalog *schema.Catalog, columns []types.SourceColumn) map[string]int {
	return New(nil, nil).Suggest(catalog, columns)
}

// Candidates returns the names tried for a field, deduplicated and in
// priority order.
func (m *Matcher) Candidates(field schema.TargetField) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(list ...string) {
		for _, n := range list {
			f := fold(n)
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			names = append(names, f)
		}
	}

	add(field.Name)
	add(field.Aliases...)
	add(m.aliases[aliasKey(field.Name)]...)
	if field.Path != "" {
		// The last path segment is the document's field key.
		segment := field.Path[strings.LastIndex(field.Path, ".")+1:]
		add(segment)
		add(m.aliases[aliasKey(segment)]...)
	}
	return names
}

// Suggest returns target-field-id → source-column-index for every field it
// could match. Unmatched fields are absent. No column index appears twice.
func (m *Matcher) Suggest(catalog *schema.Catalog, columns []types.SourceColumn) map[string]int {
	suggestions := make(map[string]int)
	claimed := make(map[int]bool)

	folded := make([]string, len(columns))
	for i, col := range columns {
		folded[i] = fold(col.Name)
	}

	for _, field := range catalog.Fields() {
		candidates := m.Candidates(field)

		pos, how := -1, ""
		if pos = firstExact(candidates, folded, columns, claimed); pos >= 0 {
			how = "exact"
		} else if pos = firstContaining(candidates, folded, columns, claimed); pos >= 0 {
			how = "substring"
		}
		if pos < 0 {
			continue
		}

		col := columns[pos]
		claimed[col.Index] = true
		suggestions[field.ID] = col.Index
		m.logger.Debug("suggested mapping",
			slog.String("field", field.ID),
			slog.String("column", col.Name),
			slog.Int("index", col.Index),
			slog.String("match", how))
	}
	return suggestions
}

// firstExact returns the position of the first unclaimed column equal to a
// candidate, or -1.
func firstExact(candidates, folded []string, columns []types.SourceColumn, claimed map[int]bool) int {
	for i, name := range folded {
		if name == "" || claimed[columns[i].Index] {
			continue
		}
		for _, c := range candidates {
			if name == c {
				return i
			}
		}
	}
	return -1
}

// firstContaining returns the position of the first unclaimed column that
// contains a candidate or is contained in one, or -1.
func firstContaining(candidates, folded []string, columns []types.SourceColumn, claimed map[int]bool) int {
	for i, name := range folded {
		if name == "" || claimed[columns[i].Index] {
			continue
		}
		for _, c := range candidates {
			if strings.Contains(name, c) || strings.Contains(c, name) {
				return i
			}
		}
	}
	return -1
}

// =============================================================================
// AUTO-APPLY POLICY
// =============================================================================

// DefaultRatio is the share of required fields that must be matched before
// suggestions are auto-applied.
const DefaultRatio = 0.5

// Policy decides whether suggestions become the live mapping.
type Policy struct {
	// Ratio of required fields that must be matched, in [0, 1].
	Ratio float64
}

// DefaultPolicy auto-applies when at least half the required fields match.
func DefaultPolicy() Policy {
	return Policy{Ratio: DefaultRatio}
}

// Coverage summarizes how well a suggestion set covers required fields.
type Coverage struct {
	Required        int  `json:"required"`
	MatchedRequired int  `json:"matchedRequired"`
	Threshold       int  `json:"threshold"`
	AutoApply       bool `json:"autoApply"`
}

// Evaluate computes coverage of the catalog's required fields.
func (p Policy) Evaluate(catalog *schema.Catalog, suggestions map[string]int) Coverage {
	cov := Coverage{}
	for _, id := range catalog.RequiredIDs() {
		cov.Required++
		if _, ok := suggestions[id]; ok {
			cov.MatchedRequired++
		}
	}
	cov.Threshold = int(math.Ceil(float64(cov.Required) * p.Ratio))
	cov.AutoApply = cov.MatchedRequired >= cov.Threshold
	return cov
}
