package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ginjaninja78/incident-field-mapper/internal/config"
	"github.com/ginjaninja78/incident-field-mapper/internal/mapping"
	"github.com/ginjaninja78/incident-field-mapper/internal/matcher"
	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/transform"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// Suggestion is one matcher suggestion with its field and column resolved.
type Suggestion struct {
	FieldID  string `json:"fieldId"`
	Field    string `json:"field"`
	Required bool   `json:"required"`
	Column   string `json:"column"`
	Index    int    `json:"index"`
}

// Suggestions lists the matcher's suggestions in catalog order along with
// their coverage of the required fields.
func (p *Pipeline) Suggestions(catalog *schema.Catalog, columns []types.SourceColumn) ([]Suggestion, matcher.Coverage) {
	suggested := p.matcher.Suggest(catalog, columns)
	coverage := p.cfg.Policy().Evaluate(catalog, suggested)

	byIndex := make(map[int]string, len(columns))
	for _, c := range columns {
		byIndex[c.Index] = c.Name
	}

	var out []Suggestion
	for _, f := range catalog.Fields() {
		idx, ok := suggested[f.ID]
		if !ok {
			continue
		}
		out = append(out, Suggestion{
			FieldID:  f.ID,
			Field:    f.Key(),
			Required: f.Required,
			Column:   byIndex[idx],
			Index:    idx,
		})
	}
	return out, coverage
}

// BuildMapping produces the mapping state for a source.
//
// Mapping file rules are applied first, with their transform settings.
// Suggestions then fill the fields the rules left unmapped, using only
// columns no rule claimed. Without a mapping file the suggestions are
// applied only when their coverage reaches the auto-apply threshold (or
// when suggestions are accepted unconditionally).
//
// RETURNS:
//   - The mapping state.
//   - The suggestion coverage.
//   - An error if a rule names an unknown target field or carries invalid
//     transform settings. A rule whose source column is absent is skipped
//     with a warning.
func (p *Pipeline) BuildMapping(catalog *schema.Catalog, columns []types.SourceColumn, mf *config.MappingFile) (*mapping.State, matcher.Coverage, error) {
	state := mapping.New(nil)
	suggested := p.matcher.Suggest(catalog, columns)
	coverage := p.cfg.Policy().Evaluate(catalog, suggested)

	if mf != nil {
		if err := p.applyRules(state, catalog, columns, mf); err != nil {
			return nil, coverage, err
		}
	}

	if mf == nil && !coverage.AutoApply && !p.opts.AcceptSuggestions {
		p.logger.Info("suggestions below auto-apply threshold",
			slog.Int("matched_required", coverage.MatchedRequired),
			slog.Int("threshold", coverage.Threshold))
		return state, coverage, nil
	}

	used := make(map[int]bool)
	for _, idx := range state.UsedSourceIndices() {
		used[idx] = true
	}
	remaining := make(map[string]int)
	for id, idx := range suggested {
		if _, mapped := state.Get(id); mapped || used[idx] {
			continue
		}
		remaining[id] = idx
	}
	if err := state.ApplySuggestions(remaining); err != nil {
		return nil, coverage, err
	}
	return state, coverage, nil
}

// applyRules binds each rule's target to its source column and stores the
// rule's transform configuration and value actions.
func (p *Pipeline) applyRules(state *mapping.State, catalog *schema.Catalog, columns []types.SourceColumn, mf *config.MappingFile) error {
	for _, rule := range mf.Rules {
		field, ok := findField(catalog, rule.Target)
		if !ok {
			return fmt.Errorf("mapping %s: %w: %s", mf.Name, mapping.ErrUnknownField, rule.Target)
		}
		idx, ok := findColumn(columns, rule.Source)
		if !ok {
			p.logger.Warn("mapping rule source column not found",
				slog.String("mapping", mf.Name),
				slog.String("target", rule.Target),
				slog.String("source", rule.Source))
			continue
		}
		if err := state.Set(field.ID, idx); err != nil {
			return fmt.Errorf("mapping %s: %w", mf.Name, err)
		}

		cfg, err := transform.ConfigFromOptions(field, rule.Options())
		if err != nil {
			return fmt.Errorf("mapping %s: %w", mf.Name, err)
		}
		if err := state.Configs().Set(field, cfg); err != nil {
			return fmt.Errorf("mapping %s: %w", mf.Name, err)
		}

		actions, err := transform.CompileActions(rule.Actions)
		if err != nil {
			return fmt.Errorf("mapping %s: field %s: %w", mf.Name, field.ID, err)
		}
		state.Configs().SetActions(field.ID, actions)
	}
	return nil
}

// findField looks a target up by ID, then by name or path ignoring case.
func findField(catalog *schema.Catalog, ref string) (schema.TargetField, bool) {
	if f, ok := catalog.Field(ref); ok {
		return f, true
	}
	for _, f := range catalog.Fields() {
		if strings.EqualFold(f.Name, ref) || (f.Path != "" && strings.EqualFold(f.Path, ref)) {
			return f, true
		}
	}
	return schema.TargetField{}, false
}

// findColumn returns the index of the column named name, ignoring case and
// surrounding space.
func findColumn(columns []types.SourceColumn, name string) (int, bool) {
	name = strings.TrimSpace(name)
	for _, c := range columns {
		if strings.EqualFold(c.Name, name) {
			return c.Index, true
		}
	}
	return 0, false
}
