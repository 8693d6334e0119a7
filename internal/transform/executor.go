// =============================================================================
// Incident Field Mapper - Transform Executor
// =============================================================================
//
// The executor applies the current mapping and transform configuration to
// every source record and produces one transformed record per input record,
// in input order.
//
// PROCESSING FLOW (per record):
//   1. For each mapped catalog field, read the raw value by column name
//      and run the field's value actions on it, if any.
//   2. Transform it according to the field's configuration:
//        - date:       parse (auto chain or explicit pattern), render target
//        - coordinate: parse float, render decimal or DMS
//        - text:       string form, optional case conversion
//      A value that cannot be transformed is written unchanged.
//   3. Write the value under the field's key (path, else name).
//   4. Fill still-empty registry fields from legacy columns.
//
// Unmapped fields are omitted from the output. A mapping that points past
// the last source column is skipped. The executor never aborts a batch and
// never checks mapping completeness; callers gate on that.
//
// =============================================================================

package transform

import (
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// Lookup resolves a target field ID to its mapped source column index.
type Lookup interface {
	Get(targetID string) (int, bool)
}

// Executor turns source records into target-shaped records.
type Executor struct {
	// DateOrder is the automatic detection chain. DefaultDateOrder when empty.
	DateOrder []DateParser

	// Fallbacks is consulted after the mapped transforms. No fallback pass
	// runs when nil.
	Fallbacks FallbackRegistry

	// Workers > 1 transforms records concurrently.
	Workers int

	// Logger receives skip and failure diagnostics. slog.Default() when nil.
	Logger *slog.Logger
}

// NewExecutor returns an executor with the default date order and fallback
// registry, running sequentially.
func NewExecutor() *Executor {
	return &Executor{
		DateOrder: append([]DateParser(nil), DefaultDateOrder...),
		Fallbacks: DefaultFallbacks(),
	}
}

// fieldPlan is one mapped field resolved against the source columns.
type fieldPlan struct {
	field    schema.TargetField
	column   string
	config   Config
	actions  Actions
	failures atomic.Int64
}

// Failure is one mapped value the executor could not transform and kept
// unchanged.
type Failure struct {
	// Record is the zero-based index of the record in the input.
	Record int

	// Field is the target field ID.
	Field string
}

// Result is the output of Transform.
type Result struct {
	// Records holds one transformed record per input record, in input order.
	Records []types.TransformedRecord

	// Failures lists the values kept unchanged, in record then catalog order.
	Failures []Failure

	failed map[Failure]struct{}
}

// Failed reports whether the value of fieldID in record could not be
// transformed.
func (r Result) Failed(record int, fieldID string) bool {
	_, ok := r.failed[Failure{Record: record, Field: fieldID}]
	return ok
}

// Apply transforms every record and returns the records only. See
// Transform for the parameters.
func (e *Executor) Apply(records []types.Record, columns []types.SourceColumn, catalog *schema.Catalog, mapping Lookup, configs *Configs) []types.TransformedRecord {
	return e.Transform(records, columns, catalog, mapping, configs).Records
}

// Transform transforms every record.
//
// PARAMETERS:
//   - records: Source records, keyed by column name. Not modified.
//   - columns: The source columns the mapping indices refer to.
//   - catalog: The target fields.
//   - mapping: Target field ID -> source column index.
//   - configs: Per-field configuration. Missing entries are created with
//     defaults. May be nil, in which case defaults are used and not stored.
//
// RETURNS:
//   - The transformed records and the values that failed to transform.
func (e *Executor) Transform(records []types.Record, columns []types.SourceColumn, catalog *schema.Catalog, mapping Lookup, configs *Configs) Result {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	order := e.DateOrder
	if len(order) == 0 {
		order = DefaultDateOrder
	}

	plans := e.plan(columns, catalog, mapping, configs, logger)
	rules := e.Fallbacks.resolve(catalog, columns)

	out := make([]types.TransformedRecord, len(records))
	failed := make([][]string, len(records))
	run := func(i int) {
		out[i], failed[i] = transformRecord(records[i], plans, rules, order)
	}

	if e.Workers > 1 && len(records) > 1 {
		var g errgroup.Group
		g.SetLimit(e.Workers)
		for i := range records {
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range records {
			run(i)
		}
	}

	for _, p := range plans {
		if n := p.failures.Load(); n > 0 {
			logger.Warn("values kept unchanged",
				slog.String("field", p.field.ID),
				slog.String("column", p.column),
				slog.String("kind", string(p.config.Kind())),
				slog.Int64("count", n))
		}
	}
	logger.Debug("applied mapping",
		slog.Int("records", len(records)),
		slog.Int("mapped_fields", len(plans)),
		slog.Int("fallback_fields", len(rules)))

	result := Result{Records: out, failed: make(map[Failure]struct{})}
	for i, ids := range failed {
		for _, id := range ids {
			f := Failure{Record: i, Field: id}
			result.Failures = append(result.Failures, f)
			result.failed[f] = struct{}{}
		}
	}
	return result
}

// plan resolves each mapped catalog field to a column name and config.
// It runs before any worker starts so that the config store is only
// touched from the calling goroutine.
func (e *Executor) plan(columns []types.SourceColumn, catalog *schema.Catalog, mapping Lookup, configs *Configs, logger *slog.Logger) []*fieldPlan {
	byIndex := make(map[int]string, len(columns))
	for _, col := range columns {
		byIndex[col.Index] = col.Name
	}

	var plans []*fieldPlan
	for _, field := range catalog.Fields() {
		idx, ok := mapping.Get(field.ID)
		if !ok {
			continue
		}
		name, ok := byIndex[idx]
		if !ok {
			logger.Debug("mapped column out of range",
				slog.String("field", field.ID),
				slog.Int("index", idx),
				slog.Int("columns", len(columns)))
			continue
		}

		plan := &fieldPlan{field: field, column: name}
		if configs != nil {
			plan.config = configs.GetOrCreate(field)
			plan.actions = configs.Actions(field.ID)
		} else {
			plan.config = DefaultConfig(field)
		}
		plans = append(plans, plan)
	}
	return plans
}

// transformRecord builds the output for one record. It also returns the
// IDs of the fields whose value was kept unchanged.
func transformRecord(record types.Record, plans []*fieldPlan, rules []fallbackRule, order []DateParser) (types.TransformedRecord, []string) {
	out := make(types.TransformedRecord, len(plans))
	var failed []string
	for _, p := range plans {
		raw := record[p.column]
		if len(p.actions) > 0 {
			raw = p.actions.Apply(types.Stringify(raw))
		}
		value, ok := transformValue(raw, p.config, order)
		if !ok {
			p.failures.Add(1)
			failed = append(failed, p.field.ID)
		}
		out[p.field.Key()] = value
	}
	applyFallbacks(rules, record, out)
	return out, failed
}

// transformValue applies one configuration to one raw value. On failure
// the raw value is returned with ok false. Empty values are passed through
// and do not count as failures.
func transformValue(raw any, cfg Config, order []DateParser) (any, bool) {
	switch c := cfg.(type) {
	case DateConfig:
		if types.IsEmpty(raw) {
			return raw, true
		}
		return transformDate(raw, types.Stringify(raw), c, order)
	case CoordinateConfig:
		if types.IsEmpty(raw) {
			return raw, true
		}
		v, ok := parseCoordinate(raw)
		if !ok {
			return raw, false
		}
		return formatCoordinate(v, c.Format), true
	case TextConfig:
		return applyText(types.Stringify(raw), c.TextTransform), true
	default:
		return raw, true
	}
}

func transformDate(raw any, s string, c DateConfig, order []DateParser) (any, bool) {
	var (
		parsed time.Time
		ok     bool
	)
	switch c.SourceFormat {
	case SourceAuto, "":
		parsed, ok = parseAuto(s, order)
	case SourceCustom:
		parsed, ok = parsePattern(s, c.CustomFormat)
	default:
		parsed, ok = parsePattern(s, c.SourceFormat)
	}
	if !ok {
		return raw, false
	}
	rendered, ok := formatDate(parsed, c.TargetFormat)
	if !ok {
		return raw, false
	}
	return rendered, true
}
