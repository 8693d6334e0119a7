// =============================================================================
// Incident Field Mapper - Validation Engine
// =============================================================================
//
// This module checks transformed records against the target field catalog.
// It reports:
//   - Missing values for required fields (or for every field)
//   - Non-numeric values in Number and Coordinate fields
//   - Unrecognized dates in Date and DateTime fields
//
// VALIDATION STRATEGY:
//   Records are checked in input order and fields in catalog order. A field
//   that is missing is not checked further. A bad record never stops the
//   run: every problem is collected and returned.
//
// ERROR HANDLING:
//   Validation never returns an error. Problems are data, carried in the
//   Report, and can be formatted for the console or a log file.
//
// =============================================================================

package validation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/transform"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
)

// =============================================================================
// PROBLEM TYPES
// =============================================================================

// Issue classifies a validation problem.
type Issue string

const (
	MissingValue  Issue = "MissingValue"
	InvalidNumber Issue = "InvalidNumber"
	InvalidDate   Issue = "InvalidDate"
)

// Problem is one failed check.
type Problem struct {
	// Record is the zero-based index of the record in the input.
	Record int `json:"record"`

	// Field is the target field ID.
	Field string `json:"field"`

	// Name is the target field's display name.
	Name string `json:"name"`

	// Issue is the kind of problem.
	Issue Issue `json:"issue"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Value is the offending value, empty for MissingValue.
	Value string `json:"value,omitempty"`
}

// String renders the problem for logs, numbering records from 1.
func (p Problem) String() string {
	s := fmt.Sprintf("Record %d, Field '%s': %s", p.Record+1, p.Name, p.Message)
	if p.Value != "" {
		s += fmt.Sprintf(" (value: '%s')", p.Value)
	}
	return s
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Report is the outcome of validating a batch.
type Report struct {
	// Valid is true when there are no problems.
	Valid bool `json:"valid"`

	// Problems lists every failed check in record, then catalog, order.
	Problems []Problem `json:"problems"`

	// RecordsValidated is the number of records checked.
	RecordsValidated int `json:"recordsValidated"`

	// FieldsChecked is the number of fields checked per record.
	FieldsChecked int `json:"fieldsChecked"`
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// Validate checks every record against the catalog. Date and DateTime
// values must parse with the default detection chain or a target format.
// Use ValidateResult for executor output.
//
// PARAMETERS:
//   - records: The transformed records, keyed by TargetField.Key().
//   - catalog: The target fields.
//   - requiredOnly: Check only required fields when true, every field
//     otherwise.
//
// RETURNS:
//   - The report. Valid is true iff Problems is empty.
func Validate(records []types.TransformedRecord, catalog *schema.Catalog, requiredOnly bool) Report {
	return validate(records, catalog, requiredOnly, func(_ int, _ schema.TargetField, value any) bool {
		return transform.IsDate(types.Stringify(value))
	})
}

// ValidateResult checks executor output against the catalog. A Date or
// DateTime value is invalid iff the executor kept it unchanged, that is
// when the field's configured pattern or detection order failed on it.
func ValidateResult(result transform.Result, catalog *schema.Catalog, requiredOnly bool) Report {
	return validate(result.Records, catalog, requiredOnly, func(index int, field schema.TargetField, _ any) bool {
		return !result.Failed(index, field.ID)
	})
}

// dateCheck reports whether a present date value of a record is valid.
type dateCheck func(index int, field schema.TargetField, value any) bool

func validate(records []types.TransformedRecord, catalog *schema.Catalog, requiredOnly bool, isDate dateCheck) Report {
	var fields []schema.TargetField
	if requiredOnly {
		fields = catalog.RequiredFields()
	} else {
		fields = catalog.Fields()
	}

	report := Report{
		Problems:         []Problem{},
		RecordsValidated: len(records),
		FieldsChecked:    len(fields),
	}
	for i, record := range records {
		for _, field := range fields {
			if p, bad := checkField(i, record, field, isDate); bad {
				report.Problems = append(report.Problems, p)
			}
		}
	}
	report.Valid = len(report.Problems) == 0
	return report
}

// checkField validates one field of one record.
func checkField(index int, record types.TransformedRecord, field schema.TargetField, isDate dateCheck) (Problem, bool) {
	problem := Problem{Record: index, Field: field.ID, Name: field.Name}

	value, present := record[field.Key()]
	if !present || types.IsEmpty(value) {
		problem.Issue = MissingValue
		problem.Message = "value is missing"
		return problem, true
	}

	switch {
	case field.Type.IsNumeric():
		if !isNumber(value, field.Type) {
			problem.Issue = InvalidNumber
			problem.Message = fmt.Sprintf("expected a %s", field.Type)
			problem.Value = types.Stringify(value)
			return problem, true
		}
	case field.Type.IsDate():
		if !isDate(index, field, value) {
			problem.Issue = InvalidDate
			problem.Message = "not a recognized date"
			problem.Value = types.Stringify(value)
			return problem, true
		}
	}
	return problem, false
}

// =============================================================================
// DATA TYPE VALIDATORS
// =============================================================================

// isNumber accepts numeric values and strings that parse as floats.
// Coordinates rendered as degrees, minutes and seconds are also numbers.
func isNumber(value any, t schema.FieldType) bool {
	switch v := value.(type) {
	case float64, float32, int, int64:
		return true
	case string:
		s := strings.TrimSpace(v)
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return true
		}
		return t == schema.Coordinate && transform.IsDMS(s)
	default:
		return false
	}
}

// =============================================================================
// PRESENTATION HELPERS
// =============================================================================

// Summarize groups problems by issue. Each issue maps to the distinct
// field IDs it affects, in first-seen order.
func Summarize(problems []Problem) map[Issue][]string {
	summary := make(map[Issue][]string)
	for _, p := range problems {
		if !slices.Contains(summary[p.Issue], p.Field) {
			summary[p.Issue] = append(summary[p.Issue], p.Field)
		}
	}
	return summary
}

// FormatProblems formats problems for display or logging.
//
// PARAMETERS:
//   - problems: The problems to format.
//
// RETURNS:
//   - A formatted string containing all problems.
func FormatProblems(problems []Problem) string {
	if len(problems) == 0 {
		return "No validation problems."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d problem(s):\n\n", len(problems)))
	for i, p := range problems {
		builder.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, p.Issue, p))
	}

	summary := Summarize(problems)
	builder.WriteString("\nBy issue:\n")
	for _, issue := range []Issue{MissingValue, InvalidNumber, InvalidDate} {
		if fields, ok := summary[issue]; ok {
			builder.WriteString(fmt.Sprintf("  %s: %s\n", issue, strings.Join(fields, ", ")))
		}
	}
	return builder.String()
}
