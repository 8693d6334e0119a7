package schema

import "fmt"

// SchemaError reports a schema document that could not be fetched, decoded
// or normalized. It is fatal to initialization but retryable: the caller
// keeps its previous catalog and may call the loader again.
type SchemaError struct {
	// Source is the document location, when known.
	Source string

	// Reason describes what was wrong with the document.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

func (e *SchemaError) Error() string {
	msg := "schema error"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func schemaErrorf(source string, err error, format string, args ...any) *SchemaError {
	return &SchemaError{Source: source, Reason: fmt.Sprintf(format, args...), Err: err}
}
