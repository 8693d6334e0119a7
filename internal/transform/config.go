// =============================================================================
// Incident Field Mapper - Transform Configuration
// =============================================================================
//
// Every mapped target field carries one transform configuration. The kind of
// the configuration is decided by the field's type:
//
//   Date, DateTime -> DateConfig       (source format, target format)
//   Coordinate     -> CoordinateConfig (decimal or DMS output)
//   anything else  -> TextConfig       (case transform)
//
// Configurations are created lazily with defaults the first time a field is
// transformed, and are discarded when the field's mapping is cleared.
//
// =============================================================================

package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
)

var (
	// ErrConfigKind is returned when a configuration does not match the
	// field's type.
	ErrConfigKind = errors.New("transform config kind does not match field type")

	// ErrInvalidConfig is returned for unknown formats or transforms.
	ErrInvalidConfig = errors.New("invalid transform config")
)

// =============================================================================
// CONFIG KINDS
// =============================================================================

// Kind discriminates the Config variants.
type Kind string

const (
	KindDate       Kind = "date"
	KindCoordinate Kind = "coordinate"
	KindText       Kind = "text"
)

// KindFor returns the config kind used for a field type.
func KindFor(t schema.FieldType) Kind {
	switch {
	case t.IsDate():
		return KindDate
	case t == schema.Coordinate:
		return KindCoordinate
	default:
		return KindText
	}
}

// Config is one of DateConfig, CoordinateConfig or TextConfig.
type Config interface {
	Kind() Kind
	validate() error
}

// Date source formats.
const (
	SourceAuto   = "auto"
	SourceCustom = "custom"
)

// Date target formats.
const (
	TargetISO8601 = "ISO8601"
	TargetUS      = "MM/DD/YYYY"
	TargetEU      = "DD/MM/YYYY"
)

// DateConfig controls date parsing and rendering.
type DateConfig struct {
	// SourceFormat is "auto", "custom", or a pattern such as "DD/MM/YYYY HH:mm".
	SourceFormat string `json:"sourceFormat" yaml:"source_format"`

	// CustomFormat is the pattern used when SourceFormat is "custom".
	CustomFormat string `json:"customFormat,omitempty" yaml:"custom_format,omitempty"`

	// TargetFormat is one of TargetISO8601, TargetUS, TargetEU.
	TargetFormat string `json:"targetFormat" yaml:"target_format"`
}

func (DateConfig) Kind() Kind { return KindDate }

func (c DateConfig) validate() error {
	switch c.TargetFormat {
	case TargetISO8601, TargetUS, TargetEU:
	default:
		return fmt.Errorf("%w: unknown target format %q", ErrInvalidConfig, c.TargetFormat)
	}

	switch c.SourceFormat {
	case SourceAuto:
		return nil
	case SourceCustom:
		if strings.TrimSpace(c.CustomFormat) == "" {
			return fmt.Errorf("%w: custom source format without a pattern", ErrInvalidConfig)
		}
		if _, err := compilePattern(c.CustomFormat); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return nil
	default:
		if _, err := compilePattern(c.SourceFormat); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return nil
	}
}

// Coordinate output formats.
const (
	FormatDecimal = "decimal"
	FormatDMS     = "dms"
)

// CoordinateConfig controls coordinate rendering.
type CoordinateConfig struct {
	Format string `json:"format" yaml:"format"`
}

func (CoordinateConfig) Kind() Kind { return KindCoordinate }

func (c CoordinateConfig) validate() error {
	switch c.Format {
	case FormatDecimal, FormatDMS:
		return nil
	default:
		return fmt.Errorf("%w: unknown coordinate format %q", ErrInvalidConfig, c.Format)
	}
}

// Text transforms.
const (
	TextNone       = "none"
	TextUppercase  = "uppercase"
	TextLowercase  = "lowercase"
	TextCapitalize = "capitalize"
)

// TextConfig controls case conversion of text values.
type TextConfig struct {
	TextTransform string `json:"textTransform" yaml:"text_transform"`
}

func (TextConfig) Kind() Kind { return KindText }

func (c TextConfig) validate() error {
	switch c.TextTransform {
	case TextNone, TextUppercase, TextLowercase, TextCapitalize:
		return nil
	default:
		return fmt.Errorf("%w: unknown text transform %q", ErrInvalidConfig, c.TextTransform)
	}
}

// DefaultConfig returns the configuration a field gets when none was set.
func DefaultConfig(field schema.TargetField) Config {
	switch KindFor(field.Type) {
	case KindDate:
		return DateConfig{SourceFormat: SourceAuto, TargetFormat: TargetISO8601}
	case KindCoordinate:
		return CoordinateConfig{Format: FormatDecimal}
	default:
		return TextConfig{TextTransform: TextNone}
	}
}

// =============================================================================
// CONFIG STORE
// =============================================================================

// Configs holds the per-field transform configuration, keyed by field ID.
// It is owned by a single caller and is not safe for concurrent mutation.
type Configs struct {
	byID    map[string]Config
	actions map[string]Actions
}

// NewConfigs returns an empty store.
func NewConfigs() *Configs {
	return &Configs{
		byID:    make(map[string]Config),
		actions: make(map[string]Actions),
	}
}

// Get returns the stored configuration for a field.
func (c *Configs) Get(fieldID string) (Config, bool) {
	cfg, ok := c.byID[fieldID]
	return cfg, ok
}

// Set stores cfg for field after checking its kind and values.
func (c *Configs) Set(field schema.TargetField, cfg Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config for %s", ErrInvalidConfig, field.ID)
	}
	if want := KindFor(field.Type); cfg.Kind() != want {
		return fmt.Errorf("%w: field %s needs a %s config, got %s", ErrConfigKind, field.ID, want, cfg.Kind())
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("field %s: %w", field.ID, err)
	}
	c.byID[field.ID] = cfg
	return nil
}

// Delete discards the configuration and actions for a field.
func (c *Configs) Delete(fieldID string) {
	delete(c.byID, fieldID)
	delete(c.actions, fieldID)
}

// SetActions stores the value actions run before a field's transform.
// An empty list removes them.
func (c *Configs) SetActions(fieldID string, actions Actions) {
	if len(actions) == 0 {
		delete(c.actions, fieldID)
		return
	}
	c.actions[fieldID] = actions
}

// Actions returns the value actions for a field, or nil.
func (c *Configs) Actions(fieldID string) Actions {
	return c.actions[fieldID]
}

// GetOrCreate returns the stored configuration, storing the default first
// when there is none or when the stored one no longer fits the field type.
func (c *Configs) GetOrCreate(field schema.TargetField) Config {
	if cfg, ok := c.byID[field.ID]; ok && cfg.Kind() == KindFor(field.Type) {
		return cfg
	}
	cfg := DefaultConfig(field)
	c.byID[field.ID] = cfg
	return cfg
}

// Len returns the number of stored configurations.
func (c *Configs) Len() int {
	return len(c.byID)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options are the loosely-typed settings of a mapping file rule.
// Only the options that apply to the field's kind may be set.
type Options struct {
	SourceFormat  string
	CustomFormat  string
	TargetFormat  string
	Format        string
	TextTransform string
}

// ConfigFromOptions builds a validated configuration for field, starting
// from DefaultConfig and overriding the options that were given.
func ConfigFromOptions(field schema.TargetField, opts Options) (Config, error) {
	dateSet := opts.SourceFormat != "" || opts.CustomFormat != "" || opts.TargetFormat != ""
	kind := KindFor(field.Type)

	var cfg Config
	switch kind {
	case KindDate:
		if opts.Format != "" || opts.TextTransform != "" {
			return nil, fmt.Errorf("%w: field %s is a date field", ErrConfigKind, field.ID)
		}
		d := DefaultConfig(field).(DateConfig)
		if opts.SourceFormat != "" {
			d.SourceFormat = opts.SourceFormat
		}
		if opts.CustomFormat != "" {
			d.CustomFormat = opts.CustomFormat
			if opts.SourceFormat == "" {
				d.SourceFormat = SourceCustom
			}
		}
		if opts.TargetFormat != "" {
			d.TargetFormat = opts.TargetFormat
		}
		cfg = d
	case KindCoordinate:
		if dateSet || opts.TextTransform != "" {
			return nil, fmt.Errorf("%w: field %s is a coordinate field", ErrConfigKind, field.ID)
		}
		c := DefaultConfig(field).(CoordinateConfig)
		if opts.Format != "" {
			c.Format = strings.ToLower(opts.Format)
		}
		cfg = c
	default:
		if dateSet || opts.Format != "" {
			return nil, fmt.Errorf("%w: field %s is a %s field", ErrConfigKind, field.ID, field.Type)
		}
		t := DefaultConfig(field).(TextConfig)
		if opts.TextTransform != "" {
			t.TextTransform = strings.ToLower(opts.TextTransform)
		}
		cfg = t
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("field %s: %w", field.ID, err)
	}
	return cfg, nil
}
