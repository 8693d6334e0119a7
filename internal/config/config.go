// =============================================================================
// Incident Field Mapper - Configuration Management
// =============================================================================
//
// This module handles loading and parsing of the YAML configuration files:
//   1. The main configuration (config.yaml) - engine-wide settings
//   2. Mapping files (mappings/*.yaml) - explicit per-source mapping rules
//
// CONFIGURATION HIERARCHY:
//   - The main configuration sets output paths, logging, the target tool,
//     the matcher and transform tuning, and default CSV settings.
//   - A mapping file binds target fields to source columns for one family
//     of source files and may override the CSV settings for them.
//
// A missing main configuration file is not an error: every key has a
// default. A malformed file, or a value outside its range, is.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/incident-field-mapper/internal/logging"
	"github.com/ginjaninja78/incident-field-mapper/internal/matcher"
	"github.com/ginjaninja78/incident-field-mapper/internal/transform"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig represents the main configuration file (config.yaml).
type MainConfig struct {
	// OutputDir is where transformed documents and problem logs are written.
	OutputDir string `yaml:"output_dir"`

	// OutputNameFormat names output files. Placeholders: {uuid},
	// {timestamp}, {date}, {time}, {tool}, {original}.
	OutputNameFormat string `yaml:"output_name_format"`

	// OutputFormat is json or xml.
	OutputFormat string `yaml:"output_format"`

	// ArchiveDir receives source files after a successful run. Files are
	// left in place when empty.
	ArchiveDir string `yaml:"archive_dir"`

	// MappingsDir holds mapping files matched to sources by file pattern.
	MappingsDir string `yaml:"mappings_dir"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`

	// Schema is the default schema document location (path, URL or .xlsx
	// template).
	Schema string `yaml:"schema"`

	// SchemaFetchTimeout bounds each schema fetch.
	SchemaFetchTimeout time.Duration `yaml:"schema_fetch_timeout"`

	// TargetTool selects a tool-specific field set of the schema document.
	TargetTool string `yaml:"target_tool"`

	// Workers is the number of goroutines transforming records of one file.
	Workers int `yaml:"workers"`

	// MaxConcurrency is the number of files processed at once in batch mode.
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps a batch going after a file fails.
	ContinueOnError bool `yaml:"continue_on_error"`

	// AutoApplyRatio is the share of required fields the matcher must find
	// before its suggestions are applied without review. Nil means the
	// matcher default.
	AutoApplyRatio *float64 `yaml:"auto_apply_ratio"`

	// AllowIncomplete lets a run proceed with unmapped required fields.
	AllowIncomplete bool `yaml:"allow_incomplete"`

	// ValidateAllFields checks optional fields as well as required ones.
	ValidateAllFields bool `yaml:"validate_all_fields"`

	// DateParseOrder is the automatic date detection chain.
	DateParseOrder []string `yaml:"date_parse_order"`

	// Aliases adds matcher aliases keyed by target field name.
	Aliases map[string][]string `yaml:"aliases"`

	// FallbackColumns adds or replaces legacy fallback column lists keyed by
	// target field name or path.
	FallbackColumns map[string][]string `yaml:"fallback_columns"`

	// CSVSettings are the defaults for delimited sources.
	CSVSettings CSVSettings `yaml:"csv_settings"`
}

// CSVSettings contains settings for parsing delimited source files.
type CSVSettings struct {
	// Delimiter is the field separator: ",", "\t" (or "tab"), "|" (or
	// "pipe"), ";" (or "semicolon").
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Multi-line headers are
	// joined with a space.
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-indexed row where data begins.
	DataStartRow int `yaml:"data_start_row"`

	// Encoding is utf-8, utf-16, iso-8859-1 or windows-1252.
	Encoding string `yaml:"encoding"`
}

// =============================================================================
// CONFIGURATION DEFAULTS
// =============================================================================

const (
	DefaultOutputDir        = "./output"
	DefaultOutputNameFormat = "{tool}_{original}_{timestamp}_{uuid}"
	DefaultOutputFormat     = "json"
	DefaultTargetTool       = "default"
	DefaultMaxConcurrency   = 4
)

// Defaults returns a configuration with every key at its default.
func Defaults() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// applyMainConfigDefaults fills in every unset key.
func applyMainConfigDefaults(cfg *MainConfig) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.OutputNameFormat == "" {
		cfg.OutputNameFormat = DefaultOutputNameFormat
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = DefaultOutputFormat
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.SchemaFetchTimeout <= 0 {
		cfg.SchemaFetchTimeout = 30 * time.Second
	}
	if cfg.TargetTool == "" {
		cfg.TargetTool = DefaultTargetTool
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if len(cfg.DateParseOrder) == 0 {
		for _, p := range transform.DefaultDateOrder {
			cfg.DateParseOrder = append(cfg.DateParseOrder, string(p))
		}
	}
	applyCSVDefaults(&cfg.CSVSettings)
}

// applyCSVDefaults fills in unset CSV settings.
func applyCSVDefaults(s *CSVSettings) {
	if s.Delimiter == "" {
		s.Delimiter = ","
	}
	if s.HeaderRows <= 0 {
		s.HeaderRows = 1
	}
	if s.DataStartRow <= 0 {
		s.DataStartRow = s.HeaderRows + 1
	}
	if s.Encoding == "" {
		s.Encoding = "utf-8"
	}
}

// =============================================================================
// MAIN CONFIGURATION LOADING
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - path: The path to config.yaml. A file that does not exist yields the
//     defaults.
//
// RETURNS:
//   - The configuration with defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(path string) (*MainConfig, error) {
	cfg := &MainConfig{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyMainConfigDefaults(cfg)

	if err := validateMainConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// validateMainConfig checks values that defaults cannot repair.
func validateMainConfig(cfg *MainConfig) error {
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	switch cfg.OutputFormat {
	case "json", "xml":
	default:
		return fmt.Errorf("unknown output format %q", cfg.OutputFormat)
	}
	if r := cfg.AutoApplyRatio; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("auto_apply_ratio must be between 0 and 1, got %v", *r)
	}
	if _, err := cfg.DateOrder(); err != nil {
		return err
	}
	return validateCSVSettings(cfg.CSVSettings)
}

// validateCSVSettings rejects settings the source reader cannot honor.
func validateCSVSettings(s CSVSettings) error {
	if _, err := DelimiterRune(s.Delimiter); err != nil {
		return err
	}
	if s.DataStartRow <= s.HeaderRows {
		return fmt.Errorf("data_start_row (%d) must come after the %d header row(s)", s.DataStartRow, s.HeaderRows)
	}
	return nil
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// Policy returns the matcher auto-apply policy.
func (c *MainConfig) Policy() matcher.Policy {
	if c.AutoApplyRatio == nil {
		return matcher.DefaultPolicy()
	}
	return matcher.Policy{Ratio: *c.AutoApplyRatio}
}

// DateOrder returns the parsed date detection chain.
func (c *MainConfig) DateOrder() ([]transform.DateParser, error) {
	order, err := transform.ParseDateOrder(c.DateParseOrder)
	if err != nil {
		return nil, fmt.Errorf("invalid date_parse_order: %w", err)
	}
	return order, nil
}

// Fallbacks returns the built-in fallback registry merged with the
// configured columns.
func (c *MainConfig) Fallbacks() transform.FallbackRegistry {
	return transform.DefaultFallbacks().Merge(c.FallbackColumns)
}

// DelimiterRune resolves a delimiter setting, accepting the names used in
// configuration files.
func DelimiterRune(delimiter string) (rune, error) {
	switch strings.ToLower(delimiter) {
	case "", ",", "comma":
		return ',', nil
	case "\t", "\\t", "tab":
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	case ";", "semicolon":
		return ';', nil
	}
	r := []rune(delimiter)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("unsupported delimiter %q", delimiter)
	}
	return r[0], nil
}

// =============================================================================
// MAPPING FILES
// =============================================================================

// MappingFile holds explicit mapping rules for one family of source files.
type MappingFile struct {
	// Name identifies the mapping in logs. The file name when empty.
	Name string `yaml:"name"`

	// FilePatterns are glob patterns matched against source file names.
	FilePatterns []string `yaml:"file_patterns"`

	// Schema overrides the main configuration's schema location.
	Schema string `yaml:"schema"`

	// TargetTool overrides the main configuration's target tool.
	TargetTool string `yaml:"target_tool"`

	// CSVSettings override the main configuration's CSV settings.
	CSVSettings *CSVSettings `yaml:"csv_settings"`

	// Rules bind target fields to source columns.
	Rules []MappingRule `yaml:"rules"`

	// path is the file the mapping was loaded from.
	path string
}

// MappingRule binds one target field to one source column.
type MappingRule struct {
	// Target is the target field ID, name or path.
	Target string `yaml:"target"`

	// Source is the source column name, matched case-insensitively.
	Source string `yaml:"source"`

	SourceFormat  string `yaml:"source_format"`
	CustomFormat  string `yaml:"custom_format"`
	TargetFormat  string `yaml:"target_format"`
	Format        string `yaml:"format"`
	TextTransform string `yaml:"text_transform"`

	// Actions clean up the raw value before the type transform, in order.
	Actions []transform.Action `yaml:"actions"`
}

// Options returns the rule's transform settings.
func (r MappingRule) Options() transform.Options {
	return transform.Options{
		SourceFormat:  r.SourceFormat,
		CustomFormat:  r.CustomFormat,
		TargetFormat:  r.TargetFormat,
		Format:        r.Format,
		TextTransform: r.TextTransform,
	}
}

// Path returns the file the mapping was loaded from.
func (m *MappingFile) Path() string {
	return m.path
}

// Matches reports whether fileName matches any of the file patterns.
// Invalid patterns never match.
func (m *MappingFile) Matches(fileName string) bool {
	base := filepath.Base(fileName)
	for _, pattern := range m.FilePatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// ResolveCSVSettings returns the mapping's CSV settings over base.
func (m *MappingFile) ResolveCSVSettings(base CSVSettings) CSVSettings {
	if m == nil || m.CSVSettings == nil {
		return base
	}
	s := *m.CSVSettings
	applyCSVDefaults(&s)
	return s
}

// LoadMappingFile loads and validates a single mapping file.
func LoadMappingFile(path string) (*MappingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	m := &MappingFile{path: path}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	seen := make(map[string]bool, len(m.Rules))
	for i, rule := range m.Rules {
		if rule.Target == "" || rule.Source == "" {
			return nil, fmt.Errorf("mapping file %s: rule %d needs both target and source", path, i+1)
		}
		key := strings.ToLower(rule.Target)
		if seen[key] {
			return nil, fmt.Errorf("mapping file %s: target %q is mapped twice", path, rule.Target)
		}
		seen[key] = true
		if _, err := transform.CompileActions(rule.Actions); err != nil {
			return nil, fmt.Errorf("mapping file %s: target %q: %w", path, rule.Target, err)
		}
	}
	if m.CSVSettings != nil {
		applyCSVDefaults(m.CSVSettings)
		if err := validateCSVSettings(*m.CSVSettings); err != nil {
			return nil, fmt.Errorf("mapping file %s: %w", path, err)
		}
	}
	return m, nil
}

// LoadMappingFiles loads every mapping file in a directory.
//
// PARAMETERS:
//   - dir: The directory containing *.yaml / *.yml mapping files. An empty
//     dir yields no mappings.
//
// RETURNS:
//   - The mapping files in file name order.
//   - An error if any file fails to load.
func LoadMappingFiles(dir string) ([]*MappingFile, error) {
	if dir == "" {
		return nil, nil
	}

	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan mappings directory: %w", err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	mappings := make([]*MappingFile, 0, len(paths))
	for _, p := range paths {
		m, err := LoadMappingFile(p)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

// FindMappingFile returns the first mapping whose patterns match fileName,
// or nil.
func FindMappingFile(fileName string, mappings []*MappingFile) *MappingFile {
	for _, m := range mappings {
		if m.Matches(fileName) {
			return m
		}
	}
	return nil
}
