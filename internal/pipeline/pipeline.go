// =============================================================================
// Incident Field Mapper - Pipeline Module
// =============================================================================
//
// This module orchestrates a full mapping run for a single source file, from
// schema loading to the written output document.
//
// PIPELINE:
//   1. Load the target schema (cached per location and tool)
//   2. Read the source file
//   3. Build the mapping from the mapping file rules and the suggestions
//   4. Refuse to continue when required fields are unmapped
//   5. Transform every record
//   6. Validate the transformed records
//   7. Write the output document (JSON or XML) and, when needed, a problem
//      log
//   8. Archive the source file
//
// CONCURRENCY:
//   A Pipeline is safe for concurrent Process calls. Each call builds its
//   own mapping state; the schema cache is guarded by a mutex. ProcessAll
//   runs files in parallel up to max_concurrency.
//
// =============================================================================

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/incident-field-mapper/internal/config"
	"github.com/ginjaninja78/incident-field-mapper/internal/logging"
	"github.com/ginjaninja78/incident-field-mapper/internal/mapping"
	"github.com/ginjaninja78/incident-field-mapper/internal/matcher"
	"github.com/ginjaninja78/incident-field-mapper/internal/schema"
	"github.com/ginjaninja78/incident-field-mapper/internal/source"
	"github.com/ginjaninja78/incident-field-mapper/internal/transform"
	"github.com/ginjaninja78/incident-field-mapper/internal/types"
	"github.com/ginjaninja78/incident-field-mapper/internal/validation"
	"github.com/ginjaninja78/incident-field-mapper/internal/xmlwriter"
	"github.com/ginjaninja78/incident-field-mapper/pkg/utils"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrMappingIncomplete is returned when required fields are unmapped and
// allow_incomplete is off.
var ErrMappingIncomplete = errors.New("mapping incomplete")

// ErrNoSchema is returned when no schema location is configured.
var ErrNoSchema = errors.New("no schema location configured")

// PreconditionError lists the required fields that block a run.
type PreconditionError struct {
	// Missing are the unmapped required field IDs in catalog order.
	Missing []string

	// Coverage is the suggestion coverage that was evaluated.
	Coverage matcher.Coverage
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %d required field(s) unmapped: %s",
		ErrMappingIncomplete, len(e.Missing), strings.Join(e.Missing, ", "))
}

func (e *PreconditionError) Unwrap() error {
	return ErrMappingIncomplete
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the source file that was processed.
	FilePath string

	// OutputFile is the written document. Empty on failure or dry run.
	OutputFile string

	// ProblemLog is the written problem log, empty when validation passed.
	ProblemLog string

	// ArchivePath is where the source file was moved, if archival is on.
	ArchivePath string

	// Success indicates whether the run completed. A run with validation
	// problems still succeeds.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Coverage is the suggestion coverage for the source columns.
	Coverage matcher.Coverage

	// Mapping is the exported mapping that was applied.
	Mapping []mapping.ExportEntry

	// Report is the validation report.
	Report validation.Report

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	Columns            int
	RecordsRead        int
	RecordsTransformed int
	FieldsMapped       int
	Problems           int
	ProcessingTime     time.Duration
}

// Document is the JSON output of a run.
type Document struct {
	Source      string                    `json:"source"`
	Tool        string                    `json:"tool"`
	GeneratedAt time.Time                 `json:"generatedAt"`
	Mapping     []mapping.ExportEntry     `json:"mapping"`
	Validation  validation.Report         `json:"validation"`
	Records     []types.TransformedRecord `json:"records"`
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Options tune a pipeline beyond the main configuration.
type Options struct {
	// Schema overrides the configured schema location.
	Schema string

	// TargetTool overrides the configured target tool.
	TargetTool string

	// DryRun runs every step but writes nothing and archives nothing.
	DryRun bool

	// AcceptSuggestions applies suggestions even below the auto-apply
	// threshold.
	AcceptSuggestions bool
}

// Pipeline runs mapping jobs with a shared configuration.
type Pipeline struct {
	cfg      *config.MainConfig
	opts     Options
	loader   *schema.Loader
	matcher  *matcher.Matcher
	executor *transform.Executor
	files    *utils.FileManager
	logger   *slog.Logger

	mu       sync.Mutex
	catalogs map[string]*schema.Catalog
}

// New creates a pipeline from the main configuration.
//
// RETURNS:
//   - The pipeline.
//   - An error if the configuration carries an invalid date parse order.
func New(cfg *config.MainConfig, opts Options) (*Pipeline, error) {
	order, err := cfg.DateOrder()
	if err != nil {
		return nil, err
	}

	logger := logging.New("pipeline")
	return &Pipeline{
		cfg:  cfg,
		opts: opts,
		loader: &schema.Loader{
			Timeout: cfg.SchemaFetchTimeout,
			Logger:  logging.New("schema"),
		},
		matcher: matcher.New(cfg.Aliases, logging.New("matcher")),
		executor: &transform.Executor{
			DateOrder: order,
			Fallbacks: cfg.Fallbacks(),
			Workers:   cfg.Workers,
			Logger:    logging.New("transform"),
		},
		files:    utils.NewFileManager(cfg.OutputDir, cfg.ArchiveDir),
		logger:   logger,
		catalogs: make(map[string]*schema.Catalog),
	}, nil
}

// =============================================================================
// SCHEMA LOADING
// =============================================================================

// Target resolves the schema location and tool for a source file. The
// command line beats the mapping file, which beats the main configuration.
func (p *Pipeline) Target(mf *config.MappingFile) (location, tool string) {
	location, tool = p.cfg.Schema, p.cfg.TargetTool
	if mf != nil {
		if mf.Schema != "" {
			location = mf.Schema
		}
		if mf.TargetTool != "" {
			tool = mf.TargetTool
		}
	}
	if p.opts.Schema != "" {
		location = p.opts.Schema
	}
	if p.opts.TargetTool != "" {
		tool = p.opts.TargetTool
	}
	return location, tool
}

// Catalog loads the catalog for a mapping file's target, reusing a catalog
// already loaded for the same location and tool. A failed load is not
// cached, so the next call retries.
func (p *Pipeline) Catalog(ctx context.Context, mf *config.MappingFile) (*schema.Catalog, error) {
	location, tool := p.Target(mf)
	if location == "" {
		return nil, ErrNoSchema
	}

	key := location + "\x00" + tool
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.catalogs[key]; ok {
		return c, nil
	}

	c, err := p.loader.Load(ctx, location, tool)
	if err != nil {
		return nil, err
	}
	p.catalogs[key] = c
	return c, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Process runs the pipeline for one source file.
//
// PARAMETERS:
//   - ctx: Cancels the schema fetch.
//   - path: The source file.
//   - mf: The mapping file for this source, or nil to rely on suggestions.
//
// RETURNS:
//   - A Result. Result.Error wraps *PreconditionError when required fields
//     are unmapped and allow_incomplete is off.
func (p *Pipeline) Process(ctx context.Context, path string, mf *config.MappingFile) Result {
	startTime := time.Now()
	result := Result{FilePath: path}
	logger := p.logger.With(slog.String("file", filepath.Base(path)))

	// =========================================================================
	// STEP 1: LOAD SCHEMA
	// =========================================================================

	catalog, err := p.Catalog(ctx, mf)
	if err != nil {
		result.Error = fmt.Errorf("failed to load schema: %w", err)
		return result
	}

	// =========================================================================
	// STEP 2: READ SOURCE
	// =========================================================================

	table, err := source.Read(path, mf.ResolveCSVSettings(p.cfg.CSVSettings))
	if err != nil {
		result.Error = fmt.Errorf("failed to read source: %w", err)
		return result
	}
	result.Stats.Columns = len(table.Columns)
	result.Stats.RecordsRead = len(table.Records)
	logger.Debug("read source",
		slog.String("format", string(table.Format)),
		slog.Int("columns", len(table.Columns)),
		slog.Int("records", len(table.Records)))

	// =========================================================================
	// STEP 3: BUILD MAPPING
	// =========================================================================

	state, coverage, err := p.BuildMapping(catalog, table.Columns, mf)
	result.Coverage = coverage
	if err != nil {
		result.Error = fmt.Errorf("failed to build mapping: %w", err)
		return result
	}
	result.Stats.FieldsMapped = state.Len()
	result.Mapping = state.Export(catalog, table.Columns)

	// =========================================================================
	// STEP 4: CHECK PRECONDITIONS
	// =========================================================================

	if missing := state.Missing(catalog, true); len(missing) > 0 {
		if !p.cfg.AllowIncomplete {
			result.Error = &PreconditionError{Missing: missing, Coverage: coverage}
			return result
		}
		logger.Warn("continuing with unmapped required fields",
			slog.Any("missing", missing),
			slog.Float64("progress", state.Progress(catalog)))
	}

	// =========================================================================
	// STEP 5: TRANSFORM
	// =========================================================================

	transformed := p.executor.Transform(table.Records, table.Columns, catalog, state, state.Configs())
	records := transformed.Records
	result.Stats.RecordsTransformed = len(records)

	// =========================================================================
	// STEP 6: VALIDATE
	// =========================================================================

	report := validation.ValidateResult(transformed, catalog, !p.cfg.ValidateAllFields)
	result.Report = report
	result.Stats.Problems = len(report.Problems)
	if !report.Valid {
		logger.Warn("validation found problems",
			slog.Int("problems", len(report.Problems)),
			slog.Any("by_issue", validation.Summarize(report.Problems)))
	}

	if p.opts.DryRun {
		result.Success = true
		result.Stats.ProcessingTime = time.Since(startTime)
		logger.Info("dry run complete", slog.Int("records", len(records)))
		return result
	}

	// =========================================================================
	// STEP 7: WRITE OUTPUT
	// =========================================================================

	if err := p.files.EnsureDirectories(); err != nil {
		result.Error = err
		return result
	}

	_, tool := p.Target(mf)
	outputFile, err := p.writeDocument(path, tool, catalog, Document{
		Source:      path,
		Tool:        tool,
		GeneratedAt: time.Now().UTC(),
		Mapping:     result.Mapping,
		Validation:  report,
		Records:     records,
	})
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}
	result.OutputFile = outputFile

	logPath, err := utils.WriteProblemLog(problemEntries(report.Problems), path, p.cfg.OutputDir)
	if err != nil {
		result.Error = fmt.Errorf("failed to write problem log: %w", err)
		return result
	}
	result.ProblemLog = logPath

	// =========================================================================
	// STEP 8: ARCHIVE
	// =========================================================================

	archivePath, err := p.files.ArchiveInputFile(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to archive source: %w", err)
		return result
	}
	if archivePath != path {
		result.ArchivePath = archivePath
	}

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)
	logger.Info("processed file",
		slog.String("output", outputFile),
		slog.Int("records", len(records)),
		slog.Int("problems", len(report.Problems)),
		slog.Duration("elapsed", result.Stats.ProcessingTime))
	return result
}

// writeDocument writes the output document in the configured format and
// returns its path.
func (p *Pipeline) writeDocument(sourcePath, tool string, catalog *schema.Catalog, doc Document) (string, error) {
	var (
		data []byte
		err  error
	)
	switch p.cfg.OutputFormat {
	case "xml":
		data, err = xmlwriter.Generate(doc.Records, catalog, xmlwriter.Header{
			Source:      filepath.Base(doc.Source),
			Tool:        doc.Tool,
			GeneratedAt: doc.GeneratedAt,
			Problems:    len(doc.Validation.Problems),
		})
	default:
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return "", err
	}

	name := utils.GenerateOutputFileName(p.cfg.OutputNameFormat, "."+p.cfg.OutputFormat, map[string]string{
		"tool":     tool,
		"original": strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath)),
	})
	outputPath := filepath.Join(p.cfg.OutputDir, name)
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", err
	}
	return outputPath, nil
}

// problemEntries converts validation problems to problem log entries.
func problemEntries(problems []validation.Problem) []utils.ProblemLogEntry {
	entries := make([]utils.ProblemLogEntry, len(problems))
	for i, p := range problems {
		entries[i] = utils.ProblemLogEntry{
			Record:     p.Record,
			FieldID:    p.Field,
			FieldName:  p.Name,
			Issue:      string(p.Issue),
			Message:    p.Message,
			FieldValue: p.Value,
		}
	}
	return entries
}

// =============================================================================
// BATCH PROCESSING
// =============================================================================

// ProcessAll processes files concurrently, matching each to a mapping file
// by name. Results come back in the order of paths. Unless
// continue_on_error is set, the first failure stops files that have not
// started yet; they report the cancellation as their error.
func (p *Pipeline) ProcessAll(ctx context.Context, paths []string, mappings []*config.MappingFile) []Result {
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{FilePath: path, Error: fmt.Errorf("skipped: %w", err)}
				return nil
			}

			mf := config.FindMappingFile(path, mappings)
			if mf != nil {
				p.logger.Debug("matched mapping file",
					slog.String("file", filepath.Base(path)),
					slog.String("mapping", mf.Name))
			}

			results[i] = p.Process(gctx, path, mf)
			if !results[i].Success && !p.cfg.ContinueOnError {
				return results[i].Error
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Summarize builds a processing summary from batch results.
func Summarize(results []Result, start, end time.Time) utils.ProcessingSummary {
	summary := utils.ProcessingSummary{
		StartTime:  start,
		EndTime:    end,
		TotalFiles: len(results),
	}
	for _, r := range results {
		if r.Success {
			summary.SuccessfulFiles++
			summary.TotalRecords += r.Stats.RecordsTransformed
			summary.TotalProblems += r.Stats.Problems
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   r.FilePath,
				OutputFile:  r.OutputFile,
				Records:     r.Stats.RecordsTransformed,
				Problems:    r.Stats.Problems,
				ProcessTime: r.Stats.ProcessingTime,
			})
			continue
		}
		msg := "unknown error"
		if r.Error != nil {
			msg = r.Error.Error()
		}
		summary.FailedFiles++
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    r.FilePath,
			ErrorMessage: msg,
		})
	}
	return summary
}
