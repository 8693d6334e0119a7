// =============================================================================
// Incident Field Mapper - Schema Model: Schema Acquisition
// =============================================================================
//
// Fetching a schema document is the only asynchronous boundary of the
// engine. A Fetcher returns the raw bytes of a document; the Loader applies a
// timeout, fetches, and hands the bytes to the synchronous normalization in
// catalog.go (or template.go for XLSX templates).
//
// SUPPORTED LOCATIONS:
//   - Local file paths                 (FileFetcher)
//   - http:// and https:// URLs        (HTTPFetcher)
//
// Any failure is reported as a *SchemaError so callers have a single error
// type to retry on.
//
// =============================================================================

package schema

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a single schema fetch when none is configured.
const DefaultFetchTimeout = 30 * time.Second

// maxDocumentSize caps how much of a remote document is read.
const maxDocumentSize = 16 << 20

// =============================================================================
// FETCHERS
// =============================================================================

// Fetcher retrieves the raw bytes of a schema document.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FileFetcher reads schema documents from the local filesystem.
type FileFetcher struct{}

// Fetch reads the file at location unless ctx is already done.
func (FileFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return data, nil
}

// HTTPFetcher downloads schema documents over HTTP(S).
type HTTPFetcher struct {
	// Client is used for requests. http.DefaultClient when nil.
	Client *http.Client
}

// Fetch issues a GET bound to ctx. Non-2xx responses are errors.
func (f HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status fetching schema: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema response: %w", err)
	}
	return data, nil
}

// fetcherFor picks a fetcher from the location's scheme.
func fetcherFor(location string) Fetcher {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return HTTPFetcher{}
	}
	return FileFetcher{}
}

// =============================================================================
// LOADER
// =============================================================================

// Loader fetches and normalizes schema documents.
type Loader struct {
	// Fetcher overrides scheme-based fetcher selection when set.
	Fetcher Fetcher

	// Timeout bounds each fetch. DefaultFetchTimeout when zero.
	Timeout time.Duration

	// Logger receives fetch diagnostics. slog.Default() when nil.
	Logger *slog.Logger
}

// Load fetches the document at location and builds a catalog for toolID.
//
// PARAMETERS:
//   - ctx: Cancels the fetch. The normalization step itself is synchronous.
//   - location: A file path or http(s) URL. Locations ending in ".xlsx" are
//     parsed as XLSX schema templates.
//   - toolID: The active target tool.
//
// RETURNS:
//   - The catalog, or a *SchemaError. The caller should keep any previously
//     loaded catalog on error and may retry.
func (l *Loader) Load(ctx context.Context, location, toolID string) (*Catalog, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	fetcher := l.Fetcher
	if fetcher == nil {
		fetcher = fetcherFor(location)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	data, err := fetcher.Fetch(fetchCtx, location)
	if err != nil {
		return nil, schemaErrorf(location, err, "fetch failed")
	}
	logger.Debug("fetched schema document",
		slog.String("location", location),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(start)))

	var catalog *Catalog
	if isTemplate(location) {
		catalog, err = loadTemplate(data, toolID, location)
	} else {
		catalog, err = loadCatalog(data, toolID, location)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("loaded schema",
		slog.String("location", location),
		slog.String("tool", toolID),
		slog.Int("fields", catalog.Len()),
		slog.Int("required", len(catalog.requiredIDs)))
	return catalog, nil
}

// isTemplate reports whether the location names an XLSX template.
func isTemplate(location string) bool {
	p := location
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.EqualFold(path.Ext(p), ".xlsx")
}
