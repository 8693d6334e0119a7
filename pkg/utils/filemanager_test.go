package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{tool}_{original}_{date}_{uuid}", ".json", map[string]string{
		"tool":     "nerris",
		"original": "city calls/0322",
	})

	pattern := regexp.MustCompile(`^nerris_city_calls_0322_\d{8}_[0-9a-f-]{36}\.json$`)
	assert.Regexp(t, pattern, name)

	assert.Equal(t, "out.JSON", GenerateOutputFileName("out.JSON", ".json", nil))
	assert.Equal(t, "out.json", GenerateOutputFileName("out", ".json", nil))
	assert.Equal(t, "out.xml", GenerateOutputFileName("out.json", ".xml", nil))
	assert.Equal(t, "calls.v2.xml", GenerateOutputFileName("{original}", ".xml", map[string]string{"original": "calls.v2"}))
	assert.NotEqual(t, GenerateOutputFileName("{uuid}", ".json", nil), GenerateOutputFileName("{uuid}", ".json", nil))
}

func TestFileManager_EnsureAndArchive(t *testing.T) {
	root := t.TempDir()
	fm := NewFileManager(filepath.Join(root, "out"), filepath.Join(root, "archive"))
	require.NoError(t, fm.EnsureDirectories())
	assert.DirExists(t, fm.OutputDir)
	assert.DirExists(t, fm.ArchiveDir)

	src := filepath.Join(root, "calls.csv")
	require.NoError(t, os.WriteFile(src, []byte("Unit\nE1\n"), 0o644))

	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "archive", "calls.csv"), archived)
	assert.False(t, FileExists(src))
	assert.True(t, FileExists(archived))
}

func TestFileManager_ArchiveKeepsEarlierCopy(t *testing.T) {
	root := t.TempDir()
	fm := NewFileManager(filepath.Join(root, "out"), filepath.Join(root, "archive"))
	require.NoError(t, fm.EnsureDirectories())

	src := filepath.Join(root, "calls.csv")
	require.NoError(t, os.WriteFile(src, []byte("first"), 0o644))
	first, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(src, []byte("second"), 0o644))
	second, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Regexp(t, `calls_[0-9a-f]{8}\.csv$`, filepath.Base(second))
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	assert.False(t, FileExists(src))
}

func TestFileManager_ArchiveDisabled(t *testing.T) {
	root := t.TempDir()
	fm := NewFileManager(root, "")
	require.NoError(t, fm.EnsureDirectories())

	src := filepath.Join(root, "calls.csv")
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, src, archived)
	assert.True(t, FileExists(src))
}

func TestFileManager_TimestampSubdirs(t *testing.T) {
	fm := &FileManager{ArchiveDir: "/archive", UseTimestampSubdirs: true}
	got := fm.getArchivePath("/in/calls.csv")
	want := filepath.Join("/archive", time.Now().Format("2006"), time.Now().Format("01"), time.Now().Format("02"), "calls.csv")
	assert.Equal(t, want, got)
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.json", "notes.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	files, err := DiscoverFiles(dir, func(p string) bool { return !strings.HasSuffix(p, ".md") })
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.csv")}, files)

	all, err := DiscoverFiles(dir, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = DiscoverFiles(filepath.Join(dir, "missing"), nil)
	assert.Error(t, err)
}

func TestWriteProblemLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteProblemLog(nil, "calls.csv", dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteProblemLog([]ProblemLogEntry{
		{Record: 0, FieldID: "latitude", FieldName: "Latitude", Issue: "InvalidNumber", Message: "expected a coordinate", FieldValue: "not-a-number"},
		{Record: 3, FieldID: "unit", FieldName: "Unit", Issue: "MissingValue", Message: "value is missing"},
	}, "/in/calls.csv", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "problems_calls_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Problems:  2")
	assert.Contains(t, text, "  Field:   Latitude (latitude)\n")
	assert.Contains(t, text, "  Value:   not-a-number\n")
	assert.Contains(t, text, "  Record:  4\n")
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2025, 3, 22, 14, 30, 0, 0, time.UTC)

	path, err := WriteSummaryLog(ProcessingSummary{
		StartTime:       start,
		EndTime:         start.Add(2 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalRecords:    10,
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "a.csv", OutputFile: "a.json", Records: 10}},
		FailedFilesList: []FailedFileInfo{{InputFile: "b.csv", ErrorMessage: "mapping incomplete"}},
	}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Duration:       2s")
	assert.Contains(t, text, "Total Records:  10")
	assert.Contains(t, text, "  Error: mapping incomplete")
}
