package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/incident-field-mapper/internal/config"
)

const testSchema = `{
  "requiredFields": [{"name": "Incident Number"}],
  "optionalFields": [{"name": "Notes"}]
}`

// setupWorkspace writes a schema, a config file and an input directory.
func setupWorkspace(t *testing.T) (cfgPath, inputDir string) {
	t.Helper()
	dir := t.TempDir()

	schemaPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testSchema), 0o644))

	cfgPath = filepath.Join(dir, "config.yaml")
	cfgBody := "schema: " + schemaPath + "\noutput_dir: " + filepath.Join(dir, "out") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgBody), 0o644))

	inputDir = filepath.Join(dir, "input")
	require.NoError(t, os.MkdirAll(inputDir, 0o755))
	return cfgPath, inputDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestTransformCommand_DryRun(t *testing.T) {
	cfgPath, inputDir := setupWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "calls.csv"),
		[]byte("Incident Number,Notes\n25-001,smoke\n25-002,\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "readme.md"), []byte("skip"), 0o644))

	out, err := execute(t, "--config", cfgPath, "transform", inputDir, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "Found 1 file(s) to process")
	assert.Contains(t, out, "✓ calls.csv -> (dry run) (2 records, 0 problems)")
	assert.Contains(t, out, "Successful:      1")
}

func TestTransformCommand_ReportsFailures(t *testing.T) {
	cfgPath, inputDir := setupWorkspace(t)
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "other.csv"),
		[]byte("Something Else\nx\n"), 0o644))

	out, err := execute(t, "--config", cfgPath, "transform", inputDir, "--dry-run")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "1 of 1 file(s) failed")
	assert.Contains(t, out, "✗ other.csv")
}

func TestSchemaCommand(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)

	out, err := execute(t, "--config", cfgPath, "schema")
	require.NoError(t, err)

	assert.Contains(t, out, "Fields: 2  Required: 1")
	assert.Contains(t, out, "incident_number")
}

func TestSchemaCommand_XSD(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)
	t.Cleanup(func() { schemaXSD = false })

	out, err := execute(t, "--config", cfgPath, "schema", "--xsd")
	require.NoError(t, err)

	assert.Contains(t, out, `<xs:element name="incident_number" type="xs:string" minOccurs="1"/>`)
	assert.Contains(t, out, `<xs:element name="notes" type="xs:string" minOccurs="0"/>`)
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.json", "c.xlsx", "notes.txt.bak"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	single := filepath.Join(t.TempDir(), "single.csv")
	require.NoError(t, os.WriteFile(single, nil, 0o644))

	paths, err := expandInputs([]string{dir, single})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "c.xlsx"),
		single,
	}, paths)

	_, err = expandInputs([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestLoadMappings_ExplicitFileMatchesEverything(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "city.yaml")
	body := "file_patterns: [\"city_*.csv\"]\nrules:\n  - target: unit\n    source: Apparatus\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	mainConfig = config.Defaults()
	mappingPath = path
	t.Cleanup(func() { mappingPath = "" })

	mappings, err := loadMappings()
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Same(t, mappings[0], config.FindMappingFile("county_export.csv", mappings))
}
