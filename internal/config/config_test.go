package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap/internal/testutil"
)

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("relmap", pflag.ContinueOnError)
	fs.StringP("schema", "s", "", "")
	fs.StringP("output", "o", "", "")
	fs.String("schema-name", "", "")
	fs.Bool("no-constraints", false, "")
	fs.BoolP("verbose", "v", false, "")
	return fs
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultOutput, cfg.Output)
		assert.Equal(t, "constraint", cfg.ConstraintMode)
		assert.Equal(t, DefaultSchemaName, cfg.SchemaName)
		assert.False(t, cfg.Verbose)
		assert.Empty(t, cfg.File)
	})

	t.Run("Config file", func(t *testing.T) {
		path := writeFile(t, "schema: entities.yaml\noutput: json\nconstraint_mode: no_constraint\n")
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "entities.yaml", cfg.Schema)
		assert.Equal(t, "json", cfg.Output)
		assert.Equal(t, "no_constraint", cfg.ConstraintMode)
		assert.Equal(t, path, cfg.File)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		path := writeFile(t, "output: json\n")
		t.Setenv("RELMAP_OUTPUT", "table")
		t.Setenv("RELMAP_SCHEMA_NAME", "app")
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "table", cfg.Output)
		assert.Equal(t, "app", cfg.SchemaName)
	})

	t.Run("Flags override everything", func(t *testing.T) {
		path := writeFile(t, "output: table\nschema: a.yaml\n")
		t.Setenv("RELMAP_SCHEMA", "b.yaml")
		fs := flagSet()
		require.NoError(t, fs.Parse([]string{"--schema", "c.yaml", "-o", "json", "--no-constraints", "-v"}))
		cfg, err := Load(path, fs)
		require.NoError(t, err)
		assert.Equal(t, "c.yaml", cfg.Schema)
		assert.Equal(t, "json", cfg.Output)
		assert.Equal(t, "no_constraint", cfg.ConstraintMode)
		assert.True(t, cfg.Verbose)
	})

	t.Run("Unset flags keep lower layers", func(t *testing.T) {
		path := writeFile(t, "output: json\n")
		fs := flagSet()
		require.NoError(t, fs.Parse(nil))
		cfg, err := Load(path, fs)
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.Output)
		assert.Equal(t, "constraint", cfg.ConstraintMode)
	})

	t.Run("Invalid values", func(t *testing.T) {
		_, err := Load(writeFile(t, "output: xml\n"), nil)
		assert.ErrorContains(t, err, `unknown output format "xml"`)
		_, err = Load(writeFile(t, "constraint_mode: maybe\n"), nil)
		assert.ErrorContains(t, err, `unknown constraint mode "maybe"`)
		_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
		assert.Error(t, err)
	})
}

func TestBuildOptions(t *testing.T) {
	cfg := &Config{Output: "table", ConstraintMode: "default"}
	opts, err := cfg.BuildOptions(testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	cfg.ConstraintMode = "no_constraint"
	opts, err = cfg.BuildOptions(testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	cfg.ConstraintMode = "bogus"
	_, err = cfg.BuildOptions(testutil.NewTestLogger(t))
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	buf := &testutil.Buffer{}
	(&Config{}).Logger(buf).Debug("hidden")
	assert.Empty(t, buf.String())
	(&Config{Verbose: true}).Logger(buf).Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}
