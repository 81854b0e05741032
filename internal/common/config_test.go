package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/efris-reports/constants"
)

func TestParseIngestDefaults(t *testing.T) {
	t.Run("partial override keeps built-ins", func(t *testing.T) {
		d, err := ParseIngestDefaults([]byte(`{"region": "Northern", "tax_head": "Income Tax"}`))
		require.NoError(t, err)
		assert.Equal(t, "Northern", d.Region)
		assert.Equal(t, "Income Tax", d.TaxHead)
		assert.Equal(t, constants.DefaultRiskSource, d.RiskSource)
		assert.Equal(t, constants.DefaultActivity, d.Activity)
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		_, err := ParseIngestDefaults([]byte(`{"location": "Kampala"}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("empty value rejected", func(t *testing.T) {
		_, err := ParseIngestDefaults([]byte(`{"region": ""}`))
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseIngestDefaults([]byte(`{`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestLoadIngestDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"activity": "Audit"}`), 0o644))

	d, err := LoadIngestDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, "Audit", d.Activity)

	_, err = LoadIngestDefaults(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadIngestDefaultsTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.toml")
	require.NoError(t, os.WriteFile(path, []byte("region = \"Eastern\"\nrisk_source = \"Audit Desk\"\n"), 0o644))

	d, err := LoadIngestDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, "Eastern", d.Region)
	assert.Equal(t, "Audit Desk", d.RiskSource)
	assert.Equal(t, constants.DefaultTaxHead, d.TaxHead)

	// same schema as JSON
	_, err = ParseIngestDefaultsTOML([]byte(`region = 7`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = ParseIngestDefaultsTOML([]byte(`region = `))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	d, err = ParseIngestDefaultsTOML(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultIngestDefaults(), d)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_FILEPATH", "/tmp/reports.db")
	t.Setenv("TABLE_NAME", "")
	t.Setenv("DB_BUSY_TIMEOUT", "2s")
	t.Setenv("INGEST_CONTEXT_FILE", "")
	t.Setenv("WATCH_DIR", "")
	t.Setenv("WATCH_DEBOUNCE", "500ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/reports.db", cfg.Database.FilePath)
	assert.Equal(t, constants.DefaultTableName, cfg.Database.Table)
	assert.Equal(t, "2s", cfg.Database.BusyTimeout.String())
	assert.Equal(t, DefaultIngestDefaults(), cfg.Ingest.Defaults)
	assert.Empty(t, cfg.Ingest.WatchDir)
	assert.Equal(t, "500ms", cfg.Ingest.WatchDebounce.String())
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		db   DatabaseConfig
		ok   bool
	}{
		{"sqlite with path", DatabaseConfig{Driver: DriverSQLite, FilePath: "x.db", Table: "t"}, true},
		{"sqlite without path", DatabaseConfig{Driver: DriverSQLite, Table: "t"}, false},
		{"postgres with dsn", DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://x", Table: "t"}, true},
		{"postgres without dsn", DatabaseConfig{Driver: DriverPostgres, Table: "t"}, false},
		{"unknown driver", DatabaseConfig{Driver: "mysql", Table: "t"}, false},
		{"blank table", DatabaseConfig{Driver: DriverSQLite, FilePath: "x.db", Table: " "}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := (&Config{Database: tc.db}).Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}
