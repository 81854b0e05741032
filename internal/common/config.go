package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/efris-reports/constants"
	"github.com/joseph-ayodele/efris-reports/internal/entity"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Extract  ExtractConfig
	Ingest   IngestConfig
	LogLevel string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver      string
	FilePath    string // sqlite
	DSN         string // postgres
	Table       string
	BusyTimeout time.Duration
	DialTimeout time.Duration
	MaxConns    int32
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
	HTTPAddr string // empty disables the download endpoints
}

// ExtractConfig holds text-extraction configuration
type ExtractConfig struct {
	Pdftotext string // empty disables the command-line fallback
	Timeout   time.Duration
	EnableOCR bool // rasterize + tesseract when pdftotext finds nothing
}

// IngestConfig holds the ingestion-context configuration
type IngestConfig struct {
	ContextFile   string
	Defaults      entity.Defaults
	WatchDir      string // empty disables the drop-folder watcher
	WatchDebounce time.Duration
}

// LoadConfig loads configuration from a .env file (if present) and
// environment variables. The ingestion defaults file, when configured,
// is read and validated here too.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:      strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			FilePath:    getEnv("DB_FILEPATH", ""),
			DSN:         getEnv("DB_URL", ""),
			Table:       getEnv("TABLE_NAME", constants.DefaultTableName),
			BusyTimeout: getEnvAsDuration("DB_BUSY_TIMEOUT", 5*time.Second),
			DialTimeout: getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			MaxConns:    getEnvAsInt32("DB_MAX_CONNS", 4),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr: getEnv("HTTP_ADDR", ""),
		},
		Extract: ExtractConfig{
			Pdftotext: getEnv("PDFTOTEXT_BIN", ""),
			Timeout:   getEnvAsDuration("EXTRACT_TIMEOUT", 30*time.Second),
			EnableOCR: getEnvAsBool("OCR_ENABLE", false),
		},
		Ingest: IngestConfig{
			ContextFile:   getEnv("INGEST_CONTEXT_FILE", ""),
			Defaults:      DefaultIngestDefaults(),
			WatchDir:      getEnv("WATCH_DIR", ""),
			WatchDebounce: getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if cfg.Ingest.ContextFile != "" {
		d, err := LoadIngestDefaults(cfg.Ingest.ContextFile)
		if err != nil {
			return nil, err
		}
		cfg.Ingest.Defaults = d
	}
	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.FilePath == "" {
			return NewAppError("CONFIG_ERROR", "DB_FILEPATH is required for the sqlite driver", ErrInvalidInput)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres driver", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver), ErrInvalidInput)
	}
	if strings.TrimSpace(c.Database.Table) == "" {
		return NewAppError("CONFIG_ERROR", "TABLE_NAME must not be empty", ErrInvalidInput)
	}
	return nil
}

// DefaultIngestDefaults returns the built-in values stamped on each record.
func DefaultIngestDefaults() entity.Defaults {
	return entity.Defaults{
		Region:     constants.DefaultRegion,
		RiskSource: constants.DefaultRiskSource,
		Activity:   constants.DefaultActivity,
		TaxHead:    constants.DefaultTaxHead,
	}
}

// ingestDefaultsSchema constrains the ingestion context file.
const ingestDefaultsSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"region":      {"type": "string", "minLength": 1, "maxLength": 64},
		"risk_source": {"type": "string", "minLength": 1, "maxLength": 64},
		"activity":    {"type": "string", "minLength": 1, "maxLength": 64},
		"tax_head":    {"type": "string", "minLength": 1, "maxLength": 64}
	}
}`

// LoadIngestDefaults reads an ingestion context file, JSON or (by .toml
// extension) TOML. Keys left out keep their built-in value.
func LoadIngestDefaults(path string) (entity.Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Defaults{}, NewAppError("CONFIG_ERROR", "read ingest context file", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseIngestDefaultsTOML(data)
	}
	return ParseIngestDefaults(data)
}

// ParseIngestDefaultsTOML is ParseIngestDefaults for TOML input; the document
// is checked against the same schema.
func ParseIngestDefaultsTOML(data []byte) (entity.Defaults, error) {
	var v map[string]any
	if err := toml.Unmarshal(data, &v); err != nil {
		return entity.Defaults{}, NewAppError("CONFIG_ERROR", "ingest context is not valid TOML", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	if v == nil {
		v = map[string]any{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return entity.Defaults{}, NewAppError("CONFIG_ERROR", "re-encode ingest context", err)
	}
	return ParseIngestDefaults(raw)
}

// ParseIngestDefaults validates data against the ingestion context schema and
// merges it over the built-in defaults.
func ParseIngestDefaults(data []byte) (entity.Defaults, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("ingest_context.json", strings.NewReader(ingestDefaultsSchema)); err != nil {
		return entity.Defaults{}, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("ingest_context.json")
	if err != nil {
		return entity.Defaults{}, fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return entity.Defaults{}, NewAppError("CONFIG_ERROR", "ingest context is not valid JSON", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	if err := schema.Validate(v); err != nil {
		return entity.Defaults{}, NewAppError("CONFIG_ERROR", "ingest context does not match schema", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	d := DefaultIngestDefaults()
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&d); err != nil {
		return entity.Defaults{}, NewAppError("CONFIG_ERROR", "decode ingest context", err)
	}
	return d, nil
}
