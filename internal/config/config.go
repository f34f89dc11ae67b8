package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported statement executor backends.
const (
	BackendDataAPI  = "data-api"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Config struct {
	Backend     string `env:"DB_BACKEND" envDefault:"data-api"`
	DSN         string `env:"DB_DSN"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddress string `env:"HTTP_ADDR" envDefault:":8080"`
	DataAPI     DataAPIConfig
	Migration   MigrationConfig
	Telemetry   TelemetryConfig
}

// DataAPIConfig holds the three coordinates every Data API call carries.
type DataAPIConfig struct {
	SecretARN  string `env:"DB_SECRET_ARN"`
	Database   string `env:"DB_NAME"`
	ClusterARN string `env:"DB_CLUSTER_ARN"`
	Region     string `env:"AWS_REGION"`
}

type MigrationConfig struct {
	ScriptsPath string `env:"MIGRATION_SCRIPTS_PATH" envDefault:"/opt"`
	LedgerTable string `env:"MIGRATION_LEDGER_TABLE" envDefault:"schema_version"`
	PhysicalID  string `env:"MIGRATION_PHYSICAL_ID" envDefault:"SchemaMigrationResource"`
}

type TelemetryConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"aurora-schema-migrator"`
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadWithDotenv merges a dotenv file into the environment before Load.
// Variables already set in the environment win. A missing file is ignored.
func LoadWithDotenv(path string) (Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return Config{}, fmt.Errorf("read %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("access %s: %w", path, err)
		}
	}
	return Load()
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendDataAPI:
		if c.DataAPI.SecretARN == "" {
			return errors.New("DB_SECRET_ARN is required")
		}
		if c.DataAPI.Database == "" {
			return errors.New("DB_NAME is required")
		}
		if c.DataAPI.ClusterARN == "" {
			return errors.New("DB_CLUSTER_ARN is required")
		}
	case BackendMySQL, BackendPostgres, BackendSQLite:
		if c.DSN == "" {
			return fmt.Errorf("DB_DSN is required for backend %s", c.Backend)
		}
	default:
		return fmt.Errorf("unsupported DB_BACKEND %q", c.Backend)
	}
	if !identPattern.MatchString(c.Migration.LedgerTable) {
		return fmt.Errorf("MIGRATION_LEDGER_TABLE %q is not a plain identifier", c.Migration.LedgerTable)
	}
	if c.Migration.PhysicalID == "" {
		return errors.New("MIGRATION_PHYSICAL_ID must not be empty")
	}
	return nil
}

// SampleDotenv is the starter file written by `migrator init-config`.
func SampleDotenv(backend string) string {
	return fmt.Sprintf(`# Statement executor backend: data-api, mysql, postgres or sqlite
DB_BACKEND=%s

# Data API coordinates (data-api backend)
DB_SECRET_ARN=arn:aws:secretsmanager:eu-west-1:123456789012:secret:aurora-master
DB_NAME=anonfed
DB_CLUSTER_ARN=arn:aws:rds:eu-west-1:123456789012:cluster:aurora-cluster
AWS_REGION=eu-west-1

# Direct connection (mysql, postgres, sqlite backends)
DB_DSN=user:password@tcp(localhost:3306)/anonfed

MIGRATION_SCRIPTS_PATH=./scripts/schema
MIGRATION_LEDGER_TABLE=schema_version
LOG_LEVEL=info
`, backend)
}
