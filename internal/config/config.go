package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Blob     *blobConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"clinicore"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string `envconfig:"MIGRATION_ENGINE_ADDRESS" default:":3443"`
	MetricsAddress string `envconfig:"MIGRATION_ENGINE_METRICS_ADDRESS" default:":8080"`
	BaseUrl        string `envconfig:"MIGRATION_ENGINE_BASE_URL" default:"https://localhost:3443"`
	LogLevel       string `envconfig:"MIGRATION_ENGINE_LOG_LEVEL" default:"info"`
	DefaultOrgID   string `envconfig:"MIGRATION_ENGINE_DEFAULT_ORG" default:"internal"`

	// Engine tuning. Each repository write runs under RowTimeout so a
	// single slow row cannot stall the whole job, and FatalRepoFailures
	// consecutive repository errors promote the condition to fatal.
	WorkerCount       int           `envconfig:"MIGRATION_ENGINE_WORKERS" default:"4"`
	RowTimeout        time.Duration `envconfig:"MIGRATION_ENGINE_ROW_TIMEOUT" default:"30s"`
	FatalRepoFailures int           `envconfig:"MIGRATION_ENGINE_FATAL_REPO_FAILURES" default:"5"`
}

type blobConfig struct {
	// "minio" or "fs". The filesystem store is meant for dev and tests.
	Type            string `envconfig:"MIGRATION_ENGINE_BLOB_TYPE" default:"fs"`
	LocalFolder     string `envconfig:"MIGRATION_ENGINE_BLOB_FOLDER" default:"/tmp/migration-uploads"`
	Endpoint        string `envconfig:"MIGRATION_ENGINE_S3_ENDPOINT" default:""`
	Bucket          string `envconfig:"MIGRATION_ENGINE_S3_BUCKET" default:"migration-uploads"`
	AccessKey       string `envconfig:"MIGRATION_ENGINE_S3_ACCESS_KEY" default:""`
	SecretAccessKey string `envconfig:"MIGRATION_ENGINE_S3_SECRET_KEY" default:""`
	UseSSL          bool   `envconfig:"MIGRATION_ENGINE_S3_USE_SSL" default:"false"`
}

// New builds the configuration from the environment.
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewDefault returns a configuration suitable for tests: in-memory sqlite
// and the filesystem blob store.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{
			Type: "sqlite",
			Name: ":memory:",
		},
		Service: &svcConfig{
			Address:           ":3443",
			MetricsAddress:    ":8080",
			LogLevel:          "info",
			DefaultOrgID:      "internal",
			WorkerCount:       4,
			RowTimeout:        30 * time.Second,
			FatalRepoFailures: 5,
		},
		Blob: &blobConfig{
			Type:        "fs",
			LocalFolder: "/tmp/migration-uploads",
		},
	}
}
