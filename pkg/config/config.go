package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Storage       StorageConfig
	Transcription TranscriptionConfig
	Pipeline      PipelineConfig
	Scan          ScanConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CALLINSIGHTS_APP_ENV" required:"true"`
	Port         string `envconfig:"CALLINSIGHTS_APP_PORT" default:"5000"`
	LogLevel     string `envconfig:"CALLINSIGHTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CALLINSIGHTS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CALLINSIGHTS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CALLINSIGHTS_DB_DSN"`
	Driver string `envconfig:"CALLINSIGHTS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CALLINSIGHTS_DB_HOST"`
	LegacyPort     int    `envconfig:"CALLINSIGHTS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CALLINSIGHTS_DB_USER"`
	LegacyPassword string `envconfig:"CALLINSIGHTS_DB_PASSWORD"`
	LegacyName     string `envconfig:"CALLINSIGHTS_DB_NAME"`
	LegacySSLMode  string `envconfig:"CALLINSIGHTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CALLINSIGHTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CALLINSIGHTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CALLINSIGHTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CALLINSIGHTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// StorageConfig covers the Azure storage account and the two containers the
// pipeline shuttles recordings between.
type StorageConfig struct {
	AccountName          string        `envconfig:"CALLINSIGHTS_STORAGE_ACCOUNT_NAME" required:"true"`
	AccountKey           string        `envconfig:"CALLINSIGHTS_STORAGE_ACCOUNT_KEY" required:"true"`
	EndpointSuffix       string        `envconfig:"CALLINSIGHTS_STORAGE_ENDPOINT_SUFFIX" default:"core.windows.net"`
	SourceContainer      string        `envconfig:"CALLINSIGHTS_STORAGE_SOURCE_CONTAINER" default:"incoming"`
	DestinationContainer string        `envconfig:"CALLINSIGHTS_STORAGE_DESTINATION_CONTAINER" default:"processed"`
	SASExpiry            time.Duration `envconfig:"CALLINSIGHTS_STORAGE_SAS_EXPIRY" default:"240h"`
	RequestTimeout       time.Duration `envconfig:"CALLINSIGHTS_STORAGE_REQUEST_TIMEOUT" default:"30s"`
}

type TranscriptionConfig struct {
	APIKey         string        `envconfig:"CALLINSIGHTS_DEEPGRAM_API_KEY" required:"true"`
	BaseURL        string        `envconfig:"CALLINSIGHTS_DEEPGRAM_BASE_URL" default:"https://api.deepgram.com"`
	Model          string        `envconfig:"CALLINSIGHTS_DEEPGRAM_MODEL" default:"nova-2"`
	Diarize        bool          `envconfig:"CALLINSIGHTS_DEEPGRAM_DIARIZE" default:"true"`
	Punctuate      bool          `envconfig:"CALLINSIGHTS_DEEPGRAM_PUNCTUATE" default:"true"`
	SmartFormat    bool          `envconfig:"CALLINSIGHTS_DEEPGRAM_SMART_FORMAT" default:"true"`
	RequestTimeout time.Duration `envconfig:"CALLINSIGHTS_DEEPGRAM_REQUEST_TIMEOUT" default:"5m"`
}

type PipelineConfig struct {
	MaxRetryAttempts int           `envconfig:"CALLINSIGHTS_PIPELINE_MAX_RETRY_ATTEMPTS" default:"3"`
	InitialBackoff   time.Duration `envconfig:"CALLINSIGHTS_PIPELINE_INITIAL_BACKOFF" default:"500ms"`
	MaximumBackoff   time.Duration `envconfig:"CALLINSIGHTS_PIPELINE_MAXIMUM_BACKOFF" default:"8s"`
}

type ScanConfig struct {
	Interval  time.Duration `envconfig:"CALLINSIGHTS_SCAN_INTERVAL" default:"1m"`
	BatchSize int           `envconfig:"CALLINSIGHTS_SCAN_BATCH_SIZE" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CALLINSIGHTS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CALLINSIGHTS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
