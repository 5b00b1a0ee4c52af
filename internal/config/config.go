package config

import (
	"context"
	"errors"
	"fmt"

	"office-hub/internal/reporting"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	DBDSN             string `env:"DB_DSN,required"`
	DBConnectAttempts int    `env:"DB_CONNECT_ATTEMPTS,default=10"`
	ServerPort        string `env:"SERVER_PORT,default=8080"`
	SessionSecret     string `env:"SESSION_SECRET,required"`
	CookieSecure      bool   `env:"COOKIE_SECURE,default=false"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogPretty bool   `env:"LOG_PRETTY,default=false"`

	AdminUsername string `env:"ADMIN_USERNAME,default=admin"`
	AdminPassword string `env:"ADMIN_PASSWORD,default=admin123"`

	NATSURL      string `env:"NATS_URL"`
	NATSStream   string `env:"NATS_STREAM,default=OFFICEHUB"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Storage Storage
	Reports Reports `env:", prefix=REPORT_"`
}

type Storage struct {
	Driver      string `env:"STORAGE_DRIVER,default=local"`
	Dir         string `env:"STORAGE_DIR,default=./media"`
	BaseURL     string `env:"STORAGE_BASE_URL,default=/media"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3Region    string `env:"S3_REGION,default=us-east-1"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3PathStyle bool   `env:"S3_FORCE_PATH_STYLE,default=true"`
}

type Reports struct {
	AssetList      int `env:"ASSET_LIST,default=25"`
	Attention      int `env:"ATTENTION,default=6"`
	Upcoming       int `env:"UPCOMING,default=6"`
	RecentActivity int `env:"RECENT_ACTIVITY,default=10"`
	RecentComments int `env:"RECENT_COMMENTS,default=5"`
	BoardColumn    int `env:"BOARD_COLUMN,default=15"`
}

func (r Reports) Limits() reporting.Limits {
	return reporting.Limits{
		AssetList:      r.AssetList,
		Attention:      r.Attention,
		Upcoming:       r.Upcoming,
		RecentActivity: r.RecentActivity,
		RecentComments: r.RecentComments,
		BoardColumn:    r.BoardColumn,
	}
}

// Load читает .env (если есть) и переменные окружения.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(ctx, envconfig.OsLookuper())
}

func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageLocal:
		if c.Storage.Dir == "" {
			return errors.New("STORAGE_DIR is not set")
		}
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return errors.New("S3_BUCKET is not set")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.DBConnectAttempts < 1 {
		return errors.New("DB_CONNECT_ATTEMPTS must be positive")
	}
	return nil
}
