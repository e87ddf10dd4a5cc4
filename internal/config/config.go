package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Data     DataConfig     `envconfig:"DATA"`
	Logger   LoggerConfig   `envconfig:"LOG"`
	Security SecurityConfig `envconfig:"SECURITY"`
	Tracing  TracingConfig  `envconfig:"TRACING"`
}

type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"8084" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s" validate:"gt=0"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s" validate:"gt=0"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`
}

type DataConfig struct {
	OrdersSource string        `envconfig:"ORDERS_SOURCE" default:"all_data.csv" validate:"required"`
	GeoSource    string        `envconfig:"GEO_SOURCE"`
	LoadTimeout  time.Duration `envconfig:"LOAD_TIMEOUT" default:"2m" validate:"gt=0"`
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s" validate:"gt=0"`
	FetchRetries int           `envconfig:"FETCH_RETRIES" default:"2" validate:"min=0,max=10"`
	CacheDir     string        `envconfig:"CACHE_DIR" default:".cache"`
	ZeroFill     bool          `envconfig:"ZERO_FILL" default:"false"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int      `envconfig:"RATE_LIMIT_RPS" default:"100" validate:"gt=0"`
	RateLimitBurst  int      `envconfig:"RATE_LIMIT_BURST" default:"10" validate:"gt=0"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string `envconfig:"TRUSTED_PROXIES" default:"127.0.0.1"`
}

type TracingConfig struct {
	Enabled     bool    `envconfig:"ENABLED" default:"false"`
	Exporter    string  `envconfig:"EXPORTER" default:"stdout" validate:"oneof=stdout none"`
	SampleRatio float64 `envconfig:"SAMPLE_RATIO" default:"1" validate:"gte=0,lte=1"`
}

// Load reads the configuration from the environment, e.g. SERVER_PORT,
// DATA_ORDERS_SOURCE, LOG_LEVEL.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
