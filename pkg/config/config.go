package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPath is read when present and CONFIG_PATH is unset.
const DefaultConfigPath = "config.yaml"

type Config struct {
	Port                    string        `koanf:"port"`
	Env                     string        `koanf:"env"`
	FirebaseCredentialsPath string        `koanf:"firebase_credentials_path"`
	PostgresURL             string        `koanf:"database_url"`
	MongoURI                string        `koanf:"mongo_uri"`
	MongoDatabase           string        `koanf:"mongo_database"`
	MetricsPort             string        `koanf:"metrics_port"`
	JWTSecret               string        `koanf:"jwt_secret"`
	TokenTTL                time.Duration `koanf:"token_ttl"`
	UploadDir               string        `koanf:"upload_dir"`
	MaxUploadBytes          int64         `koanf:"max_upload_bytes"`
	LogLevel                string        `koanf:"log_level"`
	LogFormat               string        `koanf:"log_format"`
	CORSOrigins             []string      `koanf:"cors_origins"`

	Realtime  RealtimeConfig  `koanf:"realtime"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

// RealtimeConfig selects how channel events reach other server instances.
type RealtimeConfig struct {
	// Broker is local, redis or nats.
	Broker   string `koanf:"broker"`
	RedisURL string `koanf:"redis_url"`
	NATSURL  string `koanf:"nats_url"`
	Subject  string `koanf:"subject"`
}

type SchedulerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Spec    string `koanf:"spec"`
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func defaultConfig() *Config {
	return &Config{
		Port:           "8080",
		Env:            "development",
		MongoDatabase:  "letterly",
		MetricsPort:    "9090",
		TokenTTL:       24 * time.Hour,
		UploadDir:      "./uploads",
		MaxUploadBytes: 10 << 20,
		LogLevel:       "info",
		LogFormat:      "json",
		CORSOrigins:    []string{"*"},
		Realtime: RealtimeConfig{
			Broker:  "local",
			Subject: "letterly.realtime",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Spec:    "@every 1m",
		},
	}
}

// envKeys maps environment variables onto koanf paths. Unlisted variables are ignored.
var envKeys = map[string]string{
	"PORT":                      "port",
	"ENV":                       "env",
	"FIREBASE_CREDENTIALS_PATH": "firebase_credentials_path",
	"DATABASE_URL":              "database_url",
	"POSTGRES_CONN_STR":         "postgres_conn_str",
	"MONGO_URI":                 "mongo_uri",
	"MONGO_DATABASE":            "mongo_database",
	"METRICS_PORT":              "metrics_port",
	"JWT_SECRET":                "jwt_secret",
	"TOKEN_TTL":                 "token_ttl",
	"UPLOAD_DIR":                "upload_dir",
	"MAX_UPLOAD_BYTES":          "max_upload_bytes",
	"LOG_LEVEL":                 "log_level",
	"LOG_FORMAT":                "log_format",
	"CORS_ORIGINS":              "cors_origins",
	"REALTIME_BROKER":           "realtime.broker",
	"REDIS_URL":                 "realtime.redis_url",
	"NATS_URL":                  "realtime.nats_url",
	"REALTIME_SUBJECT":          "realtime.subject",
	"SCHEDULER_ENABLED":         "scheduler.enabled",
	"SCHEDULER_SPEC":            "scheduler.spec",
}

// envTransformFunc drops unlisted and empty variables so they never mask defaults.
func envTransformFunc(key, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	return envKeys[key], value
}

// Load reads defaults, then an optional YAML file, then .env and the process environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := configFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	// POSTGRES_CONN_STR is the older name for DATABASE_URL.
	if k.String("database_url") == "" && k.String("postgres_conn_str") != "" {
		if err := k.Set("database_url", k.String("postgres_conn_str")); err != nil {
			return nil, err
		}
	}
	if err := splitList(k, "cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

// splitList turns a comma-separated env value into a slice.
func splitList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return k.Set(path, out)
}

// Validate reports missing required settings and unknown enum values.
func (c *Config) Validate() error {
	var errs []error
	if c.PostgresURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	switch c.Realtime.Broker {
	case "", "local":
	case "redis":
		if c.Realtime.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when REALTIME_BROKER=redis"))
		}
	case "nats":
		if c.Realtime.NATSURL == "" {
			errs = append(errs, errors.New("NATS_URL is required when REALTIME_BROKER=nats"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REALTIME_BROKER %q", c.Realtime.Broker))
	}
	return errors.Join(errs...)
}
