// Package config defines the configuration contract and handles loading and
// validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken     = "TELEGRAM_TOKEN"
	KeyStoreBackend      = "STORE_BACKEND"
	KeyMongoURI          = "MONGO_URI"
	KeyMongoDB           = "MONGO_DB"
	KeyRedisURL          = "REDIS_URL"
	KeyAppEnv            = "APP_ENV"
	KeyLogLevel          = "LOG_LEVEL"
	KeyHTTPPort          = "HTTP_PORT"
	KeyReconcileInterval = "RECONCILE_INTERVAL"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Supported persistence backends.
	BackendMongo = "mongo"
	BackendRedis = "redis"

	// Defaults for optional settings.
	DefaultAppEnv            = EnvProduction
	DefaultLogLevel          = "info"
	DefaultHTTPPort          = 8080
	DefaultStoreBackend      = BackendMongo
	DefaultReconcileInterval = time.Hour
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must
// rely on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyStoreBackend,
		Example:     BackendMongo + " / " + BackendRedis,
		Default:     DefaultStoreBackend,
		Description: "Key/value backend holding group title records.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Description: "MongoDB connection string.",
		Notes:       "Required when " + KeyStoreBackend + "=" + BackendMongo + ".",
	},
	{
		Key:         KeyMongoDB,
		Example:     "tg_title_bot",
		Description: "MongoDB database name.",
		Notes:       "Required when " + KeyStoreBackend + "=" + BackendMongo + ".",
	},
	{
		Key:         KeyRedisURL,
		Example:     "redis://localhost:6379/0",
		Description: "Redis connection URL.",
		Notes:       "Required when " + KeyStoreBackend + "=" + BackendRedis + ".",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when " + KeyAppEnv + "=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP health/diagnostics port.",
	},
	{
		Key:         KeyReconcileInterval,
		Example:     "1h",
		Default:     DefaultReconcileInterval.String(),
		Description: "How often stored group titles are re-applied.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken     string
	StoreBackend      string
	MongoURI          string
	MongoDB           string
	RedisURL          string
	AppEnv            string
	LogLevel          string
	HTTPPort          int
	ReconcileInterval time.Duration
}

// Load resolves configuration from the environment (with optional dotenv in
// development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:            firstNonEmpty(normalize(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken:     strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		StoreBackend:      firstNonEmpty(normalize(os.Getenv(KeyStoreBackend)), DefaultStoreBackend),
		MongoURI:          strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:           strings.TrimSpace(os.Getenv(KeyMongoDB)),
		RedisURL:          strings.TrimSpace(os.Getenv(KeyRedisURL)),
		LogLevel:          firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:          DefaultHTTPPort,
		ReconcileInterval: DefaultReconcileInterval,
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}

	switch cfg.StoreBackend {
	case BackendMongo:
		if cfg.MongoURI == "" {
			missing = append(missing, KeyMongoURI)
		}
		if cfg.MongoDB == "" {
			missing = append(missing, KeyMongoDB)
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			missing = append(missing, KeyRedisURL)
		}
	default:
		return Config{}, fmt.Errorf("invalid %s: must be %q or %q", KeyStoreBackend, BackendMongo, BackendRedis)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort))
	if httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	intervalRaw := strings.TrimSpace(os.Getenv(KeyReconcileInterval))
	if intervalRaw != "" {
		interval, parseErr := time.ParseDuration(intervalRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyReconcileInterval, parseErr)
		}
		if interval <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyReconcileInterval)
		}
		cfg.ReconcileInterval = interval
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// FormatRedacted renders the resolved configuration with secrets masked,
// suitable for startup diagnostics.
func (c Config) FormatRedacted() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s\n", KeyTelegramToken, redact(c.TelegramToken))
	fmt.Fprintf(&b, "%s=%s\n", KeyStoreBackend, c.StoreBackend)
	if c.StoreBackend == BackendMongo {
		fmt.Fprintf(&b, "%s=%s\n", KeyMongoURI, redact(c.MongoURI))
		fmt.Fprintf(&b, "%s=%s\n", KeyMongoDB, c.MongoDB)
	} else {
		fmt.Fprintf(&b, "%s=%s\n", KeyRedisURL, redact(c.RedisURL))
	}
	fmt.Fprintf(&b, "%s=%s\n", KeyAppEnv, c.AppEnv)
	fmt.Fprintf(&b, "%s=%s\n", KeyLogLevel, c.LogLevel)
	fmt.Fprintf(&b, "%s=%d\n", KeyHTTPPort, c.HTTPPort)
	fmt.Fprintf(&b, "%s=%s", KeyReconcileInterval, c.ReconcileInterval)
	return b.String()
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return "***"
}

func resolveAppEnv() (string, error) {
	if explicit := normalize(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalize(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
