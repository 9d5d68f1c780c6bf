package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	BackendMSSQL    = "mssql"
	BackendPostgres = "postgres"
)

const (
	PlannerHeuristic = "heuristic"
	PlannerLLM       = "llm"
	PlannerAuto      = "auto"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Planner       PlannerConfig
	Query         QueryConfig
	SchemaCache   SchemaCacheConfig
	AI            AIConfig
	Archive       ArchiveConfig
	Session       SessionConfig
	Webhook       WebhookConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string `validate:"required"`
}

type HTTPConfig struct {
	Address      string `validate:"required"`
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Backend                string `validate:"oneof=mssql postgres"`
	DSN                    string
	Host                   string `validate:"required_without=DSN"`
	Port                   int    `validate:"gte=0,lte=65535"`
	Name                   string `validate:"required_without=DSN"`
	User                   string
	Password               string
	TrustServerCertificate bool
	MaxOpenConns           int `validate:"gte=0"`
	MaxIdleConns           int `validate:"gte=0"`
	ConnMaxIdleTime        time.Duration
	ConnMaxLifetime        time.Duration
	ConnectTimeout         time.Duration
}

type PlannerConfig struct {
	Mode             string `validate:"oneof=heuristic llm auto"`
	OrderByAllowList bool
	SampleData       bool
	SearchColumn     string `validate:"required,contains=."`
}

type QueryConfig struct {
	// MaxRows caps rows read per statement; 0 reads everything.
	MaxRows int `validate:"gte=0"`
	// Timeout bounds one execution; 0 leaves it to the driver.
	Timeout time.Duration `validate:"gte=0"`
}

type SchemaCacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	SizeBytes int `validate:"gte=0"`
}

type AIConfig struct {
	Enabled     bool
	BaseURL     string `validate:"required_if=Enabled true"`
	APIKey      string `validate:"required_if=Enabled true"`
	Model       string
	Temperature float64 `validate:"gte=0,lte=2"`
	Timeout     time.Duration
}

type ArchiveConfig struct {
	Enabled          bool
	Endpoint         string `validate:"required_if=Enabled true"`
	Region           string
	Bucket           string `validate:"required_if=Enabled true"`
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type SessionConfig struct {
	TTL       time.Duration
	SizeBytes int `validate:"gte=0"`
}

type WebhookConfig struct {
	AuthToken     string
	PublicURL     string
	SkipSignature bool
	MaxReplyRows  int `validate:"gte=0"`
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SQLAGENT_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SQLAGENT_PROFILE: %q", profile)
	}

	backend := BackendMSSQL
	if raw, ok := lookup("SQLAGENT_DB_BACKEND"); ok && strings.TrimSpace(raw) != "" {
		backend = strings.ToLower(strings.TrimSpace(raw))
	}

	cfg := defaultsForProfile(profile, backend)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "SQLAGENT_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "SQLAGENT_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "SQLAGENT_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "SQLAGENT_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "SQLAGENT_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "SQLAGENT_DB_DSN", &cfg.Database.DSN) },
		func() error { return applyString(lookup, "DB_HOST", &cfg.Database.Host) },
		func() error { return applyInt(lookup, "DB_PORT", &cfg.Database.Port) },
		func() error { return applyString(lookup, "DB_NAME", &cfg.Database.Name) },
		func() error { return applyString(lookup, "DB_USER", &cfg.Database.User) },
		func() error { return applyRawString(lookup, "DB_PASSWORD", &cfg.Database.Password) },
		func() error {
			return applyBool(lookup, "SQLAGENT_DB_TRUST_SERVER_CERTIFICATE", &cfg.Database.TrustServerCertificate)
		},
		func() error { return applyInt(lookup, "SQLAGENT_DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns) },
		func() error { return applyInt(lookup, "SQLAGENT_DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "SQLAGENT_DB_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "SQLAGENT_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)
		},
		func() error { return applyDuration(lookup, "SQLAGENT_DB_CONNECT_TIMEOUT", &cfg.Database.ConnectTimeout) },
		func() error { return applyLower(lookup, "SQLAGENT_PLANNER_MODE", &cfg.Planner.Mode) },
		func() error { return applyBool(lookup, "SQLAGENT_ORDER_BY_ALLOWLIST", &cfg.Planner.OrderByAllowList) },
		func() error { return applyBool(lookup, "SQLAGENT_SCHEMA_SAMPLE_DATA", &cfg.Planner.SampleData) },
		func() error { return applyString(lookup, "SQLAGENT_PLANNER_SEARCH_COLUMN", &cfg.Planner.SearchColumn) },
		func() error { return applyInt(lookup, "SQLAGENT_QUERY_MAX_ROWS", &cfg.Query.MaxRows) },
		func() error { return applyDuration(lookup, "SQLAGENT_QUERY_TIMEOUT", &cfg.Query.Timeout) },
		func() error { return applyBool(lookup, "SQLAGENT_SCHEMA_CACHE_ENABLED", &cfg.SchemaCache.Enabled) },
		func() error { return applyDuration(lookup, "SQLAGENT_SCHEMA_CACHE_TTL", &cfg.SchemaCache.TTL) },
		func() error { return applyInt(lookup, "SQLAGENT_SCHEMA_CACHE_SIZE_BYTES", &cfg.SchemaCache.SizeBytes) },
		func() error { return applyBool(lookup, "SQLAGENT_AI_ENABLED", &cfg.AI.Enabled) },
		func() error { return applyString(lookup, "SQLAGENT_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "SQLAGENT_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "SQLAGENT_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "SQLAGENT_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "SQLAGENT_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyBool(lookup, "SQLAGENT_ARCHIVE_ENABLED", &cfg.Archive.Enabled) },
		func() error { return applyString(lookup, "SQLAGENT_ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint) },
		func() error { return applyString(lookup, "SQLAGENT_ARCHIVE_REGION", &cfg.Archive.Region) },
		func() error { return applyString(lookup, "SQLAGENT_ARCHIVE_BUCKET", &cfg.Archive.Bucket) },
		func() error { return applyString(lookup, "SQLAGENT_ARCHIVE_ACCESS_KEY", &cfg.Archive.AccessKeyID) },
		func() error { return applyString(lookup, "SQLAGENT_ARCHIVE_SECRET_KEY", &cfg.Archive.SecretAccessKey) },
		func() error { return applyBool(lookup, "SQLAGENT_ARCHIVE_USE_SSL", &cfg.Archive.UseSSL) },
		func() error { return applyString(lookup, "SQLAGENT_ARCHIVE_PREFIX", &cfg.Archive.Prefix) },
		func() error {
			return applyBool(lookup, "SQLAGENT_ARCHIVE_AUTO_CREATE_BUCKET", &cfg.Archive.AutoCreateBucket)
		},
		func() error { return applyDuration(lookup, "SQLAGENT_SESSION_TTL", &cfg.Session.TTL) },
		func() error { return applyInt(lookup, "SQLAGENT_SESSION_SIZE_BYTES", &cfg.Session.SizeBytes) },
		func() error { return applyString(lookup, "TWILIO_AUTH_TOKEN", &cfg.Webhook.AuthToken) },
		func() error { return applyString(lookup, "SQLAGENT_WEBHOOK_PUBLIC_URL", &cfg.Webhook.PublicURL) },
		func() error { return applyBool(lookup, "SQLAGENT_WEBHOOK_SKIP_SIGNATURE", &cfg.Webhook.SkipSignature) },
		func() error { return applyInt(lookup, "SQLAGENT_WEBHOOK_MAX_REPLY_ROWS", &cfg.Webhook.MaxReplyRows) },
		func() error { return applyBool(lookup, "SQLAGENT_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "SQLAGENT_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyBool(lookup, "SQLAGENT_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "SQLAGENT_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var structValidator = validator.New()

func Validate(cfg Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return fmt.Errorf("invalid config %s: failed %q", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaultsForProfile(profile Profile, backend string) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "sqlagent-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: databaseDefaults(backend),
		Planner: PlannerConfig{
			Mode:             PlannerAuto,
			OrderByAllowList: false,
			SampleData:       true,
			SearchColumn:     "products.name",
		},
		SchemaCache: SchemaCacheConfig{
			Enabled:   false,
			TTL:       5 * time.Minute,
			SizeBytes: 8 * 1024 * 1024,
		},
		AI: AIConfig{
			Enabled:     false,
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-5",
			Temperature: 0.1,
			Timeout:     15 * time.Second,
		},
		Archive: ArchiveConfig{
			Enabled:          false,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "sqlagent",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Session: SessionConfig{
			TTL:       30 * time.Minute,
			SizeBytes: 4 * 1024 * 1024,
		},
		Webhook: WebhookConfig{
			SkipSignature: false,
			MaxReplyRows:  10,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileDev:
		cfg.Webhook.SkipSignature = true
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.Archive.UseSSL = true
		cfg.Archive.AutoCreateBucket = false
	}

	return cfg
}

func databaseDefaults(backend string) DatabaseConfig {
	db := DatabaseConfig{
		Backend:         backend,
		MaxOpenConns:    10,
		MaxIdleConns:    10,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
	switch backend {
	case BackendPostgres:
		db.Host = "localhost"
		db.Port = 5432
		db.Name = "postgres"
		db.User = "postgres"
		db.Password = "postgres"
	default:
		db.Host = "localhost"
		db.Port = 1433
		db.Name = "master"
		db.User = "sa"
		db.Password = "YourStrong@Passw0rd"
		db.TrustServerCertificate = true
	}
	return db
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

// applyRawString keeps surrounding whitespace; passwords may legitimately carry it.
func applyRawString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = raw
	return nil
}

func applyLower(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.ToLower(strings.TrimSpace(raw))
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
