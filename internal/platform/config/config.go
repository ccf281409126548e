// Package config arma la configuración del servicio:
// defaults -> archivo YAML opcional -> variables de entorno.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Audit     AuditConfig     `yaml:"audit"`
	Auth      AuthConfig      `yaml:"auth"`
	Directory DirectoryConfig `yaml:"directory"`
	Access    AccessConfig    `yaml:"access"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RequireAuth exige claims en todos los endpoints de /access.
	RequireAuth bool `yaml:"require_auth"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	App    string `yaml:"app"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Migrate crea las tablas al arrancar (solo postgres).
	Migrate bool `yaml:"migrate"`
}

type RedisConfig struct {
	URL     string        `yaml:"url"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

type AuditConfig struct {
	KafkaBrokers  []string      `yaml:"kafka_brokers"`
	Topic         string        `yaml:"topic"`
	QueueSize     int           `yaml:"queue_size"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxAttempts   int           `yaml:"max_attempts"`
}

const (
	AuthModeDev = "dev"
	AuthModeJWT = "jwt"
	AuthModeIDP = "idp"
)

type AuthConfig struct {
	Mode       string `yaml:"mode"`
	JWTSecret  string `yaml:"jwt_secret"`
	JWTIssuer  string `yaml:"jwt_issuer"`
	IDPBaseURL string `yaml:"idp_base_url"`
	IDPAPIKey  string `yaml:"idp_api_key"`
}

type DirectoryConfig struct {
	RegistryBaseURL string        `yaml:"registry_base_url"`
	RegistryAPIKey  string        `yaml:"registry_api_key"`
	RegistryTimeout time.Duration `yaml:"registry_timeout"`
	Seed            []SeedElder   `yaml:"seed"`
}

// SeedElder precarga cuentas de adultos mayores en el directorio in-memory.
type SeedElder struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	Identifier        string `yaml:"identifier"`
	DateOfBirth       string `yaml:"date_of_birth"` // YYYY-MM-DD
	Phone             string `yaml:"phone"`
	Address           string `yaml:"address"`
	EmergencyContact  string `yaml:"emergency_contact"`
	PreferredLanguage string `yaml:"preferred_language"`
}

type AccessConfig struct {
	OperationTimeout   time.Duration      `yaml:"operation_timeout"`
	DefaultPermissions []PermissionConfig `yaml:"default_permissions"`
}

type PermissionConfig struct {
	Resource string `yaml:"resource"`
	Action   string `yaml:"action"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			App:    "caregiver-access",
		},
		Storage: StorageConfig{Driver: DriverMemory},
		Redis:   RedisConfig{LockTTL: 10 * time.Second},
		Audit: AuditConfig{
			Topic:         "caregiver-access.audit",
			QueueSize:     256,
			SweepInterval: 30 * time.Second,
			MaxAttempts:   5,
		},
		Auth: AuthConfig{Mode: AuthModeDev},
		Directory: DirectoryConfig{
			RegistryTimeout: 5 * time.Second,
		},
		Access: AccessConfig{
			OperationTimeout: 5 * time.Second,
		},
	}
}

// Load lee path (si no está vacío) sobre los defaults y aplica overrides de env.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := strings.TrimSpace(getenv("REQUIRE_AUTH")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: REQUIRE_AUTH: %w", err)
		}
		cfg.Server.RequireAuth = b
	}

	if v := strings.TrimSpace(getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(getenv("LOG_FORMAT")); v != "" {
		cfg.Log.Format = v
	}
	if v := strings.TrimSpace(getenv("APP_NAME")); v != "" {
		cfg.Log.App = v
	}

	// DB_DSN selecciona postgres salvo que STORAGE_DRIVER diga otra cosa.
	if v := strings.TrimSpace(getenv("DB_DSN")); v != "" {
		cfg.Storage.DSN = v
		cfg.Storage.Driver = DriverPostgres
	}
	if v := strings.TrimSpace(getenv("STORAGE_DRIVER")); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv("DB_MIGRATE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DB_MIGRATE: %w", err)
		}
		cfg.Storage.Migrate = b
	}

	if v := strings.TrimSpace(getenv("REDIS_URL")); v != "" {
		cfg.Redis.URL = v
	}

	if v := strings.TrimSpace(getenv("KAFKA_BROKERS")); v != "" {
		cfg.Audit.KafkaBrokers = splitCSV(v)
	}
	if v := strings.TrimSpace(getenv("AUDIT_TOPIC")); v != "" {
		cfg.Audit.Topic = v
	}

	if v := strings.TrimSpace(getenv("AUTH_MODE")); v != "" {
		cfg.Auth.Mode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv("JWT_SECRET")); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(getenv("JWT_ISSUER")); v != "" {
		cfg.Auth.JWTIssuer = v
	}
	if v := strings.TrimSpace(getenv("IDP_BASE_URL")); v != "" {
		cfg.Auth.IDPBaseURL = v
	}
	if v := strings.TrimSpace(getenv("IDP_API_KEY")); v != "" {
		cfg.Auth.IDPAPIKey = v
	}

	if v := strings.TrimSpace(getenv("REGISTRY_BASE_URL")); v != "" {
		cfg.Directory.RegistryBaseURL = v
	}
	if v := strings.TrimSpace(getenv("REGISTRY_API_KEY")); v != "" {
		cfg.Directory.RegistryAPIKey = v
	}

	if v := strings.TrimSpace(getenv("OPERATION_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: OPERATION_TIMEOUT: %w", err)
		}
		cfg.Access.OperationTimeout = d
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn required for postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	switch c.Auth.Mode {
	case AuthModeDev:
	case AuthModeJWT:
		if strings.TrimSpace(c.Auth.JWTSecret) == "" {
			errs = append(errs, errors.New("auth.jwt_secret required for jwt mode"))
		}
	case AuthModeIDP:
		if strings.TrimSpace(c.Auth.IDPBaseURL) == "" || strings.TrimSpace(c.Auth.IDPAPIKey) == "" {
			errs = append(errs, errors.New("auth.idp_base_url and auth.idp_api_key required for idp mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth mode %q", c.Auth.Mode))
	}

	if c.Access.OperationTimeout <= 0 {
		errs = append(errs, errors.New("access.operation_timeout must be positive"))
	}
	if len(c.Audit.KafkaBrokers) > 0 && strings.TrimSpace(c.Audit.Topic) == "" {
		errs = append(errs, errors.New("audit.topic required when kafka brokers are set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
