package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMySQL  = "mysql"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Object stores accepted by STORAGE_DRIVER.
const (
	StorageS3     = "s3"
	StorageMemory = "memory"
)

// Revocation backends accepted by REVOCATION_BACKEND.
const (
	RevocationMemory = "memory"
	RevocationRedis  = "redis"
	RevocationMySQL  = "mysql"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; nested structs group the settings of one
// collaborator (Redis, Mongo, S3, RabbitMQ, ...).
type Config struct {
	Env     string `env:"APP_ENV" envDefault:"dev"`
	Port    string `env:"APP_PORT" envDefault:"8000"`
	Version string `env:"APP_VERSION" envDefault:"1.0.0"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"mysql"`
	DBUser      string `env:"DB_USER" envDefault:"root"`
	DBPass      string `env:"DB_PASS"` // empty allowed
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      string `env:"DB_PORT" envDefault:"3306"`
	DBName      string `env:"DB_NAME" envDefault:"accounts"`

	JWTSecret         string `env:"JWT_SECRET,required,notEmpty"`
	JWTAlgorithm      string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	AccessTTLMin      int    `env:"ACCESS_TOKEN_TTL_MIN" envDefault:"30"`
	RefreshTTLDays    int    `env:"REFRESH_TOKEN_TTL_DAYS" envDefault:"7"`
	RevocationBackend string `env:"REVOCATION_BACKEND" envDefault:"memory"`

	PasswordHasher    string `env:"PASSWORD_HASHER" envDefault:"bcrypt"`
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"12"`
	PasswordMinLength int    `env:"PASSWORD_MIN_LENGTH" envDefault:"4"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	Log       LogConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	S3        S3Config
	Events    EventsConfig
	Upload    UploadConfig
}

// LogConfig selects the zerolog level and output format (json or console).
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// MongoConfig is used when STORE_DRIVER=mongo.
type MongoConfig struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DATABASE" envDefault:"accounts"`
}

// S3Config points at an S3-compatible bucket. Endpoint is only needed for
// MinIO and other non-AWS providers.
type S3Config struct {
	Driver       string `env:"STORAGE_DRIVER" envDefault:"s3"`
	Endpoint     string `env:"S3_ENDPOINT"`
	Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	Bucket       string `env:"S3_BUCKET" envDefault:"uploads"`
	AccessKey    string `env:"S3_ACCESS_KEY"`
	SecretKey    string `env:"S3_SECRET_KEY"`
	UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"true"`
}

// EventsConfig configures the RabbitMQ publisher and the audit consumer.
// An empty URL disables both.
type EventsConfig struct {
	URL          string `env:"RABBITMQ_URL"`
	Queue        string `env:"EVENTS_QUEUE" envDefault:"user.events"`
	AuditLogPath string `env:"AUDIT_LOG_PATH" envDefault:"logs/audit.log"`
	Consume      bool   `env:"EVENTS_CONSUME" envDefault:"true"`
}

// UploadConfig bounds what the uploads endpoints accept. An empty
// AllowedTypes list accepts every detected content type.
type UploadConfig struct {
	MaxBytes     int64         `env:"UPLOAD_MAX_BYTES" envDefault:"52428800"`
	AllowedTypes []string      `env:"UPLOAD_ALLOWED_TYPES" envSeparator:"," envDefault:"image/jpeg,image/png,image/gif,image/webp,application/pdf,text/plain,text/csv"`
	URLExpiry    time.Duration `env:"UPLOAD_URL_EXPIRY" envDefault:"15m"`
}

// Load reads an optional .env file and then the process environment into a
// Config. A missing JWT_SECRET or an unknown backend name is an error.
func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional; real env vars take precedence

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.RateLimit.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreMySQL, StoreMongo, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.RevocationBackend {
	case RevocationMemory, RevocationRedis:
	case RevocationMySQL:
		if c.StoreDriver != StoreMySQL {
			errs = append(errs, errors.New("REVOCATION_BACKEND=mysql requires STORE_DRIVER=mysql"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REVOCATION_BACKEND %q", c.RevocationBackend))
	}
	switch c.S3.Driver {
	case StorageS3, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.S3.Driver))
	}
	if c.AccessTTLMin <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL_MIN must be positive"))
	}
	if c.RefreshTTLDays <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL_DAYS must be positive"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// AccessTTL is the access token lifetime.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL is the refresh token lifetime.
func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// Addr is the HTTP listen address.
func (c Config) Addr() string { return ":" + c.Port }
