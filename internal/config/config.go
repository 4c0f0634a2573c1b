package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreSupabase = "supabase"
	StoreMemory   = "memory"

	ContextStoreMemory   = "memory"
	ContextStoreRedis    = "redis"
	ContextStoreSupabase = "supabase"

	BlobSupabase = "supabase"
	BlobS3       = "s3"
)

type S3Config struct {
	Endpoint  string `mapstructure:"s3_endpoint"`
	Region    string `mapstructure:"s3_region"`
	AccessKey string `mapstructure:"s3_access_key"`
	SecretKey string `mapstructure:"s3_secret_key"`
	Bucket    string `mapstructure:"s3_bucket"`
	PublicURL string `mapstructure:"s3_public_url"`
}

type Config struct {
	// Server
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	BaseURL     string `mapstructure:"base_url"`
	LogLevel    string `mapstructure:"log_level"`

	// Supabase
	SupabaseURL           string `mapstructure:"supabase_url"`
	SupabaseServiceKey    string `mapstructure:"supabase_service_key"`
	SupabaseJWTSecret     string `mapstructure:"supabase_jwt_secret"`
	SupabaseStorageBucket string `mapstructure:"supabase_storage_bucket"`

	// Database
	DatabaseURL string `mapstructure:"database_url"`

	// Drivers
	StoreDriver  string `mapstructure:"store_driver"`
	ContextStore string `mapstructure:"context_store"`
	BlobDriver   string `mapstructure:"blob_driver"`

	// Redis
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// RabbitMQ
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`

	S3 S3Config `mapstructure:",squash"`
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads .env (when present), then config.yaml from ./configs or the
// working directory (when present), then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Every key needs a default (even an empty one) for AutomaticEnv to reach it
// through Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("supabase_url", "")
	v.SetDefault("supabase_service_key", "")
	v.SetDefault("supabase_jwt_secret", "")
	v.SetDefault("supabase_storage_bucket", "findings-media")

	v.SetDefault("database_url", "")

	v.SetDefault("store_driver", StoreSupabase)
	v.SetDefault("context_store", ContextStoreSupabase)
	v.SetDefault("blob_driver", BlobSupabase)

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "arqueo.events")

	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_region", "auto")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_public_url", "")
}

func (c *Config) Validate() error {
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.ContextStore {
	case ContextStoreMemory, ContextStoreRedis:
	case ContextStoreSupabase:
		if c.StoreDriver != StoreSupabase {
			return fmt.Errorf("CONTEXT_STORE=supabase requires STORE_DRIVER=supabase")
		}
	default:
		return fmt.Errorf("unknown CONTEXT_STORE %q", c.ContextStore)
	}
	switch c.BlobDriver {
	case BlobSupabase:
	case BlobS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.BlobDriver)
	}
	return nil
}
