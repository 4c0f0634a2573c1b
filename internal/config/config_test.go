package config_test

import (
	"testing"

	"arqueo-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CONTEXT_STORE", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, config.StoreMemory, cfg.StoreDriver)
	assert.Equal(t, config.ContextStoreRedis, cfg.ContextStore)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			SupabaseJWTSecret:  "secret",
			SupabaseURL:        "https://example.supabase.co",
			SupabaseServiceKey: "key",
			StoreDriver:        config.StoreSupabase,
			ContextStore:       config.ContextStoreSupabase,
			BlobDriver:         config.BlobSupabase,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *config.Config) {}},
		{name: "missing jwt secret", mutate: func(c *config.Config) { c.SupabaseJWTSecret = "" }, wantErr: "SUPABASE_JWT_SECRET"},
		{name: "missing supabase url", mutate: func(c *config.Config) { c.SupabaseURL = "" }, wantErr: "SUPABASE_URL"},
		{name: "memory store needs no supabase", mutate: func(c *config.Config) {
			c.StoreDriver = config.StoreMemory
			c.ContextStore = config.ContextStoreMemory
			c.SupabaseURL = ""
			c.SupabaseServiceKey = ""
		}},
		{name: "supabase context on memory store", mutate: func(c *config.Config) { c.StoreDriver = config.StoreMemory }, wantErr: "CONTEXT_STORE"},
		{name: "s3 without bucket", mutate: func(c *config.Config) { c.BlobDriver = config.BlobS3 }, wantErr: "S3_BUCKET"},
		{name: "unknown driver", mutate: func(c *config.Config) { c.StoreDriver = "mongo" }, wantErr: "STORE_DRIVER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
