package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Uchennem/sleepoutsideServer/pkg/filter"
)

const strongSecret = "this-is-a-very-secure-secret-key-for-production-use-1234"

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, StorePostgres, cfg.ProductStore)
	assert.Equal(t, time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, filter.PolicyAnd, cfg.Policy())
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.ElasticsearchURLs)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"HTTP_PORT":             "8080",
		"PRODUCT_STORE":         "Elasticsearch",
		"ELASTICSEARCH_URL":     "http://es1:9200,http://es2:9200",
		"KAFKA_ENABLED":         "true",
		"KAFKA_BROKERS":         "k1:9092,k2:9092",
		"JWT_EXPIRES_IN":        "15m",
		"CATALOG_FILTER_POLICY": "OR",
		"LOG_SLOW_QUERY_MS":     "0",
		"DB_MAX_CONNS":          "25",
	})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, StoreElasticsearch, cfg.ProductStore)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.ElasticsearchURLs)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.JWTExpiresIn)
	assert.Equal(t, filter.PolicyOr, cfg.Policy())
	assert.Zero(t, cfg.SlowQueryThreshold())
	assert.Equal(t, int32(25), cfg.Postgres().MaxConns)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"port out of range", map[string]string{"HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"unknown store", map[string]string{"PRODUCT_STORE": "mongo"}, "PRODUCT_STORE must be one of"},
		{"unknown policy", map[string]string{"CATALOG_FILTER_POLICY": "xor"}, "CATALOG_FILTER_POLICY"},
		{"non-positive ttl", map[string]string{"JWT_EXPIRES_IN": "0s"}, "JWT_EXPIRES_IN must be positive"},
		{"malformed ttl", map[string]string{"JWT_EXPIRES_IN": "soon"}, "parse config"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "2"}, "OTEL_SAMPLE_RATE"},
		{"production without secret", map[string]string{"ENVIRONMENT": "production"}, "JWT_SECRET must be explicitly set"},
		{"production short secret", map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "short"}, "at least 32 characters"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadFrom(tc.env)
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadFrom_ProductionAcceptsStrongSecret(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": strongSecret})
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("PRODUCT_STORE", "memory")
	t.Setenv("HTTP_PORT", "4000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.ProductStore)
	assert.Equal(t, 4000, cfg.HTTPPort)
}

func TestDerivedSettings(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"POSTGRES_HOST":        "db",
		"POSTGRES_PASSWORD":    "p@ss",
		"OTEL_ENABLED":         "true",
		"ENVIRONMENT":          "staging",
		"JWT_SECRET":           strongSecret,
		"CORS_ALLOWED_ORIGINS": "https://shop.example.com",
	})
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db", pg.Host)
	assert.Equal(t, "p@ss", pg.Password)

	tc := cfg.Tracing("sleepoutside")
	assert.True(t, tc.Enabled)
	assert.Equal(t, "staging", tc.Environment)
	assert.Equal(t, "localhost:4318", tc.OTLPEndpoint)

	cors := cfg.CORS()
	assert.Equal(t, []string{"https://shop.example.com"}, cors.AllowedOrigins)
	assert.Equal(t, "staging", cors.Environment)
}
