package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_DB_NAME", "")
	t.Setenv("VECTOR_DIMENSION", "")
	cfg := Load()

	assert.Equal(t, "authentication_shard", cfg.AuthDBName)
	assert.Equal(t, "geodiscounts_db", cfg.GeoDBName)
	assert.Equal(t, "vector_db", cfg.VectorDBName)
	assert.Equal(t, 384, cfg.VectorDimension)
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, time.Second, cfg.SlowRequestThreshold)
	assert.Equal(t, time.Hour, cfg.GeoCacheTTL)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "sixty")
	t.Setenv("GEO_CACHE_TTL", "forever")
	t.Setenv("COOKIE_SECURE", "maybe")
	cfg := Load()

	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.Equal(t, time.Hour, cfg.GeoCacheTTL)
	assert.False(t, cfg.CookieSecure)
}

func TestDSNPerDatabase(t *testing.T) {
	cfg := &Config{
		DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5432", DBSSLMode: "disable",
		AuthDBName: "auth", GeoDBName: "geo", VectorDBName: "vec",
	}
	assert.Equal(t, "postgres://u:p@db:5432/auth?sslmode=disable", cfg.AuthDSN())
	assert.Equal(t, "postgres://u:p@db:5432/geo?sslmode=disable", cfg.GeoDSN())
	assert.Equal(t, "postgres://u:p@db:5432/vec?sslmode=disable", cfg.VectorDSN())
}

func TestActivationURL(t *testing.T) {
	cfg := &Config{BaseDomain: "https://api.example.com"}
	got := cfg.ActivationURL("abc", "a+b@example.com")
	assert.Equal(t, "https://api.example.com/authentication/v1/activate/?token=abc&email=a%2Bb%40example.com", got)
}

func TestSplitLists(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " http://a.com, ,http://b.com ", ElasticsearchAddrs: ""}
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, cfg.CORSOrigins())
	assert.Empty(t, cfg.ESAddrs())
}
