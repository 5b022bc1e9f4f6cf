package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "CONTRIBUTOR_THRESHOLD", "TOKEN_TTL", "TRUST_QUEUE_SIZE"} {
		t.Setenv(key, "")
	}

	cfg, _ := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 50, cfg.ContributorThreshold)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 1000, cfg.TrustQueueSize)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CONTRIBUTOR_THRESHOLD", "75")
	t.Setenv("TRUST_FLUSH_INTERVAL", "2s")

	cfg, _ := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 75, cfg.ContributorThreshold)
	assert.Equal(t, 2*time.Second, cfg.TrustFlushInterval)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CONTRIBUTOR_THRESHOLD", "fifty")
	t.Setenv("TOKEN_TTL", "a day")

	cfg, _ := Load()

	assert.Equal(t, 50, cfg.ContributorThreshold)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
}
