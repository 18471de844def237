package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTTL(t *testing.T) {
	fallback := 15 * time.Minute

	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"12h", 12 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{" 5m ", 5 * time.Minute},
		{"", fallback},
		{"7", fallback},
		{"m", fallback},
		{"-5m", fallback},
		{"7w", fallback},
		{"abc", fallback},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseTTL(tc.raw, fallback), "raw=%q", tc.raw)
	}
}

func TestValidateRequiresJWTSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.JWT.AccessSecret = ""
	cfg.JWT.RefreshSecret = "r"
	assert.Error(t, cfg.Validate())

	cfg.JWT.AccessSecret = "a"
	cfg.JWT.RefreshSecret = ""
	assert.Error(t, cfg.Validate())

	cfg.JWT.RefreshSecret = "r"
	assert.NoError(t, cfg.Validate())
}
