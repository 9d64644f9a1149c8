package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("SKILLTRADE_TEST_KEY", "value")

	assert.Equal(t, "value", getEnv("SKILLTRADE_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", getEnv("SKILLTRADE_MISSING_KEY", "fallback"))
}
