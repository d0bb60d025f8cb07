package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, (&Config{}).Enabled())
	assert.True(t, (&Config{DSN: "postgres://bot@localhost/orders?sslmode=disable"}).Enabled())
}

func TestConfig_New_Unreachable(t *testing.T) {
	cfg := Config{DSN: "postgres://bot@127.0.0.1:1/orders?sslmode=disable&connect_timeout=1", MaxOpenConns: 1}
	_, err := cfg.New(context.Background())
	assert.Error(t, err)
}
