package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/afip-bridge/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.AFIP.Mode)
	assert.Equal(t, 5*time.Second, cfg.AFIP.ConnectTimeout)
	assert.Equal(t, 60*time.Second, cfg.AFIP.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.AFIP.TRATTL)
	assert.False(t, cfg.AFIP.AllowCFFallback)
	assert.Equal(t, "file", cfg.AFIP.TicketStore)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("AFIP_MODE", "production")
	t.Setenv("AFIP_CONNECT_TIMEOUT", "3")
	t.Setenv("AFIP_RETRY_BACKOFF", "250ms")
	t.Setenv("AFIP_ALLOW_CF_FALLBACK", "true")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AFIP.Mode)
	assert.Equal(t, 3*time.Second, cfg.AFIP.ConnectTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.AFIP.RetryBackoff)
	assert.True(t, cfg.AFIP.AllowCFFallback)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
}

func TestLoad_TicketStoreInvalido(t *testing.T) {
	t.Setenv("AFIP_TICKET_STORE", "s3")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "x", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/x?sslmode=disable", c.ConnectionString())
	c.DatabaseURL = "postgres://other"
	assert.Equal(t, "postgres://other", c.ConnectionString())
}
