package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "omnidesk", cfg.Database.Name)
	assert.Empty(t, cfg.Automation.N8NBaseURL, "n8n integration should be unconfigured by default")
	assert.Equal(t, 5*time.Second, cfg.Automation.WebhookTimeout)
	assert.True(t, cfg.Security.RateLimiting.Enabled)
	assert.False(t, cfg.Monitoring.Tracing.Enabled, "tracing should default off")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestDatabaseConfigDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "svc",
		Password: "secret",
		Name:     "helpdesk",
		SSLMode:  "require",
		TimeZone: "Europe/Berlin",
	}
	dsn := d.DSN()
	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "user=svc")
	assert.Contains(t, dsn, "password=secret")
	assert.Contains(t, dsn, "dbname=helpdesk")
	assert.Contains(t, dsn, "sslmode=require")
	assert.Contains(t, dsn, "TimeZone=Europe/Berlin")
}

func TestDatabaseConfigDSNDefaults(t *testing.T) {
	dsn := DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Name: "d"}.DSN()
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "TimeZone=UTC")
}
