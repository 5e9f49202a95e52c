package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/config"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
)

func TestCookieSecure(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{url: "https://blisslearn.app", want: true},
		{url: "HTTPS://blisslearn.app", want: true},
		{url: "http://localhost:3000", want: false},
		{url: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, cookieSecure(tt.url))
		})
	}
}

func TestStoreConfig(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{
		Driver:           "pgx",
		Host:             "db",
		Port:             5432,
		User:             "bliss",
		Password:         "secret",
		Name:             "blisslearn",
		SSLMode:          "require",
		MaxOpenConns:     10,
		RetryMaxAttempts: 4,
		RetryBaseDelay:   250 * time.Millisecond,
	}}

	got := storeConfig(cfg)

	assert.Equal(t, "pgx", got.Driver)
	assert.Equal(t, "blisslearn", got.DBName)
	assert.Equal(t, 10, got.MaxOpenConns)
	assert.Equal(t, store.Policy{MaxAttempts: 4, BaseDelay: 250 * time.Millisecond}, got.Retry)
	assert.Equal(t, "postgres://bliss:secret@db:5432/blisslearn?sslmode=require", got.DSN())
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite3"}}

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "open database")
}

func TestClose_WithoutBackends(t *testing.T) {
	assert.NoError(t, (&App{}).Close())
}
