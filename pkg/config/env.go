// Package config provides shared environment variable helpers and the
// default-instance loader.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/QuickFind-Limited/lovable-gympluscoffee-liam-sub000/pkg/rpc"
)

// EnvOr returns the environment variable value or a fallback default.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvOrInt returns an integer environment variable or a fallback default.
// Logs a warning if the value is set but not parseable.
func EnvOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer env var, using fallback", "key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return n
}

// EnvOrDuration returns a duration environment variable (Go syntax, e.g.
// "30s") or a fallback default.
func EnvOrDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration env var, using fallback", "key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return d
}

// DefaultInstance reads the default backend instance from the environment.
// All of ODOO_URL, ODOO_DB, ODOO_USERNAME and ODOO_PASSWORD must be present;
// partial configuration yields ok=false and no default instance is
// registered (the bridge still starts).
func DefaultInstance() (rpc.ConnectionConfig, bool) {
	cfg := rpc.ConnectionConfig{
		Endpoint:       os.Getenv("ODOO_URL"),
		Database:       os.Getenv("ODOO_DB"),
		Username:       os.Getenv("ODOO_USERNAME"),
		Password:       os.Getenv("ODOO_PASSWORD"),
		Timeout:        EnvOrDuration("ODOO_TIMEOUT", 30*time.Second),
		MaxConnections: EnvOrInt("ODOO_MAX_CONNECTIONS", 10),
	}
	if cfg.Endpoint == "" || cfg.Database == "" || cfg.Username == "" || cfg.Password == "" {
		return rpc.ConnectionConfig{}, false
	}
	return cfg, true
}
