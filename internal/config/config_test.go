package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:  AppConfig{Env: "local", Port: 8080},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_LocalWithoutDatabaseAppliesDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.UsesPostgres() || c.UsesRedis() {
		t.Fatalf("expected in-memory mode")
	}
	if c.Call.ConnectTimeout != 30*time.Second {
		t.Fatalf("expected default connect timeout, got %s", c.Call.ConnectTimeout)
	}
	if len(c.Call.ICEServers) != 2 {
		t.Fatalf("expected default ICE servers, got %v", c.Call.ICEServers)
	}
	if c.Call.APIBaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected api base url %q", c.Call.APIBaseURL)
	}
	if c.Auth.AccessTokenTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token ttl %s", c.Auth.AccessTokenTTL)
	}
	if c.Chat.PollRatePerMinute != 120 || c.Chat.PollBurst != 20 {
		t.Fatalf("unexpected chat defaults %+v", c.Chat)
	}
}

func TestValidate_ProductionRequiresDatabaseAndSSLMode(t *testing.T) {
	c := Config{
		App:  AppConfig{Env: "production", Port: 8080},
		Auth: AuthConfig{JWTSecret: "secret", JWTIssuer: "i", JWTAudience: "a"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_HOST")
	}

	c.DB = DBConfig{Host: "db", Port: 5432, User: "postgres", Name: "dating"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validLocal()
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Name: "dating"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_RejectsBadICEServer(t *testing.T) {
	c := validLocal()
	c.Call.ICEServers = []string{"http://example.com"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected ICE server error")
	}
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("CALL_CONNECT_TIMEOUT", "5s")
	t.Setenv("CALL_VIDEO_ENABLED", "false")
	t.Setenv("CALL_ICE_SERVERS", "stun:a:1, stun:b:2")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.App.Port != 9090 || c.Call.ConnectTimeout != 5*time.Second || c.Call.VideoEnabled {
		t.Fatalf("unexpected config %+v", c)
	}
	if len(c.Call.ICEServers) != 2 || c.Call.ICEServers[1] != "stun:b:2" {
		t.Fatalf("unexpected ICE servers %v", c.Call.ICEServers)
	}
}

func TestLoad_RejectsBadBool(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("CALL_VIDEO_ENABLED", "maybe")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}
