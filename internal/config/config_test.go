package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Matching.DefaultRadiusMeters != 10000 {
		t.Errorf("expected default radius 10000, got %v", cfg.Matching.DefaultRadiusMeters)
	}
	if cfg.Matching.MaxResults != 20 {
		t.Errorf("expected max results 20, got %d", cfg.Matching.MaxResults)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("expected no brokers by default, got %v", cfg.Kafka.Brokers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("MATCH_MAX_RESULTS", "5")
	t.Setenv("MATCH_DEFAULT_RADIUS_METERS", "2500.5")
	t.Setenv("NOTIFY_DELIVERY_TIMEOUT", "750ms")
	t.Setenv("DB_MIGRATE", "true")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Matching.MaxResults != 5 {
		t.Errorf("expected max results 5, got %d", cfg.Matching.MaxResults)
	}
	if cfg.Matching.DefaultRadiusMeters != 2500.5 {
		t.Errorf("expected radius 2500.5, got %v", cfg.Matching.DefaultRadiusMeters)
	}
	if cfg.Notify.DeliveryTimeout != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %v", cfg.Notify.DeliveryTimeout)
	}
	if !cfg.Database.Migrate {
		t.Error("expected migrations enabled")
	}
	if cfg.Redis.DB != 0 {
		t.Errorf("expected fallback to default redis db, got %d", cfg.Redis.DB)
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Load()
	cfg.Matching.DefaultRadiusMeters = -1
	cfg.Matching.MaxResults = 0
	cfg.NewRelic.Enabled = true
	cfg.NewRelic.LicenseKey = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"MATCH_DEFAULT_RADIUS_METERS", "MATCH_MAX_RESULTS", "NEW_RELIC_LICENSE_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: "5433", User: "svc", Password: "secret", DBName: "home", SSLMode: "require"}

	want := "host=db port=5433 user=svc password=secret dbname=home sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
