package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected default session TTL 24h, got %s", cfg.SessionTTL)
	}
	if cfg.ReportCacheTTL != 30*time.Second {
		t.Errorf("expected default report cache TTL 30s, got %s", cfg.ReportCacheTTL)
	}
	if cfg.LowStockThreshold != 5 {
		t.Errorf("expected default low stock threshold 5, got %d", cfg.LowStockThreshold)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("LOW_STOCK_THRESHOLD", "12")

	cfg := Load()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("expected addr :9090, got %s", cfg.HTTPAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "kafka-1:9092" || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("expected session TTL 1h, got %s", cfg.SessionTTL)
	}
	if cfg.LowStockThreshold != 12 {
		t.Errorf("expected low stock threshold 12, got %d", cfg.LowStockThreshold)
	}
}
