package config

import (
	"strings"
	"testing"
	"time"
)

func setBroker(t *testing.T) {
	t.Setenv("SMS_BROKER_API", "https://broker.example/send")
	t.Setenv("SMS_BROKER_TOKEN", "Basic abc")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBroker(t)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "4040" || cfg.DBDriver != "sqlite" || cfg.DropRoot != "./public" || cfg.SentDir != "sent" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.ScanInterval != 10*time.Second || cfg.BatchSize != 100 || cfg.BatchDelay != 300*time.Millisecond {
		t.Fatalf("pacing defaults = %+v", cfg)
	}
	if cfg.Originator != "3700" || cfg.PricePerMessage != 100 || cfg.DefaultSenderID != 1 {
		t.Fatalf("broker defaults = %+v", cfg)
	}
}

func TestDurationsAcceptMilliseconds(t *testing.T) {
	setBroker(t)
	t.Setenv("BATCH_DELAY", "750")
	t.Setenv("SCAN_INTERVAL", "2s")
	t.Setenv("BATCH_SIZE", "oops")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BatchDelay != 750*time.Millisecond || cfg.ScanInterval != 2*time.Second {
		t.Fatalf("durations = %v / %v", cfg.BatchDelay, cfg.ScanInterval)
	}
	if cfg.BatchSize != 100 {
		t.Fatalf("invalid BATCH_SIZE should fall back, got %d", cfg.BatchSize)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing broker":     {"SMS_BROKER_API": ""},
		"broker not a url":   {"SMS_BROKER_API": "not a url"},
		"bad driver":         {"DB_DRIVER": "mysql"},
		"postgres sans host": {"DB_DRIVER": "postgres", "DB_NAME": "sms"},
		"zero batch":         {"BATCH_SIZE": "0"},
		"nested sent dir":    {"SENT_DIR": "a/b"},
		"fast scan":          {"SCAN_INTERVAL": "10ms"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setBroker(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestReadSkipsValidation(t *testing.T) {
	t.Setenv("SMS_BROKER_API", "")
	t.Setenv("DB_HOST", "db")
	if cfg := Read(); cfg.DBHost != "db" {
		t.Fatalf("DBHost = %q", cfg.DBHost)
	}
}

func TestDefaultSenderRejectsNegative(t *testing.T) {
	setBroker(t)
	t.Setenv("DEFAULT_SENDER_ID", "-1")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DefaultSenderID != 1 {
		t.Fatalf("DefaultSenderID = %d, want fallback 1", cfg.DefaultSenderID)
	}

	t.Setenv("DEFAULT_SENDER_ID", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("sender id 0 accepted")
	}
}
