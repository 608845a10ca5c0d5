package grousion

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("grousion", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.StoragePath != "grousion.db" {
		t.Fatalf("expected default storage path, got %q", cfg.StoragePath)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected default shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
	if cfg.JoinRequestsPerMinute != 30 {
		t.Fatalf("expected default join rate limit, got %d", cfg.JoinRequestsPerMinute)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("GROUSION_HTTP_ADDR", "env:9000")
	t.Setenv("GROUSION_STORAGE_PATH", "env.db")

	fs := flag.NewFlagSet("grousion", flag.ContinueOnError)
	args := []string{
		"-http-addr", "flag:9001",
		"-join-rate-limit", "5",
	}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag:9001" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.StoragePath != "env.db" {
		t.Fatalf("expected env storage path, got %q", cfg.StoragePath)
	}
	if cfg.JoinRequestsPerMinute != 5 {
		t.Fatalf("expected flag join rate limit, got %d", cfg.JoinRequestsPerMinute)
	}
}
