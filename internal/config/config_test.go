package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "environment: dev\naddr: \":8080\"\ndatabaseUrl: \"postgres://localhost/test\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	t.Setenv("NODE_ENV", "prod")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != EnvProd {
		t.Errorf("expected NODE_ENV override to win, got %q", cfg.Environment)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("expected PORT override to win, got %q", cfg.Addr)
	}
}

func TestValidateRejectsMissingDatabaseURL(t *testing.T) {
	cfg := AppConfig{Environment: EnvDev, Addr: ":8080"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing databaseUrl")
	}
}

func TestValidateRejectsUnknownEnvironment(t *testing.T) {
	cfg := AppConfig{Environment: "qa", Addr: ":8080", DatabaseURL: "postgres://x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestLoadAppliesIntervalDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "environment: dev\naddr: \":8080\"\ndatabaseUrl: \"postgres://localhost/test\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Intervals.Orchestrator != "2s" {
		t.Errorf("expected default orchestrator interval 2s, got %q", cfg.Intervals.Orchestrator)
	}
	if cfg.Intervals.Allocation != "1h" {
		t.Errorf("expected default allocation interval 1h, got %q", cfg.Intervals.Allocation)
	}
	if cfg.Intervals.AgentRun != "5m" {
		t.Errorf("expected default agent-run interval 5m, got %q", cfg.Intervals.AgentRun)
	}
}

func TestLoadPreservesExplicitIntervals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "environment: dev\naddr: \":8080\"\ndatabaseUrl: \"postgres://localhost/test\"\n" +
		"intervals:\n  orchestrator: \"5s\"\n  allocation: \"30m\"\n  agentRun: \"1m\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Intervals.Orchestrator != "5s" {
		t.Errorf("expected explicit orchestrator interval to survive, got %q", cfg.Intervals.Orchestrator)
	}
	if cfg.Intervals.AgentRun != "1m" {
		t.Errorf("expected explicit agentRun interval to survive, got %q", cfg.Intervals.AgentRun)
	}
}

func TestPortFromAddr(t *testing.T) {
	if got := PortFromAddr(":9090"); got != 9090 {
		t.Errorf("expected 9090, got %d", got)
	}
	if got := PortFromAddr("bogus"); got != 0 {
		t.Errorf("expected 0 for unparseable addr, got %d", got)
	}
}
