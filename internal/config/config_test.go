package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.SourcesFile != "links.txt" || s.DataDir != "data" || s.StoreBackend != "json" {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.FetchTimeout != 40*time.Second || s.FetchInterval != 2*time.Second {
		t.Errorf("durations not decoded: %v %v", s.FetchTimeout, s.FetchInterval)
	}
	if !s.CrawlerEnabled || !s.EmailEnabled || !s.WechatEnabled {
		t.Error("feature toggles should default to on")
	}
	if s.HistoryPath() != filepath.Join("data", "history.json") {
		t.Errorf("unexpected history path %s", s.HistoryPath())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("EMAIL_ENABLED", "false")
	t.Setenv("SMTP_USERNAME", "me@example.com")
	t.Setenv("TIMEZONE", "UTC")

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.StoreBackend != "sqlite" || s.HistoryPath() != filepath.Join("data", "history.db") {
		t.Errorf("store backend override ignored: %+v", s)
	}
	if s.FetchTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", s.FetchTimeout)
	}
	if s.EmailEnabled {
		t.Error("EMAIL_ENABLED=false ignored")
	}
	if s.MailTo != "me@example.com" {
		t.Errorf("mail_to should default to smtp_username, got %q", s.MailTo)
	}
	loc, err := s.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("unexpected location %v %v", loc, err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "postwatch.yaml")
	yaml := "sources_file: profiles.txt\ntrend_days: 7\ncollector_mode: mock\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.SourcesFile != "profiles.txt" || s.TrendDays != 7 || s.CollectorMode != "mock" {
		t.Errorf("config file values ignored: %+v", s)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DATA_DIR=state\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DATA_DIR") })

	s, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if s.DataDir != "state" {
		t.Errorf("expected data_dir from .env, got %q", s.DataDir)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"STORE_BACKEND":  "postgres",
		"COLLECTOR_MODE": "api",
		"LOCK_BACKEND":   "redis", // without REDIS_URL
		"TIMEZONE":       "Mars/Olympus_Mons",
		"WX_WORKER_URL":  "not a url",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, val)
			_, err := Load("")
			if err == nil {
				t.Fatalf("expected %s=%s to be rejected", key, val)
			}
			if !strings.Contains(err.Error(), "invalid config") {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}
