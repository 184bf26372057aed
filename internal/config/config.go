// Package config loads postwatch settings from an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings mirrors the keys of postwatch.yaml; each key can be overridden by
// the upper-cased environment variable of the same name.
type Settings struct {
	SourcesFile   string `mapstructure:"sources_file" validate:"required"`
	DataDir       string `mapstructure:"data_dir" validate:"required"`
	OutputDir     string `mapstructure:"output_dir" validate:"required"`
	StoreBackend  string `mapstructure:"store_backend" validate:"oneof=json sqlite"`
	Timezone      string `mapstructure:"timezone" validate:"required"`
	CollectorMode string `mapstructure:"collector_mode" validate:"oneof=live mock"`

	FetchTimeout      time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	FetchInterval     time.Duration `mapstructure:"fetch_interval" validate:"gte=0"`
	MaxPostsPerSource int           `mapstructure:"max_posts_per_source" validate:"gt=0"`
	UserAgent         string        `mapstructure:"user_agent" validate:"required"`

	HTMLItemSelector string `mapstructure:"html_item_selector" validate:"required"`
	HTMLLinkSelector string `mapstructure:"html_link_selector" validate:"required"`
	HTMLTimeSelector string `mapstructure:"html_time_selector"`
	HTMLNamePattern  string `mapstructure:"html_name_pattern"`

	RedditClientID     string `mapstructure:"reddit_client_id"`
	RedditClientSecret string `mapstructure:"reddit_client_secret"`
	RedditUsername     string `mapstructure:"reddit_username"`
	RedditPassword     string `mapstructure:"reddit_password"`

	CrawlerEnabled bool `mapstructure:"crawler_enabled"`
	EmailEnabled   bool `mapstructure:"email_enabled"`
	WechatEnabled  bool `mapstructure:"wechat_enabled"`

	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port" validate:"gt=0,lte=65535"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	MailTo       string `mapstructure:"mail_to"`

	WXWorkerURL string `mapstructure:"wx_worker_url" validate:"omitempty,url"`
	WXToken     string `mapstructure:"wx_token"`
	SiteURL     string `mapstructure:"site_url" validate:"omitempty,url"`

	LockBackend string        `mapstructure:"lock_backend" validate:"oneof=file redis none"`
	RedisURL    string        `mapstructure:"redis_url" validate:"required_if=LockBackend redis"`
	LockTTL     time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`

	RetentionDays int    `mapstructure:"retention_days" validate:"gte=0"`
	TrendDays     int    `mapstructure:"trend_days" validate:"gt=0,lte=366"`
	Port          string `mapstructure:"port" validate:"required"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=console json"`
}

var defaults = map[string]any{
	"sources_file":         "links.txt",
	"data_dir":             "data",
	"output_dir":           "public",
	"store_backend":        "json",
	"timezone":             "Local",
	"collector_mode":       "live",
	"fetch_timeout":        "40s",
	"fetch_interval":       "2s",
	"max_posts_per_source": 10,
	"user_agent":           "postwatch/1.0",
	"html_item_selector":   "div.list div.item",
	"html_link_selector":   "a.subject",
	"html_time_selector":   "span.date, span.gray, .time, .date",
	"html_name_pattern":    `(.+?)\s*\(ID:\s*\d+\)`,
	"reddit_client_id":     "",
	"reddit_client_secret": "",
	"reddit_username":      "",
	"reddit_password":      "",
	"crawler_enabled":      true,
	"email_enabled":        true,
	"wechat_enabled":       true,
	"smtp_host":            "smtp.qq.com",
	"smtp_port":            465,
	"smtp_username":        "",
	"smtp_password":        "",
	"mail_to":              "",
	"wx_worker_url":        "",
	"wx_token":             "",
	"site_url":             "",
	"lock_backend":         "file",
	"redis_url":            "",
	"lock_ttl":             "30m",
	"retention_days":       0,
	"trend_days":           14,
	"port":                 "8080",
	"log_level":            "info",
	"log_format":           "console",
}

// Load builds Settings. configFile may be empty; a missing .env is fine.
func Load(configFile string) (Settings, error) {
	// .env never overrides variables already set in the process.
	_ = godotenv.Load()

	v := viper.New()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if s.MailTo == "" {
		s.MailTo = s.SMTPUsername
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks field constraints and that the time zone resolves.
func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(parts, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", s.Timezone, err)
	}
	return nil
}

// Location resolves Timezone; "Local" is the host zone.
func (s Settings) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

func (s Settings) HistoryPath() string {
	if s.StoreBackend == "sqlite" {
		return filepath.Join(s.DataDir, "history.db")
	}
	return filepath.Join(s.DataDir, "history.json")
}

func (s Settings) SnapshotPath() string { return filepath.Join(s.DataDir, "latest.json") }

func (s Settings) LockPath() string { return filepath.Join(s.DataDir, ".postwatch.lock") }

// MailConfigured reports whether SMTP credentials are present.
func (s Settings) MailConfigured() bool {
	return s.SMTPHost != "" && s.SMTPUsername != "" && s.SMTPPassword != ""
}

// WechatConfigured reports whether the push worker is set up.
func (s Settings) WechatConfigured() bool {
	return s.WXWorkerURL != "" && s.WXToken != ""
}
