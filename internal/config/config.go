package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode selects which fields are required
type Mode int

const (
	// ModeRun mirrors the single issue described by the environment
	ModeRun Mode = iota
	// ModeServe mirrors issues delivered by GitHub webhooks
	ModeServe
)

// Config holds all bridge configuration. It is loaded once at entry and passed
// to each component.
type Config struct {
	Actor  string
	Asana  AsanaConfig
	Issue  IssueConfig
	Repo   RepoConfig
	Policy PolicyConfig
	Logger LoggerConfig
	HTTP   HTTPConfig
	Server ServerConfig
}

type AsanaConfig struct {
	PAT               string
	Project           string
	APIURL            string
	RequestsPerSecond float64
	ProjectCacheTTL   time.Duration
}

type IssueConfig struct {
	URL       string
	Title     string
	Body      string
	Timestamp string
}

type RepoConfig struct {
	Name   string
	Token  string
	APIURL string
}

type PolicyConfig struct {
	OnlyReactTo    string
	ActorAllowlist []string
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type HTTPConfig struct {
	Timeout time.Duration
}

type ServerConfig struct {
	Addr          string
	WebhookSecret string
}

// keys maps config keys to the environment variables they are read from.
// The first variable that is set wins.
var keys = map[string][]string{
	"actor":                   {"ACTOR"},
	"asana.pat":               {"ASANA_PAT"},
	"asana.project":           {"ASANA_PROJECT"},
	"asana.api_url":           {"ASANA_API_URL"},
	"asana.rate_limit":        {"ASANA_RATE_LIMIT"},
	"asana.project_cache_ttl": {"ASANA_PROJECT_CACHE_TTL"},
	"issue.url":               {"ISSUE_URL"},
	"issue.title":             {"ISSUE_TITLE"},
	"issue.body":              {"ISSUE_BODY"},
	"issue.timestamp":         {"ISSUE_TIMESTAMP"},
	"repo.name":               {"REPO"},
	"repo.token":              {"REPO_TOKEN", "GITHUB_TOKEN"},
	"repo.api_url":            {"GITHUB_API_URL"},
	"policy.only_react_to":    {"ONLY_REACT_TO"},
	"policy.allowlist":        {"ACTOR_ALLOWLIST"},
	"logger.level":            {"LOG_LEVEL"},
	"logger.encoding":         {"LOG_ENCODING"},
	"http.timeout":            {"HTTP_TIMEOUT"},
	"server.addr":             {"SERVE_ADDR"},
	"server.webhook_secret":   {"WEBHOOK_SECRET"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("asana.rate_limit", 10)
	v.SetDefault("asana.project_cache_ttl", "5m")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("server.addr", ":8080")
}

// Load reads configuration from the environment and, when path is non-empty,
// from the given config file. Environment values take precedence.
func Load(v *viper.Viper, path string) (*Config, error) {
	for key, envs := range keys {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	cfg.Actor = strings.TrimSpace(v.GetString("actor"))

	cfg.Asana.PAT = v.GetString("asana.pat")
	cfg.Asana.Project = strings.TrimSpace(v.GetString("asana.project"))
	cfg.Asana.APIURL = v.GetString("asana.api_url")
	cfg.Asana.RequestsPerSecond = v.GetFloat64("asana.rate_limit")
	cfg.Asana.ProjectCacheTTL = v.GetDuration("asana.project_cache_ttl")

	cfg.Issue.URL = strings.TrimSpace(v.GetString("issue.url"))
	cfg.Issue.Title = v.GetString("issue.title")
	cfg.Issue.Body = v.GetString("issue.body")
	cfg.Issue.Timestamp = strings.TrimSpace(v.GetString("issue.timestamp"))

	cfg.Repo.Name = strings.TrimSpace(v.GetString("repo.name"))
	cfg.Repo.Token = v.GetString("repo.token")
	cfg.Repo.APIURL = v.GetString("repo.api_url")

	cfg.Policy.OnlyReactTo = strings.TrimSpace(v.GetString("policy.only_react_to"))
	cfg.Policy.ActorAllowlist = stringList(v, "policy.allowlist")

	cfg.Logger.Level = v.GetString("logger.level")
	cfg.Logger.Encoding = v.GetString("logger.encoding")

	cfg.HTTP.Timeout = v.GetDuration("http.timeout")

	cfg.Server.Addr = v.GetString("server.addr")
	cfg.Server.WebhookSecret = v.GetString("server.webhook_secret")

	return cfg, nil
}

// Validate checks that the fields required by mode are present
func (c *Config) Validate(mode Mode) error {
	var errs []error
	require := func(value, name string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	require(c.Asana.PAT, "ASANA_PAT")
	require(c.Asana.Project, "ASANA_PROJECT")
	require(c.Policy.OnlyReactTo, "ONLY_REACT_TO")

	switch mode {
	case ModeRun:
		require(c.Issue.URL, "ISSUE_URL")
		require(c.Issue.Title, "ISSUE_TITLE")
	case ModeServe:
		require(c.Server.WebhookSecret, "WEBHOOK_SECRET")
	}

	if c.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must not be negative"))
	}

	return errors.Join(errs...)
}

// stringList accepts both a comma-separated string (env) and a list (file).
func stringList(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).(string); ok {
		return splitList(raw)
	}
	return splitList(strings.Join(v.GetStringSlice(key), ","))
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
