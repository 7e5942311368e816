package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"basegraph.app/ticketsmith/core/db"
)

type Config struct {
	OTel      OTelConfig
	OpenAI    OpenAIConfig
	Atlassian AtlassianConfig
	Tracker   TrackerConfig
	Decompose DecomposeConfig
	Redis     RedisConfig
	HTTP      HTTPConfig
	Env       string
	Port      string
	DB        db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
}

// AtlassianConfig covers both Jira and Confluence. They share one site and one API token,
// Confluence is served under <URL>/wiki.
type AtlassianConfig struct {
	URL         string
	Email       string
	APIToken    string
	BrowseURL   string
	ImpactField string
	StoryType   string
}

type TrackerConfig struct {
	Provider    string // "jira" or "gitlab"
	GitLabURL   string
	GitLabToken string
	// GitLabProjects maps page project keys to GitLab project paths, from
	// GITLAB_PROJECTS="ABC=acme/web,OPS=acme/infra".
	GitLabProjects map[string]string
}

type DecomposeConfig struct {
	LinkTickets bool
}

type RedisConfig struct {
	URL    string
	Stream string
}

type HTTPConfig struct {
	RequestTimeout time.Duration
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
)

const (
	TrackerJira   = "jira"
	TrackerGitLab = "gitlab"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the API server
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("TICKETSMITH_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	atlassianURL := strings.TrimSuffix(getEnv("JIRA_URL", ""), "/")

	cfg := Config{
		Env:  getEnv("TICKETSMITH_ENV", "development"),
		Port: getEnv("PORT", "3000"),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "ticketsmith"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		OpenAI: OpenAIConfig{
			// OPENAI_TOKEN is the name older deployments used
			APIKey:         getEnv("OPENAI_API_KEY", getEnv("OPENAI_TOKEN", "")),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002"),
		},
		Atlassian: AtlassianConfig{
			URL:         atlassianURL,
			Email:       getEnv("JIRA_EMAIL", ""),
			APIToken:    getEnv("JIRA_API_TOKEN", ""),
			BrowseURL:   strings.TrimSuffix(getEnv("JIRA_BROWSE_URL", atlassianURL), "/"),
			ImpactField: getEnv("JIRA_IMPACT_FIELD", "customfield_10077"),
			StoryType:   getEnv("JIRA_STORY_TYPE", "Story"),
		},
		Tracker: TrackerConfig{
			Provider:    getEnv("ISSUE_TRACKER_PROVIDER", TrackerJira),
			GitLabURL:   getEnv("GITLAB_URL", ""),
			GitLabToken: getEnv("GITLAB_TOKEN", ""),
		},
		Decompose: DecomposeConfig{
			LinkTickets: getEnvBool("DECOMPOSE_LINK_TICKETS", false),
		},
		Redis: RedisConfig{
			URL:    getEnv("REDIS_URL", ""),
			Stream: getEnv("REDIS_PROGRESS_STREAM", "ticketsmith_progress"),
		},
		HTTP: HTTPConfig{
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 5*time.Minute),
		},
	}

	projects, err := parseProjectMap(getEnv("GITLAB_PROJECTS", ""))
	if err != nil {
		return Config{}, err
	}
	cfg.Tracker.GitLabProjects = projects

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	// Confluence is always read through the Atlassian site, whatever the tracker is.
	if c.Atlassian.URL == "" || c.Atlassian.Email == "" || c.Atlassian.APIToken == "" {
		return fmt.Errorf("JIRA_EMAIL, JIRA_API_TOKEN, and JIRA_URL are required")
	}

	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	switch c.Tracker.Provider {
	case TrackerJira:
	case TrackerGitLab:
		if c.Tracker.GitLabToken == "" {
			return fmt.Errorf("GITLAB_TOKEN is required when ISSUE_TRACKER_PROVIDER=gitlab")
		}
	default:
		return fmt.Errorf("unsupported ISSUE_TRACKER_PROVIDER: %s", c.Tracker.Provider)
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func parseProjectMap(raw string) (map[string]string, error) {
	projects := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, path, ok := strings.Cut(pair, "=")
		key, path = strings.TrimSpace(key), strings.TrimSpace(path)
		if !ok || key == "" || path == "" {
			return nil, fmt.Errorf("invalid GITLAB_PROJECTS entry %q, want KEY=group/project", pair)
		}
		projects[key] = path
	}
	return projects, nil
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
