package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	// Environment
	Environment EnvironmentConfig

	// Server
	HTTPServer HTTPServerConfig
	Logger     LoggerConfig

	// Pipeline security analysis specifics
	AzureDevOps AzureDevOpsConfig
	Slack       SlackConfig
	Database    DatabaseConfig
	Patterns    PatternsConfig
	Source      SourceConfig

	// Webhook receiver
	Webhook WebhookConfig
}

type EnvironmentConfig struct {
	Name string
}

type HTTPServerConfig struct {
	Port int
	Mode string
}

type LoggerConfig struct {
	Level        string
	Mode         string
	Encoding     string
	ColorEnabled bool
}

// AzureDevOpsConfig is the CI platform connection.
type AzureDevOpsConfig struct {
	ServerURL      string
	Organization   string
	Project        string
	PAT            string
	APIVersion     string
	RepositoryID   string
	RequestTimeout time.Duration
}

type SlackConfig struct {
	WebhookURL string
}

type DatabaseConfig struct {
	Path string
}

// PatternsConfig points at the blacklist/whitelist rule files.
type PatternsConfig struct {
	BlacklistPath string
	WhitelistPath string
}

// SourceConfig drives the event source adapter (the polling loop).
type SourceConfig struct {
	FeedURL           string
	PollInterval      time.Duration
	RequestTimeout    time.Duration
	MaxRetries        int
	HeartbeatInterval time.Duration
}

// WebhookConfig holds receiver-side security settings.
type WebhookConfig struct {
	Secret          string
	AllowedIPs      []string
	RateLimitPerMin int
	MaxEvents       int
	LongPollTimeout time.Duration
}

// Load loads configuration using Viper.
// Config file name: config.yaml — searched in ./config, ., /etc/app/
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/app/")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}

	// Environment & Server
	cfg.Environment.Name = viper.GetString("environment.name")
	cfg.HTTPServer.Port = viper.GetInt("http_server.port")
	cfg.HTTPServer.Mode = viper.GetString("http_server.mode")
	cfg.Logger.Level = viper.GetString("logger.level")
	cfg.Logger.Mode = viper.GetString("logger.mode")
	cfg.Logger.Encoding = viper.GetString("logger.encoding")
	cfg.Logger.ColorEnabled = viper.GetBool("logger.color_enabled")

	// Azure DevOps
	cfg.AzureDevOps.ServerURL = viper.GetString("azure_devops.server_url")
	cfg.AzureDevOps.Organization = viper.GetString("azure_devops.organization")
	cfg.AzureDevOps.Project = viper.GetString("azure_devops.project")
	cfg.AzureDevOps.PAT = viper.GetString("azure_devops.pat")
	cfg.AzureDevOps.APIVersion = viper.GetString("azure_devops.api_version")
	cfg.AzureDevOps.RepositoryID = viper.GetString("azure_devops.repository_id")
	cfg.AzureDevOps.RequestTimeout = viper.GetDuration("azure_devops.request_timeout")
	if pat := viper.GetString("azure_pat"); pat != "" {
		cfg.AzureDevOps.PAT = pat
	}
	if org := viper.GetString("azure_organization"); org != "" {
		cfg.AzureDevOps.Organization = org
	}
	if project := viper.GetString("azure_project"); project != "" {
		cfg.AzureDevOps.Project = project
	}

	// Slack
	cfg.Slack.WebhookURL = viper.GetString("slack.webhook_url")
	if slackURL := viper.GetString("slack_webhook_url"); slackURL != "" {
		cfg.Slack.WebhookURL = slackURL
	}

	// Database & pattern files
	cfg.Database.Path = viper.GetString("database.path")
	cfg.Patterns.BlacklistPath = viper.GetString("patterns.blacklist_path")
	cfg.Patterns.WhitelistPath = viper.GetString("patterns.whitelist_path")

	// Event source
	cfg.Source.FeedURL = viper.GetString("source.feed_url")
	cfg.Source.PollInterval = viper.GetDuration("source.poll_interval")
	cfg.Source.RequestTimeout = viper.GetDuration("source.request_timeout")
	cfg.Source.MaxRetries = viper.GetInt("source.max_retries")
	cfg.Source.HeartbeatInterval = viper.GetDuration("source.heartbeat_interval")
	if feedURL := viper.GetString("webhook_server_url"); feedURL != "" {
		cfg.Source.FeedURL = feedURL
	}

	// Webhook receiver
	cfg.Webhook.Secret = viper.GetString("webhook.secret")
	if webhookSecret := viper.GetString("webhook_secret"); webhookSecret != "" {
		cfg.Webhook.Secret = webhookSecret
	}
	cfg.Webhook.RateLimitPerMin = viper.GetInt("webhook.rate_limit_per_min")
	cfg.Webhook.MaxEvents = viper.GetInt("webhook.max_events")
	cfg.Webhook.LongPollTimeout = viper.GetDuration("webhook.long_poll_timeout")

	// Split allowed IPs since viper might not parse array seamlessly from env
	var ips []string
	if rawIps := viper.GetString("webhook.allowed_ips"); rawIps != "" {
		for _, ip := range strings.Split(rawIps, ",") {
			ip = strings.TrimSpace(ip)
			if ip != "" {
				ips = append(ips, ip)
			}
		}
	}
	cfg.Webhook.AllowedIPs = ips

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment.name", "development")
	viper.SetDefault("http_server.port", 8001)
	viper.SetDefault("http_server.mode", "release")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.mode", "production")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("logger.color_enabled", false)

	viper.SetDefault("azure_devops.server_url", "https://dev.azure.com")
	viper.SetDefault("azure_devops.api_version", "6.0")
	viper.SetDefault("azure_devops.request_timeout", 30*time.Second)

	viper.SetDefault("database.path", "pipescan.db")
	viper.SetDefault("patterns.blacklist_path", "config/patterns/blacklist.json")
	viper.SetDefault("patterns.whitelist_path", "config/patterns/whitelist.json")

	viper.SetDefault("source.feed_url", "http://localhost:8001")
	viper.SetDefault("source.poll_interval", 10*time.Second)
	viper.SetDefault("source.request_timeout", 35*time.Second)
	viper.SetDefault("source.max_retries", 3)
	viper.SetDefault("source.heartbeat_interval", 10*time.Second)

	viper.SetDefault("webhook.rate_limit_per_min", 60)
	viper.SetDefault("webhook.max_events", 50)
	viper.SetDefault("webhook.long_poll_timeout", 30*time.Second)
}
