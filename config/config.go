// Package config loads and validates the YAML configuration file.
// The rest of the tool assumes a validated configuration: defaults are
// applied and range checks performed here, before any scanning starts.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Re4zOon/repo-maintainer/internal/log"
)

// Platform selects the hosting platform implementation.
type Platform string

const (
	PlatformGitLab Platform = "gitlab"
	PlatformGitHub Platform = "github"
)

// Defaults applied when the corresponding key is absent.
const (
	DefaultStaleDays                 = 30
	DefaultCleanupWeeks              = 4
	DefaultNotificationFrequencyDays = 7
	DefaultCommentInactivityDays     = 14
	DefaultCommentFrequencyDays      = 7
	DefaultMaxWorkers                = 4
	DefaultDatabasePath              = "./notification_history.db"
	DefaultArchiveFolder             = "./archived_branches"
	DefaultOptOutMarker              = "#skip-auto-archive"

	// MaxWorkersLimit bounds the fan-out pool.
	MaxWorkersLimit = 32
)

// Config is the full configuration surface of the tool.
type Config struct {
	Platform Platform     `yaml:"platform,omitempty"`
	GitLab   GitLabConfig `yaml:"gitlab,omitempty"`
	GitHub   GitHubConfig `yaml:"github,omitempty"`
	SMTP     SMTPConfig   `yaml:"smtp"`

	// Projects lists the projects to scan: numeric IDs or full paths
	// for GitLab, "owner/repo" for GitHub.
	Projects []string `yaml:"projects"`

	StaleDays                 int    `yaml:"stale_days,omitempty"`
	CleanupWeeks              int    `yaml:"cleanup_weeks,omitempty"`
	NotificationFrequencyDays int    `yaml:"notification_frequency_days,omitempty"`
	FallbackEmail             string `yaml:"fallback_email,omitempty"`
	MaxWorkers                int    `yaml:"max_workers,omitempty"`
	DatabasePath              string `yaml:"database_path,omitempty"`

	EnableComments        bool `yaml:"enable_mr_comments,omitempty"`
	CommentInactivityDays int  `yaml:"mr_comment_inactivity_days,omitempty"`
	CommentFrequencyDays  int  `yaml:"mr_comment_frequency_days,omitempty"`

	EnableAutoArchive   bool     `yaml:"enable_auto_archive,omitempty"`
	ArchiveFolder       string   `yaml:"archive_folder,omitempty"`
	AutoArchiveProjects []string `yaml:"auto_archive_projects,omitempty"`
	OptOutMarker        string   `yaml:"prevent_auto_archive_comment,omitempty"`

	CommentsFile  string `yaml:"mr_comments_file,omitempty"`
	GreetingsFile string `yaml:"email_greetings_file,omitempty"`

	Dashboard DashboardConfig `yaml:"dashboard,omitempty"`
	Schedule  string          `yaml:"schedule,omitempty"`
}

// GitLabConfig holds GitLab connection settings.
type GitLabConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"private_token"`
}

// GitHubConfig holds GitHub connection settings.
type GitHubConfig struct {
	Token  string `yaml:"token"`
	APIURL string `yaml:"api_url,omitempty"` // GitHub Enterprise base URL
}

// SMTPConfig holds email delivery settings.
type SMTPConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	FromEmail string `yaml:"from_email"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
	UseTLS    *bool  `yaml:"use_tls,omitempty"` // nil means true
}

// StartTLS reports whether STARTTLS should be attempted (the default).
func (s SMTPConfig) StartTLS() bool {
	return s.UseTLS == nil || *s.UseTLS
}

// DashboardConfig holds the optional read-only dashboard settings.
type DashboardConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. ":8080"; empty disables the dashboard
}

// ConfigError marks a configuration problem: a missing required key, an
// unsupported value, or an unreadable file.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

// Errorf builds a ConfigError with a formatted message.
func Errorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// Load reads, validates, and applies defaults to the configuration at
// the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, Errorf("invalid YAML in %s: %v", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Platform {
	case "", PlatformGitLab:
		if c.GitLab.URL == "" {
			return Errorf("missing required GitLab config key: 'url'")
		}
		if c.GitLab.Token == "" {
			return Errorf("missing required GitLab config key: 'private_token'")
		}
	case PlatformGitHub:
		if c.GitHub.Token == "" {
			return Errorf("missing required GitHub config key: 'token'")
		}
	default:
		return Errorf("unsupported platform %q (must be %q or %q)", c.Platform, PlatformGitLab, PlatformGitHub)
	}

	if c.SMTP.Host == "" {
		return Errorf("missing required SMTP config key: 'host'")
	}
	if c.SMTP.Port == 0 {
		return Errorf("missing required SMTP config key: 'port'")
	}
	if c.SMTP.FromEmail == "" {
		return Errorf("missing required SMTP config key: 'from_email'")
	}

	if len(c.Projects) == 0 {
		return Errorf("no projects configured: add project IDs to the 'projects' list")
	}

	if c.FallbackEmail == "" {
		log.Warn().Msg("no fallback_email configured; items from inactive users will be skipped")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Platform == "" {
		c.Platform = PlatformGitLab
	}
	if c.StaleDays == 0 {
		c.StaleDays = DefaultStaleDays
	}
	if c.CleanupWeeks == 0 {
		c.CleanupWeeks = DefaultCleanupWeeks
	}
	if c.NotificationFrequencyDays == 0 {
		c.NotificationFrequencyDays = DefaultNotificationFrequencyDays
	}
	if c.CommentInactivityDays == 0 {
		c.CommentInactivityDays = DefaultCommentInactivityDays
	}
	if c.CommentFrequencyDays == 0 {
		c.CommentFrequencyDays = DefaultCommentFrequencyDays
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.ArchiveFolder == "" {
		c.ArchiveFolder = DefaultArchiveFolder
	}
	c.MaxWorkers = clampWorkers(c.MaxWorkers)

	// A blank or whitespace-only marker reverts to the default so a
	// stray empty string in the config can never match every comment.
	c.OptOutMarker = strings.TrimSpace(c.OptOutMarker)
	if c.OptOutMarker == "" {
		c.OptOutMarker = DefaultOptOutMarker
	}

	// Auto-archiving defaults to the full project list.
	if len(c.AutoArchiveProjects) == 0 {
		c.AutoArchiveProjects = c.Projects
	}
}

// clampWorkers bounds the worker-pool size to [1, MaxWorkersLimit],
// logging when a configured value is discarded.
func clampWorkers(n int) int {
	if n == 0 {
		return DefaultMaxWorkers
	}
	if n < 1 {
		log.Warn().Int("max_workers", n).Int("using", 1).Msg("max_workers out of range 1-32")
		return 1
	}
	if n > MaxWorkersLimit {
		log.Warn().Int("max_workers", n).Int("using", MaxWorkersLimit).Msg("max_workers out of range 1-32")
		return MaxWorkersLimit
	}
	return n
}

// AutoArchiveEnabled reports whether the given project is covered by
// the auto-archive whitelist.
func (c *Config) AutoArchiveEnabled(projectID string) bool {
	for _, p := range c.AutoArchiveProjects {
		if p == projectID {
			return true
		}
	}
	return false
}
