package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for xtractr
type Config struct {
	// Pagination / capture settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Keyword filtering settings
	Filter FilterSettings `yaml:"filter" json:"filter"`

	// Export settings
	Export ExportConfig `yaml:"export" json:"export"`

	// Session storage settings
	Session SessionConfig `yaml:"session" json:"session"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScrapeConfig holds the pagination timing and retry parameters
type ScrapeConfig struct {
	FetchDelay   time.Duration `yaml:"fetch_delay" json:"fetch_delay"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
	MaxEmpty     int           `yaml:"max_empty" json:"max_empty"`
	BaseBackoff  time.Duration `yaml:"base_backoff" json:"base_backoff"`
	MaxBackoff   time.Duration `yaml:"max_backoff" json:"max_backoff"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	PageSize     int           `yaml:"page_size" json:"page_size"`
}

// RateLimitConfig holds proactive rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// FilterSettings holds keyword filtering defaults and presets
type FilterSettings struct {
	MinScore int                 `yaml:"min_score" json:"min_score"`
	Presets  map[string][]string `yaml:"presets" json:"presets"`
}

// ExportConfig holds export output configuration
type ExportConfig struct {
	Directory string   `yaml:"directory" json:"directory"`
	Format    string   `yaml:"format" json:"format"`
	Fields    []string `yaml:"fields" json:"fields"`
}

// SessionConfig holds session persistence configuration
type SessionConfig struct {
	DataDirectory string `yaml:"data_directory" json:"data_directory"`
	HistoryLimit  int    `yaml:"history_limit" json:"history_limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			FetchDelay:   2 * time.Second,
			FetchTimeout: 15 * time.Second,
			MaxEmpty:     3,
			BaseBackoff:  30 * time.Second,
			MaxBackoff:   5 * time.Minute,
			MaxRetries:   6,
			PageSize:     100,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         5,
		},
		Filter: FilterSettings{
			MinScore: 1,
			Presets:  DefaultPresets(),
		},
		Export: ExportConfig{
			Directory: "./exports",
			Format:    "csv",
			Fields: []string{
				"username", "displayName", "bio", "followersCount",
				"followingCount", "verified", "joinDate", "location", "profileUrl",
			},
		},
		Session: SessionConfig{
			DataDirectory: "", // empty means platform data dir
			HistoryLimit:  50,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// DefaultPresets returns the built-in keyword groups for common industries
func DefaultPresets() map[string][]string {
	return map[string][]string{
		"tech": {
			"developer", "engineer", "software", "devops", "sre", "cloud",
			"infrastructure", "sysadmin", "backend", "frontend", "fullstack",
			"full-stack", "programming", "coder", "architect", "tech lead",
			"cto", "cio", "vp engineering", "data engineer", "ml", "machine learning",
			"ai", "artificial intelligence", "deep learning", "python", "javascript",
			"typescript", "golang", "rust", "java", "kubernetes", "k8s", "docker",
			"aws", "azure", "gcp", "terraform", "linux", "open source",
			"web dev", "mobile dev", "ios dev", "android dev", "react", "node",
			"database", "sql", "nosql", "api", "microservices",
		},
		"security": {
			"security", "infosec", "cybersecurity", "cyber", "pentester",
			"penetration test", "red team", "blue team", "soc", "threat",
			"malware", "vulnerability", "ciso", "appsec", "devsecops",
			"incident response", "forensic", "osint", "bug bounty", "hacker",
			"offensive sec", "defensive sec", "compliance", "grc",
		},
		"data": {
			"data scientist", "data analyst", "analytics", "big data",
			"data engineering", "business intelligence", "tableau", "power bi",
			"statistics", "machine learning", "nlp", "computer vision",
		},
		"design": {
			"designer", "ux", "ui", "product design", "ux research",
			"user experience", "figma", "interaction design", "design system",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if rpm := os.Getenv("XTRACTR_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if minScore := os.Getenv("XTRACTR_MIN_SCORE"); minScore != "" {
		var val int
		fmt.Sscanf(minScore, "%d", &val)
		if val > 0 {
			c.Filter.MinScore = val
		}
	}

	if exportDir := os.Getenv("XTRACTR_EXPORT_DIR"); exportDir != "" {
		c.Export.Directory = exportDir
	}

	if dataDir := os.Getenv("XTRACTR_DATA_DIR"); dataDir != "" {
		c.Session.DataDirectory = dataDir
	}

	if logLevel := os.Getenv("XTRACTR_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".xtractr.yaml",
		".xtractr.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "xtractr", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "xtractr", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".xtractr.yaml"),
		filepath.Join(os.Getenv("HOME"), ".xtractr.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Scrape.FetchDelay <= 0 {
		errs = append(errs, errors.New("fetch delay must be positive"))
	}
	if c.Scrape.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}
	if c.Scrape.MaxEmpty <= 0 {
		errs = append(errs, errors.New("max empty polls must be positive"))
	}
	if c.Scrape.BaseBackoff <= 0 {
		errs = append(errs, errors.New("base backoff must be positive"))
	}
	if c.Scrape.MaxBackoff < c.Scrape.BaseBackoff {
		errs = append(errs, errors.New("max backoff must be at least base backoff"))
	}
	if c.Scrape.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Export.Directory == "" {
		errs = append(errs, errors.New("export directory is required"))
	}
	validFormats := map[string]bool{"csv": true, "json": true}
	if !validFormats[strings.ToLower(c.Export.Format)] {
		errs = append(errs, errors.New("export format must be csv or json"))
	}

	if c.Session.HistoryLimit <= 0 {
		errs = append(errs, errors.New("history limit must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if minScore, ok := flags["min-score"].(int); ok && minScore > 0 {
		c.Filter.MinScore = minScore
	}
	if exportDir, ok := flags["export-dir"].(string); ok && exportDir != "" {
		c.Export.Directory = exportDir
	}
	if format, ok := flags["format"].(string); ok && format != "" {
		c.Export.Format = format
	}
	if dataDir, ok := flags["data-dir"].(string); ok && dataDir != "" {
		c.Session.DataDirectory = dataDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xtractr.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Preset returns the keyword list for a named preset, case-insensitive.
func (c *Config) Preset(name string) ([]string, bool) {
	for key, keywords := range c.Filter.Presets {
		if strings.EqualFold(key, name) {
			return keywords, true
		}
	}
	return nil, false
}
