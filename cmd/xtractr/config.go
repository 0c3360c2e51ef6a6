package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"xtractr/pkg/config"
	"xtractr/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage xtractr configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (XTRACTR_*)
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'xtractr.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run:   runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "xtractr.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# xtractr configuration file
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with XTRACTR_
# For example: XTRACTR_REQUESTS_PER_MINUTE, XTRACTR_EXPORT_DIR

# Capture pagination settings
scrape:
  # Delay between page requests
  fetch_delay: 2s

  # Per-request timeout
  fetch_timeout: 15s

  # Consecutive no-new-data pages before the capture ends
  max_empty: 3

  # Backoff after a rate limit or failure
  base_backoff: 30s
  max_backoff: 5m

  # Consecutive failures before the capture gives up
  max_retries: 6

  # Users requested per page
  page_size: 100

# Proactive rate limiting
rate_limit:
  requests_per_minute: 30
  burst_size: 5

# Keyword filtering defaults
filter:
  # Minimum relevance score for a user to pass keyword filters
  min_score: 1

# Export settings
export:
  directory: "./exports"
  # csv or json
  format: "csv"

# Session storage
session:
  # Empty uses the platform data directory
  data_directory: ""
  history_limit: 50

# Logging
logging:
  # debug, info, warn, error
  level: "info"
  # Log file path, empty logs to stderr
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Adjust the settings to taste")
	fmt.Println("2. Run 'xtractr config validate' to check the configuration")
	fmt.Println("3. Store credentials with 'xtractr auth login'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (XTRACTR_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		possiblePaths := []string{
			"xtractr.yaml",
			"xtractr.yml",
			".xtractr.yaml",
			".xtractr.yml",
			filepath.Join(os.Getenv("HOME"), ".xtractr.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "xtractr", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	var errors []string

	if cfg.Export.Directory != "" {
		if err := os.MkdirAll(cfg.Export.Directory, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create export directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}
	if cfg.RateLimit.RequestsPerMinute > 120 {
		errors = append(errors, "requests_per_minute above 120 will trip rate limits almost immediately")
	}

	if len(errors) > 0 {
		ui.PrintError("Configuration has errors:", "")
		for _, err := range errors {
			fmt.Printf("  - %s\n", err)
		}
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Export directory: %s\n", cfg.Export.Directory)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Fetch delay: %s\n", cfg.Scrape.FetchDelay)
	fmt.Printf("  Max retries: %d\n", cfg.Scrape.MaxRetries)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
