package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"xtractr/pkg/config"
	"xtractr/pkg/logger"
	"xtractr/pkg/session"
	"xtractr/pkg/template"
	"xtractr/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	accountName string
	dataDir     string
	quiet       bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xtractr",
	Short: "Capture, filter and export X follower and following lists",
	Long: `xtractr captures follower and following lists from X profiles by
replaying the GraphQL timeline requests your browser makes, then lets you
filter the results by keyword relevance and export them.

Features:
  - Resumable capture with cursor checkpoints
  - Automatic retry with exponential backoff on rate limits
  - Keyword relevance scoring with industry presets
  - Follower/following cross-referencing
  - CSV and JSON export
  - Secure credential storage using system keychain`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}

		// Don't show logo for plumbing commands
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.xtractr.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "session data directory")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`xtractr {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the configuration with the global flags merged in.
func loadConfig(extraFlags map[string]interface{}) *config.Config {
	flags := make(map[string]interface{})
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	if dataDir != "" {
		flags["data-dir"] = dataDir
	}
	for k, v := range extraFlags {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	return cfg
}

// openSessionStore opens the session store under the configured data directory.
func openSessionStore(cfg *config.Config) *session.Store {
	store, err := session.NewStore(cfg.Session.DataDirectory, logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to open session store", err.Error())
		os.Exit(1)
	}
	store.SetHistoryLimit(cfg.Session.HistoryLimit)
	return store
}

// newTemplateManager opens the template store wired to the credential chain.
func newTemplateManager() *template.Manager {
	creds, err := template.NewCredentialManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	manager, err := template.NewManager("", creds, logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to open template store", err.Error())
		os.Exit(1)
	}
	if accountName != "" {
		manager.SetAccount(accountName)
	}
	return manager
}
