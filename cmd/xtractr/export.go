package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"xtractr/pkg/export"
	"xtractr/pkg/logger"
	"xtractr/pkg/ui"
)

var (
	exportFormat  string
	exportDir     string
	exportFields  string
	exportCurrent bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [list-key]",
	Short: "Export a captured list to CSV or JSON",
	Long: `Export a captured list to a timestamped CSV or JSON file.

The output filename is <username>_<list>_<timestamp>.<ext>. The exported
columns can be trimmed with --fields; use 'xtractr export --help' to see
the full set.

Available fields: username, displayName, bio, followersCount,
followingCount, verified, joinDate, location, profileUrl, userId,
profileImageUrl.`,
	Example: `  # Export a saved list as CSV
  xtractr export elonmusk_followers_a1b2c3

  # Export as JSON into a specific directory
  xtractr export elonmusk_followers_a1b2c3 --format json --dir ./out

  # Export only a few columns
  xtractr export elonmusk_followers_a1b2c3 --fields username,bio,followersCount

  # Export the active capture session
  xtractr export --current`,
	Args: cobra.MaximumNArgs(1),
	Run:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "output format (csv or json)")
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "output directory")
	exportCmd.Flags().StringVar(&exportFields, "fields", "", "comma-separated fields to include")
	exportCmd.Flags().BoolVar(&exportCurrent, "current", false, "export the active capture session instead of a saved list")
}

func runExport(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if exportDir != "" {
		flags["export-dir"] = exportDir
	}
	if exportFormat != "" {
		flags["format"] = exportFormat
	}
	cfg := loadConfig(flags)
	sessions := openSessionStore(cfg)

	users, source, listType := resolveUserList(sessions, args, exportCurrent)
	if len(users) == 0 {
		ui.PrintError("Nothing to export", source)
		os.Exit(1)
	}

	fields := cfg.Export.Fields
	if exportFields != "" {
		fields = splitKeywords(exportFields)
	}

	exporter := export.NewExporter(cfg.Export.Directory, fields, logger.GetLogger())
	username := strings.SplitN(source, "_", 2)[0]

	var path string
	var err error
	switch strings.ToLower(cfg.Export.Format) {
	case "json":
		path, err = exporter.ExportJSON(users, username, listType)
	default:
		path, err = exporter.ExportCSV(users, username, listType)
	}
	if err != nil {
		ui.PrintError("Export failed", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Exported " + fmt.Sprintf("%d users", len(users)))
	ui.PrintInfo("File", path)
}
