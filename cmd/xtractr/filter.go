package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"xtractr/pkg/export"
	"xtractr/pkg/logger"
	"xtractr/pkg/models"
	"xtractr/pkg/queue"
	"xtractr/pkg/scoring"
	"xtractr/pkg/session"
	"xtractr/pkg/ui"
)

var (
	filterKeywords     string
	filterPreset       string
	filterMinScore     int
	filterMinFollowers int
	filterMaxFollowers int
	filterVerified     bool
	filterHasBio       bool
	filterCurrent      bool
	filterLimit        int
	filterExport       string
	filterQueue        bool
)

// filterCmd represents the filter command
var filterCmd = &cobra.Command{
	Use:   "filter [list-key]",
	Short: "Score and filter a captured list by keyword relevance",
	Long: `Score a captured list against a set of keywords and keep only the
users that clear the filters.

Each user is scored 0-100 from keyword matches against their bio, display
name and handle. Exact bio matches score highest, then name and handle
matches, then stem and fuzzy matches. Hard filters (follower counts,
verified, has-bio) are applied before scoring.

Keywords come from --keywords, from a named preset (--preset tech), or
both. Use 'xtractr sessions lists' to see available list keys.`,
	Example: `  # Filter a saved list with the tech preset
  xtractr filter elonmusk_followers_a1b2c3 --preset tech

  # Custom keywords, verified accounts with at least 1000 followers
  xtractr filter elonmusk_followers_a1b2c3 --keywords "golang,kubernetes" --verified --min-followers 1000

  # Filter the active capture session and build a follow queue
  xtractr filter --current --preset security --queue`,
	Args: cobra.MaximumNArgs(1),
	Run:  runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().StringVarP(&filterKeywords, "keywords", "k", "", "comma-separated keywords to score against")
	filterCmd.Flags().StringVarP(&filterPreset, "preset", "p", "", "named keyword preset (tech, security, data, design)")
	filterCmd.Flags().IntVar(&filterMinScore, "min-score", 0, "minimum relevance score (0 uses configured value)")
	filterCmd.Flags().IntVar(&filterMinFollowers, "min-followers", 0, "minimum follower count")
	filterCmd.Flags().IntVar(&filterMaxFollowers, "max-followers", 0, "maximum follower count")
	filterCmd.Flags().BoolVar(&filterVerified, "verified", false, "keep only verified accounts")
	filterCmd.Flags().BoolVar(&filterHasBio, "has-bio", false, "keep only accounts with a bio")
	filterCmd.Flags().BoolVar(&filterCurrent, "current", false, "filter the active capture session instead of a saved list")
	filterCmd.Flags().IntVar(&filterLimit, "limit", 20, "number of results to print (0 prints all)")
	filterCmd.Flags().StringVar(&filterExport, "export", "", "export results (csv or json)")
	filterCmd.Flags().BoolVar(&filterQueue, "queue", false, "build a follow queue from the results")
}

func runFilter(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	sessions := openSessionStore(cfg)

	users, source, listType := resolveUserList(sessions, args, filterCurrent)

	keywords := splitKeywords(filterKeywords)
	if filterPreset != "" {
		preset, ok := cfg.Preset(filterPreset)
		if !ok {
			ui.PrintError("Unknown preset", filterPreset)
			fmt.Println("\nAvailable presets:")
			for name := range cfg.Filter.Presets {
				fmt.Printf("  %s\n", name)
			}
			os.Exit(1)
		}
		keywords = append(keywords, preset...)
	}

	minScore := filterMinScore
	if minScore <= 0 {
		minScore = cfg.Filter.MinScore
	}

	filters := &models.FilterConfig{
		Keywords:     keywords,
		VerifiedOnly: filterVerified,
		HasBio:       filterHasBio,
		MinScore:     minScore,
	}
	if filterMinFollowers > 0 {
		filters.MinFollowers = &filterMinFollowers
	}
	if filterMaxFollowers > 0 {
		filters.MaxFollowers = &filterMaxFollowers
	}

	scored := scoring.ApplyFilters(users, filters)
	summary := scoring.FilterSummary(scored)

	ui.PrintHighlight(fmt.Sprintf("Matched %d of %d users", summary.Total, len(users)))
	ui.PrintInfo("High relevance (50+)", fmt.Sprintf("%d", summary.High))
	ui.PrintInfo("Medium relevance (20-49)", fmt.Sprintf("%d", summary.Medium))
	ui.PrintInfo("Low relevance", fmt.Sprintf("%d", summary.Low))
	fmt.Println()

	printScored(scored, filterLimit)

	if filterQueue {
		store, err := queue.NewStore(filepath.Join(sessions.Dir(), "follow_queue.json"), logger.GetLogger())
		if err != nil {
			ui.PrintError("Failed to open follow queue", err.Error())
			os.Exit(1)
		}
		if _, err := store.Set(scored, source); err != nil {
			ui.PrintError("Failed to build follow queue", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess(fmt.Sprintf("Follow queue created with %d users", len(scored)))
		fmt.Println("  Work through it with 'xtractr queue show'")
	}

	if filterExport != "" {
		exporter := export.NewExporter(cfg.Export.Directory, cfg.Export.Fields, logger.GetLogger())
		username := strings.SplitN(source, "_", 2)[0]

		var path string
		var err error
		switch strings.ToLower(filterExport) {
		case "csv":
			path, err = exporter.ExportScoredCSV(scored, username, listType)
		case "json":
			path, err = exporter.ExportScoredJSON(scored, username, listType)
		default:
			ui.PrintError("Unknown export format", filterExport)
			os.Exit(1)
		}
		if err != nil {
			ui.PrintError("Export failed", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Exported to " + path)
	}
}

// resolveUserList loads either the named saved list or the active session.
func resolveUserList(sessions *session.Store, args []string, current bool) ([]models.UserRecord, string, models.ListType) {
	if current {
		current := sessions.Current()
		if current == nil {
			ui.PrintError("No active capture session", "")
			os.Exit(1)
		}
		return current.Users, current.Username + "_" + string(current.ListType), current.ListType
	}

	if len(args) == 0 {
		ui.PrintError("A list key is required (or use --current)", "")
		fmt.Println("\nSaved lists:")
		for _, key := range sessions.SavedListKeys() {
			fmt.Printf("  %s\n", key)
		}
		os.Exit(1)
	}

	key := args[0]
	list, ok := sessions.SavedList(key)
	if !ok {
		ui.PrintError("Saved list not found", key)
		fmt.Println("\nUse 'xtractr sessions lists' to see available keys")
		os.Exit(1)
	}
	return list.Users, key, list.Meta.ListType
}

func splitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if kw := strings.TrimSpace(part); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func printScored(scored []models.ScoredUser, limit int) {
	if limit <= 0 || limit > len(scored) {
		limit = len(scored)
	}
	for i := 0; i < limit; i++ {
		user := scored[i]
		line := fmt.Sprintf("%3d  @%s", user.Score, user.Username)
		if user.DisplayName != "" {
			line += "  " + user.DisplayName
		}
		fmt.Println(line)
		if len(user.Matches) > 0 {
			hits := make([]string, 0, len(user.Matches))
			for _, m := range user.Matches {
				hits = append(hits, m.Keyword)
			}
			fmt.Println(ui.Dim("     matched: " + strings.Join(hits, ", ")))
		}
	}
	if limit < len(scored) {
		fmt.Println(ui.Dim(fmt.Sprintf("     ... and %d more", len(scored)-limit)))
	}
}
