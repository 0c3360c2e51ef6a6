package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"xtractr/pkg/export"
	"xtractr/pkg/logger"
	"xtractr/pkg/models"
	"xtractr/pkg/ui"
)

var (
	compareExport string
	compareLimit  int
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare <followers-key> <following-key>",
	Short: "Cross-reference a followers list with a following list",
	Long: `Cross-reference two saved lists and split the users into three
groups:

  mutuals            in both lists
  not-following-back followed but do not follow back
  not-followed-back  follow but are not followed back

Both keys must name saved lists; capture and complete both lists first.`,
	Example: `  xtractr compare elonmusk_followers_a1b2c3 elonmusk_following_d4e5f6

  # Export each group as CSV
  xtractr compare elonmusk_followers_a1b2c3 elonmusk_following_d4e5f6 --export csv`,
	Args: cobra.ExactArgs(2),
	Run:  runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&compareExport, "export", "", "export each group (csv or json)")
	compareCmd.Flags().IntVar(&compareLimit, "limit", 10, "users to print per group (0 prints all)")
}

func runCompare(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	sessions := openSessionStore(cfg)

	comparison, err := sessions.CompareSaved(args[0], args[1])
	if err != nil {
		ui.PrintError("Comparison failed", err.Error())
		fmt.Println("\nUse 'xtractr sessions lists' to see available keys")
		os.Exit(1)
	}

	ui.PrintHighlight("Comparison results")
	ui.PrintInfo("Followers", fmt.Sprintf("%d", comparison.Stats.TotalFollowers))
	ui.PrintInfo("Following", fmt.Sprintf("%d", comparison.Stats.TotalFollowing))
	ui.PrintInfo("Mutuals", fmt.Sprintf("%d", comparison.Stats.MutualCount))
	ui.PrintInfo("Not following back", fmt.Sprintf("%d", comparison.Stats.NotFollowingBackCount))
	ui.PrintInfo("Not followed back", fmt.Sprintf("%d", comparison.Stats.NotFollowedBackCount))

	printGroup("Mutuals", comparison.Mutuals)
	printGroup("Not following back", comparison.NotFollowingBack)
	printGroup("Not followed back", comparison.NotFollowedBack)

	if compareExport == "" {
		return
	}

	exporter := export.NewExporter(cfg.Export.Directory, cfg.Export.Fields, logger.GetLogger())
	username := strings.SplitN(args[0], "_", 2)[0]
	groups := map[models.ListType][]models.UserRecord{
		"mutuals":            comparison.Mutuals,
		"not_following_back": comparison.NotFollowingBack,
		"not_followed_back":  comparison.NotFollowedBack,
	}

	for name, users := range groups {
		var path string
		var err error
		switch strings.ToLower(compareExport) {
		case "csv":
			path, err = exporter.ExportCSV(users, username, name)
		case "json":
			path, err = exporter.ExportJSON(users, username, name)
		default:
			ui.PrintError("Unknown export format", compareExport)
			os.Exit(1)
		}
		if err != nil {
			ui.PrintError("Export failed", err.Error())
			os.Exit(1)
		}
		ui.PrintInfo("Exported "+string(name), path)
	}
}

func printGroup(title string, users []models.UserRecord) {
	fmt.Println()
	ui.PrintHighlight(title)
	limit := compareLimit
	if limit <= 0 || limit > len(users) {
		limit = len(users)
	}
	for _, user := range users[:limit] {
		line := "  @" + user.Username
		if user.DisplayName != "" {
			line += "  " + user.DisplayName
		}
		fmt.Println(line)
	}
	if limit < len(users) {
		fmt.Println(ui.Dim(fmt.Sprintf("  ... and %d more", len(users)-limit)))
	}
}
