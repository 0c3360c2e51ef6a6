package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xtractr/pkg/logger"
	"xtractr/pkg/models"
	"xtractr/pkg/paginator"
	"xtractr/pkg/ratelimit"
	"xtractr/pkg/scraper"
	"xtractr/pkg/ui"
	"xtractr/pkg/xclient"
)

var (
	captureList     string
	captureResume   bool
	captureRestart  bool
	captureRate     int
	captureKeepOpen bool
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:     "capture <username>",
	Aliases: []string{"scrape"},
	Short:   "Capture a follower or following list from an X profile",
	Long: `Capture the follower or following list of an X profile.

A request template must be imported first ('xtractr template import') so
the capture can replay the GraphQL timeline request with your session
headers. Captured users are checkpointed continuously; an interrupted
capture resumes from the last cursor with --resume.

When the end of the list is reached the session is archived and the full
list is saved for filtering, comparison and export.`,
	Example: `  # Capture followers
  xtractr capture elonmusk

  # Capture the following list instead
  xtractr capture elonmusk --list following

  # Resume an interrupted capture
  xtractr capture elonmusk --resume

  # Start over, discarding the existing session
  xtractr capture elonmusk --force-restart`,
	Args: cobra.ExactArgs(1),
	Run:  runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVarP(&captureList, "list", "l", "followers", "list to capture (followers or following)")
	captureCmd.Flags().BoolVar(&captureResume, "resume", false, "resume from the last saved cursor")
	captureCmd.Flags().BoolVar(&captureRestart, "force-restart", false, "discard the existing session and start over")
	captureCmd.Flags().IntVar(&captureRate, "rate-limit", 0, "requests per minute (0 uses configured value)")
	captureCmd.Flags().BoolVar(&captureKeepOpen, "keep-open", false, "keep the session active after the list ends")
}

func parseListType(value string) (models.ListType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "followers":
		return models.ListFollowers, nil
	case "following":
		return models.ListFollowing, nil
	default:
		return "", fmt.Errorf("unknown list type %q, expected followers or following", value)
	}
}

func runCapture(cmd *cobra.Command, args []string) {
	username := strings.TrimSpace(args[0])

	listType, err := parseListType(captureList)
	if err != nil {
		ui.PrintError("Invalid list type", err.Error())
		os.Exit(1)
	}

	flags := make(map[string]interface{})
	if captureRate > 0 {
		flags["requests-per-minute"] = captureRate
	}
	cfg := loadConfig(flags)

	log := logger.GetLogger()
	log.WithFields(map[string]interface{}{
		"username": username,
		"list":     string(listType),
		"version":  version,
	}).Info("Starting capture")

	ui.PrintInfo("Target profile", username)
	ui.PrintInfo("List", string(listType))

	templates := newTemplateManager()
	if tpl, _ := templates.Get(listType); tpl == nil {
		ui.PrintError("No request template found for "+string(listType), "")
		fmt.Println("\nImport one first:")
		fmt.Println("  xtractr template import <captured-request.json>")
		os.Exit(1)
	}

	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
	client := xclient.NewClient(listType, templates, limiter, cfg.Scrape.FetchTimeout, log)
	sessions := openSessionStore(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := ui.NewCaptureTracker()
	s := scraper.New(client, sessions, cfg, log)

	report, err := s.Run(ctx, username, listType, scraper.Options{
		Resume:       captureResume,
		ForceRestart: captureRestart,
		OnProgress: func(p scraper.Progress) {
			tracker.Update(p.Captured, p.Pages, p.State.Paused)
		},
	})
	tracker.Finish()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("Capture failed")
		ui.PrintError("Capture failed", err.Error())
		os.Exit(1)
	}

	printReport(report)

	if report.StopReason == paginator.StopReasonEndOfData && !captureKeepOpen {
		entry, err := sessions.Complete()
		if err != nil {
			ui.PrintError("Failed to archive session", err.Error())
			os.Exit(1)
		}
		if entry != nil {
			key := fmt.Sprintf("%s_%s_%s", entry.Username, entry.ListType, entry.ID)
			ui.PrintSuccess("List saved: " + key)
			fmt.Println("\nNext steps:")
			fmt.Printf("  xtractr filter %s --preset tech\n", key)
			fmt.Printf("  xtractr export %s\n", key)
		}
	} else if report.Cursor != "" {
		ui.PrintInfo("Session kept open", "resume with --resume")
	}
}

func printReport(report *scraper.Report) {
	ui.PrintHighlight("Capture finished")
	ui.PrintInfo("Captured users", fmt.Sprintf("%d (%d new)", report.TotalUsers, report.NewUsers))
	ui.PrintInfo("Pages fetched", fmt.Sprintf("%d", report.Pages))
	ui.PrintInfo("Duration", report.Duration.Round(time.Second).String())

	switch report.StopReason {
	case paginator.StopReasonEndOfData:
		ui.PrintSuccess("Reached the end of the list")
	case paginator.StopReasonManual:
		ui.PrintWarning("Capture interrupted")
	case paginator.StopReasonMaxRetries:
		ui.PrintWarning("Stopped after repeated failures, resume later with --resume")
	case paginator.StopReasonNoTemplate:
		ui.PrintError("No usable request template", "re-import with 'xtractr template import'")
	}
}
