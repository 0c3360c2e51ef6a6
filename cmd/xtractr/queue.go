package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"xtractr/pkg/logger"
	"xtractr/pkg/queue"
	"xtractr/pkg/ui"
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Work through a follow queue built from filtered results",
	Long: `Work through a follow queue one profile at a time.

Build a queue from filter results with 'xtractr filter ... --queue', then
step through it recording a follow or skip decision for each user. The
queue position survives restarts.`,
}

var queueShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current queue position and the next user",
	Run:   runQueueShow,
}

var queueFollowCmd = &cobra.Command{
	Use:   "follow",
	Short: "Mark the current user as followed and advance",
	Run:   func(cmd *cobra.Command, args []string) { runQueueAdvance(queue.ActionFollow) },
}

var queueSkipCmd = &cobra.Command{
	Use:   "skip",
	Short: "Skip the current user and advance",
	Run:   func(cmd *cobra.Command, args []string) { runQueueAdvance(queue.ActionSkip) },
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the follow queue",
	Run:   runQueueClear,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueShowCmd)
	queueCmd.AddCommand(queueFollowCmd)
	queueCmd.AddCommand(queueSkipCmd)
	queueCmd.AddCommand(queueClearCmd)
}

func openQueueStore() *queue.Store {
	cfg := loadConfig(nil)
	sessions := openSessionStore(cfg)

	store, err := queue.NewStore(filepath.Join(sessions.Dir(), "follow_queue.json"), logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to open follow queue", err.Error())
		os.Exit(1)
	}
	return store
}

func runQueueShow(cmd *cobra.Command, args []string) {
	store := openQueueStore()

	progress := store.Progress()
	if progress.Total == 0 {
		ui.PrintInfo("Follow queue", "empty")
		fmt.Println("\nBuild one from filter results:")
		fmt.Println("  xtractr filter <list-key> --preset tech --queue")
		return
	}

	ui.PrintHighlight("Follow queue")
	ui.PrintInfo("Progress", fmt.Sprintf("%d/%d (%d followed, %d skipped)",
		progress.Position, progress.Total, progress.Followed, progress.Skipped))

	current, ok := store.Current()
	if !ok {
		ui.PrintSuccess("Queue complete")
		return
	}

	fmt.Println()
	ui.PrintInfo("Next", fmt.Sprintf("@%s (score %d)", current.Username, current.Score))
	if current.DisplayName != "" {
		ui.PrintInfo("Name", current.DisplayName)
	}
	if current.Bio != "" {
		ui.PrintInfo("Bio", current.Bio)
	}
	ui.PrintInfo("Followers", fmt.Sprintf("%d", current.FollowersCount))
	ui.PrintInfo("Profile", current.ProfileURL)
	fmt.Println("\nDecide with 'xtractr queue follow' or 'xtractr queue skip'")
}

func runQueueAdvance(action queue.Action) {
	store := openQueueStore()

	current, ok := store.Current()
	if !ok {
		ui.PrintInfo("Follow queue", "nothing left to decide")
		return
	}

	if _, err := store.Advance(action, current.UserID); err != nil {
		ui.PrintError("Failed to advance queue", err.Error())
		os.Exit(1)
	}

	verb := "Followed"
	if action == queue.ActionSkip {
		verb = "Skipped"
	}
	ui.PrintSuccess(fmt.Sprintf("%s @%s", verb, current.Username))

	if next, ok := store.Current(); ok {
		ui.PrintInfo("Next", fmt.Sprintf("@%s (score %d)", next.Username, next.Score))
	} else {
		ui.PrintSuccess("Queue complete")
	}
}

func runQueueClear(cmd *cobra.Command, args []string) {
	store := openQueueStore()

	if err := store.Clear(); err != nil {
		ui.PrintError("Failed to clear queue", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Follow queue cleared")
}
