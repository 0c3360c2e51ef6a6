package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xtractr/pkg/ui"
)

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage capture sessions",
	Long: `Inspect the active capture session, the history of completed
captures and the saved lists kept for filtering and comparison.`,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active capture session",
	Run:   runSessionsShow,
}

var sessionsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List completed captures, newest first",
	Run:   runSessionsHistory,
}

var sessionsListsCmd = &cobra.Command{
	Use:   "lists",
	Short: "List saved lists available for filtering and export",
	Run:   runSessionsLists,
}

var sessionsCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Archive the active session and save its list",
	Long: `Archive the active capture session even if the end of the list was
not reached. The captured users are saved as a list for filtering,
comparison and export.`,
	Run: runSessionsComplete,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the active session without saving it",
	Run:   runSessionsClear,
}

var sessionsDeleteListCmd = &cobra.Command{
	Use:   "delete-list <list-key>",
	Short: "Delete a saved list",
	Args:  cobra.ExactArgs(1),
	Run:   runSessionsDeleteList,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsHistoryCmd)
	sessionsCmd.AddCommand(sessionsListsCmd)
	sessionsCmd.AddCommand(sessionsCompleteCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	sessionsCmd.AddCommand(sessionsDeleteListCmd)
}

func runSessionsShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	sessions := openSessionStore(cfg)

	current := sessions.Current()
	if current == nil {
		ui.PrintInfo("Active session", "none")
		return
	}

	ui.PrintHighlight("Active session")
	ui.PrintInfo("ID", current.ID)
	ui.PrintInfo("Profile", current.Username)
	ui.PrintInfo("List", string(current.ListType))
	ui.PrintInfo("Captured users", fmt.Sprintf("%d", len(current.Users)))
	ui.PrintInfo("Started", current.StartedAt.Format("2006-01-02 15:04:05"))
	if current.Cursor != "" {
		ui.PrintInfo("Resume cursor", "saved")
	}
}

func runSessionsHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	sessions := openSessionStore(cfg)

	history := sessions.History()
	if len(history) == 0 {
		ui.PrintInfo("History", "empty")
		return
	}

	ui.PrintHighlight("Completed captures")
	for _, entry := range history {
		fmt.Printf("  %s  @%s %s  %d users  %s\n",
			entry.CompletedAt.Format("2006-01-02 15:04"),
			entry.Username, entry.ListType, entry.Count, ui.Dim(entry.ID))
	}
}

func runSessionsLists(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	sessions := openSessionStore(cfg)

	keys := sessions.SavedListKeys()
	if len(keys) == 0 {
		ui.PrintInfo("Saved lists", "none")
		fmt.Println("\nCapture a list first: xtractr capture <username>")
		return
	}

	ui.PrintHighlight("Saved lists")
	for _, key := range keys {
		if list, ok := sessions.SavedList(key); ok {
			fmt.Printf("  %s  %d users  saved %s\n", key, len(list.Users),
				list.SavedAt.Format("2006-01-02 15:04"))
		}
	}
}

func runSessionsComplete(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	sessions := openSessionStore(cfg)

	entry, err := sessions.Complete()
	if err != nil {
		ui.PrintError("Failed to complete session", err.Error())
		os.Exit(1)
	}
	if entry == nil {
		ui.PrintInfo("Active session", "none")
		return
	}

	key := fmt.Sprintf("%s_%s_%s", entry.Username, entry.ListType, entry.ID)
	ui.PrintSuccess(fmt.Sprintf("Session archived, %d users saved", entry.Count))
	ui.PrintInfo("List key", key)
}

func runSessionsClear(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	sessions := openSessionStore(cfg)

	if err := sessions.Clear(); err != nil {
		ui.PrintError("Failed to clear session", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Active session discarded")
}

func runSessionsDeleteList(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	sessions := openSessionStore(cfg)

	if _, ok := sessions.SavedList(args[0]); !ok {
		ui.PrintError("Saved list not found", args[0])
		os.Exit(1)
	}
	if err := sessions.DeleteSavedList(args[0]); err != nil {
		ui.PrintError("Failed to delete saved list", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Saved list deleted: " + args[0])
}
