package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xtractr/pkg/template"
	"xtractr/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage X session credentials",
	Long: `Manage the X session credentials used when replaying captured
requests.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (XTRACTR_BEARER_TOKEN, XTRACTR_CSRF_TOKEN,
    XTRACTR_COOKIE)

Never share your credentials or config files!`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [account]",
	Short: "Store X credentials securely",
	Long: `Store X session credentials in the system keychain or an encrypted
file.

You will be prompted for:
  - Bearer token (authorization header, without the "Bearer " prefix)
  - CSRF token (x-csrf-token header)
  - Cookie header
  - User agent (optional, press Enter for default)

To get these values:
1. Log into X in your browser
2. Open Developer Tools (F12) > Network tab
3. Open your profile's followers page
4. Click any request to /i/api/graphql/ and copy the header values`,
	Example: `  # Interactive login for the default account
  xtractr auth login

  # Store under a named account
  xtractr auth login work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [account]",
	Short: "Remove stored credentials",
	Args:  cobra.MaximumNArgs(1),
	Run:   runAuthLogout,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts with sanitized credentials",
	Run:   runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authListCmd)
}

func newCredentialManager() *template.CredentialManager {
	manager, err := template.NewCredentialManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	return manager
}

func runAuthLogin(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()

	account := "default"
	if len(args) > 0 {
		account = strings.TrimSpace(args[0])
	}

	reader := bufio.NewReader(os.Stdin)

	if manager.Exists(account) {
		fmt.Printf("Account '%s' already exists. Update credentials? (y/N): ", account)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Println("\nEnter your header values (they will be hidden as you type):")
	fmt.Println()

	var bearer string
	for {
		fmt.Print("Bearer token: ")
		var err error
		bearer, err = readPassword()
		if err != nil {
			ui.PrintError("Failed to read bearer token", err.Error())
			os.Exit(1)
		}
		bearer = strings.TrimPrefix(strings.TrimSpace(bearer), "Bearer ")
		if len(bearer) < 20 {
			fmt.Println("\nThat doesn't look like a valid bearer token.")
			fmt.Print("Try again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				os.Exit(1)
			}
			continue
		}
		break
	}

	fmt.Print("\nCSRF token (x-csrf-token): ")
	csrfToken, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read CSRF token", err.Error())
		os.Exit(1)
	}

	fmt.Print("\nCookie header: ")
	cookie, err := readPassword()
	if err != nil {
		ui.PrintError("Failed to read cookie", err.Error())
		os.Exit(1)
	}

	fmt.Print("\nUser agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	creds := &template.Credentials{
		Account:      account,
		Bearer:       strings.TrimSpace(bearer),
		CSRFToken:    strings.TrimSpace(csrfToken),
		Cookie:       strings.TrimSpace(cookie),
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}

	if err := manager.Store(creds); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Credentials stored: " + account)
	fmt.Println("\nNext steps:")
	fmt.Println("  xtractr template import <captured-request.json>")
	fmt.Println("  xtractr capture <username>")
}

func runAuthLogout(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()

	account := "default"
	if len(args) > 0 {
		account = args[0]
	}

	if err := manager.Delete(account); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + account)
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager := newCredentialManager()

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'xtractr auth login' to add one")
		return
	}

	ui.PrintHighlight("Stored accounts")
	fmt.Println()
	for i, creds := range accounts {
		sanitized := template.Sanitize(creds)
		fmt.Printf("%d. Account: %s\n", i+1, sanitized.Account)
		fmt.Printf("   Bearer: %s\n", sanitized.Bearer)
		fmt.Printf("   CSRF Token: %s\n", sanitized.CSRFToken)
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readPassword reads a value from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
