package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xtractr/pkg/ui"
)

// templateCmd represents the template command
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage captured request templates",
	Long: `Manage the GraphQL request templates used to replay follower and
following timeline requests.

A template is a JSON capture of one request your browser made to the
Followers or Following GraphQL endpoint: URL, method, headers, variables,
features and field toggles. Capture one with your browser's developer
tools ("Copy as fetch" on the request, saved as JSON) and import it here.

Authorization, cookie and CSRF headers are stripped from the template
file on disk and stored in the system keychain instead.`,
}

var templateImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a captured request as a template",
	Long: `Import a captured GraphQL request from a JSON file.

The query name, GraphQL hash and list type are inferred from the request
URL. Primary Followers/Following templates always win over subtype
variants (FollowersYouKnow, BlueVerifiedFollowers); importing a subtype
never overwrites a primary template already in place.`,
	Example: `  xtractr template import followers-request.json`,
	Args:    cobra.ExactArgs(1),
	Run:     runTemplateImport,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	Run:   runTemplateList,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <followers|following>",
	Short: "Delete a stored template",
	Args:  cobra.ExactArgs(1),
	Run:   runTemplateDelete,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateImportCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateDeleteCmd)
}

func runTemplateImport(cmd *cobra.Command, args []string) {
	loadConfig(nil)
	manager := newTemplateManager()

	tpl, err := manager.ImportFile(args[0])
	if err != nil {
		ui.PrintError("Failed to import template", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Template imported")
	ui.PrintInfo("List", string(tpl.ListType))
	ui.PrintInfo("Query", tpl.QueryName)
	if !tpl.Primary() {
		ui.PrintWarning("This is a subtype query; a primary Followers/Following capture is preferred")
	}
	fmt.Println("\nStart capturing:")
	fmt.Printf("  xtractr capture <username> --list %s\n", tpl.ListType)
}

func runTemplateList(cmd *cobra.Command, args []string) {
	loadConfig(nil)
	manager := newTemplateManager()

	templates := manager.List()
	if len(templates) == 0 {
		ui.PrintInfo("Templates", "none")
		fmt.Println("\nImport one with 'xtractr template import <file>'")
		return
	}

	ui.PrintHighlight("Stored templates")
	for _, tpl := range templates {
		variant := "primary"
		if !tpl.Primary() {
			variant = "subtype"
		}
		fmt.Printf("  %-10s  %s (%s)  %s  captured %s\n",
			tpl.ListType, tpl.QueryName, variant, tpl.Method,
			tpl.CapturedAt.Format("2006-01-02 15:04"))
	}
}

func runTemplateDelete(cmd *cobra.Command, args []string) {
	loadConfig(nil)

	listType, err := parseListType(args[0])
	if err != nil {
		ui.PrintError("Invalid list type", err.Error())
		os.Exit(1)
	}

	manager := newTemplateManager()
	if err := manager.Delete(listType); err != nil {
		ui.PrintError("Failed to delete template", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Template deleted: " + string(listType))
}
