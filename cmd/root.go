package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the caldav-mcp application
var rootCmd = &cobra.Command{
	Use:   "caldav-mcp",
	Short: "MCP server exposing CalDAV calendars to AI assistants",
	Long: `caldav-mcp is a Model Context Protocol (MCP) server that exposes
calendars from one or more CalDAV accounts as tools for AI assistants.

Accounts are configured through numbered environment variables
(CALDAV_1_BASE_URL, CALDAV_1_USERNAME, ...); see 'caldav-mcp serve --help'
for details.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "caldav-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("caldav-mcp version %s\n", version)
		},
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
