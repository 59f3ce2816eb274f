package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "netbatchd",
	Short: "netbatch server",
	Long:  `netbatchd serves the netbatch console API: device inventory, batch command execution, progress streaming, and artifact storage.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
}
