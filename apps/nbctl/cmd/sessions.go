package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage pooled device sessions",
}

var sessionsCloseCmd = &cobra.Command{
	Use:   "close [device-id...]",
	Short: "Close pooled sessions (all when no devices given)",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		if err := client.CloseSessions(context.Background(), args); err != nil {
			exitIfSdkError(err)
		}
		if len(args) == 0 {
			fmt.Println("✅ All pooled sessions closed")
		} else {
			fmt.Printf("✅ Sessions closed for %d device(s)\n", len(args))
		}
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is reachable",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		if err := client.Health(context.Background()); err != nil {
			exitIfSdkError(err)
		}
		fmt.Printf("✅ Server healthy: %s\n", client.BaseURL)
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd, healthCmd)
	sessionsCmd.AddCommand(sessionsCloseCmd)
}
