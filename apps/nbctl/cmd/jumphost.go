package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netbatch/netbatch/pkg/napi/schemas"
)

var (
	jhHost     string
	jhPort     int
	jhUsername string
	jhPassword string
)

var jumphostCmd = &cobra.Command{
	Use:   "jumphost",
	Short: "Configure the fleet-wide bastion tunnel",
}

var jumphostGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the bastion configuration",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		cfg, err := client.GetJumphost(context.Background())
		if err != nil {
			exitIfSdkError(err)
		}

		if !cfg.Enabled {
			fmt.Println("Jumphost: disabled (devices are dialed directly)")
			return
		}
		fmt.Printf("Jumphost: enabled\n")
		fmt.Printf("Host: %s\n", cfg.Host)
		if cfg.Port != 0 {
			fmt.Printf("Port: %d\n", cfg.Port)
		}
		fmt.Printf("Username: %s\n", cfg.Username)
		fmt.Printf("Password stored: %v\n", cfg.HasAuth)
	},
}

var jumphostSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Enable the bastion tunnel",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		cfg, err := client.SetJumphost(context.Background(), schemas.JumphostConfigRequest{
			Enabled:  true,
			Host:     jhHost,
			Port:     jhPort,
			Username: jhUsername,
			Password: jhPassword,
		})
		if err != nil {
			exitIfSdkError(err)
		}
		fmt.Printf("✅ Jumphost enabled: %s@%s\n", cfg.Username, cfg.Host)
	},
}

var jumphostDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the bastion tunnel",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		if _, err := client.SetJumphost(context.Background(), schemas.JumphostConfigRequest{Enabled: false}); err != nil {
			exitIfSdkError(err)
		}
		fmt.Println("✅ Jumphost disabled")
	},
}

func init() {
	rootCmd.AddCommand(jumphostCmd)
	jumphostCmd.AddCommand(jumphostGetCmd, jumphostSetCmd, jumphostDisableCmd)

	jumphostSetCmd.Flags().StringVar(&jhHost, "host", "", "Bastion host or IP")
	jumphostSetCmd.Flags().IntVar(&jhPort, "port", 0, "Bastion SSH port (default 22)")
	jumphostSetCmd.Flags().StringVar(&jhUsername, "username", "", "Bastion login username")
	jumphostSetCmd.Flags().StringVar(&jhPassword, "password", "", "Bastion login password")
}
