package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/netbatch/netbatch/pkg/nsdk"
)

type contextKey string

const configContextKey contextKey = "netbatchconfig"

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "nbctl",
		Short: "CLI for the netbatch console (devices, jobs, artifacts)",
		Long: `nbctl is a command-line tool for a running netbatch server. It manages
the device inventory, submits batch command jobs, watches their progress,
configures the bastion tunnel, and retrieves stored command output.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := nsdk.LoadConfig(cfgFile)
			if err != nil {
				return err
			}

			if err := cfg.Viper().BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configContextKey, cfg)
			cmd.SetContext(ctx)

			return nil
		},
	}
)

// GetConfig retrieves the Config from the command context
func GetConfig(cmd *cobra.Command) (*nsdk.Config, error) {
	ctx := cmd.Context()
	cfg, ok := ctx.Value(configContextKey).(*nsdk.Config)
	if !ok {
		return nil, errors.New("no config in context")
	}
	return cfg, nil
}

// GetClient builds an API client from the command's config.
func GetClient(cmd *cobra.Command) (*nsdk.Client, error) {
	cfg, err := GetConfig(cmd)
	if err != nil {
		return nil, err
	}
	return nsdk.NewClient(cfg), nil
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML). Searches: netbatch.yaml, .netbatch/config.yaml")
	rootCmd.PersistentFlags().String("base-url", "", "Base URL for the netbatch server (overrides config)")
}
