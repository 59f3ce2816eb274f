package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	artDevice  string
	artCommand string
	artOutput  string
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Browse stored command output",
}

var artifactListCmd = &cobra.Command{
	Use:   "list <job-id>",
	Short: "List a job's artifacts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		artifacts, err := client.ListArtifacts(context.Background(), args[0], artDevice, artCommand)
		if err != nil {
			exitIfSdkError(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILENAME\tDEVICE\tCOMMAND\tTIMESTAMP\tSIZE")
		for _, a := range artifacts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", a.Filename, a.DeviceID, a.CommandID, a.Timestamp, a.Size)
		}
		w.Flush()
	},
}

var artifactGetCmd = &cobra.Command{
	Use:   "get <job-id> <filename>",
	Short: "Download an artifact",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		data, err := client.DownloadArtifact(context.Background(), args[0], args[1])
		if err != nil {
			exitIfSdkError(err)
		}

		if artOutput == "" {
			fmt.Print(string(data))
			return
		}
		if err := os.WriteFile(artOutput, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", artOutput, err)
			os.Exit(1)
		}
		fmt.Printf("✅ Wrote %s (%d bytes)\n", artOutput, len(data))
	},
}

func init() {
	rootCmd.AddCommand(artifactCmd)
	artifactCmd.AddCommand(artifactListCmd, artifactGetCmd)

	artifactListCmd.Flags().StringVar(&artDevice, "device", "", "Filter by device")
	artifactListCmd.Flags().StringVar(&artCommand, "command", "", "Filter by command")
	artifactGetCmd.Flags().StringVarP(&artOutput, "output", "o", "", "Write output to file (default stdout)")
}
