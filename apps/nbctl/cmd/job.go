package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/netbatch/netbatch/pkg/napi/schemas"
	"github.com/netbatch/netbatch/pkg/nsdk"
)

var (
	jobDevices   []string
	jobCommands  []string
	jobBatchSize int
	jobRateLimit int
	jobWatch     bool
	jobArtifacts bool
	historyLimit int
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Submit and manage batch jobs",
}

var jobSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a batch job",
	Long: `Submit a command list to run against a set of devices.

Examples:
  # Run two commands on three devices, five at a time
  nbctl job submit -d r01 -d r02 -d r03 -c "display version" -c "display interface brief" --batch-size 5

  # Pace a large fleet to 120 devices per hour and watch progress
  nbctl job submit -d r01 -d r02 -c "show running-config" --rate-limit 120 --watch`,
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		resp, err := client.SubmitJob(context.Background(), schemas.SubmitJobRequest{
			DeviceIDs: jobDevices,
			Commands:  jobCommands,
			BatchSize: jobBatchSize,
			RateLimit: jobRateLimit,
		})
		if err != nil {
			exitIfSdkError(err)
		}

		fmt.Printf("✅ Job submitted: %s (%d batches)\n", resp.ID, resp.BatchCount)

		if jobWatch {
			watchJob(client, resp.ID)
		} else {
			fmt.Printf("💡 To watch progress, run: nbctl job watch %s\n", resp.ID)
		}
	},
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		jobs, err := client.ListJobs(context.Background())
		if err != nil {
			exitIfSdkError(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tDEVICES\tDONE\tCREATED")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.0f%%\t%s\n", j.ID, j.Status, j.Total, j.Percent, j.CreatedAt)
		}
		w.Flush()
	},
}

var jobGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show a job with per-device results",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		job, err := client.GetJob(context.Background(), args[0])
		if err != nil {
			exitIfSdkError(err)
		}

		fmt.Printf("Job: %s\n", job.ID)
		fmt.Printf("Status: %s (%d/%d devices, %.0f%%)\n", job.Status, job.Completed, job.Total, job.Percent)
		fmt.Printf("Commands: %v\n", job.Commands)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DEVICE\tSTATUS\tCOMMANDS OK\tERROR")
		for _, d := range job.Devices {
			ok := 0
			for _, c := range d.Commands {
				if c.Status == "success" || c.Status == "simulated" {
					ok++
				}
			}
			errMsg := d.Error
			if d.ErrorKind != "" {
				errMsg = fmt.Sprintf("[%s] %s", d.ErrorKind, d.Error)
			}
			fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n", d.DeviceID, d.Status, ok, len(job.Commands), errMsg)
		}
		w.Flush()
	},
}

var jobStopCmd = &cobra.Command{
	Use:   "stop <job-id>",
	Short: "Stop a running job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		job, err := client.StopJob(context.Background(), args[0])
		if err != nil {
			exitIfSdkError(err)
		}
		fmt.Printf("🛑 Stop requested: %s (status: %s)\n", job.ID, job.Status)
	},
}

var jobRetryCmd = &cobra.Command{
	Use:   "retry <job-id>",
	Short: "Retry a job's failed devices as a new job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		resp, err := client.RetryJob(context.Background(), args[0])
		if err != nil {
			exitIfSdkError(err)
		}
		fmt.Printf("✅ Retry submitted: %s (%d batches)\n", resp.ID, resp.BatchCount)
	},
}

var jobClearCmd = &cobra.Command{
	Use:   "clear <job-id>",
	Short: "Remove a finished job from the server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		if err := client.ClearJob(context.Background(), args[0], jobArtifacts); err != nil {
			exitIfSdkError(err)
		}
		fmt.Printf("✅ Job cleared: %s\n", args[0])
	},
}

var jobWatchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Watch a job's progress until it finishes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}
		watchJob(client, args[0])
	},
}

var jobHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived job summaries",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := GetClient(cmd)
		if err != nil {
			exitIfSdkError(err)
		}

		records, err := client.JobHistory(context.Background(), historyLimit)
		if err != nil {
			exitIfSdkError(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tDEVICES\tOK\tFAILED\tCREATED")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n", r.ID, r.Status, r.Total, r.Completed, r.Failed, r.CreatedAt)
		}
		w.Flush()
	},
}

func watchJob(client *nsdk.Client, jobID string) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		snap, err := client.Progress(context.Background(), jobID)
		if err != nil {
			exitIfSdkError(err)
		}

		line := fmt.Sprintf("[%s] %d/%d devices (%.0f%%)", snap.Status, snap.CompletedDevices, snap.TotalDevices, snap.Percent)
		if snap.CurrentDevice != "" {
			line += fmt.Sprintf(" - %s: %s", snap.CurrentDevice, snap.CurrentCommand)
		}
		fmt.Println(line)

		switch snap.Status {
		case "completed", "stopped", "failed":
			return
		}
		<-ticker.C
	}
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobSubmitCmd, jobListCmd, jobGetCmd, jobStopCmd, jobRetryCmd, jobClearCmd, jobWatchCmd, jobHistoryCmd)

	jobSubmitCmd.Flags().StringArrayVarP(&jobDevices, "device", "d", nil, "Device ID (repeatable)")
	jobSubmitCmd.Flags().StringArrayVarP(&jobCommands, "command", "c", nil, "Command to run (repeatable, executed in order)")
	jobSubmitCmd.Flags().IntVar(&jobBatchSize, "batch-size", 0, "Devices per concurrent batch (0 runs everything at once)")
	jobSubmitCmd.Flags().IntVar(&jobRateLimit, "rate-limit", 0, "Devices-per-hour pacing budget (0 is unlimited)")
	jobSubmitCmd.Flags().BoolVarP(&jobWatch, "watch", "w", false, "Watch progress after submission")

	jobClearCmd.Flags().BoolVar(&jobArtifacts, "artifacts", false, "Also delete stored artifacts")
	jobHistoryCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum records to return")
}
