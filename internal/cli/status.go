package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/minhvu/geofetch/internal/core/config"
	"github.com/minhvu/geofetch/internal/jobs/manager"
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show job status, or list all jobs when no id is given",
	Args:  cobra.MaximumNArgs(1),
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	initLogging(cfg.Logging)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open job store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if len(args) == 1 {
		job, err := store.Get(ctx, args[0])
		if err != nil {
			slog.Error("Failed to load job", "job", args[0], "error", err)
			os.Exit(1)
		}

		fmt.Printf("Job:      %s\n", job.ID)
		fmt.Printf("Status:   %s\n", job.Status)
		fmt.Printf("Source:   %s\n", job.Request.SourceID)
		fmt.Printf("Progress: %d/%d (%.0f%%)\n",
			job.Progress.CompletedLayers, job.Progress.TotalLayers, job.Progress.PercentComplete)
		if job.ErrorMessage != "" {
			fmt.Printf("Error:    %s\n", job.ErrorMessage)
		}
		if len(job.Results) > 0 {
			s := manager.Aggregate(job.Results)
			fmt.Printf("Results:  %d/%d layers, %d features (%.0f%% success)\n",
				s.SuccessfulLayers, s.TotalLayers, s.TotalFeatures, s.SuccessRate*100)
		}
		return
	}

	jobs, err := store.List(ctx)
	if err != nil {
		slog.Error("Failed to list jobs", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "JOB\tSTATUS\tSOURCE\tPROGRESS\tCREATED")
	for _, job := range jobs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
			job.ID, job.Status, job.Request.SourceID,
			job.Progress.CompletedLayers, job.Progress.TotalLayers,
			job.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
}
