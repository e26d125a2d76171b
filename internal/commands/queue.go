package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerbot-dev/ledgerbot/internal/config"
	"github.com/ledgerbot-dev/ledgerbot/internal/platform/sqlite"
	"github.com/ledgerbot-dev/ledgerbot/internal/queue"
	"github.com/ledgerbot-dev/ledgerbot/internal/repository"
)

func newQueueCommand() *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and administer the processing queue",
	}
	queueCmd.AddCommand(newQueueStatusCommand())
	queueCmd.AddCommand(newQueueRetryCommand())
	queueCmd.AddCommand(newQueueSweepCommand())
	return queueCmd
}

// openScheduler builds a scheduler over the configured database for
// administrative commands. No handlers, no ticking.
func openScheduler(cmd *cobra.Command) (*queue.Scheduler, func(), error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	jobRepo := repository.NewJobRepository(db.DB, slog.Default())
	sched := queue.NewScheduler(jobRepo, queue.Config{
		MaxConcurrent: cfg.Queue.MaxConcurrent,
		MaxAttempts:   cfg.Queue.MaxAttempts,
	}, nil, slog.Default())
	return sched, func() { _ = db.Close() }, nil
}

func newQueueStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show aggregate job counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sched, closeDB, err := openScheduler(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			st, err := sched.Status(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("total:      %d\n", st.Total)
			fmt.Printf("pending:    %d\n", st.Pending)
			fmt.Printf("processing: %d\n", st.Processing)
			fmt.Printf("completed:  %d\n", st.Completed)
			fmt.Printf("failed:     %d\n", st.Failed)
			fmt.Printf("in-flight:  %d / %d\n", st.CurrentProcessing, st.MaxConcurrent)
			return nil
		},
	}
}

func newQueueRetryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Reset failed jobs to pending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sched, closeDB, err := openScheduler(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			n, err := sched.RetryFailed(context.Background(), limit)
			if err != nil {
				return err
			}
			fmt.Printf("retried %d failed jobs\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of jobs to reset")
	return cmd
}

func newQueueSweepCommand() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete old completed jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sched, closeDB, err := openScheduler(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			n, err := sched.SweepCompleted(context.Background(), olderThan)
			if err != nil {
				return err
			}
			fmt.Printf("swept %d completed jobs\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "minimum age of completed jobs to delete")
	return cmd
}
