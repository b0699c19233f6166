// Command clinicctl runs scheduled jobs and availability checks by hand.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/makhandasmiles/clinic-api/cmd/mainconfig"
	"github.com/makhandasmiles/clinic-api/internal/app/bootstrap"
	appconfig "github.com/makhandasmiles/clinic-api/internal/config"
	"github.com/makhandasmiles/clinic-api/internal/jobs"
	"github.com/makhandasmiles/clinic-api/pkg/logging"
)

// loader builds the service graph for one command.
type loader func(ctx context.Context) (*bootstrap.Services, func(), error)

func main() {
	_ = godotenv.Load()
	if err := rootCmd(connect).Execute(); err != nil {
		os.Exit(1)
	}
}

func connect(ctx context.Context) (*bootstrap.Services, func(), error) {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	rt, err := mainconfig.BuildRuntime(ctx, cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		return nil, nil, err
	}
	return rt.Services, rt.Close, nil
}

func rootCmd(load loader) *cobra.Command {
	root := &cobra.Command{
		Use:          "clinicctl",
		Short:        "Operate the clinic booking service",
		SilenceUsage: true,
	}
	root.AddCommand(jobsCmd(load))
	root.AddCommand(runCmd(load))
	root.AddCommand(slotsCmd(load))
	return root
}

func jobsCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List the scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			for _, name := range svc.Runner.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func runCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:       "run <job>",
		Short:     "Run one scheduled job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.ScheduledReminders, jobs.SendReminders, jobs.WeeklyReport, jobs.DailySummary},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := svc.Runner.Run(cmd.Context(), args[0])
			if errors.Is(err, jobs.ErrBusy) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already running, skipped\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func slotsCmd(load loader) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Show bookable slots for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			if date == "" {
				date = svc.Calendar.Today()
			}
			slots, err := svc.Availability.AvailableSlots(cmd.Context(), date)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), slots)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to inspect, YYYY-MM-DD (default today in the clinic zone)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
