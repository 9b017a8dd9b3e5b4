// ABOUTME: diagnostics commands: run, inspect, bulk, and scheduled bulk runs
// ABOUTME: The schedule subcommand runs in the foreground until interrupted

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/predictera-console/internal/api"
	"github.com/2389/predictera-console/internal/schedule"
)

func newDiagnosticsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "diagnostics",
		Aliases: []string{"diag"},
		Short:   "Run and inspect failure-prediction diagnostics",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listLatestDiagnostics(cmd, a)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Latest diagnostic for every machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listLatestDiagnostics(cmd, a)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run <machine-id>",
		Short: "Run diagnostics for a machine and show the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			diagID, err := a.api.Diagnostics.Run(cmd.Context(), id)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Diagnostics #%d recorded for machine #%d", diagID, id)

			d, err := a.api.Diagnostics.Latest(cmd.Context(), id)
			if err != nil {
				return err
			}
			printDiagnostic(cmd.OutOrStdout(), d)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "latest <machine-id>",
		Short: "Show the latest diagnostic for a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			d, err := a.api.Diagnostics.Latest(cmd.Context(), id)
			if err != nil {
				return err
			}
			printDiagnostic(cmd.OutOrStdout(), d)
			return nil
		},
	})

	var limit int
	history := &cobra.Command{
		Use:   "history <machine-id>",
		Short: "List past diagnostics for a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			items, err := a.api.Diagnostics.History(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			return printDiagnosticTable(cmd.OutOrStdout(), items)
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries")

	cmd.AddCommand(history, &cobra.Command{
		Use:   "bulk",
		Short: "Run diagnostics for every machine now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sched := schedule.New(a.api.Diagnostics, a.cfg.Diagnostics.BulkTimeout, a.logger)
			summary, err := sched.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			printBulk(cmd.OutOrStdout(), summary)
			return nil
		},
	}, newScheduleCmd(a))

	return cmd
}

func newScheduleCmd(a *app) *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run bulk diagnostics on a cron schedule until interrupted",
		Long: `Run bulk diagnostics on a cron schedule until interrupted.

The schedule comes from --spec or diagnostics.bulk_schedule in the config
file. Standard five-field expressions and descriptors such as @hourly are
accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if spec == "" {
				spec = a.cfg.Diagnostics.BulkSchedule
			}
			if spec == "" {
				return fmt.Errorf("no schedule: pass --spec or set diagnostics.bulk_schedule")
			}

			out := cmd.OutOrStdout()
			sched := schedule.New(a.api.Diagnostics, a.cfg.Diagnostics.BulkTimeout, a.logger)
			if err := sched.Schedule(spec); err != nil {
				return err
			}
			sched.OnResult(func(r schedule.Result) {
				stamp := r.Started.Local().Format("Jan 02 15:04:05")
				if r.Err != nil {
					color.New(color.FgRed).Fprintf(out, "[%s] bulk run failed: %s\n", stamp, errorText(r.Err))
					return
				}
				fmt.Fprintf(out, "[%s] ", stamp)
				printBulk(out, r.Summary)
			})

			sched.Start()
			color.New(color.FgCyan).Fprintf(out, "Scheduled bulk diagnostics %q, next run %s (Ctrl+C to stop)\n",
				spec, sched.Next().Local().Format("Jan 02 15:04"))

			<-cmd.Context().Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return sched.Stop(stopCtx)
		},
	}

	cmd.Flags().StringVar(&spec, "spec", "", "cron expression (default: diagnostics.bulk_schedule)")
	return cmd
}

func listLatestDiagnostics(cmd *cobra.Command, a *app) error {
	items, err := a.api.Diagnostics.AllLatest(cmd.Context())
	if err != nil {
		return err
	}
	return printDiagnosticTable(cmd.OutOrStdout(), items)
}

func printDiagnosticTable(out io.Writer, items []api.Diagnostic) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "No diagnostics yet.")
		return nil
	}
	w := newTable(out)
	fmt.Fprintln(w, "  ID\tMACHINE\tRISK\tWILL FAIL\tLIKELY FAILURE\tWHEN")
	fmt.Fprintln(w, "  --\t-------\t----\t---------\t--------------\t----")
	for _, d := range items {
		willFail := "no"
		if d.FailurePrediction.WillFail {
			willFail = "yes"
		}
		fmt.Fprintf(w, "  %d\t%d\t%s\t%s\t%s\t%s\n",
			d.ID, d.MachineID, riskText(d.RiskScore), willFail, orDash(d.MostLikelyFailure), formatTime(d.Timestamp))
	}
	return w.Flush()
}

func printDiagnostic(out io.Writer, d *api.Diagnostic) {
	fmt.Fprintf(out, "Machine:        #%d\n", d.MachineID)
	fmt.Fprintf(out, "Run:            #%d at %s\n", d.ID, formatTime(d.Timestamp))
	fmt.Fprintf(out, "Risk score:     %s\n", riskText(d.RiskScore))
	verdict := "not expected to fail"
	if d.FailurePrediction.WillFail {
		verdict = color.RedString("failure expected")
	}
	fmt.Fprintf(out, "Prediction:     %s (confidence %s)\n", verdict, percent(d.FailurePrediction.Confidence))
	fmt.Fprintf(out, "Likely failure: %s\n", orDash(d.MostLikelyFailure))
	fmt.Fprintf(out, "Recommended:    %s\n", orDash(d.RecommendedAction))

	p := d.FailureTypeProbabilities
	fmt.Fprintln(out, "Failure modes:")
	fmt.Fprintf(out, "  tool wear %s  heat dissipation %s  power %s  overstrain %s  random %s\n",
		percent(p.TWF), percent(p.HDF), percent(p.PWF), percent(p.OSF), percent(p.RNF))

	if fc := d.FeatureContributions; fc != nil {
		fmt.Fprintln(out, "Feature contributions:")
		fmt.Fprintf(out, "  air temp %s  process temp %s  speed %s  torque %s  tool wear %s\n",
			percent(fc.AirTemperature), percent(fc.ProcessTemperature), percent(fc.RotationalSpeed),
			percent(fc.Torque), percent(fc.ToolWear))
	}
}

func printBulk(out io.Writer, s *api.BulkDiagnostics) {
	fmt.Fprintf(out, "bulk diagnostics: %d machines, %s succeeded, %s failed\n",
		s.Total, color.GreenString("%d", s.SuccessCount), color.RedString("%d", s.FailureCount))
	for _, f := range s.Failed {
		fmt.Fprintf(out, "  machine %s: %s\n", f.MachineID, f.Error)
	}
}
