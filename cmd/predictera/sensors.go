package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/2389/predictera-console/internal/api"
)

func newSensorsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensors",
		Short: "Record and read machine sensor data",
	}

	var r api.SensorReading
	record := &cobra.Command{
		Use:   "record <machine-id>",
		Short: "Record one sensor reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r.MachineID = id
			readingID, err := a.api.Sensors.Create(cmd.Context(), r)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Recorded reading #%d for machine #%d", readingID, id)
			return nil
		},
	}
	f := record.Flags()
	f.Float64Var(&r.AirTemp, "air-temp", 0, "air temperature [K]")
	f.Float64Var(&r.ProcessTemp, "process-temp", 0, "process temperature [K]")
	f.Float64Var(&r.RotationalSpeed, "speed", 0, "rotational speed [rpm]")
	f.Float64Var(&r.Torque, "torque", 0, "torque [Nm]")
	f.Float64Var(&r.ToolWear, "tool-wear", 0, "tool wear [min]")
	for _, name := range []string{"air-temp", "process-temp", "speed", "torque", "tool-wear"} {
		_ = record.MarkFlagRequired(name)
	}

	var limit int
	history := &cobra.Command{
		Use:   "history <machine-id>",
		Short: "List recent readings for a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			items, err := a.api.Sensors.History(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			return printReadings(cmd.OutOrStdout(), items)
		},
	}
	history.Flags().IntVarP(&limit, "limit", "n", 20, "number of readings")

	latest := &cobra.Command{
		Use:   "latest <machine-id>",
		Short: "Show the most recent reading for a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.api.Sensors.Latest(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printReadings(cmd.OutOrStdout(), []api.SensorData{*s})
		},
	}

	cmd.AddCommand(record, history, latest)
	return cmd
}

func printReadings(out io.Writer, items []api.SensorData) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "No sensor data yet.")
		return nil
	}
	w := newTable(out)
	fmt.Fprintln(w, "  WHEN\tAIR [K]\tPROCESS [K]\tSPEED [rpm]\tTORQUE [Nm]\tTOOL WEAR [min]")
	fmt.Fprintln(w, "  ----\t-------\t-----------\t-----------\t-----------\t---------------")
	for _, s := range items {
		fmt.Fprintf(w, "  %s\t%.1f\t%.1f\t%.0f\t%.1f\t%.0f\n",
			formatTime(s.Timestamp), s.AirTemp, s.ProcessTemp, s.RotationalSpeed, s.Torque, s.ToolWear)
	}
	return w.Flush()
}
