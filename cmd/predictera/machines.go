package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389/predictera-console/internal/api"
)

func newMachinesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "machines",
		Short: "Manage monitored machines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listMachines(cmd, a)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List machines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listMachines(cmd, a)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := a.api.Machines.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %d\n", m.ID)
			fmt.Fprintf(out, "Name:    %s\n", m.Name)
			fmt.Fprintf(out, "Type:    %s\n", m.Type)
			fmt.Fprintf(out, "Added:   %s\n", formatTime(m.Timestamp))
			return nil
		},
	})

	var in api.MachineInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.api.Machines.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Created machine #%d", id)
			return nil
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "machine name")
	create.Flags().StringVar(&in.Type, "type", "", "machine type (L, M or H)")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("type")

	var upd api.MachineInput
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or retype a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.api.Machines.Update(cmd.Context(), id, upd); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Updated machine #%d", id)
			return nil
		},
	}
	update.Flags().StringVar(&upd.Name, "name", "", "machine name")
	update.Flags().StringVar(&upd.Type, "type", "", "machine type (L, M or H)")
	_ = update.MarkFlagRequired("name")
	_ = update.MarkFlagRequired("type")

	cmd.AddCommand(create, update, &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.api.Machines.Delete(cmd.Context(), id); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Deleted machine #%d", id)
			return nil
		},
	})

	return cmd
}

func listMachines(cmd *cobra.Command, a *app) error {
	machines, err := a.api.Machines.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(machines) == 0 {
		fmt.Fprintln(out, "No machines registered.")
		return nil
	}

	w := newTable(out)
	fmt.Fprintln(w, "  ID\tNAME\tTYPE\tADDED")
	fmt.Fprintln(w, "  --\t----\t----\t-----")
	for _, m := range machines {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n", m.ID, truncate(m.Name, 32), m.Type, formatTime(m.Timestamp))
	}
	return w.Flush()
}
