package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389/predictera-console/internal/api"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage console accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := a.api.Users.List(cmd.Context())
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "  ID\tUSERNAME\tFULL NAME\tROLE")
			fmt.Fprintln(w, "  --\t--------\t---------\t----")
			for _, u := range users {
				fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n", u.ID, u.Username, truncate(u.Fullname, 32), u.Role)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.api.Users.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %d\n", u.ID)
			fmt.Fprintf(out, "Username:  %s\n", u.Username)
			fmt.Fprintf(out, "Full name: %s\n", u.Fullname)
			fmt.Fprintf(out, "Role:      %s\n", u.Role)
			return nil
		},
	})

	var (
		nu            api.NewUser
		passwordStdin bool
	)
	register := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readPassword(cmd.InOrStdin(), bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout(), passwordStdin)
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			nu.Password = pw
			id, err := a.api.Users.Register(cmd.Context(), nu)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Registered %s as user #%d", nu.Username, id)
			return nil
		},
	}
	register.Flags().StringVarP(&nu.Username, "username", "u", "", "username")
	register.Flags().StringVar(&nu.Fullname, "fullname", "", "full name")
	register.Flags().StringVar(&nu.Role, "role", "user", "role")
	register.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = register.MarkFlagRequired("username")
	_ = register.MarkFlagRequired("fullname")

	cmd.AddCommand(register, &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.api.Users.Delete(cmd.Context(), id); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Deleted user #%d", id)
			return nil
		},
	})

	return cmd
}
