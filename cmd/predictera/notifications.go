// ABOUTME: notifications commands: list, create, delete, and watch
// ABOUTME: watch polls in the foreground and prints each notification once

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/predictera-console/internal/api"
	"github.com/2389/predictera-console/internal/gateway"
	"github.com/2389/predictera-console/internal/notify"
)

func newNotificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Machine alerts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listNotifications(cmd, a)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listNotifications(cmd, a)
		},
	})

	var n api.NewNotification
	create := &cobra.Command{
		Use:   "create",
		Short: "Raise a notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch n.Level {
			case api.LevelInfo, api.LevelWarning, api.LevelCritical:
			default:
				return fmt.Errorf("level must be info, warning or critical")
			}
			id, err := a.api.Notifications.Create(cmd.Context(), n)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Created notification %s", id)
			return nil
		},
	}
	create.Flags().StringVar(&n.MachineName, "machine", "", "machine name")
	create.Flags().StringVar(&n.Message, "message", "", "message")
	create.Flags().StringVar(&n.Level, "level", api.LevelInfo, "info, warning or critical")
	_ = create.MarkFlagRequired("machine")
	_ = create.MarkFlagRequired("message")

	cmd.AddCommand(create, &cobra.Command{
		Use:   "delete <id>",
		Short: "Dismiss a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.Notifications.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Deleted notification %s", args[0])
			return nil
		},
	}, newWatchCmd(a))

	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll for notifications and print new ones until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			w := notify.NewWatcher(a.api.Notifications, a.cfg.Notifications.PollInterval, a.logger)
			defer w.Close()

			color.New(color.FgCyan).Fprintf(out, "Watching notifications every %s (Ctrl+C to stop)\n", a.cfg.Notifications.PollInterval)
			err := w.Run(cmd.Context(), func(n api.Notification) {
				printNotification(out, n)
			})
			if cmd.Context().Err() != nil {
				return nil
			}
			if gateway.KindOf(err) == gateway.KindAuthExpired {
				// The expired hook has already told the user to log in.
				return errors.New("stopped watching")
			}
			return err
		},
	}
}

func listNotifications(cmd *cobra.Command, a *app) error {
	items, err := a.api.Notifications.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No notifications.")
		return nil
	}
	for _, n := range items {
		printNotification(out, n)
	}
	return nil
}

func printNotification(out io.Writer, n api.Notification) {
	fmt.Fprintf(out, "%s %-8s %s: %s", color.HiBlackString("%s", n.Time), levelText(n.Level), n.MachineName, n.Message)
	if n.ID != "" {
		fmt.Fprint(out, color.HiBlackString("  (%s)", n.ID))
	}
	fmt.Fprintln(out)
}
