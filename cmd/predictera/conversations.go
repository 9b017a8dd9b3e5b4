package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389/predictera-console/internal/api"
	"github.com/2389/predictera-console/internal/conversation"
)

func newConversationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Browse and delete chat history",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache := conversation.NewCache(a.api.Agent, a.cfg.Session.SidebarWindow, a.logger)
			defer cache.Close()
			if err := cache.Refresh(cmd.Context()); err != nil {
				return err
			}

			items := cache.Sidebar()
			if all {
				items = cache.All()
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No conversations yet.")
				return nil
			}

			w := newTable(out)
			fmt.Fprintln(w, "  ID\tTITLE\tMESSAGES\tUPDATED")
			fmt.Fprintln(w, "  --\t-----\t--------\t-------")
			for _, c := range items {
				fmt.Fprintf(w, "  %d\t%s\t%d\t%s\n", c.ID, truncate(c.DisplayTitle(), 40), c.MessageCount, formatTime(c.UpdatedAt))
			}
			return w.Flush()
		},
	}
	list.Flags().BoolVarP(&all, "all", "a", false, "list every conversation instead of the recent window")

	var limit int
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			msgs, err := a.api.Agent.Messages(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			printMessages(cmd, msgs)
			return nil
		},
	}
	show.Flags().IntVarP(&limit, "limit", "n", 0, "show only the latest n messages")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.api.Agent.DeleteConversation(cmd.Context(), id); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Deleted conversation #%d", id)
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func printMessages(cmd *cobra.Command, msgs []api.ChatMessage) {
	out := cmd.OutOrStdout()
	if len(msgs) == 0 {
		fmt.Fprintln(out, "(no messages)")
		return
	}
	for _, m := range msgs {
		fmt.Fprintf(out, "[%s] %s: %s\n", formatTime(m.Timestamp), m.Role, m.Message)
	}
}
