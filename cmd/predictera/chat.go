// ABOUTME: Interactive chat with the maintenance assistant
// ABOUTME: Drives the session controller and reveals replies with the typewriter

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/predictera-console/internal/conversation"
	"github.com/2389/predictera-console/internal/reveal"
	"github.com/2389/predictera-console/internal/session"
)

const chatHelp = `Commands:
  /new            start a new conversation
  /open <id>      continue conversation <id>
  /list           show recent conversations
  /delete <id>    delete conversation <id>
  /history        reprint the current conversation
  /help           show this help
  /quit           leave (Ctrl+D also works)`

func newChatCmd(a *app) *cobra.Command {
	var conversationID int64

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the maintenance assistant (REPL without a message)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ui := a.newChatUI(cmd.OutOrStdout(), cmd.ErrOrStderr())
			defer ui.cache.Close()

			if conversationID > 0 {
				if err := ui.open(ctx, conversationID); err != nil {
					return err
				}
			}

			if len(args) > 0 {
				return ui.send(ctx, strings.Join(args, " "))
			}
			return ui.repl(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().Int64VarP(&conversationID, "conversation", "c", 0, "continue an existing conversation")
	return cmd
}

// chatUI is the terminal presentation layer over a session controller.
type chatUI struct {
	ctl    *session.Controller
	cache  *conversation.Cache
	render *reveal.Renderer
	tw     *reveal.Typewriter
	out    io.Writer
	errOut io.Writer

	// events carries cache changes to the REPL; nil in one-shot mode.
	events      <-chan conversation.Event
	wantSidebar bool
}

func (a *app) newChatUI(out, errOut io.Writer) *chatUI {
	interactive := isTerminal(out)
	delay := a.cfg.Session.RevealSpeed
	if !interactive {
		delay = 0
	}

	ui := &chatUI{
		cache:  conversation.NewCache(a.api.Agent, a.cfg.Session.SidebarWindow, a.logger),
		render: reveal.NewRenderer(interactive),
		tw:     reveal.NewTypewriter(out, delay),
		out:    out,
		errOut: errOut,
	}
	ui.ctl = session.NewController(a.api.Agent, ui.cache, ui.notice, a.logger)
	ui.ctl.SetReplyDelay(a.cfg.Session.ReplyDelay)
	ui.ctl.SetHistoryLimit(a.cfg.Session.HistoryLimit)
	ui.ctl.SetNavigateHook(func(id int64) {
		color.New(color.Faint).Fprintf(ui.out, "(conversation #%d)\n", id)
	})
	return ui
}

func (ui *chatUI) notice(n session.Notice) {
	c := color.New(color.FgCyan)
	switch n.Level {
	case session.LevelWarning:
		c = color.New(color.FgYellow)
	case session.LevelError:
		c = color.New(color.FgRed)
	}
	c.Fprintln(ui.errOut, n.Text)
}

func (ui *chatUI) repl(ctx context.Context, in io.Reader) error {
	color.New(color.FgCyan).Fprintln(ui.out, "Chat with the maintenance assistant (/help for commands, Ctrl+D to exit)")
	fmt.Fprintln(ui.out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ui.events, _ = ui.cache.Subscribe(ctx)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	prompt := color.New(color.FgGreen)
	for {
		ui.drainEvents()
		prompt.Fprint(ui.out, "> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(ui.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(ui.out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := ui.command(ctx, line)
			if err != nil {
				color.New(color.FgRed).Fprintln(ui.errOut, errorText(err))
			}
			if quit {
				return nil
			}
			continue
		}

		if err := ui.send(ctx, line); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// command runs a slash command and reports whether the REPL should exit.
func (ui *chatUI) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	needID := func() (int64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("usage: %s <id>", name)
		}
		return parseID(args[0])
	}

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(ui.out, chatHelp)
	case "/new":
		if err := ui.ctl.LoadSession(ctx, nil); err != nil {
			return false, err
		}
		color.New(color.Faint).Fprintln(ui.out, "(new conversation)")
	case "/open":
		id, err := needID()
		if err != nil {
			return false, err
		}
		return false, ui.open(ctx, id)
	case "/list":
		ui.wantSidebar = true
		if err := ui.cache.Refresh(ctx); err != nil {
			ui.wantSidebar = false
			return false, err
		}
	case "/delete":
		id, err := needID()
		if err != nil {
			return false, err
		}
		if err := ui.ctl.DeleteConversation(ctx, id); err != nil {
			return false, nil // already reported as a notice
		}
	case "/history":
		ui.printHistory()
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func (ui *chatUI) open(ctx context.Context, id int64) error {
	if err := ui.ctl.LoadSession(ctx, &id); err != nil {
		if errors.Is(err, session.ErrSessionChanged) {
			return nil
		}
		return err
	}
	ui.printTitle(ctx)
	ui.printHistory()
	return nil
}

// drainEvents handles the cache changes published since the last prompt.
func (ui *chatUI) drainEvents() {
	for {
		select {
		case ev, ok := <-ui.events:
			if !ok {
				ui.events = nil
				return
			}
			ui.handleEvent(ev)
		default:
			return
		}
	}
}

func (ui *chatUI) handleEvent(ev conversation.Event) {
	switch ev.Kind {
	case conversation.EventDeleted:
		success(ui.out, "Deleted conversation #%d", ev.ConversationID)
		if ev.Count == 0 {
			color.New(color.Faint).Fprintln(ui.out, "(no conversations left)")
		}
	case conversation.EventRefreshed:
		if ui.wantSidebar {
			ui.wantSidebar = false
			ui.printSidebar()
		}
	}
}

// printTitle shows the active conversation's title, loading the list on
// first use.
func (ui *chatUI) printTitle(ctx context.Context) {
	active := ui.ctl.Snapshot().ConversationID
	if active == nil {
		return
	}
	if !ui.cache.Loaded() {
		if err := ui.cache.Refresh(ctx); err != nil {
			return
		}
	}
	if conv, ok := ui.cache.Find(*active); ok {
		color.New(color.FgCyan, color.Bold).Fprintf(ui.out, "#%d %s\n", conv.ID, conv.DisplayTitle())
	}
}

// send posts text and reveals the reply. Failures have already been
// reported through notices when send returns.
func (ui *chatUI) send(ctx context.Context, text string) error {
	if err := ui.ctl.Send(ctx, text); err != nil {
		switch {
		case errors.Is(err, session.ErrSendInProgress):
			color.New(color.FgYellow).Fprintln(ui.errOut, "Still waiting for the previous reply.")
		case errors.Is(err, session.ErrSessionLoading):
			color.New(color.FgYellow).Fprintln(ui.errOut, "Still loading the conversation.")
		}
		return err
	}

	snap := ui.ctl.Snapshot()
	if len(snap.Messages) == 0 {
		return nil
	}
	reply := snap.Messages[len(snap.Messages)-1]
	if reply.Role != session.RoleAssistant {
		return nil
	}

	ui.printSource(reply)
	body := ui.render.Render(reply.Text)
	if !reply.Animate {
		fmt.Fprintln(ui.out, body)
		fmt.Fprintln(ui.out)
		return nil
	}

	err := ui.tw.Play(ctx, body, func() {
		fmt.Fprintln(ui.out)
		fmt.Fprintln(ui.out)
		ui.ctl.OnAnimationComplete(ctx)
	})
	if err != nil {
		fmt.Fprintln(ui.out)
	}
	return err
}

func (ui *chatUI) printSource(m session.Message) {
	color.New(color.FgMagenta, color.Bold).Fprintf(ui.out, "%s", m.Source)
	color.New(color.Faint).Fprintf(ui.out, "  %s\n", m.Timestamp.Local().Format("15:04"))
}

func (ui *chatUI) printHistory() {
	snap := ui.ctl.Snapshot()
	if len(snap.Messages) == 0 {
		color.New(color.Faint).Fprintln(ui.out, "(no messages yet)")
		return
	}
	for _, m := range snap.Messages {
		if m.Role == session.RoleUser {
			color.New(color.FgGreen, color.Bold).Fprint(ui.out, "you")
			color.New(color.Faint).Fprintf(ui.out, "  %s\n", m.Timestamp.Local().Format("Jan 02 15:04"))
			fmt.Fprintln(ui.out, m.Text)
		} else {
			color.New(color.FgMagenta, color.Bold).Fprint(ui.out, "assistant")
			color.New(color.Faint).Fprintf(ui.out, "  %s\n", m.Timestamp.Local().Format("Jan 02 15:04"))
			fmt.Fprintln(ui.out, ui.render.Render(m.Text))
		}
		fmt.Fprintln(ui.out)
	}
}

func (ui *chatUI) printSidebar() {
	items := ui.cache.Sidebar()
	if len(items) == 0 {
		fmt.Fprintln(ui.out, "No conversations yet.")
		return
	}

	active := ui.ctl.Snapshot().ConversationID
	for _, c := range items {
		marker := " "
		if active != nil && *active == c.ID {
			marker = "*"
		}
		fmt.Fprintf(ui.out, "%s #%-5d %-40s %s\n", marker, c.ID, truncate(c.DisplayTitle(), 40), formatTime(c.UpdatedAt))
	}
	if total := len(ui.cache.All()); total > len(items) {
		color.New(color.Faint).Fprintf(ui.out, "  ... %d more (predictera conversations list --all)\n", total-len(items))
	}
}
