package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/predictera-console/internal/apitest"
	"github.com/2389/predictera-console/internal/gateway"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type cli struct {
	t       *testing.T
	srv     *apitest.Server
	cfgPath string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := apitest.NewServer(t)
	dir := t.TempDir()

	cfg := fmt.Sprintf(`
api:
  base_url: %q
credentials:
  backend: "file"
  path: %q
session:
  reply_delay: "0s"
logging:
  level: "error"
  format: "text"
`, srv.URL, filepath.Join(dir, "credentials.toml"))

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0600))
	return &cli{t: t, srv: srv, cfgPath: cfgPath}
}

// run executes one command in a fresh app, like a separate process would.
func (c *cli) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()
	a := &app{}
	root := newRootCmd(a)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", c.cfgPath}, args...))

	err := root.ExecuteContext(context.Background())
	a.close()
	return out.String(), errOut.String(), err
}

func (c *cli) login() {
	c.t.Helper()
	out, _, err := c.run("secret\n", "login", "-u", "admin", "--password-stdin")
	require.NoError(c.t, err)
	require.Contains(c.t, out, "Logged in as admin")
}

func TestLoginPersistsAcrossRuns(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	c.login()

	out, _, err = c.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in")

	c.srv.AddMachine("Lathe 1", "M")
	out, _, err = c.run("", "machines")
	require.NoError(t, err)
	assert.Contains(t, out, "Lathe 1")
	assert.Equal(t, []string{"Bearer access-1"}, c.srv.AuthHeaders("GET /api/machines"))
}

func TestLoginPromptsForUsername(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run("admin\nsecret\n", "login", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Username: ")
	assert.Contains(t, out, "Logged in as admin")
}

func TestLoginWrongPassword(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("nope\n", "login", "-u", "admin", "--password-stdin")
	require.Error(t, err)
	assert.Equal(t, gateway.KindUnauthorized, gateway.KindOf(err))

	out, _, err := c.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestLogout(t *testing.T) {
	c := newCLI(t)
	c.login()

	out, _, err := c.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Equal(t, 1, c.srv.Calls("DELETE /authentications"))

	out, _, err = c.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestChatOneShotNavigatesAfterReveal(t *testing.T) {
	c := newCLI(t)
	c.login()

	out, _, err := c.run("", "chat", "is", "machine", "3", "healthy?")
	require.NoError(t, err)
	assert.Contains(t, out, "Google Gemini AI")
	assert.Contains(t, out, "You said: is machine 3 healthy?")
	assert.Contains(t, out, "(conversation #1)")
	assert.Equal(t, 1, c.srv.ConversationCount())

	out, _, err = c.run("", "chat", "-c", "1", "and", "now?")
	require.NoError(t, err)
	assert.Contains(t, out, "is machine 3 healthy?", "history is printed before sending")
	assert.Contains(t, out, "You said: and now?")
	assert.Equal(t, 1, c.srv.ConversationCount(), "follow-up stays in the same conversation")
}

func TestChatREPL(t *testing.T) {
	c := newCLI(t)
	c.login()

	stdin := strings.Join([]string{
		"/help",
		"hello there",
		"second message",
		"/list",
		"/bogus",
		"/quit",
		"never sent",
	}, "\n") + "\n"

	out, errOut, err := c.run(stdin, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "/open <id>")
	assert.Contains(t, out, "You said: hello there")
	assert.Contains(t, out, "You said: second message")
	assert.Contains(t, out, "(conversation #1)")
	assert.Contains(t, out, "* #1")
	assert.Contains(t, errOut, "unknown command /bogus")
	assert.NotContains(t, out, "never sent")
	assert.Equal(t, 1, c.srv.ConversationCount())
	assert.Equal(t, 2, c.srv.Calls("POST /api/agent/chat"))
}

func TestChatREPLOpenAndDelete(t *testing.T) {
	c := newCLI(t)
	c.login()
	id := c.srv.AddConversation("Spindle vibration", time.Now())

	stdin := fmt.Sprintf("/open %d\n/delete %d\n/list\n/quit\n", id, id)
	out, _, err := c.run(stdin, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, fmt.Sprintf("#%d Spindle vibration", id))
	assert.Contains(t, out, "history question")
	assert.Contains(t, out, fmt.Sprintf("Deleted conversation #%d", id))
	assert.Contains(t, out, "(no conversations left)")
	assert.Contains(t, out, "No conversations yet.")
	assert.Equal(t, 0, c.srv.ConversationCount())
}

func TestChatSendFailureShowsNotice(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.srv.FailNext("POST /api/agent/chat", 429)

	_, errOut, err := c.run("", "chat", "hello")
	require.Error(t, err)
	assert.Contains(t, errOut, "AI service rate limit reached. Please try again later.")
}

func TestExpiredSessionPrintsLoginHint(t *testing.T) {
	c := newCLI(t)
	c.login()
	c.srv.ExpireAccessTokens()
	c.srv.RevokeRefreshTokens()

	_, errOut, err := c.run("", "machines")
	require.Error(t, err)
	assert.Equal(t, gateway.KindAuthExpired, gateway.KindOf(err))
	assert.Contains(t, errOut, "predictera login")
	assert.Equal(t, "Your session has expired. Please log in again.", errorText(err))
}

func TestDiagnosticsRun(t *testing.T) {
	c := newCLI(t)
	c.login()
	m := c.srv.AddMachine("Mill 7", "H")

	out, _, err := c.run("", "diagnostics", "run", fmt.Sprint(m.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "recorded for machine")
	assert.Contains(t, out, "Risk score:     42%")
	assert.Contains(t, out, "Likely failure: TWF")
	assert.Equal(t, 1, c.srv.DiagnosticCount())

	out, _, err = c.run("", "diagnostics", "bulk")
	require.NoError(t, err)
	assert.Contains(t, out, "bulk diagnostics: 1 machines, 1 succeeded, 0 failed")
}

func TestScheduleRequiresSpec(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "diagnostics", "schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schedule")

	_, _, err = c.run("", "diagnostics", "schedule", "--spec", "every tuesday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestNotificationsListAndDelete(t *testing.T) {
	c := newCLI(t)
	c.login()
	id := c.srv.AddNotification("Press 2", "Torque above threshold", "critical")

	out, _, err := c.run("", "notifications")
	require.NoError(t, err)
	assert.Contains(t, out, "Press 2: Torque above threshold")
	assert.Contains(t, out, "critical")

	out, _, err = c.run("", "notifications", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted notification "+id)

	out, _, err = c.run("", "notifications", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No notifications.")
}

func TestConversationsCommands(t *testing.T) {
	c := newCLI(t)
	c.login()
	id := c.srv.AddConversation("Spindle vibration", time.Now())

	out, _, err := c.run("", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Spindle vibration")

	out, _, err = c.run("", "conversations", "show", fmt.Sprint(id))
	require.NoError(t, err)
	assert.Contains(t, out, "user: history question")
	assert.Contains(t, out, "assistant: history reply")

	_, _, err = c.run("", "conversations", "delete", fmt.Sprint(id))
	require.NoError(t, err)
	assert.Equal(t, 0, c.srv.ConversationCount())
}

func TestInvalidIDArgument(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "machines", "get", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid id "abc"`)
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "plain failure", errorText(fmt.Errorf("plain failure")))

	gerr := &gateway.Error{Kind: gateway.KindServer, Status: 503}
	assert.Equal(t, "Server error. Please try again later.", errorText(fmt.Errorf("listing: %w", gerr)))

	decodeErr := &gateway.Error{Kind: gateway.KindInvalidResponse, Status: 200, Err: fmt.Errorf("invalid character '<' looking for beginning of value")}
	assert.Equal(t, "The server sent an invalid response. Please try again later.", errorText(decodeErr))
}
