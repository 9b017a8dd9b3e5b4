// ABOUTME: Root cobra command and shared application wiring
// ABOUTME: Loads config, builds the logger, credential store, gateway, and API client

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/predictera-console/internal/api"
	"github.com/2389/predictera-console/internal/config"
	"github.com/2389/predictera-console/internal/credentials"
	"github.com/2389/predictera-console/internal/gateway"
	"github.com/2389/predictera-console/internal/logging"
)

const banner = `
                    _ _      _
 _ __  _ __ ___  __| (_) ___| |_ ___ _ __ __ _
| '_ \| '__/ _ \/ _' | |/ __| __/ _ \ '__/ _' |
| |_) | | |  __/ (_| | | (__| ||  __/ | | (_| |
| .__/|_|  \___|\__,_|_|\___|\__\___|_|  \__,_|
|_|
`

type options struct {
	configPath string
	debug      bool
}

// app holds everything a command needs once setup has run.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  credentials.Store
	gw     *gateway.Client
	api    *api.Client

	errOut      io.Writer
	expiredOnce sync.Once
}

func newRootCmd(a *app) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "predictera",
		Short: "Predictive-maintenance console",
		Long: banner + `
Console for the Predictera predictive-maintenance backend: chat with the
maintenance assistant, browse machines, sensor data and diagnostics, and
watch notifications.

Run 'predictera login' first; credentials are kept between runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(opts, cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $PREDICTERA_CONFIG or ~/.config/predictera/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newChatCmd(a),
		newConversationsCmd(a),
		newMachinesCmd(a),
		newDiagnosticsCmd(a),
		newSensorsCmd(a),
		newUsersCmd(a),
		newNotificationsCmd(a),
	)
	return root
}

// setup loads configuration and wires the API client. It runs once per
// process even when several commands execute.
func (a *app) setup(opts *options, errOut io.Writer) error {
	if a.api != nil {
		return nil
	}
	a.errOut = errOut

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.debug {
		cfg.Logging.Level = "debug"
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Logging, errOut)

	store, err := credentials.Open(credentials.Options{
		Backend: cfg.Credentials.Backend,
		Path:    cfg.Credentials.Path,
		Encrypt: cfg.Credentials.Encrypt,
	})
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	a.store = store

	gw, err := gateway.New(gateway.Config{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.API.Timeout,
		RefreshTimeout: cfg.API.RefreshTimeout,
	}, store, a.logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	gw.SetAuthExpiredHook(a.sessionExpired)
	a.gw = gw
	a.api = api.New(gw)

	a.logger.Debug("console ready", "base_url", cfg.API.BaseURL, "credentials", cfg.Credentials.Backend)
	return nil
}

// sessionExpired is the gateway's auth-expired hook: the CLI equivalent of
// redirecting to the login page.
func (a *app) sessionExpired() {
	a.expiredOnce.Do(func() {
		color.New(color.FgYellow).Fprintln(a.errOut, "Your session has expired. Run 'predictera login' to sign in again.")
	})
}

func (a *app) close() {
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil && a.logger != nil {
			a.logger.Warn("closing credential store", "error", err)
		}
	}
}

// errorText renders err for the terminal. Gateway errors use their
// user-facing description; everything else is shown as is.
func errorText(err error) string {
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		return gateway.Describe(err)
	}
	return err.Error()
}
