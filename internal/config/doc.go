// Package config handles configuration loading for the predictera console.
//
// # Configuration File
//
// The file is resolved in this order:
//
//  1. The --config flag
//  2. Path from the PREDICTERA_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/predictera/config.yaml (or ~/.config/predictera/config.yaml)
//
// A missing file is not an error; LoadOrDefault returns Default().
// Variables from ./.env are loaded first with LoadDotEnv and never override
// variables already present in the environment.
//
// # Environment Variable Expansion
//
//	api:
//	  base_url: "https://${PREDICTERA_HOST}"
//
// Unset variables expand to the empty string.
//
// # Sections
//
//	api:
//	  base_url: "http://localhost:8000"
//	  timeout: "30s"
//	  refresh_timeout: "15s"
//
//	credentials:
//	  backend: "file"       # file, sqlite, keyring, memory
//	  path: "~/.config/predictera/credentials.toml"
//	  encrypt: false        # file backend only; key kept in the OS keychain
//
//	session:
//	  reply_delay: "800ms"
//	  reveal_speed: "6ms"
//	  sidebar_window: 10
//	  history_limit: 0      # 0 loads the full history
//
//	notifications:
//	  poll_interval: "30s"
//
//	diagnostics:
//	  bulk_schedule: "0 */6 * * *"
//	  bulk_timeout: "5m"
//
//	logging:
//	  level: "info"         # debug, info, warn, error
//	  format: "color"       # color, text, json
//
// When api.base_url is empty it is built from PREDICTERA_API_HOST and
// PREDICTERA_API_PORT, or falls back to http://localhost:8000.
package config
