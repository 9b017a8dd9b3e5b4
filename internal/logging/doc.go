// Package logging builds the console's slog.Logger from LoggingConfig.
//
// Three formats are supported: "json" and "text" use the standard slog
// handlers, "color" renders one colorized line per record for terminals.
// CLI commands log to stderr so command output on stdout stays clean.
package logging
