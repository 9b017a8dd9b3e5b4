package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/2389/predictera-console/internal/api"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func formatTime(t api.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 02 15:04")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// riskText colors a risk score: red at 0.7 and above, yellow from 0.4.
func riskText(score float64) string {
	s := percent(score)
	switch {
	case score >= 0.7:
		return color.New(color.FgRed, color.Bold).Sprint(s)
	case score >= 0.4:
		return color.YellowString("%s", s)
	default:
		return color.GreenString("%s", s)
	}
}

func levelText(level string) string {
	switch level {
	case api.LevelCritical:
		return color.New(color.FgRed, color.Bold).Sprint(level)
	case api.LevelWarning:
		return color.YellowString("%s", level)
	default:
		return color.CyanString("%s", level)
	}
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func success(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, "✓ "+format+"\n", args...)
}

func since(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return time.Until(t).Round(time.Second).String()
}
