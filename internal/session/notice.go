// ABOUTME: User-visible notices and send-failure categorization
// ABOUTME: Raw transport errors are never shown verbatim

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/predictera-console/internal/gateway"
)

// Level is a notice's severity.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Notice is a message for the user, typically shown as a toast.
type Notice struct {
	Level Level
	Text  string
}

// SendFailureNotice maps a failed send to the notice shown to the user.
func SendFailureNotice(err error) Notice {
	return Notice{Level: LevelError, Text: sendFailureText(err)}
}

func sendFailureText(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Message was not sent: the request was cancelled or timed out."
	}

	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		return "Failed to send message. Please try again."
	}

	switch gerr.Kind {
	case gateway.KindNotFound:
		return "Service not found. Please check your connection."
	case gateway.KindServer:
		return "Server error. Please try again later."
	case gateway.KindRateLimited:
		return "AI service rate limit reached. Please try again later."
	case gateway.KindAuthExpired:
		return "Your session has expired. Please log in again."
	case gateway.KindNetwork:
		return "Unable to reach the server. Please check your connection."
	}
	if gerr.Status != 0 {
		return fmt.Sprintf("Request failed (%d): %s", gerr.Status, gerr.Message)
	}
	return "Failed to send message. Please try again."
}
