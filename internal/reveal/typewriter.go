// ABOUTME: Progressive terminal reveal of reply text
// ABOUTME: Cancellation stops the reveal without signalling completion

package reveal

import (
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"
)

// DefaultDelay is the pause between revealed runes.
const DefaultDelay = 6 * time.Millisecond

// Typewriter writes text one rune at a time.
type Typewriter struct {
	w     io.Writer
	delay time.Duration
}

// NewTypewriter creates a typewriter writing to w. A zero delay writes the
// text at once.
func NewTypewriter(w io.Writer, delay time.Duration) *Typewriter {
	return &Typewriter{w: w, delay: delay}
}

// Play reveals text and then calls onComplete (when non-nil). If ctx is
// cancelled first, Play stops and returns ctx.Err() without calling
// onComplete. ANSI escape sequences are written whole.
func (t *Typewriter) Play(ctx context.Context, text string, onComplete func()) error {
	if t.delay <= 0 || text == "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(t.w, text); err != nil {
			return fmt.Errorf("writing reply: %w", err)
		}
		if onComplete != nil {
			onComplete()
		}
		return nil
	}

	ticker := time.NewTicker(t.delay)
	defer ticker.Stop()

	for i := 0; i < len(text); {
		n := nextToken(text[i:])
		if _, err := io.WriteString(t.w, text[i:i+n]); err != nil {
			return fmt.Errorf("writing reply: %w", err)
		}
		i += n
		if i >= len(text) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if onComplete != nil {
		onComplete()
	}
	return nil
}

// nextToken returns the byte length of the next rune, or of the whole ANSI
// CSI sequence starting at s.
func nextToken(s string) int {
	if len(s) >= 2 && s[0] == 0x1b && s[1] == '[' {
		for j := 2; j < len(s); j++ {
			if c := s[j]; c >= 0x40 && c <= 0x7e {
				return j + 1
			}
		}
		return len(s)
	}
	_, size := utf8.DecodeRuneInString(s)
	return size
}
