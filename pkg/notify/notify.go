// Package notify is the user-facing notification port. Components that need
// to surface short success or failure notices take a Notifier rather than
// writing to the terminal themselves.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/papercomputeco/hearth/pkg/cliui"
)

// Level is the kind of notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a single fire-and-forget notification.
type Notice struct {
	Level   Level
	Title   string
	Message string
}

// Notifier delivers notices. Notify must not block for long.
type Notifier interface {
	Notify(n Notice)
}

// Nop returns a notifier that drops every notice.
func Nop() Notifier {
	return nopNotifier{}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}

// Terminal writes styled one-line notices to w.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal creates a terminal notifier writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) Notify(n Notice) {
	t.mu.Lock()
	defer t.mu.Unlock()

	line := cliui.KeyStyle.Render(n.Title)
	if n.Message != "" {
		line += " " + cliui.DimStyle.Render(n.Message)
	}
	fmt.Fprintf(t.w, "  %s %s\n", mark(n.Level), line)
}

func mark(l Level) string {
	switch l {
	case LevelSuccess:
		return cliui.SuccessMark
	case LevelWarning:
		return cliui.WarnMark
	case LevelError:
		return cliui.FailMark
	default:
		return cliui.InfoMark
	}
}
