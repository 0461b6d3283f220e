// Package notify reports task outcomes to the developer: the log, a
// styled terminal box, and the browser overlay.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	aferrors "github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/logging"
	"github.com/conneroisu/assetflow/internal/server"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Broadcaster delivers messages to browser clients.
type Broadcaster interface {
	Broadcast(msg server.Message)
}

// Notifier fans task outcomes out to the log, the terminal and browsers.
type Notifier struct {
	logger      logging.Logger
	out         io.Writer
	broadcaster Broadcaster
	caser       cases.Caser

	box   lipgloss.Style
	title lipgloss.Style

	mu      sync.Mutex
	failing map[string]bool
}

// New returns a Notifier. A nil out writes to stderr and a nil
// broadcaster only reports locally.
func New(logger logging.Logger, out io.Writer, b Broadcaster) *Notifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	if out == nil {
		out = os.Stderr
	}
	return &Notifier{
		logger:      logger.WithComponent("notify"),
		out:         out,
		broadcaster: b,
		caser:       cases.Title(language.English),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(0, 1),
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		failing: make(map[string]bool),
	}
}

// Failed reports a task error. The browser overlay stays until the task
// next succeeds.
func (n *Notifier) Failed(ctx context.Context, task string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	title := fmt.Sprintf("%s: %s", n.caser.String(task), aferrors.Title(err))
	message := aferrors.Message(err)

	n.logger.Error(ctx, err, "Task failed", "task", task, "recoverable", aferrors.Recoverable(err))
	fmt.Fprintln(n.out, n.box.Render(lipgloss.JoinVertical(lipgloss.Left, n.title.Render(title), message)))

	n.mu.Lock()
	n.failing[task] = true
	n.mu.Unlock()

	var file string
	var e *aferrors.Error
	if errors.As(err, &e) {
		file = e.Location()
	}
	n.broadcast(server.Message{Type: server.MessageError, Path: file, Title: title, Message: message})
}

// Succeeded clears a pending error overlay for task and sends the
// task's reload message, if any. An empty reload sends nothing.
func (n *Notifier) Succeeded(task string, reload server.MessageType, path string) {
	n.mu.Lock()
	wasFailing := n.failing[task]
	delete(n.failing, task)
	n.mu.Unlock()

	if wasFailing {
		n.broadcast(server.Message{Type: server.MessageClear})
	}
	if reload != "" {
		n.broadcast(server.Message{Type: reload, Path: path})
	}
}

// Reload asks every browser to reload the page.
func (n *Notifier) Reload(path string) {
	n.broadcast(server.Message{Type: server.MessageReload, Path: path})
}

// Failing reports whether task's last run failed.
func (n *Notifier) Failing(task string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failing[task]
}

func (n *Notifier) broadcast(msg server.Message) {
	if n.broadcaster != nil {
		n.broadcaster.Broadcast(msg)
	}
}
