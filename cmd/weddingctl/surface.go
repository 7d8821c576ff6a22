package main

import (
	"fmt"
	"io"
	"time"

	"github.com/wedding-os/client/internal/toast"
)

var kindStyle = map[toast.Kind]string{
	toast.KindSuccess: "\033[32m✓\033[0m",
	toast.KindError:   "\033[31m✗\033[0m",
	toast.KindWarning: "\033[33m⚠\033[0m",
	toast.KindInfo:    "\033[36mℹ\033[0m",
}

// terminalSurface prints each toast once, when it becomes visible.
type terminalSurface struct {
	w io.Writer
}

func newTerminalSurface(w io.Writer) *terminalSurface {
	return &terminalSurface{w: w}
}

func (s *terminalSurface) Render(snap toast.Snapshot) {
	if !snap.Visible {
		return
	}
	fmt.Fprintf(s.w, "%s %s\n", kindStyle[snap.Kind], snap.Message)
}

// drainToasts waits, up to limit, until every queued toast has been shown.
func drainToasts(q *toast.Queue, limit time.Duration) {
	deadline := time.Now().Add(limit)
	for q.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
}
