// Package action hands results to the operating system: opening urls
// through an external handler and copying text to the clipboard. Failures
// here are reported to the user and never end the session.
package action

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// DefaultHandler returns the platform's url opener command.
func DefaultHandler() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}

// Opener launches urls through a handler command. The handler may carry
// its own arguments ("firefox --new-tab"); the url is appended last.
type Opener struct {
	Handler string
}

func NewOpener(handler string) *Opener {
	if strings.TrimSpace(handler) == "" {
		handler = DefaultHandler()
	}
	return &Opener{Handler: handler}
}

// Open hands url to the handler and waits for it to return. Desktop
// openers detach immediately, so this does not block on the browser.
func (o *Opener) Open(url string) error {
	parts := strings.Fields(o.Handler)
	if len(parts) == 0 {
		return fmt.Errorf("no url handler configured")
	}
	args := append(parts[1:], url)
	if err := exec.Command(parts[0], args...).Run(); err != nil {
		return fmt.Errorf("open %s with %s: %w", url, parts[0], err)
	}
	return nil
}

// Copy puts text on the system clipboard.
func Copy(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
