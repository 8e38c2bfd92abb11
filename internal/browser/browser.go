// Package browser opens the authorization URL in the user's default browser and, when
// that is not possible, copies it to the clipboard.
package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

var linuxLaunchers = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

var errNoLauncher = errors.New("no browser launcher found")

// OpenURL hands rawURL to the desktop's URL handler. If open-golang cannot do it the
// platform launcher is started directly.
func OpenURL(rawURL string) error {
	errOpen := open.Run(rawURL)
	if errOpen == nil {
		return nil
	}
	log.Debugf("open-golang could not open the browser, falling back to launcher: %v", errOpen)

	name, args, err := launcher(rawURL)
	if err != nil {
		return err
	}
	log.Debugf("starting %s", name)
	if err = exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	return nil
}

func launcher(rawURL string) (string, []string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{rawURL}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}, nil
	case "linux":
		if name := firstOnPath(linuxLaunchers); name != "" {
			return name, []string{rawURL}, nil
		}
		return "", nil, errNoLauncher
	}
	return "", nil, fmt.Errorf("%w for %s", errNoLauncher, runtime.GOOS)
}

func firstOnPath(names []string) string {
	for _, name := range names {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	return ""
}

// IsAvailable reports whether opening a browser can work at all. SSH sessions on macOS
// and Linux sessions without a display count as unavailable.
func IsAvailable() bool {
	switch runtime.GOOS {
	case "darwin":
		return os.Getenv("SSH_CONNECTION") == "" && firstOnPath([]string{"open"}) != ""
	case "windows":
		return firstOnPath([]string{"rundll32"}) != ""
	case "linux":
		if strings.TrimSpace(os.Getenv("DISPLAY")) == "" && strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) == "" {
			return false
		}
		return firstOnPath(linuxLaunchers) != ""
	}
	return false
}

// CopyToClipboard places text on the system clipboard.
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard is not available on this system")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
