package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	ghauth "github.com/router-for-me/gitpress/internal/auth/github"
	"github.com/router-for-me/gitpress/sdk/credential"
	"github.com/router-for-me/gitpress/sdk/github"
)

// ExitError carries the process exit status for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCodeOf returns the status main should exit with for err.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func newTable(w io.Writer, headers ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	colored := make(table.Row, len(headers))
	for i, h := range headers {
		colored[i] = text.FgHiCyan.Sprint(h)
	}
	t.AppendHeader(colored)
	return t
}

func printEmpty(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("!"), text.FgYellow.Sprint(message))
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// apiErrorMessage turns an API or store failure into one line for the terminal.
func apiErrorMessage(err error) string {
	switch {
	case errors.Is(err, github.ErrRateLimited):
		if apiErr, ok := github.AsAPIError(err); ok {
			return fmt.Sprintf("GitHub rate limit reached; try again after %s", apiErr.ResetAt.Local().Format(time.Kitchen))
		}
		return "GitHub rate limit reached"
	case errors.Is(err, github.ErrUnauthenticated):
		return "GitHub no longer accepts the stored sign-in."
	case errors.Is(err, github.ErrForbidden):
		return "GitHub denied access to this resource"
	case errors.Is(err, github.ErrNotFound):
		return "Not found on GitHub (or not visible to this account)"
	case errors.Is(err, github.ErrConflict):
		return "The file changed on GitHub; fetch it again and pass the current --sha"
	case errors.Is(err, github.ErrMissingSHA):
		return "This operation needs the current blob SHA (--sha)"
	case errors.Is(err, github.ErrNotAFile):
		return "The path is a directory, not a file"
	case errors.Is(err, credential.ErrAccessDenied):
		return "The system keychain denied access to the stored credential"
	case errors.Is(err, credential.ErrCorrupt):
		return "The stored credential is unreadable; run `gitpress logout` and sign in again"
	case ghauth.IsAuthenticationError(err), ghauth.IsOAuthError(err):
		return ghauth.GetUserFriendlyMessage(err)
	default:
		return "GitHub request failed"
	}
}
