package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/router-for-me/gitpress/sdk/credential"
	"github.com/router-for-me/gitpress/sdk/github"
	"golang.org/x/sync/errgroup"
)

// ExitNotSignedIn is returned by commands that need a credential when none is stored.
const ExitNotSignedIn = 2

// client returns an API client or an ExitError telling the user to sign in.
func (s *Session) client(ctx context.Context) (*github.Client, error) {
	client, err := s.Client(ctx)
	if err == nil {
		return client, nil
	}
	if errors.Is(err, github.ErrUnauthenticated) {
		return nil, &ExitError{Code: ExitNotSignedIn, Err: fmt.Errorf("not signed in; run `gitpress login` first: %w", err)}
	}
	return nil, fmt.Errorf("%s: %w", apiErrorMessage(err), err)
}

// DoWhoAmI prints the signed-in account, granted scopes and the current rate limit.
// The profile and the repository count are fetched concurrently.
func DoWhoAmI(ctx context.Context, s *Session) error {
	cred, err := s.Store.Retrieve(ctx)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return &ExitError{Code: ExitNotSignedIn, Err: fmt.Errorf("not signed in; run `gitpress login` first")}
		}
		return fmt.Errorf("%s: %w", apiErrorMessage(err), err)
	}
	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	var (
		user  *github.User
		repos *github.Page[github.Repository]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var errUser error
		user, errUser = client.CurrentUser(gctx)
		return errUser
	})
	g.Go(func() error {
		var errRepos error
		repos, errRepos = client.ListRepositories(gctx, github.ListOptions{PerPage: 1, Affiliation: "owner"})
		return errRepos
	})
	if err = g.Wait(); err != nil {
		return s.handleAPIError(ctx, err)
	}

	t := newTable(s.Out, "FIELD", "VALUE")
	t.AppendRow([]any{"Login", user.Login})
	if user.Name != "" {
		t.AppendRow([]any{"Name", user.Name})
	}
	t.AppendRow([]any{"Profile", user.HTMLURL})
	t.AppendRow([]any{"Scopes", strings.Join(cred.Scope, ", ")})
	t.AppendRow([]any{"Credential store", s.Store.Backend()})
	if n := ownedRepoCount(repos); n >= 0 {
		t.AppendRow([]any{"Owned repositories", n})
	}
	if rl := client.RateLimit(); rl != nil && rl.Present {
		t.AppendRow([]any{"Rate limit", fmt.Sprintf("%d/%d remaining, resets %s", rl.Remaining, rl.Limit, formatTime(rl.ResetAt))})
	}
	t.Render()
	return nil
}

// ownedRepoCount derives the total from a one-per-page listing: the last page number
// is the count. -1 means unknown.
func ownedRepoCount(p *github.Page[github.Repository]) int {
	switch {
	case p == nil:
		return -1
	case p.LastPage > 0:
		return p.LastPage
	case p.NextPage == 0:
		return len(p.Items)
	default:
		return -1
	}
}
