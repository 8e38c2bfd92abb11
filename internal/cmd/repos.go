package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/router-for-me/gitpress/sdk/github"
)

// RepoRef names a repository as owner/name.
type RepoRef struct {
	Owner string
	Name  string
}

// ParseRepoRef accepts "owner/name".
func ParseRepoRef(raw string) (RepoRef, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return RepoRef{}, fmt.Errorf("repository must be given as owner/name, got %q", raw)
	}
	return RepoRef{Owner: owner, Name: name}, nil
}

func (r RepoRef) String() string { return r.Owner + "/" + r.Name }

// DoListRepos prints one page of the user's repositories.
func DoListRepos(ctx context.Context, s *Session, opts github.ListOptions) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	page, err := client.ListRepositories(ctx, opts)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	if len(page.Items) == 0 {
		printEmpty(s.Out, "No repositories found")
		return nil
	}

	t := newTable(s.Out, "REPOSITORY", "VISIBILITY", "DEFAULT BRANCH", "PUSHED")
	for _, r := range page.Items {
		visibility := "public"
		if r.Private {
			visibility = text.FgYellow.Sprint("private")
		}
		t.AppendRow([]any{r.FullName, visibility, r.DefaultBranch, formatTime(r.PushedAt)})
	}
	t.Render()
	printNextPage(s, page.NextPage)
	return nil
}

// DoCreateRepo creates a repository owned by the signed-in user.
func DoCreateRepo(ctx context.Context, s *Session, in github.CreateRepositoryRequest) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	repo, err := client.CreateRepository(ctx, in)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	_, _ = fmt.Fprintf(s.Out, "%s Created %s\n  %s\n", text.FgGreen.Sprint("✓"), repo.FullName, repo.HTMLURL)
	return nil
}

// DoListCommits prints one page of history, optionally limited to a branch and path.
func DoListCommits(ctx context.Context, s *Session, ref RepoRef, opts github.CommitListOptions) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	page, err := client.ListCommits(ctx, ref.Owner, ref.Name, opts)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	if len(page.Items) == 0 {
		printEmpty(s.Out, "No commits found")
		return nil
	}

	t := newTable(s.Out, "SHA", "AUTHOR", "DATE", "MESSAGE")
	for _, c := range page.Items {
		author := c.Commit.Author.Name
		if c.Author != nil && c.Author.Login != "" {
			author = c.Author.Login
		}
		t.AppendRow([]any{shortSHA(c.SHA), author, formatTime(c.Commit.Author.Date), c.Summary()})
	}
	t.Render()
	printNextPage(s, page.NextPage)
	return nil
}

// DoTree prints the blobs of the tree at ref.
func DoTree(ctx context.Context, s *Session, ref RepoRef, treeRef string, recursive bool) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	if treeRef == "" {
		repo, errRepo := client.GetRepository(ctx, ref.Owner, ref.Name)
		if errRepo != nil {
			return s.handleAPIError(ctx, errRepo)
		}
		treeRef = repo.DefaultBranch
	}
	tree, err := client.GetTree(ctx, ref.Owner, ref.Name, treeRef, recursive)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}

	t := newTable(s.Out, "TYPE", "SHA", "SIZE", "PATH")
	for _, e := range tree.Entries {
		size := "-"
		if e.Type == "blob" {
			size = fmt.Sprintf("%d", e.Size)
		}
		t.AppendRow([]any{e.Type, shortSHA(e.SHA), size, e.Path})
	}
	t.AppendFooter([]any{"", "", "blobs", len(tree.Blobs())})
	t.Render()
	if tree.Truncated {
		printEmpty(s.Out, "GitHub truncated this tree; list a subtree SHA to see the rest")
	}
	return nil
}

// DoGetFile writes a file's decoded content to s.Out, or to outPath when set.
func DoGetFile(ctx context.Context, s *Session, ref RepoRef, path, gitRef, outPath string) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	file, err := client.GetFileContent(ctx, ref.Owner, ref.Name, path, gitRef)
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	if outPath != "" {
		if err = os.WriteFile(outPath, file.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		_, _ = fmt.Fprintf(s.Out, "Wrote %s (%d bytes, sha %s)\n", outPath, len(file.Content), file.SHA)
		return nil
	}
	_, err = s.Out.Write(file.Content)
	return err
}

// FilePut describes a create or update from the command line.
type FilePut struct {
	Path    string
	Content []byte
	Message string
	SHA     string
	Branch  string
	// Update requires SHA and never creates the file.
	Update bool
}

// DoPutFile creates or updates a file.
func DoPutFile(ctx context.Context, s *Session, ref RepoRef, in FilePut) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	message := in.Message
	if message == "" {
		message = "Update " + in.Path
	}
	change := github.FileChange{Message: message, Content: in.Content, SHA: in.SHA, Branch: in.Branch}

	var res *github.FileCommit
	if in.Update {
		res, err = client.UpdateFile(ctx, ref.Owner, ref.Name, in.Path, change)
	} else {
		res, err = client.CreateOrUpdateFile(ctx, ref.Owner, ref.Name, in.Path, change)
	}
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	_, _ = fmt.Fprintf(s.Out, "%s %s committed as %s (blob %s)\n", text.FgGreen.Sprint("✓"), res.Path, shortSHA(res.CommitSHA), res.ContentSHA)
	return nil
}

// DoDeleteFile deletes a file; sha must be its current blob SHA.
func DoDeleteFile(ctx context.Context, s *Session, ref RepoRef, path, sha, message, branch string) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}
	if message == "" {
		message = "Delete " + path
	}
	res, err := client.DeleteFile(ctx, ref.Owner, ref.Name, path, github.FileChange{Message: message, SHA: sha, Branch: branch})
	if err != nil {
		return s.handleAPIError(ctx, err)
	}
	_, _ = fmt.Fprintf(s.Out, "%s Deleted %s in %s\n", text.FgGreen.Sprint("✓"), path, shortSHA(res.CommitSHA))
	return nil
}

func printNextPage(s *Session, next int) {
	if next > 0 {
		_, _ = fmt.Fprintf(s.Out, "More results: --page %d\n", next)
	}
}
