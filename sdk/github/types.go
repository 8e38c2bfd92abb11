package github

import "time"

// User is the authenticated account.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Type      string `json:"type"`
}

// Repository is the subset of repository fields the publisher relies on.
type Repository struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	Private       bool      `json:"private"`
	DefaultBranch string    `json:"default_branch"`
	HTMLURL       string    `json:"html_url"`
	CloneURL      string    `json:"clone_url"`
	PushedAt      time.Time `json:"pushed_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// ListOptions pages through a collection. Zero values use GitHub's defaults.
type ListOptions struct {
	Page    int
	PerPage int
	// Visibility, Affiliation and Sort apply to ListRepositories only.
	Visibility  string
	Affiliation string
	Sort        string
}

// Page is one page of a collection plus the navigation GitHub advertised in Link.
type Page[T any] struct {
	Items    []T
	NextPage int
	LastPage int
}

// CreateRepositoryRequest is the body of POST /user/repos.
type CreateRepositoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"auto_init,omitempty"`
}

// FileContent is a decoded file read from the contents API.
type FileContent struct {
	Path    string
	Name    string
	SHA     string
	Size    int64
	Content []byte
	HTMLURL string
}

// FileChange describes a create, update or delete through the contents API.
type FileChange struct {
	Message string
	// Content is the raw file body. Ignored by DeleteFile.
	Content []byte
	// SHA is the blob SHA of the file being replaced or deleted.
	SHA    string
	Branch string
	// Committer is optional; GitHub uses the authenticated user when empty.
	Committer *Signature
}

// Signature identifies a commit author or committer.
type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date,omitempty"`
}

// FileCommit is the outcome of a file mutation.
type FileCommit struct {
	// ContentSHA is the new blob SHA; empty after a delete.
	ContentSHA string
	Path       string
	CommitSHA  string
	CommitURL  string
}

// Tree is a git tree listing.
type Tree struct {
	SHA       string      `json:"sha"`
	Entries   []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// TreeEntry is one blob or subtree.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
}

// CommitListOptions filters ListCommits.
type CommitListOptions struct {
	// SHA is the branch name or commit SHA to start from.
	SHA     string
	Path    string
	Page    int
	PerPage int
}

// Commit is one entry of the commit history.
type Commit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message   string    `json:"message"`
		Author    Signature `json:"author"`
		Committer Signature `json:"committer"`
	} `json:"commit"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
}

// Summary returns the first line of the commit message.
func (c Commit) Summary() string {
	for i := 0; i < len(c.Commit.Message); i++ {
		if c.Commit.Message[i] == '\n' {
			return c.Commit.Message[:i]
		}
	}
	return c.Commit.Message
}
