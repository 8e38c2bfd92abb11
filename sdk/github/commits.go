package github

import "context"

// ListCommits lists commits, newest first, optionally limited to a branch and path.
func (c *Client) ListCommits(ctx context.Context, owner, repo string, opts CommitListOptions) (*Page[Commit], error) {
	q := pageQuery(nil, opts.Page, opts.PerPage)
	if opts.SHA != "" {
		q.Set("sha", opts.SHA)
	}
	if opts.Path != "" {
		q.Set("path", opts.Path)
	}

	var commits []Commit
	header, err := c.getJSON(ctx, repoPath(owner, repo)+"/commits", q, &commits)
	if err != nil {
		return nil, err
	}
	next, last := parseLinkPages(header)
	return &Page[Commit]{Items: commits, NextPage: next, LastPage: last}, nil
}
