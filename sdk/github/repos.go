package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ListRepositories lists repositories the authenticated user can access.
func (c *Client) ListRepositories(ctx context.Context, opts ListOptions) (*Page[Repository], error) {
	q := pageQuery(nil, opts.Page, opts.PerPage)
	if opts.Visibility != "" {
		q.Set("visibility", opts.Visibility)
	}
	if opts.Affiliation != "" {
		q.Set("affiliation", opts.Affiliation)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}

	var repos []Repository
	header, err := c.getJSON(ctx, "user/repos", q, &repos)
	if err != nil {
		return nil, err
	}
	next, last := parseLinkPages(header)
	return &Page[Repository]{Items: repos, NextPage: next, LastPage: last}, nil
}

// GetRepository fetches one repository.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var r Repository
	if _, err := c.getJSON(ctx, repoPath(owner, repo), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRepository creates a repository owned by the authenticated user.
func (c *Client) CreateRepository(ctx context.Context, in CreateRepositoryRequest) (*Repository, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("github: repository name is required")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "user/repos", nil, in)
	if err != nil {
		return nil, err
	}
	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var r Repository
	if err = json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("github: decode created repository: %w", err)
	}
	return &r, nil
}
