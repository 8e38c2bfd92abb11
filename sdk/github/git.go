package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// GetTree lists the git tree at ref, a branch, tag or tree SHA. recursive walks
// every subtree in one call; GitHub sets Truncated on very large trees.
func (c *Client) GetTree(ctx context.Context, owner, repo, ref string, recursive bool) (*Tree, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("github: tree ref is required")
	}
	var q url.Values
	if recursive {
		q = url.Values{"recursive": {"1"}}
	}
	var tree Tree
	if _, err := c.getJSON(ctx, repoPath(owner, repo)+"/git/trees/"+escapePath(ref), q, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// Blobs returns the file entries of the tree.
func (t *Tree) Blobs() []TreeEntry {
	if t == nil {
		return nil
	}
	out := make([]TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.Type == "blob" {
			out = append(out, e)
		}
	}
	return out
}
