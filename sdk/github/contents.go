package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GetFileContent reads and base64-decodes a file. ref may be empty for the default
// branch. A directory path yields ErrNotAFile.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (*FileContent, error) {
	q := url.Values{}
	if ref != "" {
		q.Set("ref", ref)
	}
	req, err := c.newRequest(ctx, http.MethodGet, repoPath(owner, repo)+"/contents/"+escapePath(path), q, nil)
	if err != nil {
		return nil, err
	}
	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}

	doc := gjson.ParseBytes(body)
	if doc.IsArray() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotAFile, path)
	}
	if t := doc.Get("type").String(); t != "file" {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotAFile, path, t)
	}

	fc := &FileContent{
		Path:    doc.Get("path").String(),
		Name:    doc.Get("name").String(),
		SHA:     doc.Get("sha").String(),
		Size:    doc.Get("size").Int(),
		HTMLURL: doc.Get("html_url").String(),
	}

	switch encoding := doc.Get("encoding").String(); encoding {
	case "base64":
		fc.Content, err = decodeContent(doc.Get("content").String())
	case "none", "":
		// Files over 1 MB come back without inline content.
		fc.Content, err = c.getBlob(ctx, owner, repo, fc.SHA)
	default:
		err = fmt.Errorf("github: unsupported content encoding %q", encoding)
	}
	if err != nil {
		return nil, err
	}
	return fc, nil
}

func (c *Client) getBlob(ctx context.Context, owner, repo, sha string) ([]byte, error) {
	if sha == "" {
		return nil, fmt.Errorf("github: blob sha missing from contents response")
	}
	req, err := c.newRequest(ctx, http.MethodGet, repoPath(owner, repo)+"/git/blobs/"+url.PathEscape(sha), nil, nil)
	if err != nil {
		return nil, err
	}
	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return decodeContent(gjson.GetBytes(body, "content").String())
}

// decodeContent decodes GitHub's line-wrapped base64.
func decodeContent(s string) ([]byte, error) {
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(s)
	out, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("github: decode file content: %w", err)
	}
	return out, nil
}

// CreateOrUpdateFile writes a file. Without change.SHA GitHub creates the file; if it
// already exists the call fails with ErrConflict rather than overwriting it.
func (c *Client) CreateOrUpdateFile(ctx context.Context, owner, repo, path string, change FileChange) (*FileCommit, error) {
	return c.putFile(ctx, owner, repo, path, change)
}

// UpdateFile replaces an existing file. change.SHA must hold the blob SHA the update
// is based on; otherwise ErrMissingSHA is returned and nothing is sent.
func (c *Client) UpdateFile(ctx context.Context, owner, repo, path string, change FileChange) (*FileCommit, error) {
	if strings.TrimSpace(change.SHA) == "" {
		return nil, ErrMissingSHA
	}
	return c.putFile(ctx, owner, repo, path, change)
}

func (c *Client) putFile(ctx context.Context, owner, repo, path string, change FileChange) (*FileCommit, error) {
	if strings.TrimSpace(change.Message) == "" {
		return nil, fmt.Errorf("github: commit message is required")
	}
	payload, err := mutationPayload(change, true)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPut, repoPath(owner, repo)+"/contents/"+escapePath(path), nil, payload)
	if err != nil {
		return nil, err
	}
	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return parseFileCommit(body), nil
}

// DeleteFile removes a file. change.SHA is mandatory as for UpdateFile.
func (c *Client) DeleteFile(ctx context.Context, owner, repo, path string, change FileChange) (*FileCommit, error) {
	if strings.TrimSpace(change.SHA) == "" {
		return nil, ErrMissingSHA
	}
	if strings.TrimSpace(change.Message) == "" {
		return nil, fmt.Errorf("github: commit message is required")
	}
	payload, err := mutationPayload(change, false)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodDelete, repoPath(owner, repo)+"/contents/"+escapePath(path), nil, payload)
	if err != nil {
		return nil, err
	}
	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return parseFileCommit(body), nil
}

func mutationPayload(change FileChange, withContent bool) ([]byte, error) {
	payload := []byte(`{}`)
	var err error
	set := func(key string, value any) {
		if err == nil {
			payload, err = sjson.SetBytes(payload, key, value)
		}
	}

	set("message", change.Message)
	if withContent {
		set("content", base64.StdEncoding.EncodeToString(change.Content))
	}
	if change.SHA != "" {
		set("sha", change.SHA)
	}
	if change.Branch != "" {
		set("branch", change.Branch)
	}
	if change.Committer != nil {
		set("committer.name", change.Committer.Name)
		set("committer.email", change.Committer.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("github: build file payload: %w", err)
	}
	return payload, nil
}

func parseFileCommit(body []byte) *FileCommit {
	doc := gjson.ParseBytes(body)
	return &FileCommit{
		ContentSHA: doc.Get("content.sha").String(),
		Path:       doc.Get("content.path").String(),
		CommitSHA:  doc.Get("commit.sha").String(),
		CommitURL:  doc.Get("commit.html_url").String(),
	}
}
