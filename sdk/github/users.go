package github

import "context"

// CurrentUser returns the account the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if _, err := c.getJSON(ctx, "user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
