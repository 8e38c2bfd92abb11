// Package misc holds small helpers shared by the login command and the controller.
package misc

import (
	"errors"
	"net/url"
	"strings"
)

// OAuthCallback holds the parameters of a redirect the user pasted by hand.
type OAuthCallback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

var errNoCallbackParams = errors.New("invalid callback URL")

// ParseOAuthCallback reads the redirect parameters out of whatever the user copied from
// the address bar: a full URL, a URL without scheme, a bare query string, or a URL whose
// parameters ended up in the fragment. Empty input yields (nil, nil) so callers can
// treat it as "keep waiting".
func ParseOAuthCallback(input string) (*OAuthCallback, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	raw, ok := asURL(input)
	if !ok {
		return nil, errNoCallbackParams
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	params := u.Query()
	if u.Fragment != "" {
		if frag, errFrag := url.ParseQuery(u.Fragment); errFrag == nil {
			for key, values := range frag {
				if params.Get(key) == "" {
					params[key] = values
				}
			}
		}
	}

	// Only the pasted text as a whole is trimmed. Decoded values are kept byte for byte
	// so state comparison sees exactly what the redirect carried.
	cb := &OAuthCallback{
		Code:             params.Get("code"),
		State:            params.Get("state"),
		Error:            params.Get("error"),
		ErrorDescription: params.Get("error_description"),
	}
	// Some terminals swallow the '&'; "code#state" is the usual leftover.
	if cb.State == "" {
		if code, state, ok := strings.Cut(cb.Code, "#"); ok {
			cb.Code, cb.State = code, state
		}
	}
	if cb.Error == "" && cb.ErrorDescription != "" {
		cb.Error, cb.ErrorDescription = cb.ErrorDescription, ""
	}
	if cb.Code == "" && cb.Error == "" {
		return nil, errors.New("callback URL missing code")
	}
	return cb, nil
}

// asURL gives schemeless input a scheme and host so url.Parse reads its query.
func asURL(input string) (string, bool) {
	switch {
	case strings.Contains(input, "://"):
		return input, true
	case strings.HasPrefix(input, "?"):
		return "http://localhost" + input, true
	case strings.ContainsAny(input, "/?#:"):
		return "http://" + input, true
	case strings.Contains(input, "="):
		return "http://localhost/?" + input, true
	default:
		return "", false
	}
}
