package util

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/router-for-me/gitpress/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// SetProxy routes httpClient through cfg.ProxyURL. socks5, socks5h, http and https URLs
// are understood; anything else is logged and the client is returned unchanged.
func SetProxy(cfg *config.SDKConfig, httpClient *http.Client) *http.Client {
	transport, err := proxyTransport(cfg.ProxyURL)
	if err != nil {
		log.WithError(err).Warn("ignoring proxy-url")
		return httpClient
	}
	httpClient.Transport = transport
	return httpClient
}

func proxyTransport(rawURL string) (*http.Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		return &http.Transport{Proxy: http.ProxyURL(u)}, nil
	case "socks5", "socks5h":
		dial, errDial := socksDialer(u)
		if errDial != nil {
			return nil, errDial
		}
		return &http.Transport{DialContext: dial}, nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
}

func socksDialer(u *url.URL) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: password}
	}
	dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("create SOCKS5 dialer: %w", err)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
