// Package network builds the shared HTTP clients. All outbound
// traffic (provider APIs, page fetches) goes through clients created
// here so the optional SOCKS5/HTTP proxy applies everywhere at once.
package network

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

const LogProxyNotConfigured = "Proxy not configured, using direct connection"

type HTTPClientConfig struct {
	ProxyURL              string
	Timeout               time.Duration
	DisableKeepAlives     bool
	MaxIdleConns          int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ExpectContinueTimeout time.Duration
	ForceAttemptHTTP2     bool
}

// NewDefaultHTTPClientConfig is the profile for provider API calls:
// generous ceiling timeout, pooled connections. Per-request deadlines
// come from context, not from this client.
func NewDefaultHTTPClientConfig(proxyURL string) HTTPClientConfig {
	return HTTPClientConfig{
		ProxyURL:              proxyURL,
		Timeout:               3 * time.Minute,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// NewFetchHTTPClientConfig is the profile for page fetches: short
// timeout, no connection reuse across arbitrary hosts.
func NewFetchHTTPClientConfig(proxyURL string) HTTPClientConfig {
	cfg := NewDefaultHTTPClientConfig(proxyURL)
	cfg.Timeout = 30 * time.Second
	cfg.MaxIdleConns = 10
	cfg.IdleConnTimeout = 10 * time.Second
	cfg.DisableKeepAlives = true
	return cfg
}

func SetupHTTPClient(cfg HTTPClientConfig, logger logger.Logger) *http.Client {
	transport := &http.Transport{
		ForceAttemptHTTP2:     cfg.ForceAttemptHTTP2,
		MaxIdleConns:          cfg.MaxIdleConns,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout: cfg.ExpectContinueTimeout,
	}

	if cfg.ProxyURL != "" {
		if err := configureProxy(transport, cfg.ProxyURL, logger); err != nil {
			logger.WithError(err).Fatal("failed to configure proxy")
		}
	} else {
		logger.Info(LogProxyNotConfigured)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}

func configureProxy(transport *http.Transport, proxyURL string, logger logger.Logger) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("failed to parse proxy URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "socks5":
		dialContext, err := createSOCKS5ProxyDialer(parsedURL, logger)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = dialContext
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
		logger.Info("Proxy configured: " + parsedURL.Redacted())
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", parsedURL.Scheme)
	}

	return nil
}

func createSOCKS5ProxyDialer(proxyURL *url.URL, logger logger.Logger) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	directDialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	proxyDialer, err := proxy.FromURL(proxyURL, directDialer)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy dialer: %w", err)
	}
	logger.Info("Proxy configured: " + proxyURL.Redacted())
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return proxyDialer.Dial(network, addr)
	}, nil
}
