package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FetchConfig configures dataset downloads
type FetchConfig struct {
	Timeout    time.Duration
	UserAgent  string
	MaxBytes   int64
	HTTPProxy  string // overrides HTTP_PROXY when set
	HTTPSProxy string // overrides HTTPS_PROXY when set
}

// DefaultFetchConfig returns default configuration
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Timeout:   30 * time.Second,
		UserAgent: "controlgap/0.1",
		MaxBytes:  16 << 20,
	}
}

const fetchAttempts = 3

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// statusError is a non-2xx response
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, e.status)
}

// Fetcher downloads dataset documents over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a fetcher
func NewFetcher(config FetchConfig) *Fetcher {
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultFetchConfig().MaxBytes
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: &http.Transport{Proxy: proxyFunc(config.HTTPProxy, config.HTTPSProxy)},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: config.UserAgent,
		maxBytes:  config.MaxBytes,
	}
}

// proxyFunc uses the explicit proxies when given, else the environment
func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// FetchDataset downloads and decodes a dataset, retrying transient failures
func (f *Fetcher) FetchDataset(ctx context.Context, rawURL string) (*Dataset, error) {
	var body []byte
	var err error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		body, err = f.fetch(ctx, rawURL)
		if err == nil || !isRetryableFetchError(err) || attempt == fetchAttempts {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fetchSleepFunc(time.Duration(attempt) * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch dataset %s: %w", rawURL, err)
	}
	return ReadDataset(bytes.NewReader(body))
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/yaml, text/yaml;q=0.9, */*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	// one extra byte detects oversized bodies
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("dataset exceeds %d bytes", f.maxBytes)
	}
	return body, nil
}

// isRetryableFetchError reports whether a later attempt could succeed
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return strings.HasPrefix(err.Error(), "fetch: ")
}

// IsRemote reports whether a dataset location is an http(s) URL
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
