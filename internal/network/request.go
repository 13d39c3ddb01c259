package network

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/willcraig/scrapelapse/internal/config"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// FetchResult is the outcome of one successful request.
type FetchResult struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// RequestError reports a transport-level failure: DNS resolution,
// connection refused, timeout, TLS.
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s for %s", e.Status, e.URL)
}

type clientSettings struct {
	proxy    string
	insecure bool
	timeout  time.Duration
}

var (
	clientMu      sync.Mutex
	sharedClient  *http.Client
	sharedSetting clientSettings
)

func getHTTPClient(cfg config.Config) (*http.Client, error) {
	desired := clientSettings{
		proxy:    cfg.Proxy,
		insecure: cfg.Insecure,
		timeout:  cfg.Timeout,
	}

	clientMu.Lock()
	defer clientMu.Unlock()

	if sharedClient != nil && sharedSetting == desired {
		return sharedClient, nil
	}

	transport, err := buildTransport(cfg)
	if err != nil {
		return nil, err
	}

	sharedClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
	sharedSetting = desired

	return sharedClient, nil
}

func buildTransport(cfg config.Config) (*http.Transport, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("unexpected default transport type")
	}

	transport := base.Clone()

	// Decoding is handled explicitly in decodeBody so the Accept-Encoding
	// header below stays authoritative.
	transport.DisableCompression = true

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if cfg.Insecure {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		} else {
			transport.TLSClientConfig = transport.TLSClientConfig.Clone()
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	return transport, nil
}

// Fetch performs one GET against the provided URL and returns the decoded
// response. Non-2xx responses surface as *StatusError, transport failures as
// *RequestError. There is no retry at this level.
func Fetch(ctx context.Context, rawURL string, cfg config.Config) (*FetchResult, error) {
	client, err := getHTTPClient(cfg)
	if err != nil {
		return nil, &RequestError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &RequestError{URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &RequestError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, &RequestError{URL: rawURL, Err: err}
	}
	if reader != resp.Body {
		defer reader.Close()
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &RequestError{URL: rawURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return &FetchResult{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// resetHTTPClient clears the shared HTTP client. It is intended for use in tests.
func resetHTTPClient() {
	clientMu.Lock()
	defer clientMu.Unlock()
	sharedClient = nil
	sharedSetting = clientSettings{}
}

func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return gz, nil
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return resp.Body, nil
	}
}
