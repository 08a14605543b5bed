package transport

import (
	"compress/flate"
	"compress/gzip"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/momentumfc/momentum/internal/logger"
)

var httpClient *http.Client

// pacer enforces a minimum interval between outbound provider calls so we
// stay inside the provider's rate limits
var pacerMu sync.Mutex
var lastRequest time.Time
var minRequestInterval = 1100 * time.Millisecond

// SetMinRequestInterval overrides the pacing interval, zero disables pacing
func SetMinRequestInterval(d time.Duration) {
	pacerMu.Lock()
	defer pacerMu.Unlock()
	minRequestInterval = d
}

func pace() {
	pacerMu.Lock()
	defer pacerMu.Unlock()
	if minRequestInterval <= 0 {
		return
	}
	elapsed := time.Since(lastRequest)
	if elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	lastRequest = time.Now()
}

// getExtraCABundle returns an additional CA bundle if one is configured,
// for environments with a TLS-intercepting proxy
func getExtraCABundle() ([]byte, error) {
	bundlePath := os.Getenv("MOMENTUM_CA_BUNDLE")
	if bundlePath == "" {
		return nil, nil
	}
	caCert, err := os.ReadFile(bundlePath)
	if err != nil {
		logger.Warn("Failed to read extra CA bundle", err)
		return nil, err
	}
	return caCert, nil
}

// GetCustomHTTPClient returns an HTTP client with custom TLS configuration
func GetCustomHTTPClient() (*http.Client, error) {
	if httpClient != nil {
		return httpClient, nil
	}
	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		logger.Warn("Failed to get system cert pool", err)
		rootCAs = x509.NewCertPool()
	}

	extraCert, err := getExtraCABundle()
	if err == nil && extraCert != nil {
		if ok := rootCAs.AppendCertsFromPEM(extraCert); !ok {
			logger.Warn("Failed to append extra CA certificate")
		}
	}

	customTransport := &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs: rootCAs,
		},
		Proxy: http.ProxyFromEnvironment,
	}

	client := &http.Client{
		Transport: customTransport,
		Timeout:   30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}
	httpClient = client
	return client, nil
}

// Get fetches a URL with browser-like headers, paced and with bounded
// retries on 429 and transient server errors. Returns the decoded body.
func Get(rawUrl string, headers map[string]string) ([]byte, error) {
	client, err := GetCustomHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 4; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			logger.Warn("Retrying request after backoff", rawUrl, backoff.String())
			time.Sleep(backoff)
		}
		pace()

		req, err := http.NewRequest("GET", rawUrl, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to fetch url: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("request returned status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("request returned error status %d", resp.StatusCode)
		}

		data, err := readBody(resp)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}
	return nil, lastErr
}

// GetHtml fetches a URL and returns the decoded HTML body
func GetHtml(htmlUrl string) ([]byte, error) {
	return Get(htmlUrl, nil)
}

// GetJSON fetches a URL and unmarshals the response body into target
func GetJSON(jsonUrl string, headers map[string]string, target any) error {
	h := map[string]string{"Accept": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	data, err := Get(jsonUrl, h)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse json response: %w", err)
	}
	return nil
}

// readBody decodes the response body according to Content-Encoding
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.ReadCloser = resp.Body
	contentEncoding := resp.Header.Get("Content-Encoding")
	switch contentEncoding {
	case "gzip":
		var err error
		reader, err = NewGzipReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer reader.Close()
	case "deflate":
		var err error
		reader, err = NewDeflateReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create deflate reader: %w", err)
		}
		defer reader.Close()
	case "br":
		var err error
		reader, err = NewBrotliReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create brotli reader: %w", err)
		}
		defer reader.Close()
	default:
		if contentEncoding != "" {
			logger.Warn("Unknown content encoding:", contentEncoding)
		}
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return data, nil
}

// NewGzipReader creates a gzip reader from the provided io.ReadCloser
func NewGzipReader(r io.ReadCloser) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// NewDeflateReader creates a deflate reader from the provided io.ReadCloser
func NewDeflateReader(r io.ReadCloser) (io.ReadCloser, error) {
	return flate.NewReader(r), nil
}

// NewBrotliReader creates a brotli reader from the provided io.ReadCloser
func NewBrotliReader(r io.ReadCloser) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(r)), nil
}
