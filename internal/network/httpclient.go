// File: internal/network/httpclient.go
package network

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	DefaultDialTimeout         = 5 * time.Second
	DefaultTLSHandshakeTimeout = 10 * time.Second
	DefaultIdleConnTimeout     = 90 * time.Second
)

// NewClient builds the client used for API calls: HTTP/2 capable, decoding
// compressed responses, and logging each exchange at debug level.
// timeout bounds the whole exchange; zero means no limit.
func NewClient(timeout time.Duration, logger *zap.Logger) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: DefaultTLSHandshakeTimeout,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		MaxIdleConnsPerHost: 4,
		// Decompression is handled by Decompress so brotli is covered too.
		DisableCompression: true,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		logger.Debug("HTTP/2 unavailable; using HTTP/1.1.", zap.Error(err))
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &logging{
			next:   &Decompress{Next: transport},
			logger: logger.Named("http"),
		},
	}
}

// logging records method, redacted URL, status and latency of each request.
type logging struct {
	next   http.RoundTripper
	logger *zap.Logger
}

func (l *logging) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.next.RoundTrip(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", Redact(req.URL)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		l.logger.Debug("Request failed.", append(fields, zap.Error(err))...)
		return nil, err
	}
	l.logger.Debug("Request completed.", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}

// Redact hides the API key query parameter so URLs can be logged.
func Redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		c := *u
		c.RawQuery = q.Encode()
		return c.String()
	}
	return u.String()
}
