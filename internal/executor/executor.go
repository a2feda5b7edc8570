package executor

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/MrSnakeDoc/relay/internal/domain"
	"github.com/MrSnakeDoc/relay/internal/utils"
)

// Defaults applied when Options leaves a knob at its zero value.
const (
	DefaultTimeout          = 30 * time.Second
	DefaultMaxRedirects     = 10
	DefaultMaxResponseBytes = 10 << 20
)

// ErrCanceled is returned when the caller went away before an outcome was known.
var ErrCanceled = errors.New("relay canceled before an outcome was known")

// Options configures the outbound transport.
type Options struct {
	Timeout          time.Duration // whole call budget, body read included
	MaxRedirects     int           // 0 = return the 3xx as-is
	MaxResponseBytes int64         // bytes kept from the response body
	ProxyURL         string        // http://, https://, socks5:// or socks5h://
	NoProxy          []string      // hosts or .suffixes that bypass the proxy
	SkipTLSVerify    bool
}

// Call is one outbound request, body already serialized.
type Call struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte // nil = no body
}

// Executor performs outbound calls. It is safe for concurrent use.
type Executor struct {
	client  *http.Client
	maxBody int64
}

// New builds an executor with one shared client and transport.
func New(opts Options) (*Executor, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects < 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = DefaultMaxResponseBytes
	}

	transport, err := buildTransport(opts)
	if err != nil {
		return nil, fmt.Errorf("configuring transport: %w", err)
	}

	maxRedirects := opts.MaxRedirects
	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if maxRedirects == 0 {
				return http.ErrUseLastResponse
			}
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Executor{client: client, maxBody: opts.MaxResponseBytes}, nil
}

// Execute sends call once. Any HTTP status is an *domain.HTTPResponse; transport
// problems are a *domain.NetworkFailure. The only error is ErrCanceled.
func (e *Executor) Execute(ctx context.Context, call Call) (domain.Outcome, error) {
	target, err := url.Parse(strings.TrimSpace(call.URL))
	if err != nil {
		return &domain.NetworkFailure{Message: fmt.Sprintf("invalid URL: %v", err)}, nil
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return &domain.NetworkFailure{Message: fmt.Sprintf("unsupported URL scheme %q", target.Scheme)}, nil
	}
	if target.Host == "" {
		return &domain.NetworkFailure{Message: "invalid URL: missing host"}, nil
	}

	var body io.Reader
	if call.Body != nil {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(call.Method), target.String(), body)
	if err != nil {
		return &domain.NetworkFailure{Message: fmt.Sprintf("creating request: %v", err)}, nil
	}
	for k, v := range call.Headers {
		switch {
		case strings.EqualFold(k, "Host"):
			req.Host = v
		case strings.EqualFold(k, "Accept-Encoding"):
			// the relay must be able to decode what comes back
		default:
			req.Header.Set(k, v)
		}
	}
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		}
		return &domain.NetworkFailure{Message: describe(err)}, nil
	}
	defer utils.Close(resp.Body)

	body, closeBody, decoded, err := decodedBody(resp)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		}
		return &domain.NetworkFailure{Message: describe(err)}, nil
	}
	defer closeBody()

	// The cap applies to decoded bytes.
	raw, err := io.ReadAll(io.LimitReader(body, e.maxBody+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		}
		return &domain.NetworkFailure{Message: fmt.Sprintf("reading response body: %s", describe(err))}, nil
	}

	truncated := false
	if int64(len(raw)) > e.maxBody {
		raw = raw[:e.maxBody]
		truncated = true
	}

	headers := FlattenHeaders(resp.Header)
	if decoded {
		dropEncodingHeaders(headers)
	}

	return &domain.HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       raw,
		Truncated:  truncated,
	}, nil
}

// FlattenHeaders lowercases names and joins repeated values with ", ".
func FlattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[strings.ToLower(k)] = strings.Join(vs, ", ")
	}
	return out
}

// describe strips the url.Error wrapper noise that repeats the method and URL
// already stored next to the diagnostic.
func describe(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return "timeout: " + err.Error()
	}
	return err.Error()
}

// buildTransport creates an http.Transport configured with proxy and TLS settings.
func buildTransport(opts Options) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy:                 nil,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: opts.SkipTLSVerify, //nolint:gosec // opt-in for self-signed upstreams
		},
	}

	if opts.ProxyURL == "" {
		return transport, nil
	}

	parsed, err := url.Parse(opts.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			auth = &proxy.Auth{
				User:     parsed.User.Username(),
				Password: password,
			}
		}
		socks, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
		}
		perHost := proxy.NewPerHost(socks, proxy.Direct)
		if len(opts.NoProxy) > 0 {
			perHost.AddFromString(strings.Join(opts.NoProxy, ","))
		}
		transport.DialContext = perHost.DialContext
	case "http", "https":
		noProxy := normalizeNoProxy(opts.NoProxy)
		transport.Proxy = func(r *http.Request) (*url.URL, error) {
			if shouldBypassProxy(r.URL.Hostname(), noProxy) {
				return nil, nil
			}
			return parsed, nil
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", parsed.Scheme)
	}

	return transport, nil
}

func normalizeNoProxy(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

// shouldBypassProxy matches exact hosts and ".example.com" style suffixes.
func shouldBypassProxy(host string, noProxyHosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range noProxyHosts {
		if h == host {
			return true
		}
		if strings.HasPrefix(h, ".") && strings.HasSuffix(host, h) {
			return true
		}
	}
	return false
}
