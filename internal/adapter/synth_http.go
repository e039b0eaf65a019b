package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"golang.org/x/net/proxy"

	m "github.com/mouse-blink/pbox/internal/model"
)

// Dialer opens network connections.
type Dialer interface {
	Dial(network, addr string) (net.Conn, error)
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(context.Context, string, string) (net.Conn, error)

var _ Dialer = DialerFunc(nil)

// DialContext calls d.
func (d DialerFunc) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return d(ctx, network, addr)
}

// Dial calls d without a deadline.
func (d DialerFunc) Dial(network, addr string) (net.Conn, error) {
	return d(context.Background(), network, addr)
}

// ProxyAddr picks the configured proxy, falling back to the usual
// environment variables.
func ProxyAddr(configured string) string {
	if configured != "" {
		return configured
	}

	for _, key := range []string{"ALL_PROXY", "all_proxy", "HTTP_PROXY", "http_proxy", "SOCKS_PROXY", "socks_proxy"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}

	return ""
}

// NewProxyDialer dials loopback addresses directly and everything else
// through the proxy at addr, if any.
func NewProxyDialer(addr string) (Dialer, error) {
	direct := &net.Dialer{}

	if addr == "" {
		return direct, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", addr, err)
	}

	if u.Scheme == "socks" {
		u.Scheme = "socks5"
	}

	pd, err := proxy.FromURL(u, direct)
	if err != nil {
		return nil, fmt.Errorf("proxy %q: %w", addr, err)
	}

	ctxDialer, ok := pd.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("proxy %q does not support contexts", addr)
	}

	return DialerFunc(func(ctx context.Context, network, target string) (net.Conn, error) {
		if isLoopback(target) {
			return direct.DialContext(ctx, network, target)
		}

		return ctxDialer.DialContext(ctx, network, target)
	}), nil
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	if host == "localhost" {
		return true
	}

	ip := net.ParseIP(host)

	return ip != nil && ip.IsLoopback()
}

// HTTPSynthesizer posts problems to <base>/synthesize.
type HTTPSynthesizer struct {
	base   string
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	idx    int
	cancel context.CancelFunc
}

// NewHTTPSynthesizer builds a client for the synthesizer service at base.
func NewHTTPSynthesizer(base string, dialer Dialer, logger *slog.Logger) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		base: strings.TrimSuffix(base, "/"),
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
		logger: logger,
		idx:    -1,
	}
}

// Synthesize aborts the request in flight and posts problem with a fresh
// id. Transport failures and non-2xx answers become unsuccessful results.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, problem m.SynthProblem) (*m.SynthResult, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}

	s.cancel = cancel
	s.idx++
	problem.ID = s.idx
	s.mu.Unlock()

	defer cancel()

	body, err := json.Marshal(problem)
	if err != nil {
		return nil, fmt.Errorf("encode problem: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.base+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.Canceled) {
			return nil, nil //nolint:nilnil // superseded or stopped
		}

		s.logger.Warn("synthesizer request failed", "id", problem.ID, "error", err)

		return &m.SynthResult{ID: problem.ID, Success: false, Result: err.Error()}, nil
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("synthesizer answered with an error", "id", problem.ID, "status", resp.Status)
		return &m.SynthResult{ID: problem.ID, Success: false}, nil
	}

	if !s.current(problem.ID) {
		s.logger.Debug("discarding stale synthesizer result", "id", problem.ID)
		return nil, nil //nolint:nilnil // superseded
	}

	var res m.SynthResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		if errors.Is(reqCtx.Err(), context.Canceled) {
			return nil, nil //nolint:nilnil // superseded or stopped
		}

		return nil, fmt.Errorf("decode synthesizer result: %w", err)
	}

	return &res, nil
}

func (s *HTTPSynthesizer) current(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return id == s.idx
}

// Stop aborts the request in flight.
func (s *HTTPSynthesizer) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	return true
}

// Connected is always true; failures surface per request.
func (s *HTTPSynthesizer) Connected() bool {
	return true
}
