package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/pbox/internal/model"
)

func TestProxyAddr(t *testing.T) {
	for _, key := range []string{"ALL_PROXY", "all_proxy", "HTTP_PROXY", "http_proxy", "SOCKS_PROXY", "socks_proxy"} {
		t.Setenv(key, "")
	}

	assert.Empty(t, ProxyAddr(""))

	t.Setenv("http_proxy", "http://proxy:3128")
	assert.Equal(t, "http://proxy:3128", ProxyAddr(""))
	assert.Equal(t, "socks5://localhost:1080", ProxyAddr("socks5://localhost:1080"))
}

func TestNewProxyDialer(t *testing.T) {
	t.Run("direct without a proxy", func(t *testing.T) {
		d, err := NewProxyDialer("")
		require.NoError(t, err)
		assert.NotNil(t, d)
	})

	t.Run("socks alias", func(t *testing.T) {
		_, err := NewProxyDialer("socks://127.0.0.1:1080")
		require.NoError(t, err)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := NewProxyDialer("ftp://proxy:21")
		require.Error(t, err)
	})

	t.Run("unparseable", func(t *testing.T) {
		_, err := NewProxyDialer("://proxy")
		require.ErrorContains(t, err, "parse proxy")
	})
}

func TestIsLoopback(t *testing.T) {
	tests := map[string]bool{
		"localhost:8080":   true,
		"127.0.0.1:80":     true,
		"[::1]:443":        true,
		"127.0.0.1":        true,
		"example.com:80":   false,
		"10.0.0.1:80":      false,
		"synth.local:9000": false,
	}

	for addr, want := range tests {
		t.Run(addr, func(t *testing.T) {
			assert.Equal(t, want, isLoopback(addr))
		})
	}
}

// synthServer answers every problem with handle. Problems whose handle
// returns nil hang until the client gives up.
func synthServer(t *testing.T, handle func(m.SynthProblem) *m.SynthResult) (*httptest.Server, chan m.SynthProblem) {
	t.Helper()

	received := make(chan m.SynthProblem, 10)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synthesize" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}

		var problem m.SynthProblem
		if err := json.NewDecoder(r.Body).Decode(&problem); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		received <- problem

		res := handle(problem)
		if res == nil {
			<-r.Context().Done()
			return
		}

		_ = json.NewEncoder(w).Encode(res)
	}))
	t.Cleanup(srv.Close)

	return srv, received
}

func newTestHTTPSynthesizer(t *testing.T, base string) *HTTPSynthesizer {
	t.Helper()

	// loopback targets bypass the proxy, so an unreachable one is harmless
	dialer, err := NewProxyDialer("socks5://127.0.0.1:1")
	require.NoError(t, err)

	return NewHTTPSynthesizer(base+"/", dialer, DiscardLogger())
}

func TestHTTPSynthesizer_Synthesize(t *testing.T) {
	t.Run("posts the problem with a fresh id", func(t *testing.T) {
		srv, received := synthServer(t, func(p m.SynthProblem) *m.SynthResult {
			return &m.SynthResult{ID: p.ID, Success: true, Result: "x + 4"}
		})
		s := newTestHTTPSynthesizer(t, srv.URL)

		for want := range 2 {
			res, err := s.Synthesize(context.Background(), m.SynthProblem{VarNames: []string{"y"}})
			require.NoError(t, err)
			assert.Equal(t, &m.SynthResult{ID: want, Success: true, Result: "x + 4"}, res)

			problem := <-received
			assert.Equal(t, want, problem.ID)
			assert.Equal(t, []string{"y"}, problem.VarNames)
		}

		assert.True(t, s.Connected())
	})

	t.Run("error status is an unsuccessful result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		res, err := newTestHTTPSynthesizer(t, srv.URL).Synthesize(context.Background(), m.SynthProblem{})
		require.NoError(t, err)
		assert.Equal(t, &m.SynthResult{ID: 0, Success: false}, res)
	})

	t.Run("transport failure is an unsuccessful result", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		res, err := newTestHTTPSynthesizer(t, base).Synthesize(context.Background(), m.SynthProblem{})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Result)
	})

	t.Run("undecodable answer", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := newTestHTTPSynthesizer(t, srv.URL).Synthesize(context.Background(), m.SynthProblem{})
		require.ErrorContains(t, err, "decode synthesizer result")
	})

	t.Run("a newer problem supersedes the pending one", func(t *testing.T) {
		srv, received := synthServer(t, func(p m.SynthProblem) *m.SynthResult {
			if p.ID == 0 {
				return nil
			}

			return &m.SynthResult{ID: p.ID, Success: true, Result: "1"}
		})
		s := newTestHTTPSynthesizer(t, srv.URL)

		first := make(chan *m.SynthResult, 1)

		go func() {
			res, _ := s.Synthesize(context.Background(), m.SynthProblem{})
			first <- res
		}()

		<-received

		res, err := s.Synthesize(context.Background(), m.SynthProblem{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.ID)

		select {
		case res := <-first:
			assert.Nil(t, res)
		case <-time.After(5 * time.Second):
			t.Fatal("superseded request did not return")
		}
	})

	t.Run("stop abandons the pending problem", func(t *testing.T) {
		srv, received := synthServer(t, func(m.SynthProblem) *m.SynthResult { return nil })
		s := newTestHTTPSynthesizer(t, srv.URL)

		done := make(chan *m.SynthResult, 1)

		go func() {
			res, _ := s.Synthesize(context.Background(), m.SynthProblem{})
			done <- res
		}()

		<-received
		assert.True(t, s.Stop())

		select {
		case res := <-done:
			assert.Nil(t, res)
		case <-time.After(5 * time.Second):
			t.Fatal("stopped request did not return")
		}

		assert.True(t, s.Stop())
	})
}
