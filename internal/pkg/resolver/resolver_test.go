package resolver

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vodeneev/sportsfeed/internal/pkg/relay"
)

const sportsBody = `{"sports":[{"slug":"football","name":"Football"}]}`

// countingServer answers every request with status and body and counts hits.
type countingServer struct {
	*httptest.Server
	hits    atomic.Int32
	lastReq atomic.Pointer[http.Request]
}

func newServer(t *testing.T, status int, body string) *countingServer {
	t.Helper()
	s := &countingServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.lastReq.Store(r)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

// brokenServer is closed before use, so every request fails at the transport.
func brokenServer(t *testing.T) string {
	t.Helper()
	s := httptest.NewServer(http.NotFoundHandler())
	u := s.URL
	s.Close()
	return u
}

func relayTo(name string, s *countingServer) relay.Relay {
	return relay.Relay{Name: name, Rewrite: relay.Prefix(s.URL+"/fetch?url=", true)}
}

func TestResolve_DirectSuccess_NoRelays(t *testing.T) {
	upstream := newServer(t, http.StatusOK, sportsBody)
	r1 := newServer(t, http.StatusOK, `{"relay":1}`)

	res := New(relay.NewChain(relayTo("r1", r1)))
	out, err := res.Resolve(context.Background(), upstream.URL+"/sports")
	require.NoError(t, err)

	assert.Equal(t, KindJSON, out.Kind)
	assert.Equal(t, StageDirect, out.Stage)
	assert.JSONEq(t, sportsBody, out.Text())
	assert.EqualValues(t, 1, upstream.hits.Load())
	assert.EqualValues(t, 0, r1.hits.Load())

	var decoded struct {
		Sports []struct {
			Slug string `json:"slug"`
			Name string `json:"name"`
		} `json:"sports"`
	}
	require.NoError(t, out.Decode(&decoded))
	require.Len(t, decoded.Sports, 1)
	assert.Equal(t, "football", decoded.Sports[0].Slug)
	assert.Equal(t, "Football", decoded.Sports[0].Name)
}

func TestResolve_FirstRelayWins(t *testing.T) {
	direct := brokenServer(t)
	r1 := newServer(t, http.StatusOK, `{"from":"r1"}`)
	r2 := newServer(t, http.StatusOK, `{"from":"r2"}`)

	res := New(relay.NewChain(relayTo("r1", r1), relayTo("r2", r2)))
	out, err := res.Resolve(context.Background(), direct+"/sports")
	require.NoError(t, err)

	assert.Equal(t, "r1", out.Stage)
	assert.JSONEq(t, `{"from":"r1"}`, out.Text())
	assert.EqualValues(t, 1, r1.hits.Load())
	assert.EqualValues(t, 0, r2.hits.Load())

	req := r1.lastReq.Load()
	require.NotNil(t, req)
	assert.Equal(t, direct+"/sports", req.URL.Query().Get("url"))
}

func TestResolve_RelayPlainTextReturnedVerbatim(t *testing.T) {
	direct := brokenServer(t)
	r1 := newServer(t, http.StatusOK, "not json")
	r2 := newServer(t, http.StatusOK, `{"from":"r2"}`)

	res := New(relay.NewChain(relayTo("r1", r1), relayTo("r2", r2)))
	out, err := res.Resolve(context.Background(), direct)
	require.NoError(t, err)

	assert.Equal(t, KindText, out.Kind)
	assert.Equal(t, "not json", out.Text())
	v, err := out.Value()
	require.NoError(t, err)
	assert.Equal(t, "not json", v)
	assert.ErrorIs(t, out.Decode(&struct{}{}), ErrNotJSON)
	assert.EqualValues(t, 0, r2.hits.Load())
}

func TestResolve_RelayQuotedStringIsJSON(t *testing.T) {
	direct := brokenServer(t)
	r1 := newServer(t, http.StatusOK, `"not json"`)

	out, err := New(relay.NewChain(relayTo("r1", r1))).Resolve(context.Background(), direct)
	require.NoError(t, err)

	v, err := out.Value()
	require.NoError(t, err)
	assert.Equal(t, "not json", v)
}

func TestResolve_AllFail(t *testing.T) {
	direct := newServer(t, http.StatusForbidden, "cors")
	r1 := newServer(t, http.StatusInternalServerError, "")
	r2 := brokenServer(t)
	r3 := newServer(t, http.StatusTooManyRequests, "slow down")

	chain := relay.NewChain(
		relayTo("r1", r1),
		relay.Relay{Name: "r2", Rewrite: relay.Prefix(r2+"/?", true)},
		relayTo("r3", r3),
	)
	out, err := New(chain).Resolve(context.Background(), direct.URL)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, "fetch_failed", err.Error())
	assert.EqualValues(t, 1, direct.hits.Load())
	assert.EqualValues(t, 1, r1.hits.Load())
	assert.EqualValues(t, 1, r3.hits.Load())
}

func TestResolve_OrderingLaw(t *testing.T) {
	direct := newServer(t, http.StatusBadGateway, "")
	r1 := newServer(t, http.StatusServiceUnavailable, "")
	r2 := newServer(t, http.StatusOK, `[1,2,3]`)
	r3 := newServer(t, http.StatusOK, `[4]`)

	var order []string
	var mu sync.Mutex
	obs := observerFunc(func(stage, result string) {
		mu.Lock()
		order = append(order, stage+":"+result)
		mu.Unlock()
	})

	chain := relay.NewChain(relayTo("r1", r1), relayTo("r2", r2), relayTo("r3", r3))
	out, err := New(chain, WithObserver(obs)).Resolve(context.Background(), direct.URL)
	require.NoError(t, err)

	assert.Equal(t, "r2", out.Stage)
	assert.JSONEq(t, `[1,2,3]`, out.Text())
	assert.EqualValues(t, 0, r3.hits.Load())
	assert.Equal(t, []string{
		"direct:" + ResultStatus,
		"r1:" + ResultStatus,
		"r2:" + ResultOK,
	}, order)
}

func TestResolve_DirectUnparseableBodyFallsThrough(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html", "<html>blocked</html>"},
		{"scalar json", `"just a string"`},
		{"truncated", `{"sports":[`},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			direct := newServer(t, http.StatusOK, tt.body)
			r1 := newServer(t, http.StatusOK, sportsBody)

			out, err := New(relay.NewChain(relayTo("r1", r1))).Resolve(context.Background(), direct.URL)
			require.NoError(t, err)
			assert.Equal(t, "r1", out.Stage)
			assert.EqualValues(t, 1, r1.hits.Load())
		})
	}
}

func TestResolve_IndependentCalls(t *testing.T) {
	upstream := newServer(t, http.StatusOK, sportsBody)
	res := New(relay.Default())

	first, err := res.Resolve(context.Background(), upstream.URL)
	require.NoError(t, err)
	second, err := res.Resolve(context.Background(), upstream.URL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 2, upstream.hits.Load(), "no caching between calls")
}

func TestResolve_ConcurrentCalls(t *testing.T) {
	upstream := newServer(t, http.StatusOK, sportsBody)
	res := New(relay.NewChain())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := res.Resolve(context.Background(), upstream.URL)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 8, upstream.hits.Load())
}

func TestResolve_CacheBypassHeaders(t *testing.T) {
	direct := newServer(t, http.StatusNotFound, "")
	r1 := newServer(t, http.StatusOK, "{}")

	res := New(relay.NewChain(relayTo("r1", r1)),
		WithUserAgent("sportsfeed-test"),
		WithHeaders(map[string]string{"X-Client": "cli"}),
	)
	_, err := res.Resolve(context.Background(), direct.URL)
	require.NoError(t, err)

	for _, s := range []*countingServer{direct, r1} {
		req := s.lastReq.Load()
		require.NotNil(t, req)
		assert.Contains(t, req.Header.Get("Cache-Control"), "no-store")
		assert.Equal(t, "no-cache", req.Header.Get("Pragma"))
		assert.Equal(t, "sportsfeed-test", req.Header.Get("User-Agent"))
		assert.Equal(t, "cli", req.Header.Get("X-Client"))
	}
}

func TestResolve_AttemptTimeoutAdvancesChain(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)
	t.Cleanup(func() { close(release) })

	r1 := newServer(t, http.StatusOK, sportsBody)

	res := New(relay.NewChain(relayTo("r1", r1)), WithAttemptTimeout(50*time.Millisecond))
	start := time.Now()
	out, err := res.Resolve(context.Background(), slow.URL)
	require.NoError(t, err)
	assert.Equal(t, "r1", out.Stage)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestResolve_GzipBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(sportsBody))
		_ = gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(upstream.Close)

	res := New(relay.NewChain(), WithHeaders(map[string]string{"Accept-Encoding": "gzip"}))
	out, err := res.Resolve(context.Background(), upstream.URL)
	require.NoError(t, err)
	assert.JSONEq(t, sportsBody, out.Text())
}

func TestResolve_InvalidTarget(t *testing.T) {
	for _, target := range []string{"", "not a url", "/relative/path", "ftp://example.com/x"} {
		out, err := New(relay.Default()).Resolve(context.Background(), target)
		assert.Nil(t, out, target)
		assert.ErrorIs(t, err, ErrFetchFailed, target)
	}
}

func TestResolve_CancelledContextStopsChain(t *testing.T) {
	r1 := newServer(t, http.StatusOK, sportsBody)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(relay.NewChain(relayTo("r1", r1))).Resolve(ctx, brokenServer(t))
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.EqualValues(t, 0, r1.hits.Load())
}

type fakeBrowser struct {
	text  string
	err   error
	calls int
}

func (f *fakeBrowser) FetchText(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestResolve_BrowserIsLastResort(t *testing.T) {
	direct := brokenServer(t)
	r1 := newServer(t, http.StatusForbidden, "")
	b := &fakeBrowser{text: sportsBody}

	out, err := New(relay.NewChain(relayTo("r1", r1)), WithBrowser(b)).Resolve(context.Background(), direct)
	require.NoError(t, err)
	assert.Equal(t, StageBrowser, out.Stage)
	assert.Equal(t, KindJSON, out.Kind)
	assert.Equal(t, 1, b.calls)
	assert.EqualValues(t, 1, r1.hits.Load())
}

func TestResolve_BrowserNotUsedWhenRelaySucceeds(t *testing.T) {
	r1 := newServer(t, http.StatusOK, sportsBody)
	b := &fakeBrowser{text: "x"}

	_, err := New(relay.NewChain(relayTo("r1", r1)), WithBrowser(b)).Resolve(context.Background(), brokenServer(t))
	require.NoError(t, err)
	assert.Equal(t, 0, b.calls)
}

func TestResolve_BrowserFailureExhausts(t *testing.T) {
	b := &fakeBrowser{err: errors.New("no chrome")}
	_, err := New(relay.NewChain(), WithBrowser(b)).Resolve(context.Background(), brokenServer(t))
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, 1, b.calls)
}

func TestScenario_SportsIndex(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "https://api.example.com/sports" {
			return nil, errors.New("unexpected url " + req.URL.String())
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       httpBody(sportsBody),
			Request:    req,
		}, nil
	})}

	out, err := New(relay.Default(), WithHTTPClient(client)).Resolve(context.Background(), "https://api.example.com/sports")
	require.NoError(t, err)
	v, err := out.Value()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"sports": []any{map[string]any{"slug": "football", "name": "Football"}},
	}, v)
}

func TestScenario_AllThreeRelaysFail(t *testing.T) {
	var urls []string
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		urls = append(urls, req.URL.String())
		if req.URL.Host == "api.example.com" {
			return nil, errors.New("network error")
		}
		if req.URL.Host == "thingproxy.freeboard.io" {
			return nil, errors.New("connection reset")
		}
		return &http.Response{StatusCode: http.StatusBadGateway, Body: httpBody(""), Request: req}, nil
	})}

	_, err := New(relay.Default(), WithHTTPClient(client)).Resolve(context.Background(), "https://api.example.com/sports")
	assert.ErrorIs(t, err, ErrFetchFailed)
	require.Len(t, urls, 4)
	assert.Equal(t, "https://api.example.com/sports", urls[0])
	assert.Equal(t, "https://corsproxy.io/?"+url.QueryEscape("https://api.example.com/sports"), urls[1])
	assert.Equal(t, "https://thingproxy.freeboard.io/fetch/https://api.example.com/sports", urls[3])
}

type observerFunc func(stage, result string)

func (f observerFunc) ObserveAttempt(stage, result string, _ time.Duration) { f(stage, result) }
func (f observerFunc) ObserveResolve(string)                                {}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func httpBody(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

func TestProbe(t *testing.T) {
	upstream := newServer(t, http.StatusOK, sportsBody)
	good := newServer(t, http.StatusOK, "plain")
	bad := newServer(t, http.StatusForbidden, "")
	res := New(relay.NewChain(relayTo("good", good), relayTo("bad", bad)))

	out, err := res.Probe(context.Background(), StageDirect, upstream.URL)
	require.NoError(t, err)
	assert.True(t, out.IsJSON())

	out, err = res.Probe(context.Background(), "good", upstream.URL)
	require.NoError(t, err)
	assert.Equal(t, "plain", out.Text())
	assert.Equal(t, int32(1), good.hits.Load())

	_, err = res.Probe(context.Background(), "bad", upstream.URL)
	assert.ErrorContains(t, err, "unexpected status 403")

	_, err = res.Probe(context.Background(), "missing", upstream.URL)
	assert.ErrorContains(t, err, `unknown stage "missing"`)

	_, err = res.Probe(context.Background(), StageDirect, "ftp://x")
	assert.Error(t, err)
	assert.Equal(t, int32(1), upstream.hits.Load())
}

// fillReader yields an endless run of one byte.
type fillReader byte

func (f fillReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(f)
	}
	return len(p), nil
}

func TestResolve_OversizedRelayBodyAdvancesChain(t *testing.T) {
	var stages []string
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Host {
		case "big.relay":
			body := io.MultiReader(strings.NewReader(`{"pad":"`), io.LimitReader(fillReader('x'), maxBodyBytes), strings.NewReader(`"}`))
			return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: io.NopCloser(body)}, nil
		case "small.relay":
			return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: httpBody(`{"from":"small"}`)}, nil
		default:
			return nil, errors.New("connection refused")
		}
	})}
	chain := relay.NewChain(
		relay.Relay{Name: "big", Rewrite: relay.Prefix("https://big.relay/?url=", true)},
		relay.Relay{Name: "small", Rewrite: relay.Prefix("https://small.relay/?url=", true)},
	)
	obs := observerFunc(func(stage, result string) { stages = append(stages, stage+":"+result) })

	out, err := New(chain, WithHTTPClient(client), WithObserver(obs)).Resolve(context.Background(), "https://api.example.com/sports")
	require.NoError(t, err)
	assert.Equal(t, "small", out.Stage)
	assert.JSONEq(t, `{"from":"small"}`, out.Text())
	assert.Equal(t, []string{"direct:" + ResultTransport, "big:" + ResultTransport, "small:" + ResultOK}, stages)

	_, err = New(relay.NewChain(chain.Relays()[0]), WithHTTPClient(client)).Resolve(context.Background(), "https://api.example.com/sports")
	assert.ErrorIs(t, err, ErrFetchFailed)
}
