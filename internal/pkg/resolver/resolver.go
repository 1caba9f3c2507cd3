// Package resolver fetches a resource from the sports API, falling back
// through an ordered relay chain when the direct request does not work.
package resolver

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/sportsfeed/internal/pkg/relay"
)

// ErrFetchFailed is the only error Resolve returns: the direct attempt and
// every relay attempt failed.
var ErrFetchFailed = errors.New("fetch_failed")

const (
	StageDirect  = "direct"
	StageBrowser = "browser"

	DefaultAttemptTimeout = 10 * time.Second

	// maxBodyBytes caps a single response body; a larger body fails the attempt.
	maxBodyBytes = 32 << 20
)

// Attempt results reported to the Observer.
const (
	ResultOK        = "ok"
	ResultTransport = "transport_error"
	ResultStatus    = "bad_status"
	ResultDecode    = "decode_error"
)

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BrowserFetcher renders a URL in a real browser and returns the page text.
type BrowserFetcher interface {
	FetchText(ctx context.Context, target string) (string, error)
}

// Observer receives per-attempt and per-call results.
type Observer interface {
	ObserveAttempt(stage, result string, elapsed time.Duration)
	ObserveResolve(result string)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(string, string, time.Duration) {}
func (nopObserver) ObserveResolve(string)                        {}

type Resolver struct {
	client    Doer
	chain     relay.Chain
	timeout   time.Duration
	userAgent string
	headers   map[string]string
	browser   BrowserFetcher
	observer  Observer
}

type Option func(*Resolver)

func WithHTTPClient(d Doer) Option {
	return func(r *Resolver) { r.client = d }
}

// WithAttemptTimeout bounds every single attempt; zero or negative keeps the default.
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(r *Resolver) { r.userAgent = ua }
}

func WithHeaders(h map[string]string) Option {
	return func(r *Resolver) {
		r.headers = make(map[string]string, len(h))
		for k, v := range h {
			r.headers[k] = v
		}
	}
}

// WithBrowser appends a headless-browser attempt after the last relay.
func WithBrowser(b BrowserFetcher) Option {
	return func(r *Resolver) { r.browser = b }
}

func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// New builds a resolver over chain. The resolver is immutable and safe for
// concurrent use.
func New(chain relay.Chain, opts ...Option) *Resolver {
	r := &Resolver{
		client:   &http.Client{},
		chain:    chain,
		timeout:  DefaultAttemptTimeout,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Chain returns the relay chain the resolver walks.
func (r *Resolver) Chain() relay.Chain { return r.chain }

// Resolve returns the body of the first attempt that works: direct first,
// then each relay in order, then the browser if configured. Attempts run
// strictly one after another and stop at the first success.
func (r *Resolver) Resolve(ctx context.Context, target string) (*Outcome, error) {
	log := slog.With("call_id", uuid.NewString(), "target", target)

	if !validTarget(target) {
		log.Warn("Rejected fetch target")
		r.observer.ObserveResolve("invalid_target")
		return nil, ErrFetchFailed
	}

	if out, ok := r.try(ctx, log, StageDirect, target, true); ok {
		return out, nil
	}

	for _, rl := range r.chain.Relays() {
		if ctx.Err() != nil {
			break
		}
		if out, ok := r.try(ctx, log, rl.Name, rl.Rewrite(target), false); ok {
			return out, nil
		}
	}

	if r.browser != nil && ctx.Err() == nil {
		if out, ok := r.tryBrowser(ctx, log, target); ok {
			return out, nil
		}
	}

	log.Warn("All fetch attempts failed", "relays", r.chain.Len(), "ctx_err", ctx.Err())
	r.observer.ObserveResolve("exhausted")
	return nil, ErrFetchFailed
}

// Probe runs one attempt without fallback. Stage "direct" fetches target
// itself with the strict JSON rule; a relay name fetches it through that
// relay of the chain. Probe does not report to the Observer.
func (r *Resolver) Probe(ctx context.Context, stage, target string) (*Outcome, error) {
	if !validTarget(target) {
		return nil, fmt.Errorf("invalid target %q", target)
	}
	if stage == StageDirect {
		out, _, err := r.attempt(ctx, stage, target, true)
		return out, err
	}
	for _, rl := range r.chain.Relays() {
		if rl.Name == stage {
			out, _, err := r.attempt(ctx, stage, rl.Rewrite(target), false)
			return out, err
		}
	}
	return nil, fmt.Errorf("unknown stage %q", stage)
}

func (r *Resolver) try(ctx context.Context, log *slog.Logger, stage, u string, strict bool) (*Outcome, bool) {
	start := time.Now()
	out, result, err := r.attempt(ctx, stage, u, strict)
	elapsed := time.Since(start)
	r.observer.ObserveAttempt(stage, result, elapsed)

	if err != nil {
		log.Debug("Fetch attempt failed, trying next", "stage", stage, "url", u, "result", result, "error", err, "elapsed", elapsed)
		return nil, false
	}
	log.Debug("Fetch attempt succeeded", "stage", stage, "kind", out.Kind.String(), "bytes", len(out.Body), "elapsed", elapsed)
	r.observer.ObserveResolve(ResultOK)
	return out, true
}

func (r *Resolver) attempt(ctx context.Context, stage, u string, strict bool) (*Outcome, string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, ResultTransport, fmt.Errorf("create request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, ResultTransport, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, ResultStatus, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := readBodyMaybeGzip(resp)
	if err != nil {
		return nil, ResultTransport, err
	}

	if strict {
		if !isStructured(body) {
			return nil, ResultDecode, fmt.Errorf("body is not a JSON object or array (%d bytes)", len(body))
		}
		return &Outcome{Kind: KindJSON, Stage: stage, Body: body}, ResultOK, nil
	}
	return interpret(stage, body), ResultOK, nil
}

func (r *Resolver) tryBrowser(ctx context.Context, log *slog.Logger, target string) (*Outcome, bool) {
	start := time.Now()
	text, err := r.browser.FetchText(ctx, target)
	elapsed := time.Since(start)
	if err != nil {
		r.observer.ObserveAttempt(StageBrowser, ResultTransport, elapsed)
		log.Debug("Browser attempt failed", "error", err, "elapsed", elapsed)
		return nil, false
	}
	r.observer.ObserveAttempt(StageBrowser, ResultOK, elapsed)
	r.observer.ObserveResolve(ResultOK)
	log.Debug("Browser attempt succeeded", "bytes", len(text), "elapsed", elapsed)
	return interpret(StageBrowser, []byte(text)), true
}

// setHeaders marks every attempt as uncacheable so neither local nor relay
// caches can answer with a stale body.
func (r *Resolver) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Cache-Control", "no-cache, no-store, max-age=0")
	req.Header.Set("Pragma", "no-cache")
}

func validTarget(target string) bool {
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func readBodyMaybeGzip(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	b, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	return b, nil
}
