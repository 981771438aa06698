package httpclient

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// recordingExecutor answers every request with a canned response and keeps
// what it was asked to send.
type recordingExecutor struct {
	mu       sync.Mutex
	requests []*Request
	respond  func(*Request) (*Response, error)
}

func (e *recordingExecutor) Execute(req *Request) (*Response, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()
	if e.respond != nil {
		return e.respond(req)
	}
	return NewResponse(200, Header{}, req.URL, []byte("ok")), nil
}

func (e *recordingExecutor) last(t *testing.T) *Request {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.requests) == 0 {
		t.Fatal("executor saw no request")
	}
	return e.requests[len(e.requests)-1]
}

// mapJar is a minimal CookieJar keyed by host.
type mapJar struct {
	mu     sync.Mutex
	stored map[string][]string
}

func (j *mapJar) CookieHeader(u *url.URL) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var pairs []string
	for _, line := range j.stored[u.Host] {
		pairs = append(pairs, strings.SplitN(line, ";", 2)[0])
	}
	return strings.Join(pairs, "; ")
}

func (j *mapJar) StoreResponse(u *url.URL, lines []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stored == nil {
		j.stored = map[string][]string{}
	}
	j.stored[u.Host] = append(j.stored[u.Host], lines...)
}

func TestClient_Send_ForwardsRequest(t *testing.T) {
	exec := &recordingExecutor{}
	c := NewClient(exec)

	req, _ := NewRequest("POST", "http://example.test/items")
	req.SetBody([]byte(`{"a":1}`), "application/json")
	resp, err := c.Send(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, _ := resp.Bytes()
	if string(body) != "ok" {
		t.Errorf("unexpected body %q", body)
	}

	got := exec.last(t)
	if got == req {
		t.Error("client must send a copy of the caller's request")
	}
	if got.Method != MethodPost || string(got.Body) != `{"a":1}` || got.Header.Get("Content-Type") != "application/json" {
		t.Errorf("request not forwarded faithfully: %+v", got)
	}
}

func TestClient_CookieRoundTrip(t *testing.T) {
	exec := &recordingExecutor{respond: func(req *Request) (*Response, error) {
		h := NewHeader("Set-Cookie", "a=1; Path=/", "Set-Cookie", "b=2; Path=/")
		return NewResponse(200, h, req.URL, nil), nil
	}}
	jar := &mapJar{}
	c := NewClient(exec, WithCookieJar(jar))

	if _, err := c.Get("https://example.test/login").Send(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := exec.last(t).Header.Get("Cookie"); got != "" {
		t.Errorf("first request should carry no cookie, got %q", got)
	}

	if _, err := c.Get("https://example.test/foo").Send(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := exec.last(t).Header.Get("Cookie"); got != "a=1; b=2" {
		t.Errorf("expected stored cookies, got %q", got)
	}

	if _, err := c.Get("https://other.test/").Send(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := exec.last(t).Header.Get("Cookie"); got != "" {
		t.Errorf("cookies leaked to another host: %q", got)
	}
}

func TestClient_CallerCookieWins(t *testing.T) {
	exec := &recordingExecutor{}
	jar := &mapJar{stored: map[string][]string{"example.test": {"a=1"}}}
	c := NewClient(exec, WithCookieJar(jar))

	if _, err := c.Get("http://example.test/").Header("Cookie", "mine=1").Send(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := exec.last(t).Header.Values("Cookie"); !cmp.Equal(got, []string{"mine=1"}) {
		t.Errorf("caller cookie replaced: %v", got)
	}
}

func TestClient_StoresCookiesFromFinalURL(t *testing.T) {
	final, _ := url.Parse("https://login.example.test/done")
	exec := &recordingExecutor{respond: func(req *Request) (*Response, error) {
		return NewResponse(200, NewHeader("Set-Cookie", "s=1"), final, nil), nil
	}}
	jar := &mapJar{}
	c := NewClient(exec, WithCookieJar(jar))
	if _, err := c.Get("https://example.test/start").Send(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jar.stored["login.example.test"]) != 1 {
		t.Errorf("expected cookie stored under the final host, got %v", jar.stored)
	}
}

func TestClient_DefaultsAuthAndRequestID(t *testing.T) {
	exec := &recordingExecutor{}
	c := NewClient(exec,
		WithBaseURL("http://api.example.test/v1/"),
		WithDefaultHeaders(NewHeader("Accept", "application/json", "User-Agent", "anyhttp-test")),
		WithAuth(BearerAuth("default-token")),
		WithRequestID(),
		WithDefaultTimeout(3*time.Second),
	)

	if _, err := c.Get("users").Header("Accept", "text/plain").Send(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := exec.last(t)
	if got.URL.String() != "http://api.example.test/v1/users" {
		t.Errorf("base url not applied: %v", got.URL)
	}
	if got.Header.Get("Accept") != "text/plain" || got.Header.Get("User-Agent") != "anyhttp-test" {
		t.Errorf("default headers wrong: %v", got.Header.Names())
	}
	if got.Header.Get("Authorization") != "Bearer default-token" {
		t.Errorf("default auth missing: %q", got.Header.Get("Authorization"))
	}
	if _, err := uuid.Parse(got.Header.Get("X-Request-Id")); err != nil {
		t.Errorf("request id is not a uuid: %q", got.Header.Get("X-Request-Id"))
	}
	if got.Timeout != 3*time.Second {
		t.Errorf("default timeout not applied: %v", got.Timeout)
	}

	if _, err := c.Get("me").BasicAuth("u", "p").Header("X-Request-Id", "fixed").Timeout(time.Second).Send(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got = exec.last(t)
	if !strings.HasPrefix(got.Header.Get("Authorization"), "Basic ") {
		t.Errorf("request auth overridden by default: %q", got.Header.Get("Authorization"))
	}
	if got.Header.Get("X-Request-Id") != "fixed" || got.Timeout != time.Second {
		t.Errorf("request values overridden: id=%q timeout=%v", got.Header.Get("X-Request-Id"), got.Timeout)
	}
}

func TestClient_InvalidBaseURL(t *testing.T) {
	c := NewClient(&recordingExecutor{}, WithBaseURL("::not a url"))
	req, _ := NewRequest("GET", "http://example.test/")
	if _, err := c.Send(req); !IsMalformedRequest(err) {
		t.Errorf("expected malformed request error, got %v", err)
	}
}

func TestClient_ErrorsPassThrough(t *testing.T) {
	boom := NewTransportError(errors.New("connection refused"))
	exec := &recordingExecutor{respond: func(*Request) (*Response, error) { return nil, boom }}
	var taps int
	c := NewClient(exec, WithTap(func(*Response) { taps++ }))

	if _, err := c.Get("http://example.test/").Send(); !errors.Is(err, boom) {
		t.Errorf("expected backend error, got %v", err)
	}
	if taps != 0 {
		t.Error("tap must not run on failure")
	}

	nilExec := ExecutorFunc(func(*Request) (*Response, error) { return nil, nil })
	if _, err := NewClient(nilExec).Get("http://example.test/").Send(); !IsProtocol(err) {
		t.Errorf("expected protocol error for empty result, got %v", err)
	}
}

type recordingObserver struct {
	started, finished int
	lastStatus        int
	lastErr           error
}

type observerKey struct{}

func (o *recordingObserver) ExchangeStarted(ctx context.Context, _ *Request) context.Context {
	o.started++
	return context.WithValue(ctx, observerKey{}, "marked")
}

func (o *recordingObserver) ExchangeFinished(ctx context.Context, _ *Request, resp *Response, err error, _ time.Duration) {
	o.finished++
	if ctx.Value(observerKey{}) != "marked" {
		panic("observer context not propagated")
	}
	if resp != nil {
		o.lastStatus = resp.StatusCode
	}
	o.lastErr = err
}

func TestClient_TapsAndObservers(t *testing.T) {
	exec := &recordingExecutor{}
	obs := &recordingObserver{}
	var tapped []int
	c := NewClient(exec, WithObserver(obs), WithTap(func(r *Response) { tapped = append(tapped, r.StatusCode) }))

	if _, err := c.Get("http://example.test/").Send(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.started != 1 || obs.finished != 1 || obs.lastStatus != 200 {
		t.Errorf("unexpected observer state: %+v", obs)
	}
	if !cmp.Equal(tapped, []int{200}) {
		t.Errorf("unexpected taps: %v", tapped)
	}
}

func TestClient_MalformedRequestsNeverReachBackend(t *testing.T) {
	exec := &recordingExecutor{}
	c := NewClient(exec)
	if _, err := c.Request("BREW", "http://example.test/").Send(); !IsMalformedRequest(err) {
		t.Errorf("expected malformed request error, got %v", err)
	}
	if _, err := c.Get("http://example.test/").Header("Bad Name", "x").Send(); !IsMalformedRequest(err) {
		t.Errorf("expected malformed request error, got %v", err)
	}
	if _, err := c.Send(nil); !IsMalformedRequest(err) {
		t.Errorf("expected malformed request error, got %v", err)
	}
	if len(exec.requests) != 0 {
		t.Errorf("backend saw %d requests", len(exec.requests))
	}
}

func TestNewClient_NilExecutorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewClient(nil)
}
