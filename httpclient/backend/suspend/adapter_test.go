package suspend

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/httpclient/backend"
	"github.com/kbukum/anyhttp/httpclient/testserver"
	"github.com/kbukum/anyhttp/provider"
	"github.com/kbukum/anyhttp/resilience"
	"github.com/kbukum/anyhttp/security"
	"github.com/kbukum/anyhttp/security/tlstest"
)

func newAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func mustRequest(t *testing.T, method, url string) *httpclient.Request {
	t.Helper()
	req, err := httpclient.NewRequest(method, url)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func await(t *testing.T, call *httpclient.Call) (*httpclient.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return call.Await(ctx)
}

func TestConformance(t *testing.T) {
	testserver.RunAsyncSuite(t, func(t *testing.T, _ *testserver.Server) httpclient.AsyncExecutor {
		return newAdapter(t, Config{})
	})
}

func TestDefaults(t *testing.T) {
	a := newAdapter(t, Config{})
	if a.Name() != Name || a.cfg.MaxInFlight != 64 || !*a.cfg.FollowRedirects {
		t.Errorf("unexpected defaults: %+v", a.cfg)
	}
	if a.cfg.Retry.MaxAttempts != 2 || a.cfg.Retry.InitialBackoff != 100*time.Millisecond || a.cfg.Retry.Jitter != 0.1 {
		t.Errorf("unexpected retry defaults: %+v", a.cfg.Retry)
	}
	if _, err := New(Config{MaxInFlight: -1}); err == nil {
		t.Error("expected negative max_in_flight to fail validation")
	}
}

// refuseFirstDials makes the first n dials fail with ECONNREFUSED.
func refuseFirstDials(a *Adapter, n int32) *atomic.Int32 {
	var dials atomic.Int32
	dial := a.transport.DialContext
	a.transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if dials.Add(1) <= n {
			return nil, &net.OpError{Op: "dial", Net: network, Err: syscall.ECONNREFUSED}
		}
		return dial(ctx, network, addr)
	}
	return &dials
}

func TestRetrySafeMethodBeforeConnect(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.Route("GET", "/r", testserver.Text("ok"))

	a := newAdapter(t, Config{Retry: resilience.RetryConfig{InitialBackoff: time.Millisecond}})
	dials := refuseFirstDials(a, 1)

	resp, err := await(t, a.Start(context.Background(), mustRequest(t, "GET", srv.URL("/r"))))
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if text, _ := resp.Text(); text != "ok" {
		t.Errorf("body = %q", text)
	}
	if got := dials.Load(); got != 2 {
		t.Errorf("dials = %d, want 2", got)
	}
}

func TestNoRetryForUnsafeMethod(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	a := newAdapter(t, Config{Retry: resilience.RetryConfig{InitialBackoff: time.Millisecond}})
	dials := refuseFirstDials(a, 1)

	_, err := await(t, a.Start(context.Background(), mustRequest(t, "POST", srv.URL("/r"))))
	if !httpclient.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if got := dials.Load(); got != 1 {
		t.Errorf("dials = %d, want 1", got)
	}
}

func TestNoRetryAfterConnect(t *testing.T) {
	var hits atomic.Int32
	hangup := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	})
	raw := httptestServer(t, hangup)

	a := newAdapter(t, Config{Retry: resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}})
	_, err := await(t, a.Start(context.Background(), mustRequest(t, "GET", raw)))
	if !httpclient.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}

func TestMalformedResponseIsProtocolError(t *testing.T) {
	addr := garbageServer(t, "HELLO WORLD\r\n\r\n")
	a := newAdapter(t, Config{})
	_, err := await(t, a.Start(context.Background(), mustRequest(t, "GET", "http://"+addr+"/")))
	if !httpclient.IsProtocol(err) {
		t.Errorf("expected protocol error, got %v", err)
	}
}

func TestConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	a := newAdapter(t, Config{Retry: resilience.RetryConfig{MaxAttempts: 1}})
	_, err = await(t, a.Start(context.Background(), mustRequest(t, "GET", "http://"+addr+"/")))
	if !httpclient.IsTransport(err) || httpclient.IsTimeout(err) || httpclient.IsCanceled(err) {
		t.Errorf("expected plain transport error, got %v", err)
	}
}

func TestSlotHeldUntilBodyClosed(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.Route("GET", "/a", testserver.Text("a"))
	a := newAdapter(t, Config{MaxInFlight: 1})
	ctx := context.Background()

	first, err := await(t, a.Start(ctx, mustRequest(t, "GET", srv.URL("/a"))))
	if err != nil {
		t.Fatal(err)
	}
	if h := a.Health(ctx); h.Status != provider.StatusDegraded || h.Details["in_flight"] != 1 {
		t.Errorf("health while full = %+v", h)
	}

	second := a.Start(ctx, mustRequest(t, "GET", srv.URL("/a")))
	select {
	case <-second.Done():
		t.Fatal("second call resolved while the only slot was held")
	case <-time.After(100 * time.Millisecond):
	}

	_ = first.Close()
	resp, err := await(t, second)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if text, _ := resp.Text(); text != "a" {
		t.Errorf("body = %q", text)
	}
	if h := a.Health(ctx); h.Status != provider.StatusHealthy {
		t.Errorf("health after release = %+v", h)
	}
}

func TestSlotWaitTimesOut(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	a := newAdapter(t, Config{MaxInFlight: 1, SlotWait: 20 * time.Millisecond})
	ctx := context.Background()

	first, err := await(t, a.Start(ctx, mustRequest(t, "GET", srv.URL("/"))))
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	_, err = await(t, a.Start(ctx, mustRequest(t, "GET", srv.URL("/"))))
	if !httpclient.IsTransport(err) {
		t.Errorf("expected transport error when no slot frees up, got %v", err)
	}
}

func TestRedirects(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.Route("GET", "/old", testserver.Status(302).WithHeader("Location", "/new"))
	srv.Route("GET", "/new", testserver.Text("moved"))

	resp, err := await(t, newAdapter(t, Config{}).Start(context.Background(), mustRequest(t, "GET", srv.URL("/old"))))
	if err != nil {
		t.Fatal(err)
	}
	if text, _ := resp.Text(); text != "moved" || resp.URL.Path != "/new" {
		t.Errorf("followed redirect: body %q url %s", text, resp.URL)
	}

	follow := false
	resp, err = await(t, newAdapter(t, Config{FollowRedirects: &follow}).Start(context.Background(), mustRequest(t, "GET", srv.URL("/old"))))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Close()
	if resp.StatusCode != 302 || resp.Header.Get("Location") != "/new" {
		t.Errorf("unfollowed redirect: %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestTLS(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := testserver.New(testserver.WithTLS(&tls.Config{Certificates: []tls.Certificate{certs.Leaf}}))
	defer srv.Close()
	srv.Route("GET", "/secure", testserver.Text("tls ok"))

	trusted := newAdapter(t, Config{TLS: &security.TLSConfig{CAFile: certs.CAFile}})
	resp, err := await(t, trusted.Start(context.Background(), mustRequest(t, "GET", srv.URL("/secure"))))
	if err != nil {
		t.Fatalf("trusted CA: %v", err)
	}
	if text, _ := resp.Text(); text != "tls ok" {
		t.Errorf("body = %q", text)
	}
	if rec := srv.Last(); rec.URL.Scheme != "https" {
		t.Errorf("server recorded scheme %q", rec.URL.Scheme)
	}

	untrusted := newAdapter(t, Config{Retry: resilience.RetryConfig{MaxAttempts: 1}})
	if _, err := await(t, untrusted.Start(context.Background(), mustRequest(t, "GET", srv.URL("/secure")))); !httpclient.IsTransport(err) {
		t.Errorf("expected transport error for unknown CA, got %v", err)
	}
}

func TestRegisteredAndClose(t *testing.T) {
	b, err := backend.OpenAsync(Name, map[string]any{"max_in_flight": 4, "timeout": "5s"})
	if err != nil {
		t.Fatalf("OpenAsync: %v", err)
	}
	a := b.(*Adapter)
	if a.cfg.MaxInFlight != 4 || a.cfg.Timeout != 5*time.Second {
		t.Errorf("options not applied: %+v", a.cfg)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if b.IsAvailable(context.Background()) {
		t.Error("expected closed adapter to be unavailable")
	}
	_, err = await(t, b.Start(context.Background(), mustRequest(t, "GET", "http://127.0.0.1:1/")))
	if !httpclient.IsTransport(err) {
		t.Errorf("expected transport error after Close, got %v", err)
	}
}

func TestInvalidRequest(t *testing.T) {
	a := newAdapter(t, Config{})
	_, err := await(t, a.Start(context.Background(), &httpclient.Request{Method: "BREW"}))
	if !httpclient.IsMalformedRequest(err) {
		t.Errorf("expected malformed request error, got %v", err)
	}
}

func httptestServer(t *testing.T, h http.Handler) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &http.Server{Handler: h, ReadHeaderTimeout: time.Second}
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(func() { _ = s.Close() })
	return "http://" + ln.Addr().String() + "/"
}

// garbageServer answers every connection with reply after reading the
// request headers.
func garbageServer(t *testing.T, reply string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				r := bufio.NewReader(conn)
				for {
					line, err := r.ReadString('\n')
					if err != nil || line == "\r\n" {
						break
					}
				}
				_, _ = conn.Write([]byte(reply))
			}()
		}
	}()
	return ln.Addr().String()
}
