package testserver

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/httpclient/codec"
	"github.com/kbukum/anyhttp/httpclient/cookiejar"
)

// suiteTimeout bounds every exchange made by the conformance suites.
const suiteTimeout = 10 * time.Second

// harness sends requests through one client flavour against a fresh server.
type harness struct {
	srv  *Server
	jar  *cookiejar.Jar
	req  func(method, url string) *httpclient.RequestBuilder
	send func(b *httpclient.RequestBuilder) (*httpclient.Response, error)
}

func (h *harness) do(t *testing.T, b *httpclient.RequestBuilder) *httpclient.Response {
	t.Helper()
	resp, err := h.send(b)
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	return resp
}

func (h *harness) bytes(t *testing.T, resp *httpclient.Response) []byte {
	t.Helper()
	data, err := resp.Bytes()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return data
}

type suiteCase struct {
	name string
	run  func(t *testing.T, h *harness)
}

var commonCases = []suiteCase{
	{"ping", func(t *testing.T, h *harness) {
		h.srv.Route("GET", "/ping", Text("pong"))
		resp := h.do(t, h.req("GET", h.srv.URL("/ping")))
		if resp.StatusCode != 200 {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		text, err := resp.Text()
		if err != nil || text != "pong" {
			t.Errorf("Text() = %q, %v; want pong", text, err)
		}
		h.srv.Expect(t, "GET", "/ping")
	}},
	{"echo_url", func(t *testing.T, h *harness) {
		target := h.srv.URL("/echo?x=1&y=two")
		resp := h.do(t, h.req("GET", target))
		if err := resp.ErrorForStatus(); err != nil {
			t.Fatalf("ErrorForStatus: %v", err)
		}
		if resp.URL == nil || resp.URL.String() != target {
			t.Errorf("response URL = %v, want %s", resp.URL, target)
		}
		got, err := codec.DecodeAs[map[string]string](resp, codec.JSON)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got["url"] != "/echo?x=1&y=two" {
			t.Errorf("echoed url = %q", got["url"])
		}
	}},
	{"multiple_set_cookie", func(t *testing.T, h *harness) {
		h.srv.Route("GET", "/cookies", Text("ok").
			WithHeader("Set-Cookie", "a=1; Path=/").
			WithHeader("Set-Cookie", "b=2; Path=/"))
		resp := h.do(t, h.req("GET", h.srv.URL("/cookies")))
		h.bytes(t, resp)
		got := resp.Header.Values(httpclient.HeaderSetCookie)
		if len(got) != 2 || got[0] != "a=1; Path=/" || got[1] != "b=2; Path=/" {
			t.Errorf("Set-Cookie values = %q", got)
		}
		if h.jar.Len() != 2 {
			t.Errorf("jar stored %d cookies, want 2", h.jar.Len())
		}
	}},
	{"get_head_idempotent", func(t *testing.T, h *harness) {
		h.srv.Route("GET", "/resource", Text("same bytes every time").WithHeader("X-Version", "7"))
		first := h.bytes(t, h.do(t, h.req("GET", h.srv.URL("/resource"))))
		second := h.bytes(t, h.do(t, h.req("GET", h.srv.URL("/resource"))))
		if !bytes.Equal(first, second) {
			t.Errorf("GET bodies differ: %q vs %q", first, second)
		}
		head := h.do(t, h.req("HEAD", h.srv.URL("/resource")))
		if head.StatusCode != 200 || head.Header.Get("X-Version") != "7" {
			t.Errorf("HEAD status=%d X-Version=%q", head.StatusCode, head.Header.Get("X-Version"))
		}
		if body := h.bytes(t, head); len(body) != 0 {
			t.Errorf("HEAD body = %q, want empty", body)
		}
	}},
	{"post_round_trip", func(t *testing.T, h *harness) {
		type payload struct {
			Name  string   `json:"name"`
			Count int      `json:"count"`
			Tags  []string `json:"tags"`
		}
		h.srv.Route("POST", "/items", Scripted{Status: 201, EchoBody: true})
		in := payload{Name: "widget", Count: 3, Tags: []string{"a", "b"}}
		resp := h.do(t, h.req("POST", h.srv.URL("/items")).Encode(codec.JSON, in))
		if resp.StatusCode != 201 {
			t.Errorf("status = %d, want 201", resp.StatusCode)
		}
		out, err := codec.DecodeAs[payload](resp, codec.Strict(codec.JSON))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Name != in.Name || out.Count != in.Count || len(out.Tags) != 2 {
			t.Errorf("round trip = %+v, want %+v", out, in)
		}
		rec := h.srv.Expect(t, "POST", "/items")
		if !codec.SameMediaType(rec.Header.Get(httpclient.HeaderContentType), codec.MediaJSON) {
			t.Errorf("server saw Content-Type %q", rec.Header.Get(httpclient.HeaderContentType))
		}
	}},
	{"cookie_flow", func(t *testing.T, h *harness) {
		h.srv.Route("POST", "/login", Status(204).WithHeader("Set-Cookie", "session=xyz; Path=/; HttpOnly"))
		h.srv.Route("GET", "/profile", Text("me"))
		h.bytes(t, h.do(t, h.req("POST", h.srv.URL("/login"))))
		h.bytes(t, h.do(t, h.req("GET", h.srv.URL("/profile"))))

		h.srv.Expect(t, "POST", "/login")
		rec := h.srv.Expect(t, "GET", "/profile")
		if got := rec.Header.Get(httpclient.HeaderCookie); got != "session=xyz" {
			t.Errorf("Cookie sent = %q, want session=xyz", got)
		}
	}},
	{"codec_error", func(t *testing.T, h *harness) {
		h.srv.Route("GET", "/ping", Text("pong"))
		resp := h.do(t, h.req("GET", h.srv.URL("/ping")))
		var v map[string]any
		err := codec.Decode(resp, codec.JSON, &v)
		if !httpclient.IsCodec(err) {
			t.Errorf("expected codec error, got %v", err)
		}
	}},
	{"status_error", func(t *testing.T, h *harness) {
		h.srv.Route("GET", "/missing", Scripted{Status: 404, Body: "nope"})
		resp := h.do(t, h.req("GET", h.srv.URL("/missing")))
		err := resp.ErrorForStatus()
		if !httpclient.IsStatus(err) || httpclient.StatusOf(err) != 404 {
			t.Errorf("ErrorForStatus() = %v, want 404 status error", err)
		}
	}},
	{"timeout", func(t *testing.T, h *harness) {
		h.srv.Route("GET", "/slow", Text("late").WithDelay(500*time.Millisecond))
		_, err := h.send(h.req("GET", h.srv.URL("/slow")).Timeout(50 * time.Millisecond))
		if !httpclient.IsTransport(err) || !httpclient.IsTimeout(err) {
			t.Errorf("expected transport timeout, got %v", err)
		}
	}},
}

var asyncCases = []suiteCase{
	{"cancel_before_headers", func(t *testing.T, h *harness) {
		h.srv.Route("GET", "/hang", Text("never").WithDelay(2*time.Second))
		client := h.req("GET", h.srv.URL("/hang"))
		call := client.Start(context.Background())
		time.Sleep(20 * time.Millisecond)
		call.Cancel()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := call.Await(ctx)
		if resp != nil {
			t.Error("expected no response after cancellation")
		}
		if !httpclient.IsCanceled(err) {
			t.Errorf("expected cancellation error, got %v", err)
		}
	}},
	{"concurrent_calls", func(t *testing.T, h *harness) {
		const n = 8
		h.srv.Route("GET", "/work", Text("done").WithDelay(50*time.Millisecond))
		calls := make([]*httpclient.Call, n)
		for i := range calls {
			calls[i] = h.req("GET", h.srv.URL(fmt.Sprintf("/work?i=%d", i))).Start(context.Background())
		}
		var wg sync.WaitGroup
		for i, call := range calls {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), suiteTimeout)
				defer cancel()
				resp, err := call.Await(ctx)
				if err != nil {
					t.Errorf("call %d: %v", i, err)
					return
				}
				if text, _ := resp.Text(); text != "done" {
					t.Errorf("call %d: body %q", i, text)
				}
			}()
		}
		wg.Wait()
		if got := len(h.srv.Requests()); got != n {
			t.Errorf("server saw %d requests, want %d", got, n)
		}
	}},
}

// RunExecutorSuite checks that a blocking backend behaves like every other
// backend. open is called once per case with a fresh server.
func RunExecutorSuite(t *testing.T, open func(t *testing.T, srv *Server) httpclient.Executor) {
	t.Helper()
	for _, tc := range commonCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := New()
			defer srv.Close()
			jar := cookiejar.New()
			client := httpclient.NewClient(open(t, srv), httpclient.WithCookieJar(jar))
			tc.run(t, &harness{
				srv:  srv,
				jar:  jar,
				req:  client.Request,
				send: func(b *httpclient.RequestBuilder) (*httpclient.Response, error) { return b.Send() },
			})
		})
	}
}

// RunAsyncSuite checks that a suspending backend behaves like every other
// backend, including cancellation and concurrent calls.
func RunAsyncSuite(t *testing.T, open func(t *testing.T, srv *Server) httpclient.AsyncExecutor) {
	t.Helper()
	for _, tc := range append(append([]suiteCase(nil), commonCases...), asyncCases...) {
		t.Run(tc.name, func(t *testing.T) {
			srv := New()
			defer srv.Close()
			jar := cookiejar.New()
			client := httpclient.NewAsyncClient(open(t, srv), httpclient.WithCookieJar(jar))
			tc.run(t, &harness{
				srv: srv,
				jar: jar,
				req: client.Request,
				send: func(b *httpclient.RequestBuilder) (*httpclient.Response, error) {
					ctx, cancel := context.WithTimeout(context.Background(), suiteTimeout)
					defer cancel()
					// the exchange context must outlive Await so the body stays readable
					return b.Start(context.Background()).Await(ctx)
				},
			})
		})
	}
}
