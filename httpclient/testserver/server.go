// Package testserver is an embeddable HTTP server for exercising backends.
// It serves scripted responses from a gin engine, records every request it
// receives as an httpclient.Request, and doubles as an in-process backend
// that skips the network entirely.
//
//	srv := testserver.New()
//	defer srv.Close()
//	srv.Route("GET", "/ping", testserver.Text("pong"))
//	resp, err := client.Get(srv.URL("/ping")).Send()
//	srv.Expect(t, "GET", "/ping")
package testserver

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/anyhttp/httpclient"
	"github.com/kbukum/anyhttp/httpclient/codec"
	"github.com/kbukum/anyhttp/logger"
)

type routeKey struct {
	method string
	path   string
}

// Server is a loopback HTTP server with scripted responses.
type Server struct {
	engine *gin.Engine
	http   *httptest.Server
	log    *logger.Logger

	mu       sync.Mutex
	queue    []Scripted
	def      *Scripted
	routes   map[routeKey]Scripted
	recorded []*httpclient.Request
	cursor   int
	changed  chan struct{}
}

// Option configures a Server.
type Option func(*options)

type options struct {
	tls *tls.Config
	log *logger.Logger
}

// WithTLS serves HTTPS with the given configuration.
func WithTLS(cfg *tls.Config) Option {
	return func(o *options) { o.tls = cfg }
}

// WithLogger sets the server's logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New starts a server on a loopback port.
func New(opts ...Option) *Server {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Get("testserver")
	}

	gin.SetMode(gin.TestMode)
	s := &Server{
		engine:  gin.New(),
		log:     o.log,
		routes:  make(map[routeKey]Scripted),
		changed: make(chan struct{}),
	}
	s.engine.Use(gin.Recovery(), s.record)
	s.engine.NoRoute(s.dispatch)

	s.http = httptest.NewUnstartedServer(s.engine)
	if o.tls != nil {
		s.http.TLS = o.tls
		s.http.StartTLS()
	} else {
		s.http.Start()
	}
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.http.Close()
}

// URL returns the server's base URL joined with path.
func (s *Server) URL(path string) string {
	return s.http.URL + path
}

// Handler returns the gin engine serving the scripts.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Enqueue adds a one-shot response served before routes and the default.
func (s *Server) Enqueue(r ...Scripted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, r...)
}

// SetDefault sets the response used when nothing else matches. Without a
// default the server echoes the request target as {"url": ...}.
func (s *Server) SetDefault(r Scripted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.def = &r
}

// Route binds a response to method and path. HEAD falls back to the GET
// route.
func (s *Server) Route(method, path string, r Scripted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[routeKey{method: strings.ToUpper(method), path: path}] = r
}

// Reset drops scripts and recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	s.def = nil
	clear(s.routes)
	s.recorded = nil
	s.cursor = 0
}

// Requests returns every request received so far.
func (s *Server) Requests() []*httpclient.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*httpclient.Request, len(s.recorded))
	for i, r := range s.recorded {
		out[i] = r.Clone()
	}
	return out
}

// Last returns the most recent request, or nil.
func (s *Server) Last() *httpclient.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recorded) == 0 {
		return nil
	}
	return s.recorded[len(s.recorded)-1].Clone()
}

// Next returns requests one at a time in arrival order, waiting for one to
// arrive when all earlier ones were consumed.
func (s *Server) Next(ctx context.Context) (*httpclient.Request, error) {
	for {
		s.mu.Lock()
		if s.cursor < len(s.recorded) {
			r := s.recorded[s.cursor].Clone()
			s.cursor++
			s.mu.Unlock()
			return r, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Expect consumes the next request and fails t unless it has the given
// method and path.
func (s *Server) Expect(t testing.TB, method, path string) *httpclient.Request {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := s.Next(ctx)
	if err != nil {
		t.Fatalf("testserver: no request for %s %s: %v", method, path, err)
	}
	if string(r.Method) != method || r.URL.Path != path {
		t.Fatalf("testserver: got %s %s, want %s %s", r.Method, r.URL.Path, method, path)
	}
	return r
}

func (s *Server) record(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	req := toModel(c.Request, body)
	s.mu.Lock()
	s.recorded = append(s.recorded, req)
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	s.log.Debug("request recorded", logger.Fields(
		logger.FieldMethod, c.Request.Method,
		logger.FieldURL, c.Request.URL.RequestURI(),
	))
	c.Next()
}

// toModel converts an incoming request to the client model.
func toModel(r *http.Request, body []byte) *httpclient.Request {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	}
	h := httpclient.HeaderFromHTTP(r.Header)
	if r.Host != "" && !h.Has("Host") {
		h.Set("Host", r.Host)
	}
	if len(body) == 0 {
		body = nil
	}
	return &httpclient.Request{
		Method: httpclient.Method(r.Method),
		URL:    u,
		Header: h,
		Body:   body,
	}
}

// pick selects the response for a request: queue first, then routes, then
// the default.
func (s *Server) pick(method, path string) (Scripted, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 0 {
		r := s.queue[0]
		s.queue = s.queue[1:]
		return r, true
	}
	if r, ok := s.routes[routeKey{method: method, path: path}]; ok {
		return r, true
	}
	if method == http.MethodHead {
		if r, ok := s.routes[routeKey{method: http.MethodGet, path: path}]; ok {
			return r, true
		}
	}
	if s.def != nil {
		return *s.def, true
	}
	return Scripted{}, false
}

func (s *Server) dispatch(c *gin.Context) {
	sc, ok := s.pick(c.Request.Method, c.Request.URL.Path)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"url": c.Request.URL.RequestURI()})
		return
	}

	if sc.Delay > 0 {
		timer := time.NewTimer(sc.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}

	status := sc.Status
	if status == 0 {
		status = http.StatusOK
	}
	for _, h := range sc.Headers {
		c.Writer.Header().Add(h.Name, h.Value)
	}

	body, contentType := []byte(sc.Body), ""
	switch {
	case sc.EchoBody:
		body, _ = io.ReadAll(c.Request.Body)
		contentType = c.GetHeader("Content-Type")
	case sc.JSON != nil:
		var err error
		if body, contentType, err = codec.JSON.Encode(sc.JSON); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
	case len(body) > 0:
		contentType = codec.MediaText
	}
	if len(body) == 0 && contentType == "" {
		c.Status(status)
		c.Writer.WriteHeaderNow()
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(status, contentType, body)
}
