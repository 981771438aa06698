package testserver

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kbukum/anyhttp/httpclient"
)

// HeaderLine is one response header field. Lines with the same name are
// sent in order, e.g. several Set-Cookie lines.
type HeaderLine struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Scripted describes one canned response.
type Scripted struct {
	Status  int           `yaml:"status"`
	Headers []HeaderLine  `yaml:"headers"`
	Body    string        `yaml:"body"`
	JSON    any           `yaml:"json"`
	Delay   time.Duration `yaml:"delay"`
	// EchoBody answers with the request body and content type.
	EchoBody bool `yaml:"echo_body"`
}

// Text returns a 200 response with a plain text body.
func Text(body string) Scripted {
	return Scripted{Status: 200, Body: body}
}

// JSON returns a 200 response with v encoded as JSON.
func JSON(v any) Scripted {
	return Scripted{Status: 200, JSON: v}
}

// Status returns an empty response with the given status.
func Status(code int) Scripted {
	return Scripted{Status: code}
}

// WithHeader returns a copy of s with a header line appended.
func (s Scripted) WithHeader(name, value string) Scripted {
	s.Headers = append(append([]HeaderLine(nil), s.Headers...), HeaderLine{Name: name, Value: value})
	return s
}

// WithDelay returns a copy of s that waits d before answering.
func (s Scripted) WithDelay(d time.Duration) Scripted {
	s.Delay = d
	return s
}

// Script is the YAML form accepted by LoadScript.
//
//	default: {status: 200, body: ok}
//	routes:
//	  - method: GET
//	    path: /ping
//	    response: {status: 200, body: pong}
//	queue:
//	  - {status: 503, delay: 10ms}
type Script struct {
	Default *Scripted     `yaml:"default"`
	Routes  []ScriptRoute `yaml:"routes"`
	Queue   []Scripted    `yaml:"queue"`
}

// ScriptRoute binds a response to a method and path.
type ScriptRoute struct {
	Method   string   `yaml:"method"`
	Path     string   `yaml:"path"`
	Response Scripted `yaml:"response"`
}

// LoadScript reads a YAML script from path and applies it to s.
func (s *Server) LoadScript(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("testserver: read script: %w", err)
	}
	return s.ApplyScript(data)
}

// ApplyScript parses a YAML script and applies it to s.
func (s *Server) ApplyScript(data []byte) error {
	var sc Script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("testserver: parse script: %w", err)
	}
	for i, r := range sc.Routes {
		if _, err := httpclient.ParseMethod(r.Method); err != nil {
			return fmt.Errorf("testserver: route %d: %w", i, err)
		}
		if r.Path == "" || r.Path[0] != '/' {
			return fmt.Errorf("testserver: route %d: path must start with /", i)
		}
	}
	if sc.Default != nil {
		s.SetDefault(*sc.Default)
	}
	for _, r := range sc.Routes {
		s.Route(r.Method, r.Path, r.Response)
	}
	for _, q := range sc.Queue {
		s.Enqueue(q)
	}
	return nil
}
