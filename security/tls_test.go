package security

import (
	"crypto/tls"
	"io"
	"net/http"
	"testing"

	"github.com/kbukum/anyhttp/security/tlstest"
)

func TestBuild_Disabled(t *testing.T) {
	for name, cfg := range map[string]*TLSConfig{"nil": nil, "zero": {}} {
		t.Run(name, func(t *testing.T) {
			got, err := cfg.Build()
			if err != nil || got != nil {
				t.Errorf("Build() = %v, %v; want nil, nil", got, err)
			}
			if cfg.IsEnabled() {
				t.Error("expected IsEnabled() = false")
			}
		})
	}
}

func TestBuild_Settings(t *testing.T) {
	got, err := (&TLSConfig{SkipVerify: true, ServerName: "example.test"}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.InsecureSkipVerify || got.ServerName != "example.test" || got.MinVersion != tls.VersionTLS12 {
		t.Errorf("unexpected config: skip=%v name=%q min=%x", got.InsecureSkipVerify, got.ServerName, got.MinVersion)
	}

	got, err = (&TLSConfig{MinVersion: "1.3"}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", got.MinVersion)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		wantErr bool
	}{
		{"nil", nil, false},
		{"pair", &TLSConfig{CertFile: "c.pem", KeyFile: "k.pem"}, false},
		{"cert only", &TLSConfig{CertFile: "c.pem"}, true},
		{"key only", &TLSConfig{KeyFile: "k.pem"}, true},
		{"bad version", &TLSConfig{MinVersion: "1.0"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuild_FileErrors(t *testing.T) {
	tests := map[string]*TLSConfig{
		"missing CA":      {CAFile: "/nonexistent/ca.pem"},
		"invalid CA":      {CAFile: tlstest.WriteInvalidPEM(t, "bad.pem")},
		"missing keypair": {CertFile: "/nonexistent/c.pem", KeyFile: "/nonexistent/k.pem"},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := cfg.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuild_TrustsGeneratedCA(t *testing.T) {
	certs := tlstest.Generate(t)
	srv := certs.StartServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "secure")
	}))

	conf, err := (&TLSConfig{CAFile: certs.CAFile, CertFile: certs.CertFile, KeyFile: certs.KeyFile}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(conf.Certificates) != 1 || conf.RootCAs == nil {
		t.Fatalf("expected roots and client certificate to be loaded")
	}

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: conf}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "secure" {
		t.Errorf("body = %q", body)
	}

	if _, err := http.Get(srv.URL); err == nil {
		t.Error("expected default client to reject the test CA")
	}
}
