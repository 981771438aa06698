// Package security builds client TLS configuration shared by the HTTP
// backends.
//
//	cfg := security.TLSConfig{CAFile: "/etc/ssl/internal-ca.pem", MinVersion: "1.3"}
//	tlsConf, err := cfg.Build()
//
// A nil or empty TLSConfig builds to nil, which means "use the backend
// library's defaults".
package security
