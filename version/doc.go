// Package version carries the library version sent in default User-Agent
// headers. Version and GitCommit can be set at link time:
//
//	go build -ldflags "-X github.com/kbukum/anyhttp/version.Version=1.2.0"
package version
