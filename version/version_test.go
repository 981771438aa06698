package version

import (
	"strings"
	"testing"
)

func TestGetUsesLinkTimeValues(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = origVersion, origCommit })

	Version, GitCommit = "v1.4.0", "abc1234"
	info := Get()
	if info.Version != "v1.4.0" || info.GitCommit != "abc1234" {
		t.Errorf("info = %+v", info)
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("go version = %q", info.GoVersion)
	}
}

func TestUserAgent(t *testing.T) {
	origVersion := Version
	t.Cleanup(func() { Version = origVersion })

	Version = "v2.0.1"
	if got := UserAgent("anyhttp-fasthttp"); got != "anyhttp-fasthttp/v2.0.1" {
		t.Errorf("UserAgent = %q", got)
	}
}
