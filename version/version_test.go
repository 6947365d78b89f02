package version

import (
	"runtime"
	"strings"
	"testing"
	"time"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBranch, origBuildTime, origGoVersion :=
		Version, GitCommit, GitBranch, BuildTime, GoVersion
	return func() {
		Version = origVersion
		GitCommit = origCommit
		GitBranch = origBranch
		BuildTime = origBuildTime
		GoVersion = origGoVersion
	}
}

func TestGetVersionInfoDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version, GitCommit, GitBranch, BuildTime, GoVersion = "dev", "", "", "", ""

	info := GetVersionInfo()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.IsRelease {
		t.Error("dev should not be a release")
	}
	if info.GoVersion == "" {
		t.Error("expected a Go version")
	}
}

func TestGetVersionInfoLdflags(t *testing.T) {
	defer saveAndRestore()()
	Version = "v1.4.0"
	GitCommit = "abc1234"
	GitBranch = "release"
	BuildTime = "2026-01-02T03:04:05Z"
	GoVersion = "go1.25.0"

	info := GetVersionInfo()
	if !info.IsRelease {
		t.Error("expected release build")
	}
	if info.GitCommit != "abc1234" || info.GoVersion != "go1.25.0" {
		t.Errorf("ldflags values must win, got %+v", info)
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !info.BuildDate.Equal(want) {
		t.Errorf("expected build date %v, got %v", want, info.BuildDate)
	}

	full := GetFullVersion()
	for _, part := range []string{"v1.4.0", "abc1234", "release", "built 2026-01-02T03:04:05Z", "go1.25.0"} {
		if !strings.Contains(full, part) {
			t.Errorf("expected %q in %q", part, full)
		}
	}
}

func TestGetShortVersion(t *testing.T) {
	defer saveAndRestore()()
	Version = "v1.0.0"
	GitCommit = "deadbee"

	short := GetShortVersion()
	if !strings.HasPrefix(short, "v1.0.0-deadbee") {
		t.Errorf("unexpected short version %q", short)
	}
}

func TestShortCommit(t *testing.T) {
	if shortCommit("0123456789abcdef") != "0123456" || shortCommit("abc") != "abc" {
		t.Error("unexpected commit shortening")
	}
}

func TestUserAgent(t *testing.T) {
	defer saveAndRestore()()
	Version = "v2.0.0"

	ua := UserAgent()
	if !strings.HasPrefix(ua, "reqkit/v2.0.0 (") {
		t.Errorf("unexpected user agent %q", ua)
	}
	if !strings.Contains(ua, runtime.GOOS) {
		t.Errorf("expected GOOS in %q", ua)
	}
}
