// Package version provides build version information and the default
// User-Agent of reqkit clients.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

var (
	// These variables are set at build time using -ldflags
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
	GoVersion = ""
)

// Info represents version information.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	GitBranch string    `json:"git_branch"`
	BuildTime string    `json:"build_time"`
	GoVersion string    `json:"go_version"`
	BuildDate time.Time `json:"build_date"`
	IsRelease bool      `json:"is_release"`
	IsDirty   bool      `json:"is_dirty"`
}

// GetVersionInfo returns version information from ldflags, falling back to
// the VCS settings embedded by the Go toolchain.
func GetVersionInfo() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		IsRelease: Version != "dev" && !strings.Contains(Version, "dirty"),
	}

	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		if info.GoVersion == "" {
			info.GoVersion = buildInfo.GoVersion
		}
		for _, setting := range buildInfo.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = shortCommit(setting.Value)
				}
			case "vcs.modified":
				info.IsDirty = setting.Value == "true"
			case "vcs.time":
				if info.BuildTime == "" {
					if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
						info.BuildDate = t
						info.BuildTime = setting.Value
					}
				}
			}
		}
	}
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}

	return info
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// GetShortVersion returns the version with the commit appended when known.
func GetShortVersion() string {
	info := GetVersionInfo()
	if info.GitCommit == "" {
		return info.Version
	}
	if info.IsDirty {
		return fmt.Sprintf("%s-%s-dirty", info.Version, info.GitCommit)
	}
	return fmt.Sprintf("%s-%s", info.Version, info.GitCommit)
}

// GetFullVersion returns a detailed version string for CLI output.
func GetFullVersion() string {
	info := GetVersionInfo()
	parts := []string{info.Version}
	if info.GitCommit != "" {
		parts = append(parts, info.GitCommit)
	}
	if info.GitBranch != "" && info.GitBranch != "main" && info.GitBranch != "master" {
		parts = append(parts, info.GitBranch)
	}
	if info.IsDirty {
		parts = append(parts, "dirty")
	}
	out := strings.Join(parts, "-")
	if !info.BuildDate.IsZero() {
		out += fmt.Sprintf(" (built %s)", info.BuildDate.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return out + " " + info.GoVersion
}

// UserAgent returns the default User-Agent header of reqkit clients.
func UserAgent() string {
	return fmt.Sprintf("reqkit/%s (%s; %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
