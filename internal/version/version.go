// Package version reports the assetflow build and the versions of the
// bundled transform engines.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"time"
)

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// engines are the modules whose versions change build output.
var engines = map[string]string{
	"github.com/evanw/esbuild":         "esbuild",
	"github.com/bep/godartsass/v2":     "godartsass",
	"github.com/tdewolff/minify/v2":    "minify",
	"github.com/gen2brain/webp":        "webp",
	"github.com/yuin/goldmark":         "goldmark",
	"github.com/klauspost/compress":    "compress",
	"github.com/bmatcuk/doublestar/v4": "doublestar",
}

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string            `json:"version" yaml:"version"`
	GitCommit string            `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time         `json:"build_time" yaml:"build_time"`
	GoVersion string            `json:"go_version" yaml:"go_version"`
	Platform  string            `json:"platform" yaml:"platform"`
	Engines   map[string]string `json:"engines,omitempty" yaml:"engines,omitempty"`
}

// GetBuildInfo collects the build information, falling back to the
// module metadata embedded by the Go toolchain.
func GetBuildInfo() *BuildInfo {
	info := &BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: parseTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.Engines = engineVersions(bi.Deps)
	}
	return info
}

func engineVersions(deps []*debug.Module) map[string]string {
	out := make(map[string]string)
	for _, dep := range deps {
		name, ok := engines[dep.Path]
		if !ok {
			continue
		}
		if dep.Replace != nil {
			dep = dep.Replace
		}
		out[name] = dep.Version
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// GetVersion returns the release version, or dev-<commit> for
// untagged builds.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			return v
		}
		if rev := setting(bi, "vcs.revision"); len(rev) >= 7 {
			return "dev-" + rev[:7]
		}
	}
	return "dev"
}

// GetGitCommit returns the commit the binary was built from.
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if rev := setting(bi, "vcs.revision"); rev != "" {
			return rev
		}
	}
	return "unknown"
}

// GetShortVersion returns the version with an abbreviated commit.
func GetShortVersion() string {
	v := GetVersion()
	commit := GetGitCommit()
	if commit == "unknown" || len(commit) < 7 || strings.HasPrefix(v, "dev-") {
		return v
	}
	if v == "dev" {
		return "dev-" + commit[:7]
	}
	return fmt.Sprintf("%s (%s)", v, commit[:7])
}

// GetDetailedVersion returns a multi-line report for `assetflow version`.
func GetDetailedVersion() string {
	return GetBuildInfo().String()
}

// String renders the build information one field per line.
func (b *BuildInfo) String() string {
	lines := []string{"assetflow " + b.Version}
	if b.GitCommit != "unknown" {
		lines = append(lines, "commit:   "+b.GitCommit)
	}
	if !b.BuildTime.IsZero() {
		lines = append(lines, "built:    "+b.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "go:       "+b.GoVersion, "platform: "+b.Platform)

	names := make([]string, 0, len(b.Engines))
	for name := range b.Engines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("  %-11s %s", name, b.Engines[name]))
	}
	return strings.Join(lines, "\n")
}

// IsRelease reports whether this is a tagged build.
func IsRelease() bool {
	v := GetVersion()
	return v != "dev" && !strings.HasPrefix(v, "dev-")
}

func setting(bi *debug.BuildInfo, key string) string {
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
