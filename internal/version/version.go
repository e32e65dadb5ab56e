// Package version reports the running build for the CLI and outbound
// User-Agent headers.
package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const (
	defaultModule  = "pkt.systems/ayen"
	unknownVersion = "v0.0.0-unknown"
)

// buildVersion is set via -ldflags "-X pkt.systems/ayen/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running build.
type Info struct {
	Module   string
	Version  string
	Revision string
	Time     time.Time
	Dirty    bool
	Go       string
}

// String returns the version with a +dirty suffix for modified trees.
func (i Info) String() string {
	if i.Dirty {
		return i.Version + "+dirty"
	}
	return i.Version
}

// Get reads the build information of the running binary.
func Get() Info {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		info = nil
	}
	return fromBuildInfo(info, buildVersion)
}

// Current returns the version without the dirty marker.
func Current() string {
	return Get().Version
}

// Module returns the main module path.
func Module() string {
	return Get().Module
}

// UserAgent returns the product token sent by outbound HTTP clients, e.g.
// "ayen-shield/v1.2.3".
func UserAgent(component string) string {
	name := "ayen"
	if c := strings.TrimSpace(component); c != "" {
		name += "-" + c
	}
	return name + "/" + Current()
}

// Summary returns "module version [go]" for display.
func Summary() string {
	info := Get()
	out := info.Module + " " + info.String()
	if info.Go != "" {
		out += " " + info.Go
	}
	return out
}

// fromBuildInfo resolves the version from, in order: the ldflags override,
// the module version, then a pseudo-version built from VCS stamps.
func fromBuildInfo(bi *debug.BuildInfo, override string) Info {
	out := Info{Module: defaultModule, Version: unknownVersion}
	mainVersion := ""
	if bi != nil {
		if path := strings.TrimSpace(bi.Main.Path); path != "" {
			out.Module = path
		}
		out.Go = bi.GoVersion
		mainVersion = strings.TrimSpace(bi.Main.Version)
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				out.Revision = setting.Value
			case "vcs.time":
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					out.Time = t.UTC()
				}
			case "vcs.modified":
				out.Dirty = setting.Value == "true"
			}
		}
	}
	switch {
	case strings.TrimSpace(override) != "":
		out.Version = strings.TrimSpace(override)
	case mainVersion != "" && mainVersion != "(devel)":
		out.Version = mainVersion
	case out.Revision != "" && !out.Time.IsZero():
		out.Version = pseudoVersion(out.Time, out.Revision)
	}
	if trimmed, ok := strings.CutSuffix(out.Version, "+dirty"); ok {
		out.Version = trimmed
		out.Dirty = true
	}
	return out
}

func pseudoVersion(t time.Time, revision string) string {
	if len(revision) > 12 {
		revision = revision[:12]
	}
	return "v0.0.0-" + t.Format("20060102150405") + "-" + revision
}
