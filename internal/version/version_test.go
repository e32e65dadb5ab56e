package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func TestCurrentPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3"
	t.Cleanup(func() { buildVersion = old })

	if got := Current(); got != "v1.2.3" {
		t.Fatalf("expected build version, got %q", got)
	}
}

func TestFromBuildInfoPseudoVersion(t *testing.T) {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	info := &debug.BuildInfo{
		GoVersion: "go1.25.2",
		Main:      debug.Module{Path: "pkt.systems/ayen", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	got := fromBuildInfo(info, "")
	if got.Version != "v0.0.0-20250102030405-1234567890ab" {
		t.Fatalf("unexpected pseudo version %q", got.Version)
	}
	if !got.Dirty || got.String() != got.Version+"+dirty" {
		t.Fatalf("expected dirty build, got %+v", got)
	}
	if got.Go != "go1.25.2" || got.Module != "pkt.systems/ayen" {
		t.Fatalf("unexpected build info %+v", got)
	}
}

func TestFromBuildInfoFallbacks(t *testing.T) {
	if got := fromBuildInfo(nil, ""); got.Version != unknownVersion || got.Module != defaultModule {
		t.Fatalf("unexpected fallback %+v", got)
	}
	info := &debug.BuildInfo{Main: debug.Module{Path: "example.com/fork", Version: "v0.4.0"}}
	if got := fromBuildInfo(info, ""); got.Version != "v0.4.0" || got.Module != "example.com/fork" {
		t.Fatalf("expected module version, got %+v", got)
	}
	if got := fromBuildInfo(info, " v9.9.9+dirty "); got.Version != "v9.9.9" || !got.Dirty {
		t.Fatalf("expected override with dirty marker, got %+v", got)
	}
}

func TestUserAgentAndSummary(t *testing.T) {
	old := buildVersion
	buildVersion = "v2.0.0+dirty"
	t.Cleanup(func() { buildVersion = old })

	if got := UserAgent("shield"); got != "ayen-shield/v2.0.0" {
		t.Fatalf("unexpected user agent %q", got)
	}
	if got := UserAgent(""); got != "ayen/v2.0.0" {
		t.Fatalf("unexpected user agent %q", got)
	}
	if got := Summary(); !strings.Contains(got, " v2.0.0+dirty") {
		t.Fatalf("expected dirty version in summary, got %q", got)
	}
}
