package compileinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	z := &debug.BuildInfo{
		GoVersion: "go1.18",
		Path:      "github.com/carbocation/pico/cmd/pico",
		Main:      debug.Module{Path: "github.com/carbocation/pico", Version: "(devel)"},
		Deps: []*debug.Module{
			{Path: "github.com/gocarina/gocsv", Version: "v0.0.0-20201208093247-67c824bc04d4"},
			{Path: "gonum.org/v1/gonum", Version: "v0.9.3"},
			{Path: "github.com/carbocation/pfx", Version: "v0.0.0-old", Replace: &debug.Module{Path: "../pfx", Version: "v0.0.1"}},
		},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2022-07-01T00:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	c := fromBuildInfo(z)
	if c.Commit != "abc123" || !c.Modified || c.Version() != "devel" {
		t.Fatalf("Unexpected compile info %+v", c)
	}

	if s := c.String(); !strings.Contains(s, "abc123") || !strings.Contains(s, "modified") {
		t.Fatalf("Unexpected summary %q", s)
	}

	if deps := c.DepsWithPrefix("github.com/"); len(deps) != 2 {
		t.Fatalf("Expected 2 github deps, got %+v", deps)
	}

	if deps := c.DepsWithPrefix("github.com/carbocation/"); len(deps) != 1 || deps[0].Version != "v0.0.1" {
		t.Fatalf("Expected the replaced pfx version, got %+v", deps)
	}

	if deps := c.DepsWithPrefix(); len(deps) != 3 {
		t.Fatalf("Expected all deps, got %+v", deps)
	}
}
