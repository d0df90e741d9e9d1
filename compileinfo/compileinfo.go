// Package compileinfo reports how the running binary was built, so that a
// processed table can be traced back to the code that produced it.
package compileinfo

import (
	"fmt"
	"io"
	"runtime/debug"
	"strings"
)

type Dependency struct {
	Path    string
	Version string
}

type CompileInfo struct {
	Package       string
	ModuleVersion string
	GoVersion     string
	Commit        string
	CommitTime    string
	Modified      bool
	Deps          []Dependency
}

func (c CompileInfo) String() string {
	mod := ""
	if c.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	commit := c.Commit
	if commit == "" {
		commit = "(unknown)"
	}

	return fmt.Sprintf("This %s binary (%s) was built with %s at commit %v at time %v.%s", c.Package, c.Version(), c.GoVersion, commit, c.CommitTime, mod)
}

// Version is the module version, or "devel" for builds from a checkout.
func (c CompileInfo) Version() string {
	if c.ModuleVersion == "" || c.ModuleVersion == "(devel)" {
		return "devel"
	}

	return c.ModuleVersion
}

// DepsWithPrefix returns the linked dependencies whose module path starts
// with any of the prefixes; no prefixes returns all of them.
func (c CompileInfo) DepsWithPrefix(prefixes ...string) []Dependency {
	if len(prefixes) == 0 {
		return c.Deps
	}

	out := make([]Dependency, 0)
	for _, d := range c.Deps {
		for _, p := range prefixes {
			if strings.HasPrefix(d.Path, p) {
				out = append(out, d)
				break
			}
		}
	}

	return out
}

func Get() CompileInfo {
	z, ok := debug.ReadBuildInfo()
	if !ok {
		return CompileInfo{}
	}

	return fromBuildInfo(z)
}

func fromBuildInfo(z *debug.BuildInfo) CompileInfo {
	out := CompileInfo{
		GoVersion:     z.GoVersion,
		Package:       z.Path,
		ModuleVersion: z.Main.Version,
	}

	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	for _, d := range z.Deps {
		dep := d
		if d.Replace != nil {
			dep = d.Replace
		}
		out.Deps = append(out.Deps, Dependency{Path: d.Path, Version: dep.Version})
	}

	return out
}

// Fprint writes the build summary and, if verbose, one line per dependency.
func Fprint(w io.Writer, verbose bool) {
	z := Get()
	fmt.Fprintf(w, "%s\n", z)
	if !verbose {
		return
	}
	for _, d := range z.Deps {
		fmt.Fprintf(w, "\t%s\t%s\n", d.Path, d.Version)
	}
}
