package version

import (
	"runtime/debug"
	"sync"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"buildTime,omitempty"`
	GoVersion string `json:"goVersion"`
	Dirty     bool   `json:"dirty,omitempty"`
}

var (
	once sync.Once
	vcs  Info
)

// readBuildInfo fills commit, time and dirty flag from the VCS stamp the Go
// toolchain embeds. It runs once per process.
func readBuildInfo() Info {
	once.Do(func() {
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		vcs.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				vcs.Commit = s.Value
			case "vcs.time":
				vcs.BuildTime = s.Value
			case "vcs.modified":
				vcs.Dirty = s.Value == "true"
			}
		}
	})
	return vcs
}

// Get returns the build info. Values set through -ldflags win over the VCS
// stamp. Commits are shortened to seven characters.
func Get() Info {
	info := readBuildInfo()
	info.Version = Version
	if GitCommit != "" {
		info.Commit = GitCommit
	}
	if BuildTime != "" {
		info.BuildTime = BuildTime
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

// Short returns "version" or "version-commit", with "-dirty" for modified trees.
func (i Info) Short() string {
	s := i.Version
	if i.Commit != "" {
		s += "-" + i.Commit
	}
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

// UserAgent returns "<service>/<short version>" for outbound provider calls.
func UserAgent(service string) string {
	return service + "/" + Get().Short()
}
