// Package version описывает сборку витрины. Значения задаются через -ldflags,
// при их отсутствии commit и дата берутся из VCS-меток сборки Go.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

const unknown = "unknown"

var (
	version = "dev"
	commit  = unknown
	date    = unknown
)

// Build — сведения о сборке для /version и логов.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	currentOnce sync.Once
	current     Build
)

// Current возвращает сведения о текущем бинарнике.
func Current() Build {
	currentOnce.Do(func() {
		info, _ := debug.ReadBuildInfo()
		current = resolve(version, commit, date, info)
	})
	return current
}

func resolve(v, c, d string, info *debug.BuildInfo) Build {
	b := Build{Version: v, Commit: c, Date: d, GoVersion: unknown}
	if info == nil {
		return b
	}
	b.GoVersion = info.GoVersion
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == unknown {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == unknown {
				b.Date = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

// GetVersion возвращает версию релиза.
func GetVersion() string { return version }

// String — однострочное представление для логов и флага -version.
func (b Build) String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s go=%s", b.Version, b.Commit, b.Date, b.GoVersion)
}
