package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	Tag      string
	Revision string
	BuildAt  string
	Dirty    bool
)

func init() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range buildInfo.Settings {
		// https://pkg.go.dev/runtime/debug#BuildSetting
		switch setting.Key {
		case "vcs.revision":
			Revision = setting.Value
		case "vcs.time":
			BuildAt = setting.Value
		case "vcs.modified":
			Dirty = setting.Value == "true"
		}
	}
}

type Info struct {
	Tag      string `json:"tag,omitempty"`
	Revision string `json:"revision,omitempty"`
	BuildAt  string `json:"buildAt,omitempty"`
	Dirty    bool   `json:"dirty,omitempty"`
}

// Get returns the build details with a short revision and a readable build time.
func Get() Info {
	info := Info{Tag: Tag, Revision: Revision, BuildAt: BuildAt, Dirty: Dirty}
	if len(info.Revision) > 7 {
		info.Revision = info.Revision[:7]
	}
	if t, err := time.Parse(time.RFC3339, info.BuildAt); err == nil {
		info.BuildAt = t.Format("2006-01-02 15:04:05")
	}
	return info
}

func String() string {
	// go run
	if Revision == "" {
		return "dev"
	}
	return Get().String()
}

func (i Info) String() string {
	s := fmt.Sprintf("%s %s at %s", i.Tag, i.Revision, i.BuildAt)
	if i.Dirty {
		s += " dirty"
	}
	return s
}
