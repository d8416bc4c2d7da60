package version

import (
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Set at build time with -ldflags "-X ipsentry/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const shortCommitLen = 7

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo collects the build-time values and the runtime platform
func GetInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// ShortCommit returns the abbreviated commit, or "" when unknown
func (i Info) ShortCommit() string {
	c := strings.TrimSpace(i.GitCommit)
	if c == "" || c == "unknown" {
		return ""
	}
	if len(c) > shortCommitLen {
		c = c[:shortCommitLen]
	}
	return c
}

func (i Info) String() string {
	var b strings.Builder
	b.WriteString("ipsentry ")
	b.WriteString(i.Version)
	if c := i.ShortCommit(); c != "" {
		fmt.Fprintf(&b, " (%s)", c)
	}
	if i.BuildDate != "" && i.BuildDate != "unknown" {
		fmt.Fprintf(&b, " built %s", i.BuildDate)
	}
	fmt.Fprintf(&b, " %s %s", i.GoVersion, i.Platform)
	return b.String()
}

// MarshalLogObject lets the startup log carry the build as one object
func (i Info) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("version", i.Version)
	if c := i.ShortCommit(); c != "" {
		enc.AddString("commit", c)
	}
	enc.AddString("go", i.GoVersion)
	enc.AddString("platform", i.Platform)
	return nil
}

// UserAgent is sent on every outbound HTTP request and email
func UserAgent() string {
	i := GetInfo()
	if c := i.ShortCommit(); c != "" {
		return "ipsentry/" + i.Version + "+" + c
	}
	return "ipsentry/" + i.Version
}
