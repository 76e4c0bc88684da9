package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the release of the explain binaries
	Version = "0.3.0"

	// APIVersion is the version of the HTTP contracts in api/v1
	APIVersion = "v1"

	// ReportFormatVersion is stamped into every explanation report. It changes
	// only when a report field is renamed or removed.
	ReportFormatVersion = "1"
)

// Set at build time:
//
//	go build -ldflags "-X explaincli/pkg/contracts.GitCommit=$(git rev-parse --short HEAD)"
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo describes the running binary
type VersionInfo struct {
	Version      string `json:"version"`
	APIVersion   string `json:"api_version"`
	ReportFormat string `json:"report_format"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
}

// GetVersionInfo returns the version of this binary and its contracts
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		APIVersion:   APIVersion,
		ReportFormat: ReportFormatVersion,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
}

// String renders the info on one line, e.g.
// "explain v0.3.0 (api v1, report format 1, commit abc123, go1.24.3 linux/amd64)"
func (v VersionInfo) String() string {
	return fmt.Sprintf("explain v%s (api %s, report format %s, commit %s, %s %s/%s)",
		v.Version, v.APIVersion, v.ReportFormat, v.GitCommit, v.GoVersion, v.OS, v.Architecture)
}
