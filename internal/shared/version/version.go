// Package version holds build metadata, overridden at link time with
// -ldflags "-X sapling/internal/shared/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "unknown"
)

func String() string {
	if Commit == "" || Commit == "unknown" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
