// Package version provides the current version of egograph.
package version

import "fmt"

// Version is the semver release version.
var Version = "0.4.1"

// DevVersion is the version suffix used in development builds.
var DevVersion = "0.4.1"

// GetCurrentVersion returns the version string for the given run mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return fmt.Sprintf("%s-%s", DevVersion, mode)
	}
	return Version
}
