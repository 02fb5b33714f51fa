package version // import "pagemark/version"

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the service version. Bump on release.
var Version = "0.2.1"

// DevVersion is the suffix used for non-release builds.
var DevVersion = fmt.Sprintf("%s-dev", Version)

// ProgressSchemaVersion is the major version of the per-device progress
// record shape. Records written before the session start/end model carry
// major version 1; migrateAndPruneHistory converges everything on 2.
const ProgressSchemaVersion = 2

func GetCurrentVersion() string {
	return Version
}

// GetMinorVersion returns the minor version, e.g. "0.2" for "0.2.1".
func GetMinorVersion(version string) string {
	versionList := strings.Split(version, ".")
	if len(versionList) < 3 {
		return ""
	}
	return versionList[0] + "." + versionList[1]
}

// GetSchemaVersion returns the schema version of the given service version.
// A patch release never changes the schema, so "0.2.3" maps to "0.2.0".
func GetSchemaVersion(version string) string {
	minorVersion := GetMinorVersion(version)
	if minorVersion == "" {
		return ""
	}
	return minorVersion + ".0"
}

func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) > -1
}

func IsVersionGreaterThan(version, target string) bool {
	return semver.Compare(fmt.Sprintf("v%s", version), fmt.Sprintf("v%s", target)) > 0
}

type SortVersion []string

func (s SortVersion) Len() int {
	return len(s)
}

func (s SortVersion) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s SortVersion) Less(i, j int) bool {
	return semver.Compare(fmt.Sprintf("v%s", s[i]), fmt.Sprintf("v%s", s[j])) == -1
}
