package build

import "fmt"

// Version components. These follow semantic versioning and are bumped as
// part of the release process.
const (
	appMajor = 0
	appMinor = 2
	appPatch = 0

	// appPreRelease should only contain characters from the semantic
	// versioning alphabet.
	appPreRelease = "beta"
)

// Commit is the git commit hash the binary was built from. It is set by
// the linker during release builds.
var Commit string

// Version returns the application version as a properly formed string.
func Version() string {
	version := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
	if appPreRelease != "" {
		version = fmt.Sprintf("%s-%s", version, appPreRelease)
	}
	if Commit != "" {
		version = fmt.Sprintf("%s commit=%s", version, Commit)
	}

	return version
}
