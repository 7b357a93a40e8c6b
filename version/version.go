// Package version exists solely so that we can store the version of this application
// in one location.
//
// The main.go driver-package prints it in the CLI banner via GetVersionBanner;
// GetVersionString returns the bare version string.
package version

import "fmt"

var (
	// version is "unreleased" unless a release build overrides it
	// (for example with -ldflags "-X").
	version = "unreleased"
)

// GetVersionBanner returns a banner which is suitable for printing, to show our name,
// version, and homepage link.
func GetVersionBanner() string {

	str := fmt.Sprintf("hbiosemu %s\n%s\n", version, "https://github.com/sjk7-labs/hbiosemu/")
	return str
}

// GetVersionString returns our version number as a string.
func GetVersionString() string {
	return version
}
