package version

// version is set at build time with -ldflags "-X github.com/cbodonnell/monuments/pkg/version.version=..."
var version = "dev"

// Get returns the version of the running binary.
func Get() string {
	return version
}
