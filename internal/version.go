package internal

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

var (
	Branch  = "main"
	Version = "0.1.0"
	Commit  = ""
	Date    = ""

	Prerelease = ""
	Metadata   = "dev"
)

// FullVersion returns the full semver version string, including any
// prerelease and metadata set at build time.
func FullVersion() string {
	v, err := semver.NewVersion(Version)
	if err != nil {
		panic(fmt.Sprintf("invalid version %v: %v", Version, err))
	}

	*v, _ = v.SetPrerelease(Prerelease)
	*v, _ = v.SetMetadata(Metadata)

	return v.String()
}
