// Package misc holds build time program identification.
package misc

// Set by linker flags during release builds.
var (
	version = "dev"
	gitHash = "unknown"
)

const appName = "hbc"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
