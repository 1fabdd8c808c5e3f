// Package version exposes the build version reported by the CLI and /health.
package version

// value can be overridden at build time:
//
//	go build -ldflags "-X todoapi/pkg/version.value=1.2.3"
var value = "1.0.0"

// Version returns the current build version.
func Version() string {
	return value
}
