// ABOUTME: Build and product identification
// ABOUTME: Reported by the CLI, the HTTP engine user agent and the mDNS TXT record
package version

// Version is overridden at build time with -ldflags "-X .../internal/version.Version=..."
var Version = "0.3.0"

const (
	// Product is the name used in user agents and service advertisements
	Product = "whisperprep"

	// Manufacturer identifies the maintainers
	Manufacturer = "Resonate Protocol"
)

// UserAgent returns the product/version string sent to remote engines
func UserAgent() string {
	return Product + "/" + Version
}
