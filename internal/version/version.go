// ABOUTME: Build identification reported by the server and clients
// ABOUTME: Version may be overridden at link time with -ldflags -X
package version

// Version is the release version
var Version = "0.3.0"

const (
	// Product is the product name sent in hello messages
	Product = "Soundscape"
	// Manufacturer is the vendor name sent in hello messages
	Manufacturer = "Sendspin"
)

// String returns "Product Version"
func String() string {
	return Product + " " + Version
}
