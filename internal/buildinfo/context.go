// Package buildinfo holds build-time metadata kept apart from user configuration
package buildinfo

import (
	"fmt"

	"github.com/google/uuid"
)

// UnknownValue is reported for metadata that was not injected at build time
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
// A nil *Context is valid and reports UnknownValue everywhere.
type Context struct {
	version   string
	buildDate string
	systemID  string
}

// NewContext returns build metadata. An empty systemID is replaced with a
// fresh random identifier for this process.
func NewContext(version, buildDate, systemID string) *Context {
	if systemID == "" {
		systemID = NewSystemID()
	}
	return &Context{version: version, buildDate: buildDate, systemID: systemID}
}

// NewSystemID returns a random identifier used to tag telemetry from one install
func NewSystemID() string {
	return uuid.NewString()
}

func orUnknown(v string) string {
	if v == "" {
		return UnknownValue
	}
	return v
}

// Version returns the git version tag from the build
func (c *Context) Version() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.version)
}

// BuildDate returns the time the binary was built
func (c *Context) BuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.buildDate)
}

// SystemID returns the install identifier
func (c *Context) SystemID() string {
	if c == nil {
		return UnknownValue
	}
	return orUnknown(c.systemID)
}

func (c *Context) String() string {
	return fmt.Sprintf("oscigo %s (built %s)", c.Version(), c.BuildDate())
}
