package cli

import (
	"fmt"

	"github.com/chariotdev/chariot/internal/buildinfo"
)

// VersionCmd is the 'chariot version' command.
type VersionCmd struct{}

// Run prints the build's version string.
func (c *VersionCmd) Run() error {
	fmt.Println(buildinfo.VersionString())
	return nil
}
