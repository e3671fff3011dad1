package version

import (
	"strings"

	"github.com/fatih/color"
)

// Build metadata for the dpscript CLI. These variables can be overridden at
// build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var segmentColors = []*color.Color{
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgGreen, color.Bold),
	color.New(color.FgBlue, color.Bold),
}

// Colored renders Version with each of its major, minor and patch numbers
// in its own color. Pre-release and build suffixes are left plain.
func Colored() string {
	core, suffix := Version, ""
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core, suffix = core[:i], core[i:]
	}
	parts := strings.SplitN(core, ".", len(segmentColors))
	for i, part := range parts {
		parts[i] = segmentColors[i].Sprint(part)
	}
	return strings.Join(parts, ".") + suffix
}
