// Package defaults holds the rule set compiled into the opguard binary.
package defaults

import "embed"

// FS contains manifest.yaml and patterns/*.yaml, including disabled
// (underscore-prefixed) definitions.
//
//go:embed manifest.yaml patterns/*.yaml
var FS embed.FS
