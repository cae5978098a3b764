//go:build ui

// Package ui embeds the built chat web client. Build with -tags ui after
// placing the bundle in ui/dist.
package ui

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// DistFS returns the embedded web client rooted at dist/.
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}
