// Package web embeds the HTML templates and static assets served by the shop.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html static
var FS embed.FS

// TemplatesDir is the directory of FS holding the page templates.
const TemplatesDir = "templates"

// Static returns the static assets rooted at their directory.
func Static() fs.FS {
	sub, err := fs.Sub(FS, "static")
	if err != nil {
		panic(err) // The directory is embedded above.
	}
	return sub
}
