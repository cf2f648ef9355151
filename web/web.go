// Package web embeds the browser shell served at "/".
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// FS returns the embedded static assets rooted at the shell's index.html.
func FS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
