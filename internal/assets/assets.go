// Package assets embeds the browser client served next to every deck.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed client/*
var clientFS embed.FS

// ClientFS returns the embedded client files
func ClientFS() fs.FS {
	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		panic(err)
	}
	return sub
}

// GetClientJS returns the pager client script
func GetClientJS() ([]byte, error) {
	return clientFS.ReadFile("client/pager.js")
}

// GetClientCSS returns the deck stylesheet
func GetClientCSS() ([]byte, error) {
	return clientFS.ReadFile("client/pager.css")
}
