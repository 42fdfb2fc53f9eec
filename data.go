/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"io/fs"
)

//go:embed data
var embeddedData embed.FS

// dataFS returns the embedded default catalog, rooted so that manifest.json
// sits at the top, matching the layout --data-dir expects.
func dataFS() fs.FS {
	sub, err := fs.Sub(embeddedData, "data")
	if err != nil {
		panic("embedded data missing: " + err.Error())
	}

	return sub
}
