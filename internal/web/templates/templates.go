// Package templates embeds the scan companion's HTML.
package templates

import "embed"

//go:embed *.html
var FS embed.FS
