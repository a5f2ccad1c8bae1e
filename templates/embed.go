// Package templates embeds the shell's html/template sources.
package templates

import "embed"

//go:embed *.tmpl partials/*.tmpl
var FS embed.FS
