// Package locales embeds the translation catalogs served by the shell.
package locales

import "embed"

//go:embed *.toml
var FS embed.FS
