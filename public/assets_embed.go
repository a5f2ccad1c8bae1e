package public

import (
	"embed"
	"io/fs"
)

//go:embed assets/*
var assets embed.FS

func AssetsFS() (fs.FS, error) {
	return fs.Sub(assets, "assets")
}
