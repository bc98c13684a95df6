// Package ui holds the embedded dashboard assets.
package ui

import "embed"

//go:embed dist
var DistFS embed.FS
