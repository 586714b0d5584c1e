// Package web holds the server-rendered page templates and static assets,
// embedded so the binary needs no files at runtime.
package web

import "embed"

// FS contains templates/*.html and static/*.
//
//go:embed templates static
var FS embed.FS
