// Package web holds the page templates and static assets of the web UI.
package web

import "embed"

// TemplatesFS embeds the page and partial templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds css, js and category icons.
//
//go:embed static
var StaticFS embed.FS
