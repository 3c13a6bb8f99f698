// Package web embeds the viewer page, its script and the HTML fragments.
package web

import "embed"

// FS holds templates/ and static/.
//
//go:embed templates static
var FS embed.FS
