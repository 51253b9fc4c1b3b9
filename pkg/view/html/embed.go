package html

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl templates/chrome/*.tmpl templates/list/*.tmpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the embedded template bundle so callers can copy and
// customise it before handing it back through WithTemplatesFS.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
