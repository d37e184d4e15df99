package chatd

import "embed"

// TemplateFS contains the embedded HTML templates used for rendering outbound documents,
// currently the conversation transcript email.
//
//go:embed templates/*
var TemplateFS embed.FS
