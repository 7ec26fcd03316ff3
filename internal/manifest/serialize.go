package manifest

import "strings"

const (
	xmlHeader     = `<?xml version="1.0" encoding="UTF-8"?>`
	manifestOpen  = `<manifest version="1.0">`
	manifestClose = `</manifest>`
)

// escapeSequence lists the five predefined XML entities. Ampersand comes first so
// entities introduced by later replacements are not escaped twice.
var escapeSequence = [][2]string{
	{"&", "&amp;"},
	{"<", "&lt;"},
	{">", "&gt;"},
	{`"`, "&quot;"},
	{"'", "&apos;"},
}

// Escape applies XML entity escaping to s. Nothing else is transformed, so
// path separators pass through verbatim.
func Escape(s string) string {
	for _, pair := range escapeSequence {
		s = strings.ReplaceAll(s, pair[0], pair[1])
	}
	return s
}

// Serialize renders job as the manifest document accepted by the AME web
// service. The layout is fixed byte for byte.
func Serialize(job JobDescriptor) string {
	var b strings.Builder
	b.Grow(len(xmlHeader) + len(job.InputPath) + len(job.OutputPath) + len(job.PresetPath) + 160)
	b.WriteString(xmlHeader)
	b.WriteByte('\n')
	b.WriteString(manifestOpen)
	b.WriteByte('\n')
	writeElement(&b, "SourceFilePath", job.InputPath)
	writeElement(&b, "DestinationPath", job.OutputPath)
	writeElement(&b, "SourcePresetPath", job.PresetPath)
	b.WriteString(manifestClose)
	b.WriteByte('\n')
	return b.String()
}

func writeElement(b *strings.Builder, name, value string) {
	b.WriteString("  <")
	b.WriteString(name)
	b.WriteByte('>')
	b.WriteString(Escape(value))
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">\n")
}
