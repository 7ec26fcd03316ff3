package script

import (
	"fmt"
	"strings"

	"proxyoda/internal/manifest"
)

const (
	frontendAttempts = 20
	frontendPollMS   = 500
)

// Generate renders an ExtendScript that waits for the AME frontend, creates
// each destination folder, and adds every job to the batch queue. AME takes
// a destination folder rather than a file, so the output file name is left
// to the preset.
func Generate(jobs []manifest.JobDescriptor) string {
	var b strings.Builder
	b.WriteString("// proxyoda: add encoding jobs to Adobe Media Encoder\n")
	b.WriteString("function waitForFrontend(maxAttempts) {\n")
	b.WriteString("  var attempts = 0;\n")
	b.WriteString("  var frontend = null;\n")
	b.WriteString("  while (attempts < maxAttempts) {\n")
	b.WriteString("    try {\n")
	b.WriteString("      frontend = app.getFrontend();\n")
	b.WriteString("      if (frontend) return frontend;\n")
	b.WriteString("    } catch (e) {}\n")
	fmt.Fprintf(&b, "    $.sleep(%d);\n", frontendPollMS)
	b.WriteString("    attempts++;\n")
	b.WriteString("  }\n")
	b.WriteString("  return null;\n")
	b.WriteString("}\n\n")
	b.WriteString("try {\n")
	fmt.Fprintf(&b, "  var frontend = waitForFrontend(%d);\n", frontendAttempts)
	b.WriteString("  if (!frontend) {\n")
	b.WriteString("    alert(\"Error: Could not get AME frontend after waiting\");\n")
	b.WriteString("    throw new Error(\"Frontend not available\");\n")
	b.WriteString("  }\n\n")
	b.WriteString("  var successCount = 0;\n")
	b.WriteString("  var failCount = 0;\n\n")

	for i, job := range jobs {
		fmt.Fprintf(&b, "  // Job %d: %s\n", i+1, singleLine(job.PresetName))
		fmt.Fprintf(&b, "  var source%d = \"%s\";\n", i, EscapeJS(job.InputPath))
		fmt.Fprintf(&b, "  var destination%d = \"%s\";\n", i, EscapeJS(OutputDir(job.OutputPath)))
		fmt.Fprintf(&b, "  var preset%d = \"%s\";\n", i, EscapeJS(job.PresetPath))
		fmt.Fprintf(&b, "  var destFolder%d = new Folder(destination%d);\n", i, i)
		fmt.Fprintf(&b, "  if (!destFolder%d.exists) {\n", i)
		fmt.Fprintf(&b, "    destFolder%d.create();\n", i)
		b.WriteString("  }\n")
		fmt.Fprintf(&b, "  if (frontend.addFileToBatch(source%d, \"\", preset%d, destination%d)) {\n", i, i, i)
		b.WriteString("    successCount++;\n")
		b.WriteString("  } else {\n")
		b.WriteString("    failCount++;\n")
		b.WriteString("  }\n\n")
	}

	b.WriteString("  if (failCount > 0) {\n")
	b.WriteString("    alert(\"Added \" + successCount + \" job(s), \" + failCount + \" failed\");\n")
	b.WriteString("  }\n")
	b.WriteString("} catch (error) {\n")
	b.WriteString("  alert(\"Error adding jobs to AME: \" + error.message);\n")
	b.WriteString("}\n")
	return b.String()
}

var jsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// EscapeJS escapes s for use inside a double-quoted ExtendScript string literal.
func EscapeJS(s string) string {
	return jsEscaper.Replace(s)
}

// OutputDir returns the directory part of an output path using either
// separator, since paths may target a Windows host.
func OutputDir(outputPath string) string {
	idx := strings.LastIndexAny(outputPath, `\/`)
	if idx < 0 {
		return ""
	}
	if idx == 0 {
		return outputPath[:1]
	}
	return outputPath[:idx]
}

func singleLine(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
