package promptapi

import (
	"strconv"
	"strings"
)

// Render formats a response for display: the generated prompt followed by a
// metadata comment block. The Applied Tones line is only present when tones
// were applied and at least one is listed.
func Render(resp GenerationResponse) string {
	var b strings.Builder
	b.WriteString(resp.GeneratedPrompt)
	b.WriteString("\n\n/* PromptCrafter Metadata:\n")
	b.WriteString(" * Content Type: ")
	b.WriteString(resp.ContentType)
	b.WriteString("\n * Tones Applied: ")
	if resp.TonesApplied {
		b.WriteString("Yes")
	} else {
		b.WriteString("No")
	}
	b.WriteString("\n")
	if resp.TonesApplied && len(resp.AppliedTones) > 0 {
		b.WriteString(" * Applied Tones: ")
		b.WriteString(strings.Join(resp.AppliedTones, ", "))
		b.WriteString("\n")
	}
	b.WriteString(" * Processing Time: ")
	b.WriteString(strconv.FormatFloat(resp.ProcessingTimeMs, 'f', -1, 64))
	b.WriteString("ms\n */")
	return b.String()
}
