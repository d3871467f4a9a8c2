// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at compile time.
package assets

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

//go:embed prompts/livery-transfer.txt
var liveryTransferTemplate string

// Pre-parsed so a malformed template fails at program startup rather than at call time.
var liveryTransferTmpl = template.Must(template.New("livery-transfer").Parse(liveryTransferTemplate))

// LiveryPromptData holds the dynamic data injected into the livery transfer prompt.
type LiveryPromptData struct {
	// TierInstruction is the adherence sentence chosen from the adaptation level.
	TierInstruction string
	// Feedback is the user's refinement instruction. Blank feedback omits the block.
	Feedback string
}

// RenderLiveryTransferPrompt renders the livery transfer instruction.
// Feedback is inserted verbatim; whitespace-only feedback is treated as absent.
func RenderLiveryTransferPrompt(data LiveryPromptData) string {
	if strings.TrimSpace(data.Feedback) == "" {
		data.Feedback = ""
	}
	var buf bytes.Buffer
	// Template execution errors are not expected with this template,
	// but we return whatever was rendered.
	_ = liveryTransferTmpl.Execute(&buf, data)
	return buf.String()
}
