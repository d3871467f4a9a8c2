package assets

import (
	"strings"
	"testing"
)

func TestRenderLiveryTransferPrompt_Constraints(t *testing.T) {
	got := RenderLiveryTransferPrompt(LiveryPromptData{TierInstruction: "BALANCED ADAPTATION: test"})

	for _, want := range []string{
		"Input Image 1: REFERENCE STYLE",
		"Input Image 2: TARGET PRODUCT",
		"1. PRESERVE SHAPE:",
		"2. APPLY TEXTURE:",
		"3. BALANCED ADAPTATION: test",
		"Output a high-quality photorealistic image",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "USER FEEDBACK") {
		t.Error("feedback block rendered without feedback")
	}
}

func TestRenderLiveryTransferPrompt_Feedback(t *testing.T) {
	got := RenderLiveryTransferPrompt(LiveryPromptData{
		TierInstruction: "STRICT ADHERENCE: test",
		Feedback:        "make it matte",
	})

	if !strings.Contains(got, "4. USER FEEDBACK / REFINEMENT:") {
		t.Fatalf("expected feedback block\n%s", got)
	}
	if !strings.Contains(got, "\"make it matte\"") {
		t.Errorf("expected verbatim feedback\n%s", got)
	}
	if strings.Index(got, "3. STRICT") > strings.Index(got, "4. USER FEEDBACK") {
		t.Error("feedback block must follow the tier constraint")
	}
}

func TestRenderLiveryTransferPrompt_BlankFeedback(t *testing.T) {
	got := RenderLiveryTransferPrompt(LiveryPromptData{TierInstruction: "x", Feedback: "   \n\t"})
	if strings.Contains(got, "USER FEEDBACK") {
		t.Error("whitespace-only feedback should omit the block")
	}
}
