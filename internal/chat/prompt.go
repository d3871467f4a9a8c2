package chat

import (
	"github.com/fpang/livery-studio/internal/assets"
)

// Tier is the adherence tier an adaptation level selects.
type Tier int

const (
	TierStrict Tier = iota
	TierBalanced
	TierCreative
)

// tierTable is ordered by ascending upper bound. Levels at or above the last
// bound fall through to TierCreative.
var tierTable = []struct {
	below int
	tier  Tier
}{
	{below: 30, tier: TierStrict},
	{below: 70, tier: TierBalanced},
}

var tierInstructions = map[Tier]string{
	TierStrict:   "STRICT ADHERENCE: Copy the pattern/graphics from the first image exactly as they appear. Minimally wrap them around the target object. Do not alter the artistic style.",
	TierBalanced: "BALANCED ADAPTATION: Apply the pattern/graphics from the first image onto the target object. Adjust the pattern placement intelligently to fit the product's main surfaces while keeping the core design recognizable.",
	TierCreative: "CREATIVE INTEGRATION: Take the visual theme and elements from the first image and creatively redesign the skin of the target object. You have freedom to warp, scale, and flow the graphics to perfectly accentuate the target product's 3D geometry and curves.",
}

// AdherenceTier maps an adaptation level to its tier:
// below 30 is strict, 30 to 69 is balanced, 70 and above is creative.
func AdherenceTier(level int) Tier {
	for _, row := range tierTable {
		if level < row.below {
			return row.tier
		}
	}
	return TierCreative
}

func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierBalanced:
		return "balanced"
	case TierCreative:
		return "creative"
	default:
		return "unknown"
	}
}

// Instruction returns the sentence sent to the model for this tier.
func (t Tier) Instruction() string {
	return tierInstructions[t]
}

// BuildInstruction renders the full livery transfer instruction for a level and
// optional refinement feedback.
func BuildInstruction(level int, feedback string) string {
	return assets.RenderLiveryTransferPrompt(assets.LiveryPromptData{
		TierInstruction: AdherenceTier(level).Instruction(),
		Feedback:        feedback,
	})
}
