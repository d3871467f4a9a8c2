package chat

import (
	"strings"
	"testing"
)

func TestAdherenceTier_Boundaries(t *testing.T) {
	tests := []struct {
		level int
		want  Tier
	}{
		{-5, TierStrict},
		{0, TierStrict},
		{29, TierStrict},
		{30, TierBalanced},
		{50, TierBalanced},
		{69, TierBalanced},
		{70, TierCreative},
		{100, TierCreative},
		{150, TierCreative},
	}

	for _, tt := range tests {
		if got := AdherenceTier(tt.level); got != tt.want {
			t.Errorf("AdherenceTier(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestBuildInstruction_TierLine(t *testing.T) {
	tests := []struct {
		level  int
		prefix string
	}{
		{29, "STRICT ADHERENCE:"},
		{30, "BALANCED ADAPTATION:"},
		{69, "BALANCED ADAPTATION:"},
		{70, "CREATIVE INTEGRATION:"},
	}

	for _, tt := range tests {
		got := BuildInstruction(tt.level, "")
		if !strings.Contains(got, "3. "+tt.prefix) {
			t.Errorf("BuildInstruction(%d) missing %q", tt.level, tt.prefix)
		}
		for _, other := range []string{"STRICT ADHERENCE:", "BALANCED ADAPTATION:", "CREATIVE INTEGRATION:"} {
			if other != tt.prefix && strings.Contains(got, other) {
				t.Errorf("BuildInstruction(%d) also contains %q", tt.level, other)
			}
		}
	}
}

func TestBuildInstruction_HardConstraints(t *testing.T) {
	for _, level := range []int{0, 50, 100} {
		got := BuildInstruction(level, "anything")
		if !strings.Contains(got, "PRESERVE SHAPE") || !strings.Contains(got, "APPLY TEXTURE") {
			t.Errorf("level %d: hard constraints missing", level)
		}
	}
}

func TestBuildInstruction_Feedback(t *testing.T) {
	with := BuildInstruction(50, "make it matte")
	if !strings.Contains(with, `"make it matte"`) {
		t.Errorf("feedback not included verbatim:\n%s", with)
	}

	without := BuildInstruction(50, "  ")
	if strings.Contains(without, "USER FEEDBACK") {
		t.Error("blank feedback should not render a feedback block")
	}
}
