package studio

import (
	"errors"
	"testing"
	"time"

	"github.com/fpang/livery-studio/internal/intake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func testSlot(name string) *intake.ImageSlot {
	return &intake.ImageSlot{
		Name:     name,
		MIMEType: "image/png",
		Data:     []byte(name),
		Preview:  intake.Handle{ID: "prev-" + name, URL: intake.PreviewRoute + "prev-" + name},
	}
}

func readyState() State {
	s := NewState()
	s.Reference = testSlot("ref")
	s.Target = testSlot("tgt")
	s.TargetPreview = s.Target.Preview
	return s
}

func started(runID, entryID string) GenerationStarted {
	return GenerationStarted{
		RunID:       runID,
		Entry:       InstructionEntry{ID: entryID, CreatedAt: fixedTime},
		SessionLine: LogLine{ID: "log-a", Severity: SeverityInfo, Message: "initializing session..."},
		LevelLine:   LogLine{ID: "log-b", Severity: SeverityInfo},
	}
}

func TestReduce_StartRequiresBothImages(t *testing.T) {
	for _, tc := range []struct {
		name    string
		state   State
		missing []Slot
	}{
		{"none", NewState(), []Slot{SlotReference, SlotTarget}},
		{"reference only", func() State {
			s := NewState()
			s.Reference = testSlot("r")
			return s
		}(), []Slot{SlotTarget}},
		{"empty target payload", func() State {
			s := readyState()
			s.Target = &intake.ImageSlot{Name: "empty"}
			return s
		}(), []Slot{SlotTarget}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Reduce(tc.state, started("run-1", "instr-1"))

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.missing, validationErr.Missing)
			assert.Equal(t, tc.state.Status, next.Status)
			assert.Empty(t, next.RunID)
		})
	}
}

func TestReduce_StartWhileRunningIsBusy(t *testing.T) {
	s, err := Reduce(readyState(), started("run-1", "instr-1"))
	require.NoError(t, err)

	next, err := Reduce(s, started("run-2", "instr-2"))
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, "run-1", next.RunID)
}

func TestReduce_StartResetsRunState(t *testing.T) {
	s := readyState()
	s.Status = StatusSucceeded
	s.Progress = 100
	s.AdaptationLevel = 42
	s.Logs = []LogLine{{ID: "old", Message: "previous run"}}

	next, err := Reduce(s, started("run-2", "instr-1"))
	require.NoError(t, err)

	assert.Equal(t, StatusRunning, next.Status)
	assert.Equal(t, 0.0, next.Progress)
	assert.Equal(t, "run-2", next.RunID)
	require.Len(t, next.Logs, 2)
	assert.Equal(t, "initializing session...", next.Logs[0].Message)
	assert.Equal(t, "parameters: adaptation level 42%", next.Logs[1].Message)
}

func TestReduce_InstructionPromotion(t *testing.T) {
	s := readyState()
	s.PendingInstruction = "  make it matte  "

	s, err := Reduce(s, started("run-1", "instr-1"))
	require.NoError(t, err)
	assert.Equal(t, "make it matte", s.ActiveInstruction)
	require.Len(t, s.Instructions, 1)
	assert.Equal(t, "instr-1", s.Instructions[0].ID)

	s, _ = Reduce(s, GenerationFailed{RunID: "run-1"})
	s, err = Reduce(s, started("run-2", "instr-2"))
	require.NoError(t, err)
	assert.Len(t, s.Instructions, 1, "same text must not be recorded twice")

	s, _ = Reduce(s, GenerationFailed{RunID: "run-2"})
	s.PendingInstruction = ""
	s, err = Reduce(s, started("run-3", "instr-3"))
	require.NoError(t, err)
	assert.Equal(t, "make it matte", s.ActiveInstruction, "empty edit reuses the active instruction")
	assert.Len(t, s.Instructions, 1)
}

func TestRecordInstruction_HeadOnlyDedup(t *testing.T) {
	var log []InstructionEntry
	log = RecordInstruction(log, InstructionEntry{ID: "1", Text: "a"})
	log = RecordInstruction(log, InstructionEntry{ID: "2", Text: "b"})
	log = RecordInstruction(log, InstructionEntry{ID: "3", Text: "b"})
	log = RecordInstruction(log, InstructionEntry{ID: "4", Text: "a"})

	require.Len(t, log, 3)
	assert.Equal(t, []string{"4", "2", "1"}, []string{log[0].ID, log[1].ID, log[2].ID})
}

func TestReduce_ProgressTicks(t *testing.T) {
	s, err := Reduce(readyState(), started("run-1", "instr-1"))
	require.NoError(t, err)

	s, _ = Reduce(s, ProgressTicked{RunID: "run-1"})
	assert.Equal(t, 2.0, s.Progress)

	s, _ = Reduce(s, ProgressTicked{RunID: "run-old"})
	assert.Equal(t, 2.0, s.Progress, "stale run ticks are ignored")

	s, _ = Reduce(s, GenerationFailed{RunID: "run-1", Line: LogLine{Severity: SeverityError}})
	s, _ = Reduce(s, ProgressTicked{RunID: "run-1"})
	assert.Equal(t, 2.0, s.Progress, "ticks after completion are ignored")
}

func TestReduce_Success(t *testing.T) {
	s, err := Reduce(readyState(), started("run-1", "instr-1"))
	require.NoError(t, err)
	s.Progress = 57

	s, err = Reduce(s, GenerationSucceeded{
		RunID:  "run-1",
		Result: "data:image/png;base64,AAAA",
		Record: HistoryRecord{ID: "hist-1", CreatedAt: fixedTime},
		Line:   LogLine{Severity: SeveritySuccess, Message: "done"},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, s.Status)
	assert.Equal(t, 100.0, s.Progress)
	assert.Equal(t, "data:image/png;base64,AAAA", s.Result)
	assert.Equal(t, "hist-1", s.ResultID)
	require.Len(t, s.History, 1)
	assert.Equal(t, "data:image/png;base64,AAAA", s.History[0].ResultImage)
	assert.Equal(t, s.Target.Preview, s.History[0].TargetPreview)
	assert.Equal(t, SeveritySuccess, s.Logs[len(s.Logs)-1].Severity)
}

func TestReduce_CompletionForStaleRunIgnored(t *testing.T) {
	s, _ := Reduce(readyState(), started("run-2", "instr-1"))
	next, err := Reduce(s, GenerationSucceeded{RunID: "run-1", Result: "x"})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, next.Status)
	assert.Empty(t, next.History)
}

func TestReduce_RestoreHistory(t *testing.T) {
	s := readyState()
	s.History = []HistoryRecord{
		{ID: "hist-2", ResultImage: "img2", TargetPreview: intake.Handle{ID: "prev-2"}},
		{ID: "hist-1", ResultImage: "img1", TargetPreview: intake.Handle{ID: "prev-1"}},
	}
	before := append([]HistoryRecord(nil), s.History...)

	next, err := Reduce(s, HistoryRestored{ID: "hist-1", Line: LogLine{Message: "history loaded: hist-1"}})
	require.NoError(t, err)

	assert.Equal(t, "img1", next.Result)
	assert.Equal(t, "hist-1", next.ResultID)
	assert.Equal(t, "prev-1", next.TargetPreview.ID)
	assert.Equal(t, s.Target, next.Target, "target payload is untouched")
	assert.Equal(t, before, next.History)

	_, err = Reduce(s, HistoryRestored{ID: "hist-9"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReduce_RecallInstruction(t *testing.T) {
	s := NewState()
	s.Instructions = []InstructionEntry{{ID: "instr-1", Text: "glossy"}}

	next, err := Reduce(s, InstructionRecalled{ID: "instr-1"})
	require.NoError(t, err)
	assert.Equal(t, "glossy", next.PendingInstruction)
	assert.Equal(t, StatusIdle, next.Status)

	_, err = Reduce(s, InstructionRecalled{ID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReduce_SettingsAndSelection(t *testing.T) {
	s := NewState()
	assert.Equal(t, DefaultAdaptationLevel, s.AdaptationLevel)

	s, _ = Reduce(s, AdaptationLevelSet{Level: 140})
	assert.Equal(t, 100, s.AdaptationLevel)
	s, _ = Reduce(s, AdaptationLevelSet{Level: -3})
	assert.Equal(t, 0, s.AdaptationLevel)

	s, _ = Reduce(s, APIKeySet{Key: "  secret  "})
	assert.True(t, s.HasExplicitAPIKey())
	assert.Equal(t, "secret", s.apiKey)

	tgt := testSlot("tgt")
	s, err := Reduce(s, ImageSelected{Slot: SlotTarget, Image: tgt, Line: LogLine{Message: "target loaded: tgt"}})
	require.NoError(t, err)
	assert.Same(t, tgt, s.Target)
	assert.Equal(t, tgt.Preview, s.TargetPreview)

	_, err = Reduce(s, ImageSelected{Slot: "sideways", Image: tgt})
	assert.Error(t, err)
}
