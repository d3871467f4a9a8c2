package studio

import (
	"fmt"
	"strings"

	"github.com/fpang/livery-studio/internal/intake"
)

// Action is a state change request. IDs and timestamps are chosen by the
// dispatcher so Reduce stays deterministic.
type Action interface {
	isAction()
}

// ImageSelected replaces a slot with a freshly loaded image.
type ImageSelected struct {
	Slot  Slot
	Image *intake.ImageSlot
	Line  LogLine
}

// AppendLog adds one activity log line.
type AppendLog struct {
	Line LogLine
}

// AdaptationLevelSet changes the level, clamped to [0,100].
type AdaptationLevelSet struct {
	Level int
}

// PendingInstructionSet replaces the instruction edit box text.
type PendingInstructionSet struct {
	Text string
}

// APIKeySet replaces the in-memory credential.
type APIKeySet struct {
	Key string
}

// InstructionRecalled copies a logged instruction back into the edit box.
type InstructionRecalled struct {
	ID string
}

// HistoryRestored displays an archived result.
type HistoryRestored struct {
	ID   string
	Line LogLine
}

// GenerationStarted moves to Running. Entry is recorded only when the pending
// instruction is promoted and differs from the log head. LevelLine gets its
// message from the level in effect.
type GenerationStarted struct {
	RunID       string
	Entry       InstructionEntry
	SessionLine LogLine
	LevelLine   LogLine
}

// ProgressTicked advances the simulated progress of a run.
type ProgressTicked struct {
	RunID string
}

// GenerationSucceeded completes a run with a result image.
type GenerationSucceeded struct {
	RunID  string
	Result string
	Record HistoryRecord
	Line   LogLine
}

// GenerationFailed completes a run with an error line.
type GenerationFailed struct {
	RunID string
	Line  LogLine
}

func (ImageSelected) isAction()         {}
func (AppendLog) isAction()             {}
func (AdaptationLevelSet) isAction()    {}
func (PendingInstructionSet) isAction() {}
func (APIKeySet) isAction()             {}
func (InstructionRecalled) isAction()   {}
func (HistoryRestored) isAction()       {}
func (GenerationStarted) isAction()     {}
func (ProgressTicked) isAction()        {}
func (GenerationSucceeded) isAction()   {}
func (GenerationFailed) isAction()      {}

// Reduce applies an action to a state. On error the returned state is the
// input state, unchanged.
func Reduce(s State, a Action) (State, error) {
	switch a := a.(type) {
	case ImageSelected:
		if !a.Slot.Valid() || a.Image == nil {
			return s, fmt.Errorf("invalid image selection for slot %q", a.Slot)
		}
		if a.Slot == SlotReference {
			s.Reference = a.Image
		} else {
			s.Target = a.Image
			s.TargetPreview = a.Image.Preview
		}
		s.Logs = append(s.Logs, a.Line)
		return s, nil

	case AppendLog:
		s.Logs = append(s.Logs, a.Line)
		return s, nil

	case AdaptationLevelSet:
		s.AdaptationLevel = ClampLevel(a.Level)
		return s, nil

	case PendingInstructionSet:
		s.PendingInstruction = a.Text
		return s, nil

	case APIKeySet:
		s.apiKey = strings.TrimSpace(a.Key)
		return s, nil

	case InstructionRecalled:
		for _, entry := range s.Instructions {
			if entry.ID == a.ID {
				s.PendingInstruction = entry.Text
				return s, nil
			}
		}
		return s, fmt.Errorf("instruction %s: %w", a.ID, ErrNotFound)

	case HistoryRestored:
		rec, ok := s.Record(a.ID)
		if !ok {
			return s, fmt.Errorf("history record %s: %w", a.ID, ErrNotFound)
		}
		s.Result = rec.ResultImage
		s.ResultID = rec.ID
		s.TargetPreview = rec.TargetPreview
		s.Logs = append(s.Logs, a.Line)
		return s, nil

	case GenerationStarted:
		return startGeneration(s, a)

	case ProgressTicked:
		if s.Status != StatusRunning || a.RunID != s.RunID {
			return s, nil
		}
		s.Progress = NextProgress(s.Progress)
		return s, nil

	case GenerationSucceeded:
		if s.Status != StatusRunning || a.RunID != s.RunID {
			return s, nil
		}
		s.Status = StatusSucceeded
		s.Progress = 100
		s.Result = a.Result
		s.ResultID = a.Record.ID
		s.Logs = append(s.Logs, a.Line)

		rec := a.Record
		rec.ResultImage = a.Result
		rec.TargetPreview = s.TargetPreview
		s.History = prepend(s.History, rec)
		return s, nil

	case GenerationFailed:
		if s.Status != StatusRunning || a.RunID != s.RunID {
			return s, nil
		}
		s.Status = StatusFailed
		s.Logs = append(s.Logs, a.Line)
		return s, nil

	default:
		return s, fmt.Errorf("unknown action %T", a)
	}
}

func startGeneration(s State, a GenerationStarted) (State, error) {
	if s.Status == StatusRunning {
		return s, ErrBusy
	}
	if missing := missingInputs(s); len(missing) > 0 {
		return s, &ValidationError{Missing: missing}
	}

	if pending := strings.TrimSpace(s.PendingInstruction); pending != "" {
		s.ActiveInstruction = pending
		s.Instructions = RecordInstruction(s.Instructions, InstructionEntry{
			ID:        a.Entry.ID,
			Text:      pending,
			CreatedAt: a.Entry.CreatedAt,
		})
	}

	levelLine := a.LevelLine
	levelLine.Message = fmt.Sprintf("parameters: adaptation level %d%%", s.AdaptationLevel)
	s.Logs = []LogLine{a.SessionLine, levelLine}
	s.Progress = 0
	s.Status = StatusRunning
	s.RunID = a.RunID
	return s, nil
}

func missingInputs(s State) []Slot {
	var missing []Slot
	if !s.Reference.HasPayload() {
		missing = append(missing, SlotReference)
	}
	if !s.Target.HasPayload() {
		missing = append(missing, SlotTarget)
	}
	return missing
}

// RecordInstruction prepends entry unless its text equals the current head.
func RecordInstruction(log []InstructionEntry, entry InstructionEntry) []InstructionEntry {
	if len(log) > 0 && log[0].Text == entry.Text {
		return log
	}
	return prepend(log, entry)
}

// ClampLevel bounds an adaptation level to [0,100].
func ClampLevel(level int) int {
	switch {
	case level < 0:
		return 0
	case level > 100:
		return 100
	default:
		return level
	}
}

func prepend[T any](list []T, item T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, item)
	return append(out, list...)
}
