// Package studio owns the livery generation workflow: a pure reducer over a
// single State value, a store that serializes every change, the simulated
// progress task of a run, and the Studio that ties them to image intake and the
// synthesis client.
package studio

import (
	"slices"
	"time"

	"github.com/fpang/livery-studio/internal/intake"
)

// DefaultAdaptationLevel is the level a new session starts at.
const DefaultAdaptationLevel = 50

// Status is the generation state machine position.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Severity classifies an activity log line.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// LogLine is one activity log message.
type LogLine struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
}

// InstructionEntry is one recorded refinement instruction.
type InstructionEntry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryRecord is an archived successful generation. It keeps the result image
// and the target preview shown at completion, not the target payload, so a
// restored record can be viewed but not regenerated from.
type HistoryRecord struct {
	ID            string        `json:"id"`
	CreatedAt     time.Time     `json:"createdAt"`
	ResultImage   string        `json:"-"`
	TargetPreview intake.Handle `json:"targetPreview"`
}

// Slot names one of the two input images.
type Slot string

const (
	SlotReference Slot = "reference"
	SlotTarget    Slot = "target"
)

// Valid reports whether s names a known slot.
func (s Slot) Valid() bool {
	return s == SlotReference || s == SlotTarget
}

// State is the whole studio session. Values handed out by the store are
// snapshots; mutate only through actions.
type State struct {
	Reference *intake.ImageSlot
	Target    *intake.ImageSlot
	// TargetPreview is the target preview on display. It follows Target on
	// selection and a history record on restore.
	TargetPreview intake.Handle

	AdaptationLevel    int
	PendingInstruction string
	ActiveInstruction  string
	Instructions       []InstructionEntry
	Logs               []LogLine
	History            []HistoryRecord

	Status   Status
	Progress float64
	RunID    string
	// Result is the displayed result as a data URI; ResultID names the history
	// record it came from.
	Result   string
	ResultID string

	apiKey string
}

// NewState returns the state of a fresh session.
func NewState() State {
	return State{AdaptationLevel: DefaultAdaptationLevel}
}

// HasExplicitAPIKey reports whether a key was entered for this session.
func (s State) HasExplicitAPIKey() bool {
	return s.apiKey != ""
}

// Record looks up a history record by ID.
func (s State) Record(id string) (HistoryRecord, bool) {
	for _, rec := range s.History {
		if rec.ID == id {
			return rec, true
		}
	}
	return HistoryRecord{}, false
}

// clone copies the slices so a snapshot never shares backing arrays with the
// live state.
func (s State) clone() State {
	s.Instructions = slices.Clone(s.Instructions)
	s.Logs = slices.Clone(s.Logs)
	s.History = slices.Clone(s.History)
	return s
}

// StatusText is the display label for a status and progress value.
func StatusText(status Status, progress float64) string {
	switch status {
	case StatusIdle:
		return "awaiting task"
	case StatusRunning:
		switch {
		case progress < 30:
			return "initializing"
		case progress < 60:
			return "generating texture"
		case progress < 90:
			return "applying geometry"
		default:
			return "finalizing"
		}
	case StatusSucceeded:
		return "task complete"
	case StatusFailed:
		return "task failed"
	default:
		return "unknown"
	}
}
