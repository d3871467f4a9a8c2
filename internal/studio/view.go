package studio

import (
	"time"

	"github.com/fpang/livery-studio/internal/auth"
	"github.com/fpang/livery-studio/internal/chat"
	"github.com/fpang/livery-studio/internal/intake"
)

// SlotView describes a loaded image without its payload.
type SlotView struct {
	Name      string        `json:"name"`
	MIMEType  string        `json:"mimeType"`
	Size      int64         `json:"size"`
	Preview   intake.Handle `json:"preview"`
	Camera    string        `json:"camera,omitempty"`
	DateTaken *time.Time    `json:"dateTaken,omitempty"`
}

// View is the JSON shape of a State sent to clients. It carries no image
// payloads and never the API key; CredentialReady only says whether a session
// or environment key is available.
type View struct {
	Status             Status             `json:"status"`
	StatusText         string             `json:"statusText"`
	Progress           float64            `json:"progress"`
	RunID              string             `json:"runId,omitempty"`
	Reference          *SlotView          `json:"reference"`
	Target             *SlotView          `json:"target"`
	TargetPreview      *intake.Handle     `json:"targetPreview"`
	AdaptationLevel    int                `json:"adaptationLevel"`
	Tier               string             `json:"tier"`
	PendingInstruction string             `json:"pendingInstruction"`
	ActiveInstruction  string             `json:"activeInstruction"`
	Instructions       []InstructionEntry `json:"instructions"`
	Logs               []LogLine          `json:"logs"`
	History            []HistoryRecord    `json:"history"`
	ResultID           string             `json:"resultId,omitempty"`
	HasResult          bool               `json:"hasResult"`
	HasAPIKey          bool               `json:"hasApiKey"`
	CredentialReady    bool               `json:"credentialReady"`
	CanGenerate        bool               `json:"canGenerate"`
}

// NewView projects a state for clients.
func NewView(s State) View {
	v := View{
		Status:             s.Status,
		StatusText:         StatusText(s.Status, s.Progress),
		Progress:           s.Progress,
		RunID:              s.RunID,
		Reference:          slotView(s.Reference),
		Target:             slotView(s.Target),
		AdaptationLevel:    s.AdaptationLevel,
		Tier:               chat.AdherenceTier(s.AdaptationLevel).String(),
		PendingInstruction: s.PendingInstruction,
		ActiveInstruction:  s.ActiveInstruction,
		Instructions:       s.Instructions,
		Logs:               s.Logs,
		History:            s.History,
		ResultID:           s.ResultID,
		HasResult:          s.Result != "",
		HasAPIKey:          s.HasExplicitAPIKey(),
		CredentialReady:    auth.HasAPIKey(s.apiKey),
		CanGenerate:        s.Status != StatusRunning && s.Reference.HasPayload() && s.Target.HasPayload(),
	}
	if !s.TargetPreview.IsZero() {
		preview := s.TargetPreview
		v.TargetPreview = &preview
	}
	if v.Instructions == nil {
		v.Instructions = []InstructionEntry{}
	}
	if v.Logs == nil {
		v.Logs = []LogLine{}
	}
	if v.History == nil {
		v.History = []HistoryRecord{}
	}
	return v
}

func slotView(slot *intake.ImageSlot) *SlotView {
	if slot == nil {
		return nil
	}
	v := &SlotView{
		Name:     slot.Name,
		MIMEType: slot.MIMEType,
		Size:     slot.Size,
		Preview:  slot.Preview,
		Camera:   slot.Metadata.Camera(),
	}
	if slot.Metadata != nil && slot.Metadata.HasDate {
		taken := slot.Metadata.DateTaken
		v.DateTaken = &taken
	}
	return v
}
