package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fpang/livery-studio/internal/auth"
	"github.com/fpang/livery-studio/internal/chat"
	"github.com/fpang/livery-studio/internal/intake"
	"github.com/fpang/livery-studio/internal/jobs"
	"github.com/fpang/livery-studio/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Options configures a Studio.
type Options struct {
	// Synthesizer performs the livery transfer. Required.
	Synthesizer chat.Synthesizer
	// Registry holds previews. A new registry is created when nil.
	Registry *intake.Registry
	// Model is only used for the activity log.
	Model string
	// Clock defaults to time.Now.
	Clock func() time.Time
	// ProgressInterval defaults to ProgressInterval.
	ProgressInterval time.Duration
}

// Studio runs the livery workflow for one session.
type Studio struct {
	store    *Store
	synth    chat.Synthesizer
	registry *intake.Registry
	model    string
	now      func() time.Time
	interval time.Duration
}

// New creates a Studio with a fresh session state.
func New(opts Options) *Studio {
	s := &Studio{
		synth:    opts.Synthesizer,
		registry: opts.Registry,
		model:    opts.Model,
		now:      opts.Clock,
		interval: opts.ProgressInterval,
	}
	if s.registry == nil {
		s.registry = intake.NewRegistry()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.interval <= 0 {
		s.interval = ProgressInterval
	}
	if s.model == "" {
		s.model = chat.DefaultImageModel
	}
	s.store = NewStore(NewState(), s.trackPreviews)
	return s
}

// Registry returns the preview registry backing this session.
func (s *Studio) Registry() *intake.Registry {
	return s.registry
}

// Snapshot returns the current state.
func (s *Studio) Snapshot() State {
	return s.store.Snapshot()
}

// Subscribe calls fn with every new state. Callbacks must not call back into
// the Studio's mutating methods.
func (s *Studio) Subscribe(fn func(State)) (cancel func()) {
	return s.store.Subscribe(fn)
}

// trackPreviews keeps preview reference counts in step with the state: a
// replaced slot gives up its preview and every new history record holds one.
func (s *Studio) trackPreviews(prev, next State) {
	if prev.Reference != nil && prev.Reference != next.Reference {
		s.registry.Release(prev.Reference.Preview)
	}
	if prev.Target != nil && prev.Target != next.Target {
		s.registry.Release(prev.Target.Preview)
	}
	for _, rec := range next.History[:len(next.History)-len(prev.History)] {
		s.registry.Retain(rec.TargetPreview)
	}
}

func (s *Studio) line(severity Severity, format string, args ...any) LogLine {
	return LogLine{
		ID:        jobs.GenerateID(jobs.PrefixLogLine),
		CreatedAt: s.now(),
		Severity:  severity,
		Message:   fmt.Sprintf(format, args...),
	}
}

func (s *Studio) appendLog(severity Severity, format string, args ...any) {
	_, _ = s.store.Dispatch(AppendLog{Line: s.line(severity, format, args...)})
}

// Select loads an image into a slot. A read failure is logged and leaves the
// slot as it was.
func (s *Studio) Select(slot Slot, name string, r io.Reader) error {
	if !slot.Valid() {
		return fmt.Errorf("unknown slot %q", slot)
	}
	img, err := s.registry.Select(name, r)
	return s.place(slot, img, err)
}

// SelectReference loads the reference style image.
func (s *Studio) SelectReference(name string, r io.Reader) error {
	return s.Select(SlotReference, name, r)
}

// SelectTarget loads the target product image.
func (s *Studio) SelectTarget(name string, r io.Reader) error {
	return s.Select(SlotTarget, name, r)
}

// SelectFile loads an image from disk into a slot.
func (s *Studio) SelectFile(slot Slot, path string) error {
	if !slot.Valid() {
		return fmt.Errorf("unknown slot %q", slot)
	}
	img, err := s.registry.SelectFile(path)
	return s.place(slot, img, err)
}

func (s *Studio) place(slot Slot, img *intake.ImageSlot, loadErr error) error {
	if loadErr != nil {
		log.Warn().Err(loadErr).Str("slot", string(slot)).Msg("Image selection failed")
		s.appendLog(SeverityError, "load failed: %s image unreadable (%v)", slot, loadErr)
		return loadErr
	}
	if _, err := s.store.Dispatch(ImageSelected{
		Slot:  slot,
		Image: img,
		Line:  s.line(SeverityInfo, "%s loaded: %s", slot, img.Name),
	}); err != nil {
		s.registry.Release(img.Preview)
		return err
	}
	return nil
}

// SetAdaptationLevel sets the level, clamped to [0,100].
func (s *Studio) SetAdaptationLevel(level int) {
	_, _ = s.store.Dispatch(AdaptationLevelSet{Level: level})
}

// SetPendingInstruction replaces the refinement edit text.
func (s *Studio) SetPendingInstruction(text string) {
	_, _ = s.store.Dispatch(PendingInstructionSet{Text: text})
}

// SetAPIKey holds key in memory for this session. It is never logged.
func (s *Studio) SetAPIKey(key string) {
	_, _ = s.store.Dispatch(APIKeySet{Key: key})
}

// RecallInstruction copies a logged instruction into the edit text.
func (s *Studio) RecallInstruction(id string) error {
	_, err := s.store.Dispatch(InstructionRecalled{ID: id})
	return err
}

// RestoreHistory displays an archived result and its target preview. The
// target payload is left as is.
func (s *Studio) RestoreHistory(id string) error {
	_, err := s.store.Dispatch(HistoryRestored{
		ID:   id,
		Line: s.line(SeverityInfo, "history loaded: %s", id),
	})
	return err
}

// Run is the handle of one generation attempt.
type Run struct {
	ID    string
	done  chan struct{}
	err   error
	state State
}

// Wait blocks until the run completes and returns its synthesis error.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Done is closed when the run completes.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// State returns the state committed by the run's completion. Valid after Done.
func (r *Run) State() State {
	<-r.done
	return r.state
}

// Start begins a generation. It fails with ErrBusy while a run is active and
// with a *ValidationError, after logging a warning, when an image is missing.
// ctx bounds the synthesis call.
func (s *Studio) Start(ctx context.Context) (*Run, error) {
	runID := jobs.GenerateID(jobs.PrefixRun)

	started, err := s.store.Dispatch(GenerationStarted{
		RunID:       runID,
		Entry:       InstructionEntry{ID: jobs.GenerateID(jobs.PrefixInstruction), CreatedAt: s.now()},
		SessionLine: s.line(SeverityInfo, "initializing session..."),
		LevelLine:   s.line(SeverityInfo, "parameters"),
	})
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			s.appendLog(SeverityWarning, "error: %v", validationErr)
		}
		log.Warn().Err(err).Msg("Generation not started")
		return nil, err
	}

	log.Info().
		Str("run_id", runID).
		Int("level", started.AdaptationLevel).
		Str("tier", chat.AdherenceTier(started.AdaptationLevel).String()).
		Bool("has_instruction", started.ActiveInstruction != "").
		Msg("Generation started")

	run := &Run{ID: runID, done: make(chan struct{})}
	progress := startProgress(s.interval, runID, func(tick ProgressTicked) {
		_, _ = s.store.Dispatch(tick)
	})
	go s.execute(ctx, run, started, progress)
	return run, nil
}

// Generate runs a generation to completion and returns the resulting state.
func (s *Studio) Generate(ctx context.Context) (State, error) {
	run, err := s.Start(ctx)
	if err != nil {
		return s.Snapshot(), err
	}
	err = run.Wait()
	return run.State(), err
}

func (s *Studio) execute(ctx context.Context, run *Run, started State, progress *progressTask) {
	defer close(run.done)
	startTime := time.Now()

	result, err := s.synthesize(ctx, started)

	// No tick may land after the completion action.
	progress.Stop()

	outcome := "success"
	var final State
	if err != nil {
		outcome = failureOutcome(err)
		log.Error().Err(err).Str("run_id", run.ID).Str("outcome", outcome).Msg("Generation failed")
		final, _ = s.store.Dispatch(GenerationFailed{
			RunID: run.ID,
			Line:  s.line(SeverityError, "aborted: %v", err),
		})
	} else {
		final, _ = s.store.Dispatch(GenerationSucceeded{
			RunID:  run.ID,
			Result: result,
			Record: HistoryRecord{ID: jobs.GenerateID(jobs.PrefixHistory), CreatedAt: s.now()},
			Line:   s.line(SeveritySuccess, "response received, render pipeline complete"),
		})
		log.Info().
			Str("run_id", run.ID).
			Dur("duration", time.Since(startTime)).
			Int("history", len(final.History)).
			Msg("Generation succeeded")
	}

	metrics.New(metrics.Namespace).
		Dimension("Result", outcome).
		Metric("GenerationMs", float64(time.Since(startTime).Milliseconds()), metrics.UnitMilliseconds).
		Metric("AdaptationLevel", float64(started.AdaptationLevel), metrics.UnitNone).
		Count("GenerationResult").
		Property("runId", run.ID).
		Flush()

	run.err = err
	run.state = final
}

func (s *Studio) synthesize(ctx context.Context, started State) (string, error) {
	key, source, err := auth.ResolveAPIKey(started.apiKey)
	if err != nil {
		return "", chat.NewCredentialError(err)
	}
	log.Debug().Str("key_source", string(source)).Msg("Credential resolved")

	s.appendLog(SeverityInfo, "encoding assets...")
	s.appendLog(SeverityInfo, "connecting to %s...", s.model)

	return s.synth.TransferLivery(ctx, chat.LiveryRequest{
		APIKey:          key,
		Reference:       chat.Image{Data: started.Reference.Data, MIMEType: started.Reference.MIMEType},
		Target:          chat.Image{Data: started.Target.Data, MIMEType: started.Target.MIMEType},
		AdaptationLevel: started.AdaptationLevel,
		Feedback:        started.ActiveInstruction,
	})
}

func failureOutcome(err error) string {
	var chatErr *chat.Error
	if errors.As(err, &chatErr) {
		return chatErr.Kind.String()
	}
	return "error"
}
