package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sync"

	"github.com/fpang/livery-studio/internal/compare"
	"github.com/fpang/livery-studio/internal/export"
	"github.com/fpang/livery-studio/internal/studio"
	"github.com/rs/zerolog/log"
)

var errNoResult = errors.New("no result to compare")

// runPlain loads both images, generates once and prints every activity line.
func runPlain(ctx context.Context, st *studio.Studio, sink export.Sink, referencePath, targetPath string) error {
	seen := make(map[string]bool)
	unsubscribe := st.Subscribe(func(state studio.State) {
		// Logs are replaced at the start of each run, so track lines by ID.
		for _, line := range state.Logs {
			if !seen[line.ID] {
				seen[line.ID] = true
				printLine(os.Stdout, line)
			}
		}
	})
	defer unsubscribe()

	if err := st.SelectFile(studio.SlotReference, referencePath); err != nil {
		return err
	}
	if err := st.SelectFile(studio.SlotTarget, targetPath); err != nil {
		return err
	}

	state, err := st.Generate(ctx)
	if err != nil {
		return err
	}

	location, err := export.ExportDataURI(ctx, sink, state.Result)
	if err != nil {
		log.Error().Err(err).Msg("Failed to save result")
		return err
	}
	fmt.Printf("Saved: %s\n", location)

	if compareFlag != "" {
		if err := writeComparison(st, state, compare.DefaultSplit, compareFlag); err != nil {
			log.Error().Err(err).Msg("Failed to write comparison")
			return err
		}
		fmt.Printf("Comparison: %s\n", compareFlag)
	}
	return nil
}

func printLine(w io.Writer, line studio.LogLine) {
	fmt.Fprintf(w, "[%s] %-7s %s\n", line.CreatedAt.Format("15:04:05"), line.Severity, line.Message)
}

// writeComparison renders the displayed target preview against the result at
// split and writes it as PNG.
func writeComparison(st *studio.Studio, state studio.State, split float64, path string) error {
	if state.Result == "" {
		return errNoResult
	}
	preview, ok := st.Registry().Lookup(state.TargetPreview.ID)
	if !ok {
		return fmt.Errorf("target preview %s is no longer held", state.TargetPreview.ID)
	}
	before, _, err := image.Decode(bytes.NewReader(preview.Data))
	if err != nil {
		return fmt.Errorf("failed to decode target preview: %w", err)
	}
	_, data, err := export.DecodeDataURI(state.Result)
	if err != nil {
		return err
	}
	after, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, compare.Compose(before, after, split)); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode comparison: %w", err)
	}
	return f.Close()
}

// stateRelay forwards studio states to a slower consumer without blocking the
// store. Only the newest pending state is kept.
type stateRelay struct {
	mu      sync.Mutex
	pending *studio.State
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newStateRelay(deliver func(studio.State)) *stateRelay {
	r := &stateRelay{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go r.loop(deliver)
	return r
}

// Offer queues state and returns immediately.
func (r *stateRelay) Offer(state studio.State) {
	r.mu.Lock()
	r.pending = &state
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *stateRelay) loop(deliver func(studio.State)) {
	for {
		select {
		case <-r.done:
			return
		case <-r.wake:
			r.mu.Lock()
			state := r.pending
			r.pending = nil
			r.mu.Unlock()
			if state != nil {
				deliver(*state)
			}
		}
	}
}

// Close stops delivery.
func (r *stateRelay) Close() {
	r.once.Do(func() { close(r.done) })
}
