package studio

import (
	"context"
	"sync"
	"time"
)

// ProgressInterval is the simulated progress tick period.
const ProgressInterval = 100 * time.Millisecond

// ProgressCeiling is the highest value the simulation reaches on its own.
const ProgressCeiling = 95.0

// NextProgress advances simulated progress one tick: +2 below 30, +0.5 below
// 70, +0.1 below 95, never past ProgressCeiling.
func NextProgress(p float64) float64 {
	var step float64
	switch {
	case p < 30:
		step = 2
	case p < 70:
		step = 0.5
	case p < ProgressCeiling:
		step = 0.1
	}
	next := p + step
	if next > ProgressCeiling {
		next = ProgressCeiling
	}
	if next < p {
		return p
	}
	return next
}

// progressTask is the periodic tick source owned by one run.
type progressTask struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// startProgress ticks every interval until stopped, calling tick with runID.
func startProgress(interval time.Duration, runID string, tick func(ProgressTicked)) *progressTask {
	ctx, cancel := context.WithCancel(context.Background())
	task := &progressTask{cancel: cancel}
	task.wg.Add(1)
	go func() {
		defer task.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick(ProgressTicked{RunID: runID})
			}
		}
	}()
	return task
}

// Stop cancels the task and waits for its goroutine to exit. After Stop
// returns no further ticks are delivered. Safe to call more than once.
func (t *progressTask) Stop() {
	t.once.Do(t.cancel)
	t.wg.Wait()
}
