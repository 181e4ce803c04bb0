package sim

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FleetStats summarises finished episodes.
type FleetStats struct {
	Episodes   int
	Steps      int
	MeanReward float64
	BestReward float64
	Reasons    map[TerminalReason]int
}

// Fleet steps many independent episodes, one goroutine per episode per tick.
// Episodes share nothing; finished episodes are reset automatically when
// AutoReset is set.
type Fleet struct {
	episodes    []*Episode
	controllers []Controller
	AutoReset   bool

	mu       sync.Mutex
	finished []float64
	steps    int
	reasons  map[TerminalReason]int
}

// NewFleet builds a fleet. controllers is matched to episodes by index; a
// missing controller means Idle.
func NewFleet(episodes []*Episode, controllers []Controller) *Fleet {
	return &Fleet{
		episodes:    episodes,
		controllers: controllers,
		AutoReset:   true,
		reasons:     map[TerminalReason]int{},
	}
}

func (f *Fleet) Episodes() []*Episode { return f.episodes }
func (f *Fleet) Len() int             { return len(f.episodes) }

func (f *Fleet) controller(i int) Controller {
	if i < len(f.controllers) && f.controllers[i] != nil {
		return f.controllers[i]
	}
	return Idle
}

// Update advances every live episode by dt in parallel and returns the
// per-episode results in episode order. It stops early if ctx is cancelled.
func (f *Fleet) Update(ctx context.Context, dt float64) ([]StepResult, error) {
	results := make([]StepResult, len(f.episodes))
	g, ctx := errgroup.WithContext(ctx)
	for i, ep := range f.episodes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if ep.Done() {
				if !f.AutoReset {
					return nil
				}
				ep.Reset()
			}
			res := ep.Step(f.controller(i).Act(ep.Observe()), dt)
			results[i] = res
			if res.Terminal != nil {
				f.record(res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("fleet update: %w", err)
	}
	f.mu.Lock()
	f.steps++
	f.mu.Unlock()
	return results, nil
}

// Run calls Update until every episode is done or steps ticks have run.
// AutoReset is ignored while running.
func (f *Fleet) Run(ctx context.Context, steps int, dt float64, onTick func([]StepResult)) (int, error) {
	auto := f.AutoReset
	f.AutoReset = false
	defer func() { f.AutoReset = auto }()

	performed := 0
	for steps <= 0 || performed < steps {
		if f.allDone() {
			break
		}
		res, err := f.Update(ctx, dt)
		if err != nil {
			return performed, err
		}
		if onTick != nil {
			onTick(res)
		}
		performed++
	}
	return performed, nil
}

func (f *Fleet) allDone() bool {
	for _, ep := range f.episodes {
		if !ep.Done() {
			return false
		}
	}
	return true
}

func (f *Fleet) record(res StepResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, res.Cumulative)
	f.reasons[res.Terminal.Reason]++
}

// Stats reports totals over every episode that has finished so far.
func (f *Fleet) Stats() FleetStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := FleetStats{
		Episodes: len(f.finished),
		Steps:    f.steps,
		Reasons:  make(map[TerminalReason]int, len(f.reasons)),
	}
	for k, v := range f.reasons {
		st.Reasons[k] = v
	}
	if len(f.finished) == 0 {
		return st
	}
	st.BestReward = f.finished[0]
	sum := 0.0
	for _, r := range f.finished {
		sum += r
		if r > st.BestReward {
			st.BestReward = r
		}
	}
	st.MeanReward = sum / float64(len(f.finished))
	return st
}
