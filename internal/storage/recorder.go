package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smentu/AI-guided-rockets/internal/model"
	"github.com/smentu/AI-guided-rockets/internal/sim"
)

type openEpisode struct {
	id    uuid.UUID
	last  sim.StepResult
	ended bool
}

// Recorder turns fleet tick results into backend calls: an episode record when
// a slot starts a new episode, a sampled step stream, and a summary when the
// episode ends.
type Recorder struct {
	backend     Backend
	sampleEvery int
	autopilot   bool
	log         zerolog.Logger
	now         func() time.Time

	slots []*openEpisode
}

// NewRecorder wraps backend. sampleEvery below 1 records every step.
func NewRecorder(backend Backend, sampleEvery int, autopilot bool, log zerolog.Logger) *Recorder {
	return &Recorder{
		backend:     backend,
		sampleEvery: max(1, sampleEvery),
		autopilot:   autopilot,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Observe records one fleet tick. episodes and results are matched by index.
func (r *Recorder) Observe(episodes []*sim.Episode, results []sim.StepResult) error {
	if len(r.slots) < len(results) {
		r.slots = append(r.slots, make([]*openEpisode, len(results)-len(r.slots))...)
	}
	for i, res := range results {
		if res.Episode == uuid.Nil {
			continue
		}
		slot := r.slots[i]
		if slot == nil || slot.id != res.Episode {
			if slot != nil && !slot.ended {
				if err := r.end(slot, episodes[i]); err != nil {
					return err
				}
			}
			slot = &openEpisode{id: res.Episode}
			r.slots[i] = slot
			if err := r.backend.StartEpisode(model.NewEpisode(episodes[i], i, r.autopilot, r.now())); err != nil {
				return fmt.Errorf("start episode %s: %w", res.Episode, err)
			}
		}
		if slot.ended {
			continue
		}
		slot.last = res

		if res.Step == 1 || res.Step%r.sampleEvery == 0 || res.Terminal != nil {
			if err := r.backend.RecordStep(model.StepFromResult(res)); err != nil {
				return fmt.Errorf("record step: %w", err)
			}
		}
		if res.Terminal != nil {
			if err := r.end(slot, episodes[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Recorder) end(slot *openEpisode, ep *sim.Episode) error {
	slot.ended = true
	s := model.SummaryFromResult(slot.last, ep.Rocket().Propulsion().Fuel(), r.now())
	if err := r.backend.EndEpisode(s); err != nil {
		return fmt.Errorf("end episode %s: %w", slot.id, err)
	}
	r.log.Debug().Str("episode", s.EpisodeID).Str("reason", s.Reason).Float64("reward", s.Reward).Msg("episode stored")
	return nil
}

// Finish closes every episode still open, e.g. when a run stops on its step
// limit. Their summaries carry no reason.
func (r *Recorder) Finish(episodes []*sim.Episode) error {
	for i, slot := range r.slots {
		if slot == nil || slot.ended || i >= len(episodes) {
			continue
		}
		if err := r.end(slot, episodes[i]); err != nil {
			return err
		}
	}
	return nil
}
