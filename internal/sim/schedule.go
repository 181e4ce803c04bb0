package sim

import "sort"

// EventTag names a deferred episode action.
type EventTag string

const (
	EventTouchdownTimeout EventTag = "touchdown_timeout"
)

type scheduledEvent struct {
	deliverAt float64
	tag       EventTag
}

// Schedule is an episode-local queue of deferred actions keyed by simulation
// time. It replaces wall-clock timers so that Reset can discard pending work.
type Schedule struct {
	queue []scheduledEvent
}

// After enqueues tag to fire delay seconds after now.
func (s *Schedule) After(now, delay float64, tag EventTag) {
	ev := scheduledEvent{deliverAt: now + delay, tag: tag}
	i := sort.Search(len(s.queue), func(i int) bool { return s.queue[i].deliverAt > ev.deliverAt })
	s.queue = append(s.queue, scheduledEvent{})
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = ev
}

// Due pops and returns every event whose deadline is at or before now.
func (s *Schedule) Due(now float64) []EventTag {
	var due []EventTag
	for len(s.queue) > 0 && s.queue[0].deliverAt <= now {
		due = append(due, s.queue[0].tag)
		s.queue = s.queue[1:]
	}
	return due
}

// Cancel drops every pending event with the given tag.
func (s *Schedule) Cancel(tag EventTag) {
	kept := s.queue[:0]
	for _, ev := range s.queue {
		if ev.tag != tag {
			kept = append(kept, ev)
		}
	}
	s.queue = kept
}

// Pending reports whether tag is queued.
func (s *Schedule) Pending(tag EventTag) bool {
	for _, ev := range s.queue {
		if ev.tag == tag {
			return true
		}
	}
	return false
}

func (s *Schedule) Len() int { return len(s.queue) }

// Clear drops all pending events.
func (s *Schedule) Clear() { s.queue = s.queue[:0] }
