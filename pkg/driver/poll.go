package driver

import (
	"context"
	"time"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// minPollTick keeps a long polling list from spinning the worker.
const minPollTick = 10 * time.Millisecond

// pollState tracks the progress through the polled values.
type pollState struct {
	pass uint64 // completed passes over the list
	next int    // cursor when polls are spread over the interval
}

// pollTick queues the polls that are due and returns the delay until the
// next tick. Polls are only queued while no other work is waiting.
func (s *Session) pollTick() time.Duration {
	interval := s.cfg.PollInterval
	reg := s.registry.Load()
	if reg == nil || !s.State().Accepting() {
		return interval
	}
	polled := reg.Polled()
	if len(polled) == 0 {
		return interval
	}

	tick := interval
	if s.cfg.IntervalBetweenPolls {
		tick = max(interval/time.Duration(len(polled)), minPollTick)
	}
	if s.jobs.Len() > 0 {
		return tick
	}

	if s.cfg.IntervalBetweenPolls {
		if s.polls.next >= len(polled) {
			s.polls.next = 0
			s.polls.pass++
		}
		vid := polled[s.polls.next]
		s.polls.next++
		s.pollIfDue(reg, vid)
		return tick
	}

	s.polls.pass++
	for _, vid := range polled {
		s.pollIfDue(reg, vid)
	}
	return tick
}

func (s *Session) pollIfDue(reg *zwave.NodeRegistry, vid zwave.ValueID) {
	v, err := reg.Value(vid)
	if err != nil || v.PollIntensity == 0 || s.polls.pass%uint64(v.PollIntensity) != 0 {
		return
	}
	if n, err := reg.Node(vid.NodeID); err != nil || n.Dead {
		return
	}
	s.enqueue(job{name: "poll", run: func(ctx context.Context) error {
		return s.refresh(ctx, vid)
	}})
}
