package session

import (
	"context"
	"time"
)

// Renderer draws a View.
type Renderer interface {
	Render(v *View)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(v *View)

// Render implements Renderer.
func (f RenderFunc) Render(v *View) { f(v) }

// Run drives the session until ctx is done or actions is closed. Waits end
// early on queued events and user actions. The session is closed on return.
func Run(ctx context.Context, s *Session, r Renderer, actions <-chan Action) error {
	defer s.Close()

	for {
		res := s.Cycle(ctx)
		if res.View != nil {
			r.Render(res.View)
		}

		var timer *time.Timer
		switch res.Trigger.Cause {
		case RestartNow, Continue:
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		case RestartAfterDelay:
			timer = time.NewTimer(res.Trigger.Delay)
		}

		stop, err := wait(ctx, s, timer, actions)
		if timer != nil {
			timer.Stop()
		}
		if stop {
			return err
		}
	}
}

// wait blocks until the next cycle is due. stop is set when the driver
// should return err.
func wait(ctx context.Context, s *Session, timer *time.Timer, actions <-chan Action) (stop bool, err error) {
	if !s.Queue().Empty() {
		return false, nil
	}

	var timeout <-chan time.Time
	if timer != nil {
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case <-timeout:
	case <-s.Queue().Ready():
	case a, ok := <-actions:
		if !ok {
			return true, nil
		}
		s.Act(a)
	}
	return false, nil
}
