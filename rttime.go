// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"sync"
	"time"
)

// UsecInvalid marks "no deadline" for [*Context.RTTimeNew] and
// [*Context.RTTimeRestart] (spec.md §6.1: "usec == INVALID means 'no
// deadline'"), mirroring the original's PA_USEC_INVALID sentinel.
const UsecInvalid int64 = -1

// RTTimeCallback fires when an [*RTTimeEvent]'s deadline elapses. It runs
// on the context's actor goroutine, so it may safely call any [*Context]
// method, including [*Context.RTTimeRestart] on its own event.
type RTTimeCallback func(ctx *Context, ev *RTTimeEvent)

// RTTimeEvent is a one-shot, restartable timer forwarded to the
// application's event loop (spec.md §4.7 "awaiting a reply deadline" uses
// the same mechanism internally; this is the public surface, spec.md
// §6.1). The core never creates these itself for protocol purposes — each
// is a caller-scheduled deadline, e.g. for stream timing, realised here
// with [time.Timer] rather than a real external mainloop (SPEC_FULL.md
// §D: this module has no ambient single-threaded event loop to forward
// to; it schedules directly and delivers the callback through the actor).
type RTTimeEvent struct {
	ctx *Context
	cb  RTTimeCallback

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// RTTimeNew creates a timer event firing after usec microseconds
// ([UsecInvalid] for none, in which case the event is armed but idle
// until [*Context.RTTimeRestart] gives it a deadline), per spec.md §6.1.
// Rejects with a nil return if the context is fork-inherited (spec.md §5).
func (c *Context) RTTimeNew(usec int64, cb RTTimeCallback) *RTTimeEvent {
	if c.forked() {
		return nil
	}
	ev := &RTTimeEvent{ctx: c, cb: cb}
	c.armRTTime(ev, usec)
	return ev
}

// RTTimeRestart reschedules ev, replacing any pending deadline. usec ==
// [UsecInvalid] disarms it (spec.md §6.1). No-op if the context is
// fork-inherited or ev has already fired its terminal stop.
func (c *Context) RTTimeRestart(ev *RTTimeEvent, usec int64) {
	if c.forked() || ev == nil {
		return
	}
	c.armRTTime(ev, usec)
}

// armRTTime (re)schedules ev's underlying [time.Timer] relative to
// [Config.TimeNow] or the monotonic clock, per
// [Config.UseRealtimeClock], then stops any previous timer. The fired
// callback is delivered through [*Context.enqueue] so it observes the
// same ordering guarantees as every other actor-delivered event (spec.md
// §5).
func (c *Context) armRTTime(ev *RTTimeEvent, usec int64) {
	ev.mu.Lock()
	if ev.stopped {
		ev.mu.Unlock()
		return
	}
	if ev.timer != nil {
		ev.timer.Stop()
		ev.timer = nil
	}
	if usec == UsecInvalid {
		ev.stopped = false
		ev.mu.Unlock()
		return
	}
	d := time.Duration(usec) * time.Microsecond
	if !c.cfg.UseRealtimeClock {
		now := c.cfg.TimeNow()
		d = time.Until(now.Add(d))
		if d < 0 {
			d = 0
		}
	}
	ev.stopped = false
	ev.timer = time.AfterFunc(d, func() {
		c.enqueue(func() {
			ev.mu.Lock()
			fired := !ev.stopped
			ev.mu.Unlock()
			if fired && ev.cb != nil {
				ev.cb(c, ev)
			}
		})
	})
	ev.mu.Unlock()
}

// Free stops ev permanently; its callback will not fire again, matching
// the original's pa_rtclock_event free semantics.
func (ev *RTTimeEvent) Free() {
	ev.mu.Lock()
	ev.stopped = true
	if ev.timer != nil {
		ev.timer.Stop()
		ev.timer = nil
	}
	ev.mu.Unlock()
}
