// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"context"
	"log/slog"
	"net"
)

// runConnectCascade drives the candidate list to a connected byte channel,
// an autospawn attempt, or a bus-mediated wait (spec.md §4.2, §4.3, §4.4).
// It runs on its own goroutine, separate from the actor, because it
// performs blocking I/O (dial, waitpid, bus signal wait); every outcome
// is posted back to the actor via [*Context.enqueue] so state mutation
// stays single-threaded (SPEC_FULL.md §D). cascadeCtx is cancelled by
// [*Context.unlink] if the context reaches a terminal state first.
func (c *Context) runConnectCascade(cascadeCtx context.Context, epoch int, connector *Connector, flags ConnectFlags, hooks *SpawnHooks, autospawnAllowed, userSpecified bool) {
	busWaiter := NewBusWaiter(c.logger)
	autospawnDone := false

	for {
		if cascadeCtx.Err() != nil {
			return
		}

		conn, ep, err, ok := connector.TryNext(cascadeCtx)
		if !ok {
			if autospawnAllowed && !autospawnDone {
				autospawnDone = true
				spawner := NewAutospawn(c.cfg, c.logger)
				if spawnErr := spawner.Run(hooks); spawnErr != ErrOK {
					c.postCascadeFail(epoch, spawnErr)
					return
				}
				connector.PrependPerUser()
				continue
			}
			if flags&ConnectNoFail != 0 && !userSpecified {
				c.enqueue(func() {
					if c.connectEpoch == epoch {
						c.busWaiter = busWaiter
					}
				})
				set, waitErr := busWaiter.Wait(cascadeCtx, DefaultBusName)
				if waitErr != nil {
					c.postCascadeFail(epoch, ErrConnectionRefused)
					return
				}
				switch set {
				case EndpointSetPerUser:
					connector.PrependPerUser()
				case EndpointSetSystemWide:
					connector.PrependSystemWide()
				}
				continue
			}
			c.postCascadeFail(epoch, ErrConnectionRefused)
			return
		}

		if err != nil {
			c.logInfo("connectCandidateFailed", slog.String("endpoint", ep.String()), slog.Any("err", err))
			if classifyConnectError(c.cfg, err) {
				continue
			}
			c.postCascadeFail(epoch, ErrConnectionRefused)
			return
		}

		c.postCascadeConnected(epoch, conn, ep)
		return
	}
}

// postCascadeFail posts a fatal outcome back to the actor, a no-op if the
// context has since moved past this connect attempt.
func (c *Context) postCascadeFail(epoch int, err ErrCode) {
	c.enqueue(func() {
		if c.connectEpoch != epoch {
			return
		}
		c.fail(err)
	})
}

// postCascadeConnected hands the dialed [net.Conn] to the actor, which
// wraps it in a [FrameStream], starts the read loop, and begins the
// handshake (spec.md §4.5).
func (c *Context) postCascadeConnected(epoch int, conn net.Conn, ep Endpoint) {
	c.enqueue(func() {
		if c.connectEpoch != epoch {
			conn.Close()
			return
		}
		c.withSnapshot(func(s *snapshot) {
			s.isLocal = ep.Local
			s.isLocalKnown = true
			s.server = ep.String()
		})
		c.frameStream = NewFrameStream(conn, ep.Local, c.logger)
		go c.readLoop(epoch, c.frameStream)
		c.transitionTo(StateAuthorizing)
		c.beginAuth(epoch)
	})
}

// readLoop feeds inbound frames from fs into the actor's frame channel
// until fs.Recv fails, then posts the appropriate failure (spec.md §4.9:
// connection loss mid-session is fatal; during the handshake it is
// connection-refused).
func (c *Context) readLoop(epoch int, fs FrameStream) {
	for {
		f, err := fs.Recv()
		if err != nil {
			c.enqueue(func() {
				if c.connectEpoch != epoch {
					return
				}
				if c.readSnapshot().state == StateReady {
					c.fail(ErrConnectionTerminated)
				} else {
					c.fail(ErrConnectionRefused)
				}
			})
			return
		}
		c.frameCh <- f
	}
}
