// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import "log/slog"

// beginAuth sends the AUTH request and registers its reply decoder
// (spec.md §4.5 "Authorizing"). Must run on the actor goroutine.
func (c *Context) beginAuth(epoch int) {
	combined := c.localProtocolVersion
	if c.localSHMEligible {
		combined |= shmEligibleBit
	}

	w := &wireWriter{}
	w.putUint32(combined)
	w.putBytes(c.cookie[:])

	tag := c.nextTag()
	c.dispatch.Register(tag, func(outcome DispatchOutcome) {
		c.onAuthReply(epoch, outcome)
	}, nil, drainDeadline)

	f := Frame{Command: CommandAuth, Tag: tag, Payload: w.bytes()}
	if credentialPassingSupported() {
		creds := LocalCredentials()
		f.Credentials = &creds
	}
	c.logInfo("authSent", slog.Uint64("localVersion", uint64(c.localProtocolVersion)), slog.Bool("shmEligible", c.localSHMEligible))
	c.frameStream.Send(f)
}

// onAuthReply decodes the AUTH reply, negotiates the protocol version and
// SHM eligibility (spec.md §4.5), and sends SET_CLIENT_NAME. Invoked from
// [*Dispatch.Deliver] on the actor goroutine.
func (c *Context) onAuthReply(epoch int, outcome DispatchOutcome) {
	if c.connectEpoch != epoch {
		return
	}
	switch outcome.Kind {
	case OutcomeTimeout:
		c.fail(ErrTimeout)
		return
	case OutcomeTransportGone:
		c.fail(ErrConnectionTerminated)
		return
	case OutcomeError:
		c.fail(ErrProtocol)
		return
	}

	r := &wireReader{buf: outcome.Payload}
	combined, err := r.getUint32()
	if err != nil {
		c.fail(ErrProtocol)
		return
	}

	peerVersion := combined & versionMask
	peerAdvertisedSHM := peerVersion >= extendedAuthReplyVersion && combined&shmEligibleBit != 0

	if peerVersion < minProtocolVersion {
		c.logInfo("authFailed", slog.Uint64("peerVersion", uint64(peerVersion)))
		c.fail(ErrVersion)
		return
	}

	shmEnabled := c.localSHMEligible
	if peerVersion < shmVersionFloor {
		shmEnabled = false
	}
	if peerVersion >= extendedAuthReplyVersion && !peerAdvertisedSHM {
		shmEnabled = false
	}
	if credentialPassingSupported() {
		peerCreds, ok := c.frameStream.PeerCredentials()
		if !ok || peerCreds.UID != LocalCredentials().UID {
			shmEnabled = false
		}
	} else {
		shmEnabled = false
	}

	c.withSnapshot(func(s *snapshot) {
		s.peerVersion = peerVersion
		s.shmEnabled = shmEnabled
	})
	c.frameStream.SetSHMEnabled(shmEnabled)
	c.logInfo("authDone", slog.Uint64("peerVersion", uint64(peerVersion)), slog.Bool("shmEnabled", shmEnabled))

	c.transitionTo(StateSettingName)
	c.sendSetClientName(epoch, peerVersion)
}

// sendSetClientName sends SET_CLIENT_NAME, either the enriched proplist
// form (peer >= 13) or the legacy name-only form (spec.md §4.5). Must run
// on the actor goroutine.
func (c *Context) sendSetClientName(epoch int, peerVersion uint32) {
	w := &wireWriter{}
	if peerVersion >= extendedAuthReplyVersion {
		enriched := EnrichProplist(c.proplist, c.name)
		w.putUint32(uint32(enriched.Len()))
		for _, k := range enriched.Keys() {
			v, _ := enriched.Get(k)
			w.putString(k)
			w.putString(v)
		}
	} else {
		w.putString(c.name)
	}

	tag := c.nextTag()
	c.dispatch.Register(tag, func(outcome DispatchOutcome) {
		c.onSetClientNameReply(epoch, peerVersion, outcome)
	}, nil, drainDeadline)
	c.frameStream.Send(Frame{Command: CommandSetClientName, Tag: tag, Payload: w.bytes()})
}

// onSetClientNameReply decodes the SettingName reply and transitions to
// Ready (spec.md §4.5 "SettingName"). Invoked on the actor goroutine.
func (c *Context) onSetClientNameReply(epoch int, peerVersion uint32, outcome DispatchOutcome) {
	if c.connectEpoch != epoch {
		return
	}
	switch outcome.Kind {
	case OutcomeTimeout:
		c.fail(ErrTimeout)
		return
	case OutcomeTransportGone:
		c.fail(ErrConnectionTerminated)
		return
	case OutcomeError:
		c.fail(ErrProtocol)
		return
	}

	if peerVersion >= extendedAuthReplyVersion {
		r := &wireReader{buf: outcome.Payload}
		index, err := r.getUint32()
		if err != nil || index == invalidClientIndex {
			c.fail(ErrProtocol)
			return
		}
		c.withSnapshot(func(s *snapshot) {
			s.clientIndex = index
			s.clientIndexOK = true
		})
	}

	c.transitionTo(StateReady)
}
