// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchDeliverReply(t *testing.T) {
	d := NewDispatch(func(Tag) {})
	tag := d.NextTag()

	var got DispatchOutcome
	d.Register(tag, func(outcome DispatchOutcome) {
		got = outcome
	}, nil, time.Minute)

	ok := d.Deliver(tag, DispatchOutcome{Kind: OutcomeReply, Payload: []byte("x")})
	require.True(t, ok)
	assert.Equal(t, OutcomeReply, got.Kind)
	assert.Equal(t, 0, d.Len())
}

func TestDispatchDeliverUnknownTag(t *testing.T) {
	d := NewDispatch(func(Tag) {})
	ok := d.Deliver(Tag(99), DispatchOutcome{Kind: OutcomeReply})
	assert.False(t, ok)
}

func TestDispatchRemoveStopsTimer(t *testing.T) {
	fired := make(chan Tag, 1)
	d := NewDispatch(func(tag Tag) { fired <- tag })
	tag := d.NextTag()
	d.Register(tag, func(DispatchOutcome) {}, nil, 10*time.Millisecond)

	d.Remove(tag)

	select {
	case <-fired:
		t.Fatal("timeout fired after Remove")
	case <-time.After(30 * time.Millisecond):
	}
	assert.Equal(t, 0, d.Len())
}

func TestDispatchTimeoutFires(t *testing.T) {
	fired := make(chan Tag, 1)
	d := NewDispatch(func(tag Tag) { fired <- tag })
	tag := d.NextTag()
	d.Register(tag, func(DispatchOutcome) {}, nil, 5*time.Millisecond)

	select {
	case got := <-fired:
		assert.Equal(t, tag, got)
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestDispatchFailAllDeliversTransportGone(t *testing.T) {
	d := NewDispatch(func(Tag) {})
	var outcomes []DispatchOutcome
	for i := 0; i < 3; i++ {
		tag := d.NextTag()
		d.Register(tag, func(outcome DispatchOutcome) {
			outcomes = append(outcomes, outcome)
		}, nil, time.Minute)
	}

	d.FailAll()

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Equal(t, OutcomeTransportGone, o.Kind)
		assert.Equal(t, ErrConnectionTerminated, o.ErrCode)
	}
	assert.Equal(t, 0, d.Len())
}
