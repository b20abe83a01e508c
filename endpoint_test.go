// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEndpointsUserServer(t *testing.T) {
	cfg := NewConfig()
	endpoints, autospawn := BuildEndpoints(cfg, "unix:/run/audio/native, tcp:localhost:4317")

	assert.False(t, autospawn)
	assert.Equal(t, []Endpoint{
		{Network: "unix", Address: "/run/audio/native", Local: true},
		{Network: "tcp", Address: "localhost:4317"},
	}, endpoints)
}

func TestBuildEndpointsDefaultCascade(t *testing.T) {
	cfg := NewConfig()
	cfg.AutoConnectLocalhost = true
	cfg.Autospawn = true

	endpoints, autospawn := BuildEndpoints(cfg, "")

	assert.True(t, autospawn)
	// system-wide socket always present, TCP candidates follow it.
	var sawSystemWide, sawTCP4, sawTCP6 bool
	for _, e := range endpoints {
		switch {
		case e.Network == "unix" && e.Address == "/var/run/audio/native":
			sawSystemWide = true
		case e.Network == "tcp" && e.Address == "127.0.0.1:4317":
			sawTCP4 = true
		case e.Network == "tcp" && e.Address == "[::1]:4317":
			sawTCP6 = true
		}
	}
	assert.True(t, sawSystemWide)
	assert.True(t, sawTCP4)
	assert.True(t, sawTCP6)
}

func TestBuildEndpointsDefaultServerConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.DefaultServer = "tcp:audio.example.internal:4317"

	endpoints, autospawn := BuildEndpoints(cfg, "")

	assert.False(t, autospawn)
	assert.Equal(t, []Endpoint{{Network: "tcp", Address: "audio.example.internal:4317"}}, endpoints)
}

func TestBuildEndpointsNoAutoConnect(t *testing.T) {
	cfg := NewConfig()
	cfg.AutoConnectLocalhost = false
	cfg.AutoConnectDisplay = false

	endpoints, _ := BuildEndpoints(cfg, "")

	for _, e := range endpoints {
		assert.NotEqual(t, "127.0.0.1:4317", e.Address)
	}
}
