// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	require.NotNil(t, cfg)

	// Dialer should be set to *net.Dialer
	_, ok := cfg.Dialer.(*net.Dialer)
	assert.True(t, ok, "Dialer should be *net.Dialer")

	// ErrClassifier should use errclass by default
	assert.Equal(t, "", cfg.ErrClassifier.Classify(nil))
	assert.Equal(t, "ETIMEDOUT", cfg.ErrClassifier.Classify(context.DeadlineExceeded))

	// TimeNow should be set and return a valid time
	now := cfg.TimeNow()
	assert.False(t, now.IsZero())
}

// TestLoadConfigEnvironmentWinsLast exercises SPEC_FULL.md §A.3's
// precedence ("defaults, then file, then desktop properties, then
// environment"): an explicit PADIAL_DEFAULT_SERVER must be the value
// [*Config.DefaultServer] ends up with, regardless of any earlier layer
// (here, default-server is unset in any file, and the desktop-properties
// layer is a no-op in this non-x11conf build — see config_x11_test.go for
// the build-tagged regression covering the actual clobber this guards
// against).
func TestLoadConfigEnvironmentWinsLast(t *testing.T) {
	t.Setenv("PADIAL_DEFAULT_SERVER", "tcp:env-server:4317")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "tcp:env-server:4317", cfg.DefaultServer)
}
