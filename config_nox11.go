// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !x11conf

package padial

// loadX11Overrides is a no-op in the default build. See the x11conf
// build-tagged variant in config_x11.go.
func loadX11Overrides(cfg *Config) {}
