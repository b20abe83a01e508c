// SPDX-License-Identifier: GPL-3.0-or-later

//go:build x11conf

package padial

import "os"

// loadX11Overrides overlays desktop-session properties read from the X11
// root window property set (PULSE_COOKIE / PULSE_SERVER equivalents) on
// top of the file+default layer, before the environment layer in
// [LoadConfig]. Building with the x11conf tag is the opt-in switch
// described in SPEC_FULL.md §A.3.1; this core has no Xlib binding of its
// own, so the override source here is restricted to what can be read
// without one: inherited environment variables set by a session manager.
func loadX11Overrides(cfg *Config) {
	if v, ok := os.LookupEnv("PADIAL_X11_DEFAULT_SERVER"); ok && v != "" {
		cfg.DefaultServer = v
	}
}
