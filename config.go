// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CookieSize is the fixed size of the authentication cookie exchanged
// during the handshake (spec.md §4.5, §6.2).
const CookieSize = 256

// Dialer abstracts [*net.Dialer]'s dial behavior, so [*Connector] can be
// unit-tested against a stub and so callers can substitute an alternative
// dialer (e.g. one enforcing a sandboxed network policy).
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds common configuration for a [Context].
//
// Pass this to [New] to pre-wire dependencies. All fields have sensible
// defaults set by [NewConfig]; [LoadConfig] additionally overlays a config
// file and the environment on top of those defaults. It is safe to mutate
// a [*Config] before passing it to [New], but not concurrently with any
// in-flight [Context] built from it.
type Config struct {
	// Dialer is used by [*Connector] to establish each candidate connection.
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// Logger receives lifecycle and protocol events from every component
	// built by [New] (spec.md §7, SPEC_FULL.md §A.1).
	//
	// Set by [NewConfig] to [DefaultSLogger].
	Logger SLogger

	// ErrClassifier classifies errors for structured logging and for the
	// Connector's retry-vs-fatal decision.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time

	// DefaultServer is used when the caller passes no server string to
	// [*Context.Connect].
	DefaultServer string

	// Autospawn enables autospawning a local daemon when no running
	// instance can be reached (spec.md §4.3).
	Autospawn bool

	// DaemonBinary is the autospawn exec target.
	DaemonBinary string

	// ExtraArguments is whitespace-split and appended to the autospawn argv.
	ExtraArguments string

	// Cookie is the fixed-size authentication token presented during the
	// handshake (spec.md §4.5). CookieValid reports whether it was loaded
	// successfully; an invalid cookie degrades to the no-authentication
	// path rather than failing the load.
	Cookie      [CookieSize]byte
	CookieValid bool

	// DisableSHM forces SHM eligibility off regardless of locality.
	DisableSHM bool

	// SHMSize sizes the memory pool backing the SHM data path. The core
	// itself does not allocate this pool (out of scope, spec.md §1); the
	// value is carried so that callers wiring the real data path have it.
	SHMSize uint32

	// AutoConnectLocalhost adds tcp4:127.0.0.1 / tcp6:[::1] candidates to
	// the endpoint list even when no explicit server was requested.
	AutoConnectLocalhost bool

	// AutoConnectDisplay adds a candidate host derived from $DISPLAY.
	AutoConnectDisplay bool

	// EnableLegacySocketPaths adds the pre-0.9.12 per-user socket paths
	// (spec.md §4.1) when the directories exist and are owned by the
	// current user.
	EnableLegacySocketPaths bool

	// UseRealtimeClock selects the clock [*Context.RTTimeNew] and
	// [*Context.RTTimeRestart] schedule against (spec.md §6.1 "honouring
	// the context's realtime-clock flag"). When false (the default),
	// deadlines are relative to [Config.TimeNow] (wall clock, adjustable
	// in tests); when true, deadlines use the runtime's monotonic clock
	// ([time.Timer]) directly, immune to wall-clock adjustment, matching
	// the original's CLOCK_MONOTONIC rtclock path.
	UseRealtimeClock bool
}

// NewConfig creates a [*Config] with sensible defaults: no explicit server,
// autospawn enabled, SHM enabled, no auto-connect candidates, legacy socket
// paths disabled, no cookie loaded.
func NewConfig() *Config {
	return &Config{
		Dialer:        &net.Dialer{},
		Logger:        DefaultSLogger(),
		ErrClassifier: DefaultErrClassifier,
		TimeNow:       time.Now,
		DaemonBinary:  "audiod",
		Autospawn:     true,
	}
}

// LoadConfig builds a [*Config] starting from [NewConfig]'s defaults, then
// overlays a config file (searched in the per-user config directory under
// "padial" and in "/etc/padial") and the environment (prefix "PADIAL_",
// dashes folded to underscores), matching the precedence in SPEC_FULL.md
// §A.3: defaults, then file, then desktop properties (see
// [loadX11Overrides]), then environment.
//
// A missing config file is not an error; LoadConfig falls back to
// [NewConfig]'s defaults for any key the file and environment don't set.
func LoadConfig() (*Config, error) {
	cfg := NewConfig()

	v := viper.New()
	v.SetConfigName("client")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "padial"))
	}
	v.AddConfigPath("/etc/padial")

	v.SetEnvPrefix("PADIAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("default-server", cfg.DefaultServer)
	v.SetDefault("autospawn", cfg.Autospawn)
	v.SetDefault("daemon-binary", cfg.DaemonBinary)
	v.SetDefault("extra-arguments", cfg.ExtraArguments)
	v.SetDefault("disable-shm", cfg.DisableSHM)
	v.SetDefault("shm-size", cfg.SHMSize)
	v.SetDefault("auto-connect-localhost", cfg.AutoConnectLocalhost)
	v.SetDefault("auto-connect-display", cfg.AutoConnectDisplay)
	v.SetDefault("enable-legacy-socket-paths", cfg.EnableLegacySocketPaths)
	v.SetDefault("cookie-file", defaultCookiePath())

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	cfg.DefaultServer = v.GetString("default-server")
	cfg.Autospawn = v.GetBool("autospawn")
	cfg.DaemonBinary = v.GetString("daemon-binary")
	cfg.ExtraArguments = v.GetString("extra-arguments")
	cfg.DisableSHM = v.GetBool("disable-shm")
	cfg.SHMSize = uint32(v.GetUint("shm-size"))
	cfg.AutoConnectLocalhost = v.GetBool("auto-connect-localhost")
	cfg.AutoConnectDisplay = v.GetBool("auto-connect-display")
	cfg.EnableLegacySocketPaths = v.GetBool("enable-legacy-socket-paths")

	if raw, err := os.ReadFile(v.GetString("cookie-file")); err == nil && len(raw) == CookieSize {
		copy(cfg.Cookie[:], raw)
		cfg.CookieValid = true
	}

	// Desktop display properties overlay the file+default value resolved
	// above (SPEC_FULL.md §A.3 precedence: defaults, then file, then
	// desktop properties, then environment).
	loadX11Overrides(cfg)

	// Environment must win last: the v.GetString call above already
	// folded AutomaticEnv in, but only before loadX11Overrides had a
	// chance to clobber it. Re-check explicitly so a PADIAL_DEFAULT_SERVER
	// set by the caller always beats an x11conf-sourced override.
	if envServer, ok := os.LookupEnv("PADIAL_DEFAULT_SERVER"); ok && envServer != "" {
		cfg.DefaultServer = envServer
	}

	return cfg, nil
}

func defaultCookiePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "padial", "cookie")
}
