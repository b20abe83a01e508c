// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"log/slog"
	"os/exec"
	"strings"
)

// maxAutospawnArgs caps the autospawn argv, mirroring the original's
// fixed small argv array (spec.md §4.3).
const maxAutospawnArgs = 16

// SpawnHooks are user-supplied callbacks bracketing the autospawn attempt
// (spec.md §4.3, §6.1 "spawn-hooks?"). Prefork runs before the daemon is
// started; Postfork runs in this process immediately after. There is no
// Atfork hook: unlike the original's fork()-based model, [os/exec] forks
// and execs in one step without returning control to Go in the child
// (Go's runtime cannot safely run arbitrary code between fork and exec),
// so an Atfork hook has no safe place to run here — documented in
// DESIGN.md as an intentional simplification.
type SpawnHooks struct {
	Prefork  func()
	Postfork func()
}

// Autospawn launches a local daemon instance at most once per connect
// call (spec.md §4.3).
type Autospawn struct {
	cfg    *Config
	logger SLogger
}

// NewAutospawn returns a [*Autospawn] bound to cfg's daemon binary and
// extra arguments.
func NewAutospawn(cfg *Config, logger SLogger) *Autospawn {
	return &Autospawn{cfg: cfg, logger: logger}
}

// Run performs the precondition checks, then forks/execs the daemon
// binary and waits for it to exit (spec.md §4.3). It returns [ErrOK] on
// a successful launch (the daemon is expected to keep running; a
// same-process exit(0) before the parent's wait completes is itself the
// "daemon ready" signal in the original's design, carried forward
// unchanged), or the fatal [ErrCode] to fail the context with.
//
// The root-user check is intentionally not repeated here: spec.md §4.9's
// "autospawn-disallowed" is resolved (SPEC_FULL.md §C.4) as a silent,
// non-fatal skip performed by [*Context] before Autospawn.Run is ever
// called; only the SIGCHLD disposition checks below are fatal to the
// context once autospawn is attempted.
func (a *Autospawn) Run(hooks *SpawnHooks) ErrCode {
	a.logger.Info("autospawnStart", slog.String("daemonBinary", a.cfg.DaemonBinary))

	if !sigchldWaitable() {
		a.logger.Info("autospawnDone", slog.String("reason", "sigchld-unwaitable"))
		return ErrInternal
	}

	if hooks != nil && hooks.Prefork != nil {
		hooks.Prefork()
	}

	argv := buildAutospawnArgv(a.cfg.ExtraArguments)
	cmd := exec.Command(a.cfg.DaemonBinary, argv...)

	if err := cmd.Start(); err != nil {
		a.logger.Info("autospawnDone", slog.Any("err", err))
		return ErrInternal
	}

	if hooks != nil && hooks.Postfork != nil {
		hooks.Postfork()
	}

	err := cmd.Wait()
	if err == nil {
		a.logger.Info("autospawnDone", slog.Bool("spawned", true))
		return ErrOK
	}
	if isAlreadyReaped(err) {
		a.logger.Info("autospawnDone", slog.Bool("spawned", true), slog.String("reason", "already-reaped"))
		return ErrOK
	}
	a.logger.Info("autospawnDone", slog.Any("err", err))
	return ErrConnectionRefused
}

// buildAutospawnArgv builds `["--start", ...extra-args-split-on-whitespace]`
// truncated to [maxAutospawnArgs] (spec.md §4.3).
func buildAutospawnArgv(extraArguments string) []string {
	argv := []string{"--start"}
	if extraArguments != "" {
		argv = append(argv, strings.Fields(extraArguments)...)
	}
	if len(argv) > maxAutospawnArgs {
		argv = argv[:maxAutospawnArgs]
	}
	return argv
}
