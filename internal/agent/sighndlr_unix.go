// Copyright © 2017 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

// +build !windows

// Signal handling for unix-like systems,
// SIGUSR1 dumps goroutine stacks to stderr

package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/alecthomas/units"
	"golang.org/x/sys/unix"
)

func (a *Agent) signalNotifySetup() {
	signal.Notify(a.signalCh, os.Interrupt, unix.SIGTERM, unix.SIGHUP, unix.SIGPIPE, unix.SIGUSR1)
}

// handleSignals runs the signal handler thread
func (a *Agent) handleSignals(ctx context.Context) {
	const stacktraceBufSize = 1 * units.MiB

	// pre-allocate a buffer
	buf := make([]byte, stacktraceBufSize)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-a.signalCh:
			a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
			switch sig {
			case os.Interrupt, unix.SIGTERM:
				a.shutdown()
			case unix.SIGPIPE, unix.SIGHUP:
				// Noop
			case unix.SIGUSR1:
				stacklen := runtime.Stack(buf, true)
				fmt.Fprintf(os.Stderr, "=== received SIGUSR1 ===\n*** goroutine dump...\n%s\n*** end\n", buf[:stacklen])
			default:
				a.logger.Warn().Str("signal", sig.String()).Msg("unsupported")
			}
		}
	}
}
