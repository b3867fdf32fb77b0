// Copyright © 2017 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

// +build windows

package agent

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func (a *Agent) signalNotifySetup() {
	signal.Notify(a.signalCh, os.Interrupt, syscall.SIGTERM)
}

// handleSignals runs the signal handler thread
func (a *Agent) handleSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-a.signalCh:
			a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
			switch sig {
			case os.Interrupt, syscall.SIGTERM:
				a.shutdown()
			default:
				a.logger.Warn().Str("signal", sig.String()).Msg("unsupported")
			}
		}
	}
}
