// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"os"
	"time"

	"github.com/newrelic/go-agent-connect/internal"
)

// ConnectOptions controls a single call to ConnectSession.Connect.
type ConnectOptions struct {
	// ForceReconnect connects even if the session is already connected or
	// was stopped by an earlier failure.
	ForceReconnect bool
	// KeepRetrying overrides the default of retrying failed connects
	// forever.  Nil means not specified.
	KeepRetrying *bool
}

// connectState is the retry state of a session.  It is only mutated by the
// goroutine running the connect loop, while holding ConnectSession.mu.
type connectState struct {
	connected    bool
	stopped      bool
	keepRetrying bool
	attempts     int
	retryPeriod  time.Duration
	connectedPID int
}

// retryPeriodFor returns the wait before the next attempt after the given
// number of failed attempts: one minute per attempt, capped at ten minutes.
func retryPeriodFor(attempts int) time.Duration {
	period := time.Duration(attempts) * internal.ConnectRetryStep
	if period > internal.MaxConnectRetryPeriod {
		return internal.MaxConnectRetryPeriod
	}
	return period
}

func (s *ConnectSession) triedToConnect(opts ConnectOptions) bool {
	return s.state.connected && !opts.ForceReconnect
}

func (s *ConnectSession) shouldKeepRetrying(opts ConnectOptions) bool {
	s.state.keepRetrying = nil == opts.KeepRetrying || *opts.KeepRetrying
	return s.state.keepRetrying
}

func (s *ConnectSession) incrementRetryPeriod() {
	s.state.attempts++
	s.state.retryPeriod = retryPeriodFor(s.state.attempts)
}

// shouldRetry decides what happens after a failed attempt.  When retrying
// it advances the backoff; the caller waits the new retry period.
func (s *ConnectSession) shouldRetry() bool {
	if s.state.keepRetrying {
		s.incrementRetryPeriod()
		s.config.Logger.Info("will re-attempt collector connect", map[string]interface{}{
			"attempt":        s.state.attempts,
			"retry_period_s": int(s.state.retryPeriod / time.Second),
		})
		return true
	}
	s.disconnect()
	return false
}

// disconnect stops all further connect attempts, including those of a
// loop that is already running.  It is safe to call more than once.
func (s *ConnectSession) disconnect() bool {
	s.state.connected = false
	s.state.stopped = true
	s.state.keepRetrying = false
	s.config.Logger.Debug("collector connect stopped", map[string]interface{}{
		"app": s.config.AppName,
	})
	return true
}

func (s *ConnectSession) markConnected() {
	s.state.connected = true
	s.state.stopped = false
	s.state.attempts = 0
	s.state.retryPeriod = 0
	s.state.connectedPID = os.Getpid()
}

func (s *ConnectSession) connectRetryPeriod() time.Duration {
	return s.state.retryPeriod
}
