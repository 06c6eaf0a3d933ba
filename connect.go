// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/newrelic/go-agent-connect/internal"
)

// Collector performs the connect call against the collector.  Connect must
// return an error for which IsLicenseError is true when the license key is
// rejected; every other error is retried.
type Collector interface {
	Connect(ctx context.Context, settings *ConnectSettings) (*ServerConfigResponse, error)
}

// ConnectSession owns the connection with the collector and the
// configuration the collector hands back.  Only one connect loop runs at a
// time.
type ConnectSession struct {
	config     Config
	collector  Collector
	subsystems Subsystems

	environment func() []EnvironmentEntry
	// timer paces retries.  Nil uses the real clock.
	timer retry.Timer

	connectMu sync.Mutex

	// mu guards everything below.  finishSetup holds it for writing
	// while it applies a reply.
	mu    sync.RWMutex
	state connectState

	runID        AgentRunID
	reportPeriod time.Duration
	urlRules     json.RawMessage

	tracer                      TracerSettings
	shouldSendSamples           bool
	shouldSendRandomSamples     bool
	slowestTransactionThreshold float64
}

// NewConnectSession creates a session.  The subsystems given are
// reconfigured in place on every successful connect; nil fields are filled
// with TxnSampler, SlowSQLSampler and ErrorTracer.
func NewConnectSession(collector Collector, subsystems Subsystems, opts ...ConfigOption) (*ConnectSession, error) {
	cfg, err := newConfig(opts...)
	if nil != err {
		return nil, err
	}
	if nil == collector && cfg.Enabled {
		return nil, errors.New("collector required")
	}
	if nil == subsystems.TransactionSampler {
		subsystems.TransactionSampler = NewTxnSampler()
	}
	if nil == subsystems.SQLSampler {
		subsystems.SQLSampler = NewSlowSQLSampler()
	}
	if nil == subsystems.ErrorCollector {
		subsystems.ErrorCollector = NewErrorTracer(cfg.Settings.BoolDefault("error_collector.enabled", true))
	}

	s := &ConnectSession{
		config:     cfg,
		collector:  collector,
		subsystems: subsystems,
		environment: func() []EnvironmentEntry {
			return newEnvironment().snapshot()
		},
	}

	cfg.Logger.Info("connect session created", map[string]interface{}{
		"app":     cfg.AppName,
		"version": Version,
		"enabled": cfg.Enabled,
	})
	return s, nil
}

// Connect connects to the collector and applies its configuration,
// retrying transient failures with a backoff of one minute per failed
// attempt, capped at ten minutes.  It blocks until the session is connected
// or stopped.  Connect never returns an error: failures are logged and the
// session keeps its last good configuration.  A call made while another
// Connect is running returns immediately.  A canceled ctx ends the loop
// after the in-flight attempt without stopping the session.
func (s *ConnectSession) Connect(ctx context.Context, opts ConnectOptions) {
	if nil == s || !s.config.Enabled {
		return
	}
	if !s.connectMu.TryLock() {
		s.config.Logger.Debug("collector connect already in progress", nil)
		return
	}
	defer s.connectMu.Unlock()

	s.mu.Lock()
	if s.triedToConnect(opts) || (s.state.stopped && !opts.ForceReconnect) {
		s.mu.Unlock()
		return
	}
	s.state.stopped = false
	s.shouldKeepRetrying(opts)
	s.configTransactionTracer()
	s.mu.Unlock()

	s.logSeedToken()
	s.config.Logger.Debug("connecting process to collector", map[string]interface{}{
		"app":       s.config.AppName,
		"collector": s.collectorHost(),
	})

	retryOpts := []retry.Option{
		retry.Attempts(0),
		retry.DelayType(func(uint, error, *retry.Config) time.Duration {
			s.mu.RLock()
			defer s.mu.RUnlock()
			return s.connectRetryPeriod()
		}),
		retry.MaxDelay(internal.MaxConnectRetryPeriod),
	}
	if nil != s.timer {
		retryOpts = append(retryOpts, retry.WithTimer(s.timer))
	}

	// Every return from the attempt below is either nil, a retryable
	// error, or an unrecoverable one after the session has stopped.
	_ = retry.Do(func() error {
		if s.Stopped() {
			return retry.Unrecoverable(errConnectStopped)
		}

		err := s.queryServerForConfiguration(ctx)
		if nil == err {
			return nil
		}
		if errors.Is(err, errConnectStopped) {
			return retry.Unrecoverable(err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if ctxErr := ctx.Err(); nil != ctxErr {
			s.config.Logger.Debug("collector connect abandoned", map[string]interface{}{
				"error": ctxErr.Error(),
			})
			return retry.Unrecoverable(ctxErr)
		}
		if internal.IsLicenseException(err) {
			s.handleLicenseError(err)
			return retry.Unrecoverable(err)
		}
		s.logError(err)
		if s.state.stopped || !s.shouldRetry() {
			return retry.Unrecoverable(err)
		}
		return err
	}, retryOpts...)
}

// errConnectStopped ends a connect loop whose session was disconnected
// while it was running.
var errConnectStopped = errors.New("collector connect stopped")

// connectToServer sends the connect request and returns the collector's
// response unmodified.
func (s *ConnectSession) connectToServer(ctx context.Context) (*ServerConfigResponse, error) {
	return s.collector.Connect(ctx, s.connectSettings())
}

// queryServerForConfiguration applies the collector's response and marks
// the session connected in one critical section.  A response that arrives
// after Disconnect is discarded.
func (s *ConnectSession) queryServerForConfiguration(ctx context.Context) error {
	reply, err := s.connectToServer(ctx)
	if nil != err {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.stopped {
		s.config.Logger.Debug("discarding connect reply for stopped session", map[string]interface{}{
			"app": s.config.AppName,
		})
		return errConnectStopped
	}
	s.applyServerConfig(reply)
	s.markConnected()
	return nil
}

// Disconnect stops the session.  No further connects are attempted until
// Connect is called with ForceReconnect.
func (s *ConnectSession) Disconnect() {
	if nil == s {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect()
}

// Connected reports whether the last connect succeeded.
func (s *ConnectSession) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.connected
}

// Stopped reports whether the session gave up connecting.
func (s *ConnectSession) Stopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.stopped
}

// RunID returns the collector's identifier for the current session.
func (s *ConnectSession) RunID() AgentRunID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// ReportPeriod returns how often data should be reported.
func (s *ConnectSession) ReportPeriod() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reportPeriod
}

// URLRules returns the url rules sent by the collector.
func (s *ConnectSession) URLRules() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.urlRules
}

// ShouldSendSamples reports whether transaction traces may be sent.
func (s *ConnectSession) ShouldSendSamples() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shouldSendSamples
}

// RecordSQL returns the SQL recording policy of the current connect cycle.
func (s *ConnectSession) RecordSQL() SQLRecordingPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracer.RecordSQL
}

// ConnectSettings returns the payload the next connect attempt would send.
func (s *ConnectSession) ConnectSettings() *ConnectSettings {
	return s.connectSettings()
}
