// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import "sync"

// SQLRecordingPolicy controls whether captured SQL statements are withheld,
// obfuscated, or sent verbatim.
type SQLRecordingPolicy int

const (
	// SQLRecordObfuscated replaces literals in captured SQL.  It is the
	// default.
	SQLRecordObfuscated SQLRecordingPolicy = iota
	// SQLRecordOff withholds SQL entirely.
	SQLRecordOff
	// SQLRecordRaw sends SQL exactly as executed.
	SQLRecordRaw
)

func (p SQLRecordingPolicy) String() string {
	switch p {
	case SQLRecordOff:
		return "off"
	case SQLRecordRaw:
		return "raw"
	default:
		return "obfuscated"
	}
}

// TransactionTracerConfig is the configuration held by a TransactionSampler.
// Thresholds are in seconds.
type TransactionTracerConfig struct {
	Enabled               bool
	ExplainEnabled        bool
	ExplainThreshold      float64
	RandomSamplingEnabled bool
	SamplingRate          int
	SlowCaptureThreshold  float64
}

// TracerSettings are the operator controlled tracer settings applied to the
// samplers at the end of each successful connect.
type TracerSettings struct {
	Enabled          bool
	ExplainEnabled   bool
	ExplainThreshold float64
	RecordSQL        SQLRecordingPolicy
}

// TransactionSampler is the configuration surface of the transaction trace
// sampler.  The connect session mutates an existing sampler in place; it
// never replaces it.
type TransactionSampler interface {
	SetRandomSampling(enabled bool)
	SetSamplingRate(rate int)
	// SamplingRate returns the rate in force, which may differ from the
	// last rate set if the sampler clamps it.
	SamplingRate() int
	SetSlowCaptureThreshold(seconds float64)
	Configure(TracerSettings)
}

// SQLSampler is the configuration surface of the slow SQL sampler.
type SQLSampler interface {
	Configure(TracerSettings)
}

// ErrorCollector is the configuration surface of the error collector.
type ErrorCollector interface {
	// ConfigEnabled reports the operator's local error_collector.enabled
	// setting.
	ConfigEnabled() bool
	SetEnabled(enabled bool)
}

// Subsystems groups the reporting subsystems reconfigured on connect.  Nil
// fields are replaced with the package implementations.
type Subsystems struct {
	TransactionSampler TransactionSampler
	SQLSampler         SQLSampler
	ErrorCollector     ErrorCollector
}

const minSamplingRate = 1

// TxnSampler holds transaction tracer configuration.
type TxnSampler struct {
	sync.RWMutex
	config TransactionTracerConfig
}

// NewTxnSampler creates a sampler with tracing disabled until the first
// connect applies settings.
func NewTxnSampler() *TxnSampler {
	return &TxnSampler{}
}

// SetRandomSampling implements TransactionSampler.
func (s *TxnSampler) SetRandomSampling(enabled bool) {
	s.Lock()
	defer s.Unlock()
	s.config.RandomSamplingEnabled = enabled
}

// SetSamplingRate implements TransactionSampler.  Rates below one are
// raised to one.
func (s *TxnSampler) SetSamplingRate(rate int) {
	s.Lock()
	defer s.Unlock()
	if rate < minSamplingRate {
		rate = minSamplingRate
	}
	s.config.SamplingRate = rate
}

// SamplingRate implements TransactionSampler.
func (s *TxnSampler) SamplingRate() int {
	s.RLock()
	defer s.RUnlock()
	return s.config.SamplingRate
}

// SetSlowCaptureThreshold implements TransactionSampler.
func (s *TxnSampler) SetSlowCaptureThreshold(seconds float64) {
	s.Lock()
	defer s.Unlock()
	s.config.SlowCaptureThreshold = seconds
}

// Configure implements TransactionSampler.
func (s *TxnSampler) Configure(ts TracerSettings) {
	s.Lock()
	defer s.Unlock()
	s.config.Enabled = ts.Enabled
	s.config.ExplainEnabled = ts.ExplainEnabled
	s.config.ExplainThreshold = ts.ExplainThreshold
}

// Config returns a copy of the current configuration.
func (s *TxnSampler) Config() TransactionTracerConfig {
	s.RLock()
	defer s.RUnlock()
	return s.config
}

// SlowSQLSampler holds slow SQL sampler configuration.
type SlowSQLSampler struct {
	sync.RWMutex
	settings TracerSettings
}

// NewSlowSQLSampler creates a SlowSQLSampler.
func NewSlowSQLSampler() *SlowSQLSampler {
	return &SlowSQLSampler{}
}

// Configure implements SQLSampler.
func (s *SlowSQLSampler) Configure(ts TracerSettings) {
	s.Lock()
	defer s.Unlock()
	s.settings = ts
}

// Enabled returns whether SQL traces are collected.  Nothing is collected
// when recording is off.
func (s *SlowSQLSampler) Enabled() bool {
	s.RLock()
	defer s.RUnlock()
	return s.settings.Enabled && s.settings.RecordSQL != SQLRecordOff
}

// Settings returns a copy of the current settings.
func (s *SlowSQLSampler) Settings() TracerSettings {
	s.RLock()
	defer s.RUnlock()
	return s.settings
}

// ErrorTracer holds error collector enablement.
type ErrorTracer struct {
	sync.RWMutex
	configEnabled bool
	enabled       bool
}

// NewErrorTracer creates an ErrorTracer with the operator's local
// setting.  It starts disabled; the collector decides on connect.
func NewErrorTracer(configEnabled bool) *ErrorTracer {
	return &ErrorTracer{configEnabled: configEnabled}
}

// ConfigEnabled implements ErrorCollector.
func (e *ErrorTracer) ConfigEnabled() bool {
	e.RLock()
	defer e.RUnlock()
	return e.configEnabled
}

// SetEnabled implements ErrorCollector.
func (e *ErrorTracer) SetEnabled(enabled bool) {
	e.Lock()
	defer e.Unlock()
	e.enabled = enabled
}

// Enabled returns whether errors are being collected.
func (e *ErrorTracer) Enabled() bool {
	e.RLock()
	defer e.RUnlock()
	return e.enabled
}
