// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testLicenseKey = "0123456789012345678901234567890123456789"

type logEntry struct {
	level   string
	msg     string
	context map[string]interface{}
}

type recordingLogger struct {
	sync.Mutex
	debug   bool
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, context map[string]interface{}) {
	l.Lock()
	defer l.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, context: context})
}

func (l *recordingLogger) Error(msg string, c map[string]interface{}) { l.add("error", msg, c) }
func (l *recordingLogger) Warn(msg string, c map[string]interface{})  { l.add("warn", msg, c) }
func (l *recordingLogger) Info(msg string, c map[string]interface{})  { l.add("info", msg, c) }
func (l *recordingLogger) Debug(msg string, c map[string]interface{}) { l.add("debug", msg, c) }
func (l *recordingLogger) DebugEnabled() bool                         { return l.debug }

// find returns every entry logged with the given level and message.
func (l *recordingLogger) find(level, msg string) []logEntry {
	l.Lock()
	defer l.Unlock()
	var found []logEntry
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			found = append(found, e)
		}
	}
	return found
}

func (l *recordingLogger) count(level string) int {
	l.Lock()
	defer l.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

type fakeSampler struct {
	randomSampling bool
	rate           int
	maxRate        int
	threshold      float64
	thresholdSet   bool
	configured     []TracerSettings
}

func (f *fakeSampler) SetRandomSampling(enabled bool) { f.randomSampling = enabled }

func (f *fakeSampler) SetSamplingRate(rate int) {
	if f.maxRate > 0 && rate > f.maxRate {
		rate = f.maxRate
	}
	f.rate = rate
}

func (f *fakeSampler) SamplingRate() int { return f.rate }

func (f *fakeSampler) SetSlowCaptureThreshold(seconds float64) {
	f.threshold = seconds
	f.thresholdSet = true
}

func (f *fakeSampler) Configure(ts TracerSettings) { f.configured = append(f.configured, ts) }

type fakeSQLSampler struct {
	configured []TracerSettings
}

func (f *fakeSQLSampler) Configure(ts TracerSettings) { f.configured = append(f.configured, ts) }

type fakeErrorCollector struct {
	local   bool
	enabled *bool
}

func (f *fakeErrorCollector) ConfigEnabled() bool { return f.local }

func (f *fakeErrorCollector) SetEnabled(enabled bool) { f.enabled = &enabled }

type collectorResult struct {
	reply *ServerConfigResponse
	err   error
}

// fakeCollector replays results in order, repeating the last one.
type fakeCollector struct {
	sync.Mutex
	results  []collectorResult
	payloads []*ConnectSettings
	// onConnect runs before the result is returned.
	onConnect func(call int)
}

func (c *fakeCollector) Connect(ctx context.Context, settings *ConnectSettings) (*ServerConfigResponse, error) {
	c.Lock()
	call := len(c.payloads)
	c.payloads = append(c.payloads, settings)
	var r collectorResult
	if len(c.results) > 0 {
		idx := call
		if idx >= len(c.results) {
			idx = len(c.results) - 1
		}
		r = c.results[idx]
	}
	hook := c.onConnect
	c.Unlock()

	if nil != hook {
		hook(call)
	}
	return r.reply, r.err
}

func (c *fakeCollector) calls() int {
	c.Lock()
	defer c.Unlock()
	return len(c.payloads)
}

// fakeTimer records every wait and never blocks.
type fakeTimer struct {
	sync.Mutex
	waits []time.Duration
}

func (t *fakeTimer) After(d time.Duration) <-chan time.Time {
	t.Lock()
	t.waits = append(t.waits, d)
	t.Unlock()
	c := make(chan time.Time, 1)
	c <- time.Now()
	return c
}

func (t *fakeTimer) recorded() []time.Duration {
	t.Lock()
	defer t.Unlock()
	return append([]time.Duration(nil), t.waits...)
}

type testSession struct {
	*ConnectSession
	log       *recordingLogger
	sampler   *fakeSampler
	sql       *fakeSQLSampler
	errs      *fakeErrorCollector
	collector *fakeCollector
	timer     *fakeTimer
}

func newTestSession(t *testing.T, settings map[string]interface{}, opts ...ConfigOption) *testSession {
	t.Helper()

	ts := &testSession{
		log:       &recordingLogger{debug: true},
		sampler:   &fakeSampler{},
		sql:       &fakeSQLSampler{},
		errs:      &fakeErrorCollector{local: true},
		collector: &fakeCollector{},
		timer:     &fakeTimer{},
	}
	base := []ConfigOption{
		ConfigAppName("my app"),
		ConfigLicense(testLicenseKey),
		ConfigLogger(ts.log),
		ConfigSettings(NewSettings(settings)),
	}
	s, err := NewConnectSession(ts.collector, Subsystems{
		TransactionSampler: ts.sampler,
		SQLSampler:         ts.sql,
		ErrorCollector:     ts.errs,
	}, append(base, opts...)...)
	require.NoError(t, err)

	s.timer = ts.timer
	s.environment = sampleEnvironment.snapshot
	ts.ConnectSession = s
	return ts
}

func boolPtr(b bool) *bool { return &b }

func sampleReply(runID string) *ServerConfigResponse {
	return &ServerConfigResponse{
		RunID:            AgentRunID(runID),
		DataReportPeriod: 60 * time.Second,
		Config: map[string]interface{}{
			"collect_traces": true,
			"collect_errors": true,
		},
	}
}
