// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"encoding/json"

	"github.com/newrelic/go-agent-connect/internal"
)

const (
	defaultApdexT                  = 0.5
	defaultExplainThreshold        = 0.5
	defaultTransactionThreshold    = 2.0
	apdexFailingThresholdSetting   = "apdex_f"
	transactionThresholdSettingKey = "transaction_tracer.transaction_threshold"
	recordSQLSettingKey            = "transaction_tracer.record_sql"
)

// configureErrorCollector enables the error collector only when both the
// collector and the operator allow it.
func (s *ConnectSession) configureErrorCollector(serverEnabled bool) {
	ec := s.subsystems.ErrorCollector
	enabled := ec.ConfigEnabled() && serverEnabled
	ec.SetEnabled(enabled)
	if enabled {
		s.config.Logger.Debug("errors will be sent to the collector", nil)
	} else {
		s.config.Logger.Debug("errors will not be sent to the collector", nil)
	}
}

// apdexF is the frustrating threshold in seconds: four times apdex_t.
func (s *ConnectSession) apdexF() float64 {
	return 4 * s.config.Settings.FloatDefault("apdex_t", defaultApdexT)
}

func (s *ConnectSession) apdexFThreshold() bool {
	threshold, ok := s.config.Settings.String(transactionThresholdSettingKey)
	return ok && threshold == apdexFailingThresholdSetting
}

func (s *ConnectSession) enableRandomSamples(sampleRate int) {
	if sampleRate <= 0 {
		sampleRate = internal.DefaultSamplingRate
	}
	ts := s.subsystems.TransactionSampler
	ts.SetRandomSampling(true)
	ts.SetSamplingRate(sampleRate)
	s.config.Logger.Info("transaction sampling enabled", map[string]interface{}{
		"rate": ts.SamplingRate(),
	})
}

// recordSQLPolicy maps the record_sql setting.  An absent setting means
// obfuscated; an explicit false or null means off.
func recordSQLPolicy(settings *Settings) SQLRecordingPolicy {
	v, ok := settings.Lookup(recordSQLSettingKey)
	if !ok {
		return SQLRecordObfuscated
	}
	switch val := v.(type) {
	case nil:
		return SQLRecordOff
	case bool:
		if !val {
			return SQLRecordOff
		}
	case string:
		switch val {
		case "off", "none", "false", "":
			return SQLRecordOff
		case "raw":
			return SQLRecordRaw
		}
	}
	return SQLRecordObfuscated
}

func (s *ConnectSession) setSQLRecording() {
	s.tracer.RecordSQL = recordSQLPolicy(s.config.Settings)
	s.logSQLTransmissionWarning()
}

func (s *ConnectSession) logSQLTransmissionWarning() {
	if s.tracer.RecordSQL == SQLRecordRaw {
		s.config.Logger.Warn("agent is configured to send raw SQL to the collector", nil)
	}
}

// configTransactionTracer reads the operator's tracer settings.  It runs
// once per connect cycle, before the first attempt.
func (s *ConnectSession) configTransactionTracer() {
	st := s.config.Settings
	s.tracer.Enabled = st.BoolDefault("transaction_tracer.enabled", true)
	s.tracer.ExplainEnabled = st.BoolDefault("transaction_tracer.explain_enabled", true)
	s.tracer.ExplainThreshold = st.FloatDefault("transaction_tracer.explain_threshold", defaultExplainThreshold)
	s.shouldSendRandomSamples = st.BoolDefault("transaction_tracer.random_sample", false)
	s.setSQLRecording()

	s.slowestTransactionThreshold = st.FloatDefault(transactionThresholdSettingKey, defaultTransactionThreshold)
	if s.apdexFThreshold() {
		s.slowestTransactionThreshold = s.apdexF()
	}
}

// configureTransactionTracer asks the collector's permission to send
// traces.  When permission is withheld the sampler is left untouched.
func (s *ConnectSession) configureTransactionTracer(serverAllows bool, sampleRate int) {
	s.shouldSendSamples = s.tracer.Enabled && serverAllows
	if !s.shouldSendSamples {
		s.config.Logger.Debug("transaction traces will not be sent to the collector", nil)
		return
	}
	if s.shouldSendRandomSamples {
		s.enableRandomSamples(sampleRate)
	}
	s.subsystems.TransactionSampler.SetSlowCaptureThreshold(s.slowestTransactionThreshold)
	s.config.Logger.Debug("transaction tracing threshold set", map[string]interface{}{
		"threshold_s": s.slowestTransactionThreshold,
	})
}

// finishSetup applies a connect response.  Every field is applied under the
// session lock so reporting never sees a partial configuration.  A nil or
// malformed response leaves the previous session state in place.
func (s *ConnectSession) finishSetup(reply *ServerConfigResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyServerConfig(reply)
}

// applyServerConfig is finishSetup for callers already holding s.mu.
func (s *ConnectSession) applyServerConfig(reply *ServerConfigResponse) {
	if nil == reply {
		return
	}
	if "" == reply.RunID {
		s.config.Logger.Warn("connect reply missing agent run id", map[string]interface{}{
			"collector": s.collectorHost(),
		})
		return
	}

	s.runID = reply.RunID
	s.reportPeriod = reply.DataReportPeriod
	if s.reportPeriod <= 0 {
		s.reportPeriod = internal.DefaultReportPeriod
	}
	s.urlRules = reply.URLRules

	s.configureTransactionTracer(
		reply.configBool(true, "transaction_tracer.enabled", "collect_traces"),
		reply.configInt("sample_rate"))
	s.configureErrorCollector(reply.configBool(true, "error_collector.enabled", "collect_errors"))

	s.subsystems.TransactionSampler.Configure(s.tracer)
	s.subsystems.SQLSampler.Configure(s.tracer)

	s.logConnection(reply)
}

func (s *ConnectSession) logConnection(reply *ServerConfigResponse) {
	s.config.Logger.Info("application connected", map[string]interface{}{
		"app":       s.config.AppName,
		"run":       reply.RunID.String(),
		"collector": s.collectorHost(),
	})
	if s.config.Logger.DebugEnabled() {
		js, _ := json.Marshal(reply)
		s.config.Logger.Debug("connection data", map[string]interface{}{
			"reply": internal.JSONString(js),
		})
	}
	internal.LogConnectMessages(reply.Messages, s.config.Logger)
}
