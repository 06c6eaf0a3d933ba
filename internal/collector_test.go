// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package internal

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseReturnValue(t *testing.T) {
	out, err := ParseResponse([]byte(`{"return_value":{"agent_run_id":"12345"}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"agent_run_id":"12345"}`, string(out))
}

func TestParseResponseLicenseException(t *testing.T) {
	_, err := ParseResponse([]byte(`{"exception":{
		"message":"Invalid license key, please contact support@newrelic.com",
		"error_type":"NewRelic::Agent::LicenseException"
	}}`))
	require.Error(t, err)
	assert.True(t, IsLicenseException(err))
	assert.False(t, IsDisconnect(err))
	assert.Equal(t, "Invalid license key, please contact support@newrelic.com", ExceptionMessage(err))
}

func TestParseResponseOtherExceptions(t *testing.T) {
	testcases := []struct {
		errorType  string
		restart    bool
		disconnect bool
		runtime    bool
	}{
		{errorType: "NewRelic::Agent::ForceRestartException", restart: true},
		{errorType: "NewRelic::Agent::ForceDisconnectException", disconnect: true},
		{errorType: "RuntimeError", runtime: true},
		{errorType: "Unknown"},
	}
	for _, tc := range testcases {
		_, err := ParseResponse([]byte(`{"exception":{"message":"msg","error_type":"` + tc.errorType + `"}}`))
		require.Error(t, err, tc.errorType)
		assert.Equal(t, tc.restart, IsRestartException(err), tc.errorType)
		assert.Equal(t, tc.disconnect, IsDisconnect(err), tc.errorType)
		assert.Equal(t, tc.runtime, IsRuntime(err), tc.errorType)
		assert.False(t, IsLicenseException(err), tc.errorType)
		assert.True(t, IsCollectorException(err), tc.errorType)
	}
}

func TestParseResponseInvalidJSON(t *testing.T) {
	_, err := ParseResponse([]byte(`{`))
	require.Error(t, err)
	assert.False(t, IsLicenseException(err))
}

func TestLicenseExceptionSurvivesWrapping(t *testing.T) {
	err := errors.Wrap(NewLicenseException("bad key"), "connect")
	assert.True(t, IsLicenseException(err))
	assert.Equal(t, "bad key", ExceptionMessage(err))
	assert.Equal(t, "plain", ExceptionMessage(errors.New("plain")))
	assert.True(t, IsCollectorException(err))
	assert.False(t, IsCollectorException(errors.New("plain")))
}

func TestCollectorHost(t *testing.T) {
	assert.Equal(t, "staging-collector.newrelic.com", CollectorHost("staging-collector.newrelic.com"))

	t.Setenv("NEW_RELIC_HOST", "")
	assert.Equal(t, DefaultCollectorHost, CollectorHost(""))

	t.Setenv("NEW_RELIC_HOST", "eu01.collector.newrelic.com")
	assert.Equal(t, "eu01.collector.newrelic.com", CollectorHost(""))
}

type levelRecorder struct {
	levels []string
}

func (r *levelRecorder) Error(string, map[string]interface{}) { r.levels = append(r.levels, "error") }
func (r *levelRecorder) Warn(string, map[string]interface{})  { r.levels = append(r.levels, "warn") }
func (r *levelRecorder) Info(string, map[string]interface{})  { r.levels = append(r.levels, "info") }
func (r *levelRecorder) Debug(string, map[string]interface{}) { r.levels = append(r.levels, "debug") }
func (r *levelRecorder) DebugEnabled() bool                   { return true }

func TestLogConnectMessages(t *testing.T) {
	lg := &levelRecorder{}
	LogConnectMessages([]ConnectMessage{
		{Message: "a", Level: "ERROR"},
		{Message: "b", Level: "warn"},
		{Message: "c", Level: "Info"},
		{Message: "d", Level: "verbose"},
		{Message: "e", Level: "unknown"},
	}, lg)
	assert.Equal(t, []string{"error", "warn", "info", "debug"}, lg.levels)
}
