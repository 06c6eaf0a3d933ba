// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/newrelic/go-agent-connect/internal/logger"
)

const (
	// DefaultCollectorHost is contacted when no host is configured.
	DefaultCollectorHost = "collector.newrelic.com"

	forceRestartType   = "NewRelic::Agent::ForceRestartException"
	disconnectType     = "NewRelic::Agent::ForceDisconnectException"
	licenseInvalidType = "NewRelic::Agent::LicenseException"
	runtimeType        = "RuntimeError"
)

// CollectorHost returns the host of the collector, honoring the
// NEW_RELIC_HOST environment variable.
func CollectorHost(configured string) string {
	if "" != configured {
		return configured
	}
	if s := os.Getenv("NEW_RELIC_HOST"); "" != s {
		return s
	}
	return DefaultCollectorHost
}

// RPMException is an exception returned by the collector.
type RPMException struct {
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
}

func (e *RPMException) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorType, e.Message)
}

// NewLicenseException creates the error the collector returns when the
// license key is rejected.
func NewLicenseException(msg string) error {
	return &RPMException{Message: msg, ErrorType: licenseInvalidType}
}

func hasType(e error, expected string) bool {
	var rpmErr *RPMException
	if !errors.As(e, &rpmErr) {
		return false
	}
	return rpmErr.ErrorType == expected
}

// IsCollectorException returns true if err carries any collector
// exception.
func IsCollectorException(e error) bool {
	var rpmErr *RPMException
	return errors.As(e, &rpmErr)
}

// IsLicenseException returns true if the collector rejected the license key.
func IsLicenseException(e error) bool { return hasType(e, licenseInvalidType) }

// IsRestartException returns true if the collector asked for a reconnect.
func IsRestartException(e error) bool { return hasType(e, forceRestartType) }

// IsDisconnect returns true if the collector asked the agent to disconnect.
func IsDisconnect(e error) bool { return hasType(e, disconnectType) }

// IsRuntime returns true if the collector failed with a runtime error.
func IsRuntime(e error) bool { return hasType(e, runtimeType) }

// ExceptionMessage returns the message the collector supplied with an
// exception, or the error string for any other error.
func ExceptionMessage(e error) string {
	var rpmErr *RPMException
	if errors.As(e, &rpmErr) {
		return rpmErr.Message
	}
	return e.Error()
}

// ParseResponse unwraps the collector response envelope.  A response that
// carries an exception is returned as an *RPMException error.
func ParseResponse(b []byte) (json.RawMessage, error) {
	var r struct {
		ReturnValue json.RawMessage `json:"return_value"`
		Exception   *RPMException   `json:"exception"`
	}

	if err := json.Unmarshal(b, &r); nil != err {
		return nil, errors.Wrap(err, "unable to parse collector response")
	}

	if nil != r.Exception {
		return nil, r.Exception
	}

	return r.ReturnValue, nil
}

// ConnectMessage is a message the collector asks the agent to log.
type ConnectMessage struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

// LogConnectMessages relays collector messages at their requested level.
func LogConnectMessages(msgs []ConnectMessage, lg logger.Logger) {
	for _, msg := range msgs {
		event := "collector message"
		cn := map[string]interface{}{"msg": msg.Message}

		switch strings.ToLower(msg.Level) {
		case "error":
			lg.Error(event, cn)
		case "warn":
			lg.Warn(event, cn)
		case "info":
			lg.Info(event, cn)
		case "debug", "verbose":
			lg.Debug(event, cn)
		}
	}
}
