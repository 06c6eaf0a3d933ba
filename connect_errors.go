// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"fmt"

	"github.com/newrelic/go-agent-connect/internal"
)

const licenseRemediation = "Visit NewRelic.com to obtain a valid license key, or to upgrade your account."

// logError records a failed connect attempt: the collector and message at
// error level, the full detail at debug level.
func (s *ConnectSession) logError(err error) {
	s.config.Logger.Error("error establishing connection with collector", map[string]interface{}{
		"collector": s.collectorHost(),
		"error":     err.Error(),
		"exception": exceptionKind(err),
	})
	s.config.Logger.Debug("collector connect error detail", map[string]interface{}{
		"detail": fmt.Sprintf("%+v", err),
	})
}

// exceptionKind names the collector exception behind err.  Failures that
// never reached the collector are "transport".
func exceptionKind(err error) string {
	switch {
	case internal.IsLicenseException(err):
		return "license"
	case internal.IsRestartException(err):
		return "force_restart"
	case internal.IsDisconnect(err):
		return "force_disconnect"
	case internal.IsRuntime(err):
		return "runtime"
	case internal.IsCollectorException(err):
		return "other"
	default:
		return "transport"
	}
}

// handleLicenseError permanently stops the session.  A rejected license is
// never retried.
func (s *ConnectSession) handleLicenseError(err error) {
	s.disconnect()
	s.config.Logger.Error(internal.ExceptionMessage(err), map[string]interface{}{
		"app": s.config.AppName,
	})
	s.config.Logger.Info(licenseRemediation, nil)
}

func (s *ConnectSession) collectorHost() string {
	return internal.CollectorHost(s.config.Host)
}
