// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package internal

import "time"

const (
	// ConnectRetryStep is the backoff added for each failed connect
	// attempt.
	ConnectRetryStep = 60 * time.Second
	// MaxConnectRetryPeriod caps the wait between connect attempts.
	MaxConnectRetryPeriod = 10 * time.Minute

	// DefaultReportPeriod is used when the collector does not send a
	// data_report_period.
	DefaultReportPeriod = 60 * time.Second

	// DefaultSamplingRate is used when random transaction sampling is
	// enabled and the collector does not send a usable sample_rate.
	DefaultSamplingRate = 10

	// HostByteLimit is the maximum length of the host names sent in the
	// connect payload.
	HostByteLimit = 255

	// AppNameLimit is the maximum number of rollup application names.
	AppNameLimit = 3
	// LicenseLength is the required length of a license key.
	LicenseLength = 40
)
