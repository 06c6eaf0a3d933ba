// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

const (
	major = "0"
	minor = "1"
	patch = "0"

	// Version is the full string version of this agent.
	Version = major + "." + minor + "." + patch

	agentLanguage = "go"
)
