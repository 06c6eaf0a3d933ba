// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"encoding/json"
	"os"

	"github.com/newrelic/go-agent-connect/internal"
	"github.com/newrelic/go-agent-connect/internal/sysinfo"
)

// ConnectSettings is the payload of a connect request.  It is built fresh
// for every attempt.
type ConnectSettings struct {
	PID             int                    `json:"pid"`
	Host            string                 `json:"host"`
	HostDisplayName string                 `json:"display_host,omitempty"`
	AppName         []string               `json:"app_name"`
	Language        string                 `json:"language"`
	AgentVersion    string                 `json:"agent_version"`
	Environment     []EnvironmentEntry     `json:"environment"`
	Settings        map[string]interface{} `json:"settings"`
	Validate        ValidationSettings     `json:"validate"`
	Labels          Labels                 `json:"labels,omitempty"`
	// Identifier lets the collector tell apart sessions that share a
	// first rollup name, for example "a;b" and "a;c".
	Identifier string `json:"identifier"`
}

// ValidationSettings carries the optional validation seed and token.  Both
// are nil when no validation was requested.
type ValidationSettings struct {
	Seed  *string `json:"seed"`
	Token *string `json:"token"`
}

// Labels is used for connect JSON formatting.
type Labels map[string]string

// MarshalJSON writes the labels as label_type/label_value pairs.
func (l Labels) MarshalJSON() ([]byte, error) {
	ls := make([]struct {
		Key   string `json:"label_type"`
		Value string `json:"label_value"`
	}, len(l))

	i := 0
	for key, val := range l {
		ls[i].Key = key
		ls[i].Value = val
		i++
	}

	return json.Marshal(ls)
}

func optionalString(s *Settings, key string) *string {
	v, ok := s.String(key)
	if !ok {
		return nil
	}
	return &v
}

func (s *ConnectSession) validateSettings() ValidationSettings {
	return ValidationSettings{
		Seed:  optionalString(s.config.Settings, "validate_seed"),
		Token: optionalString(s.config.Settings, "validate_token"),
	}
}

func (s *ConnectSession) logSeedToken() {
	v := s.validateSettings()
	if nil == v.Seed {
		return
	}
	token := ""
	if nil != v.Token {
		token = *v.Token
	}
	s.config.Logger.Debug("connecting with validation seed/token", map[string]interface{}{
		"seed":  *v.Seed,
		"token": token,
	})
}

// environmentForConnect returns the environment snapshot unless the
// operator set send_environment_info to false.
func (s *ConnectSession) environmentForConnect() []EnvironmentEntry {
	if send, ok := s.config.Settings.Bool("send_environment_info"); ok && !send {
		return []EnvironmentEntry{}
	}
	return s.environment()
}

// settingsSnapshot is the full operator configuration without the license
// key.
func (s *ConnectSession) settingsSnapshot() map[string]interface{} {
	snapshot := s.config.Settings.Snapshot()
	delete(snapshot, "license_key")
	return snapshot
}

func (s *ConnectSession) hostname() string {
	host, err := sysinfo.Hostname(s.config.Heroku.UseDynoNames, s.config.Heroku.DynoNamePrefixesToShorten)
	if nil != err {
		s.config.Logger.Warn("unable to determine hostname", map[string]interface{}{
			"error": err.Error(),
		})
		return "unknown"
	}
	return host
}

func (s *ConnectSession) connectSettings() *ConnectSettings {
	return &ConnectSettings{
		PID:             os.Getpid(),
		Host:            internal.StringLengthByteLimit(s.hostname(), internal.HostByteLimit),
		HostDisplayName: internal.StringLengthByteLimit(s.config.HostDisplayName, internal.HostByteLimit),
		AppName:         s.config.appNames(),
		Language:        agentLanguage,
		AgentVersion:    Version,
		Environment:     s.environmentForConnect(),
		Settings:        s.settingsSnapshot(),
		Validate:        s.validateSettings(),
		Labels:          Labels(s.config.Labels),
		Identifier:      s.config.AppName,
	}
}
