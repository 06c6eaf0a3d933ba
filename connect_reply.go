// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/newrelic/go-agent-connect/internal"
)

// AgentRunID identifies the current connection with the collector.
type AgentRunID string

func (id AgentRunID) String() string {
	return string(id)
}

// UnmarshalJSON accepts the run id as either a JSON string or number.
func (id *AgentRunID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); nil == err {
		*id = AgentRunID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); nil != err {
		return errors.Wrap(err, "invalid agent_run_id")
	}
	*id = AgentRunID(n.String())
	return nil
}

// ServerConfigResponse is the collector's reply to a connect request.  It
// is consumed once, by the session's finishSetup.
type ServerConfigResponse struct {
	RunID AgentRunID `json:"agent_run_id"`

	// Config holds the server side settings, keyed as the collector sends
	// them, for example "error_collector.enabled" and "sample_rate".
	Config map[string]interface{} `json:"config"`

	// DataReportPeriod is sent as integer seconds.
	DataReportPeriod time.Duration `json:"-"`

	// URLRules are passed through untouched.
	URLRules json.RawMessage `json:"url_rules"`

	Messages []internal.ConnectMessage `json:"messages"`
}

// UnmarshalJSON decodes the collector wire format.
func (r *ServerConfigResponse) UnmarshalJSON(data []byte) error {
	type plain ServerConfigResponse
	wire := struct {
		*plain
		DataReportPeriod *float64 `json:"data_report_period"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &wire); nil != err {
		return err
	}
	if nil != wire.DataReportPeriod {
		r.DataReportPeriod = internal.FloatSecondsToDuration(*wire.DataReportPeriod)
	}
	return nil
}

// MarshalJSON encodes the response in the collector wire format.
func (r ServerConfigResponse) MarshalJSON() ([]byte, error) {
	type plain ServerConfigResponse
	return json.Marshal(struct {
		plain
		DataReportPeriod int64 `json:"data_report_period"`
	}{
		plain:            plain(r),
		DataReportPeriod: int64(r.DataReportPeriod / time.Second),
	})
}

// configValue finds a server setting sent either as a flat dotted key,
// "error_collector.enabled", or nested, {"error_collector":{"enabled":...}}.
func (r *ServerConfigResponse) configValue(key string) (interface{}, bool) {
	if v, ok := r.Config[key]; ok {
		return v, true
	}
	var cur interface{} = r.Config
	for _, part := range strings.Split(key, ".") {
		section, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = section[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// configBool reads a boolean server setting trying each key in order.
func (r *ServerConfigResponse) configBool(def bool, keys ...string) bool {
	for _, key := range keys {
		v, _ := r.configValue(key)
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// configInt reads an integer server setting.  JSON numbers decode as
// float64.
func (r *ServerConfigResponse) configInt(key string) int {
	v, _ := r.configValue(key)
	switch v := v.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if i, err := strconv.Atoi(v); nil == err {
			return i
		}
	}
	return 0
}

// ParseServerConfigResponse decodes the body of a collector connect
// response.  A collector exception is returned as an error which
// IsLicenseError recognizes when the license was rejected.  A null return
// value yields a nil response and no error.
func ParseServerConfigResponse(body []byte) (*ServerConfigResponse, error) {
	raw, err := internal.ParseResponse(body)
	if nil != err {
		return nil, err
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	reply := &ServerConfigResponse{}
	if err := json.Unmarshal(raw, reply); nil != err {
		return nil, errors.Wrap(err, "unable to parse connect reply")
	}
	return reply, nil
}

// NewLicenseError returns the error a Collector implementation should
// return when the collector rejects the license key.
func NewLicenseError(msg string) error {
	return internal.NewLicenseException(msg)
}

// IsLicenseError reports whether err is a license rejection.
func IsLicenseError(err error) bool {
	return internal.IsLicenseException(err)
}
