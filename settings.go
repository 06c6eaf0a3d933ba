// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings is the operator configuration store.  Keys are dotted paths, for
// example "transaction_tracer.record_sql"; nested maps given to NewSettings
// or read from a settings file are flattened into that form.
//
// Lookup distinguishes a key that is absent from a key that is present with
// a false or null value.
type Settings struct {
	values map[string]interface{}
}

// NewSettings creates a Settings from a possibly nested map.
func NewSettings(values map[string]interface{}) *Settings {
	s := &Settings{values: make(map[string]interface{})}
	flattenSettings("", values, s.values)
	return s
}

func flattenSettings(prefix string, in map[string]interface{}, out map[string]interface{}) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flattenSettings(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// Lookup returns the value stored for key and whether the key is present.
func (s *Settings) Lookup(key string) (interface{}, bool) {
	if nil == s {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

// Bool returns the value of key as a bool.  Strings are parsed with
// strconv.ParseBool.  ok is false if the key is absent or not a boolean.
func (s *Settings) Bool(key string) (value bool, ok bool) {
	v, present := s.Lookup(key)
	if !present {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		if nil != err {
			return false, false
		}
		return parsed, true
	}
	return false, false
}

// BoolDefault returns the boolean value of key, or def when the key is
// absent or not a boolean.
func (s *Settings) BoolDefault(key string, def bool) bool {
	if b, ok := s.Bool(key); ok {
		return b
	}
	return def
}

// String returns the value of key if it is a string.  Numbers read from a
// settings file are returned exactly as written.
func (s *Settings) String(key string) (string, bool) {
	v, present := s.Lookup(key)
	if !present {
		return "", false
	}
	switch str := v.(type) {
	case string:
		return str, true
	case json.Number:
		return str.String(), true
	}
	return "", false
}

// Float returns the value of key as a float64.
func (s *Settings) Float(key string) (float64, bool) {
	v, present := s.Lookup(key)
	if !present {
		return 0, false
	}
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	case json.Number:
		parsed, err := f.Float64()
		if nil != err {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseFloat(f, 64)
		if nil != err {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// FloatDefault returns the float value of key, or def.
func (s *Settings) FloatDefault(key string, def float64) float64 {
	if f, ok := s.Float(key); ok {
		return f
	}
	return def
}

// Int returns the value of key as an int.  Floats are accepted only when
// they hold a whole number.
func (s *Settings) Int(key string) (int, bool) {
	v, present := s.Lookup(key)
	if !present {
		return 0, false
	}
	switch i := v.(type) {
	case int:
		return i, true
	case int64:
		return int(i), true
	case float64:
		if i != float64(int(i)) {
			return 0, false
		}
		return int(i), true
	case json.Number:
		if parsed, err := strconv.Atoi(i.String()); nil == err {
			return parsed, true
		}
		f, err := i.Float64()
		if nil != err || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	case string:
		parsed, err := strconv.Atoi(i)
		if nil != err {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// Set stores value under key.  A map value is flattened beneath key.
func (s *Settings) Set(key string, value interface{}) {
	if nil == s.values {
		s.values = make(map[string]interface{})
	}
	if nested, ok := value.(map[string]interface{}); ok {
		flattenSettings(key, nested, s.values)
		return
	}
	s.values[key] = value
}

// Merge copies every key of other into s, replacing existing values.
func (s *Settings) Merge(other *Settings) {
	if nil == other {
		return
	}
	if nil == s.values {
		s.values = make(map[string]interface{})
	}
	for k, v := range other.values {
		s.values[k] = v
	}
}

// Snapshot returns a copy of every setting.
func (s *Settings) Snapshot() map[string]interface{} {
	out := make(map[string]interface{})
	if nil == s {
		return out
	}
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

const commonSection = "common"

// LoadSettingsFile reads a newrelic.yml style settings file.  If the
// document has a "common" section or a section named env, the result is
// "common" overlaid with the env section.  Otherwise the whole document is
// used.
func LoadSettingsFile(path string, env string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if nil != err {
		return nil, errors.Wrapf(err, "unable to read settings file %s", path)
	}
	s, err := parseSettings(data, env)
	if nil != err {
		return nil, errors.Wrapf(err, "invalid settings file %s", path)
	}
	return s, nil
}

func parseSettings(data []byte, env string) (*Settings, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); nil != err {
		return nil, err
	}
	decoded, err := settingsValue(&root)
	if nil != err {
		return nil, err
	}
	doc, ok := decoded.(map[string]interface{})
	if !ok && nil != decoded {
		return nil, errors.New("settings document is not a mapping")
	}

	common, hasCommon := doc[commonSection].(map[string]interface{})
	section, hasSection := doc[env].(map[string]interface{})
	if "" == env {
		hasSection = false
	}
	if !hasCommon && !hasSection {
		return NewSettings(doc), nil
	}

	s := NewSettings(common)
	s.Merge(NewSettings(section))
	return s, nil
}

// settingsValue decodes a YAML node.  Numbers keep their literal text: as
// json.Number when the text is a JSON number, otherwise as a string.  A
// numeric-looking license key or app name therefore keeps every digit and
// reads back through Settings.String.
func settingsValue(n *yaml.Node) (interface{}, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return settingsValue(n.Content[0])
	case yaml.AliasNode:
		return settingsValue(n.Alias)
	case yaml.MappingNode:
		m := make(map[string]interface{}, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := settingsValue(n.Content[i+1])
			if nil != err {
				return nil, err
			}
			m[n.Content[i].Value] = v
		}
		return m, nil
	case yaml.ScalarNode:
		if tag := n.ShortTag(); tag == "!!int" || tag == "!!float" {
			if json.Valid([]byte(n.Value)) {
				return json.Number(n.Value), nil
			}
			// 0123, 0x1f, .inf
			return n.Value, nil
		}
	}
	var v interface{}
	if err := n.Decode(&v); nil != err {
		return nil, err
	}
	return v, nil
}

// settingsFromEnvironment maps NEW_RELIC_* variables onto settings keys.
// Values are kept as strings; the typed accessors parse them.
var settingsEnvironmentKeys = map[string]string{
	"NEW_RELIC_SEND_ENVIRONMENT_INFO":        "send_environment_info",
	"NEW_RELIC_APDEX_T":                      "apdex_t",
	"NEW_RELIC_VALIDATE_SEED":                "validate_seed",
	"NEW_RELIC_VALIDATE_TOKEN":               "validate_token",
	"NEW_RELIC_ERROR_COLLECTOR_ENABLED":      "error_collector.enabled",
	"NEW_RELIC_TRANSACTION_TRACER_ENABLED":   "transaction_tracer.enabled",
	"NEW_RELIC_TRANSACTION_TRACER_THRESHOLD": "transaction_tracer.transaction_threshold",
	"NEW_RELIC_RECORD_SQL":                   "transaction_tracer.record_sql",
}

func settingsFromEnvironment(getenv func(string) string) *Settings {
	s := NewSettings(nil)
	for env, key := range settingsEnvironmentKeys {
		if v := getenv(env); v != "" {
			s.Set(key, strings.TrimSpace(v))
		}
	}
	return s
}
