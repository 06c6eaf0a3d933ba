// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newrelic/go-agent-connect/internal/logger"
)

func TestConfigDefaults(t *testing.T) {
	cfg := defaultConfig()
	assert.True(t, cfg.Enabled)
	assert.IsType(t, logger.ShimLogger{}, cfg.Logger)
	assert.NotNil(t, cfg.Settings)
	assert.True(t, cfg.Heroku.UseDynoNames)
	assert.Equal(t, []string{"scheduler", "run"}, cfg.Heroku.DynoNamePrefixesToShorten)
}

func TestConfigValidate(t *testing.T) {
	testcases := []struct {
		name string
		cfg  func(*Config)
		want error
	}{
		{name: "valid", cfg: func(c *Config) {}, want: nil},
		{name: "short license", cfg: func(c *Config) { c.License = "abc" }, want: errLicenseLen},
		{name: "missing app", cfg: func(c *Config) { c.AppName = "" }, want: errAppNameMissing},
		{name: "three rollups", cfg: func(c *Config) { c.AppName = "a;b;c" }, want: nil},
		{name: "four rollups", cfg: func(c *Config) { c.AppName = "a;b;c;d" }, want: errAppNameLimit},
		{name: "disabled empty", cfg: func(c *Config) { c.Enabled = false; c.License = ""; c.AppName = "" }, want: nil},
		{name: "disabled short license", cfg: func(c *Config) { c.Enabled = false; c.License = "abc" }, want: errLicenseLen},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.AppName = "app"
			cfg.License = testLicenseKey
			tc.cfg(&cfg)
			assert.Equal(t, tc.want, cfg.validate())
		})
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	env := map[string]string{
		"NEW_RELIC_APP_NAME":                  "env app",
		"NEW_RELIC_LICENSE_KEY":               testLicenseKey,
		"NEW_RELIC_ENABLED":                   "true",
		"NEW_RELIC_HOST":                      "staging-collector.newrelic.com",
		"NEW_RELIC_PROCESS_HOST_DISPLAY_NAME": "display",
		"NEW_RELIC_LABELS":                    "Server:One;DataCenter:Primary",
		"NEW_RELIC_RECORD_SQL":                "off",
		"NEW_RELIC_VALIDATE_SEED":             "seed",
	}
	cfg, err := newConfig(configFromEnvironment(func(k string) string { return env[k] }))
	require.NoError(t, err)

	assert.Equal(t, "env app", cfg.AppName)
	assert.Equal(t, testLicenseKey, cfg.License)
	assert.Equal(t, "staging-collector.newrelic.com", cfg.Host)
	assert.Equal(t, "display", cfg.HostDisplayName)
	assert.Equal(t, map[string]string{"Server": "One", "DataCenter": "Primary"}, cfg.Labels)
	assert.Equal(t, SQLRecordOff, recordSQLPolicy(cfg.Settings))
	seed, _ := cfg.Settings.String("validate_seed")
	assert.Equal(t, "seed", seed)
}

func TestConfigFromEnvironmentErrors(t *testing.T) {
	testcases := map[string]string{
		"NEW_RELIC_ENABLED":                 "maybe",
		"NEW_RELIC_LABELS":                  "bad",
		"NEW_RELIC_LOG":                     "/var/log/agent.log",
		"NEW_RELIC_ERROR_COLLECTOR_ENABLED": "sometimes",
		"NEW_RELIC_APDEX_T":                 "fast",
	}
	for name, value := range testcases {
		t.Run(name, func(t *testing.T) {
			getenv := func(k string) string {
				if k == name {
					return value
				}
				return ""
			}
			_, err := newConfig(ConfigAppName("app"), ConfigLicense(testLicenseKey), configFromEnvironment(getenv))
			assert.Error(t, err)
		})
	}
}

func TestConfigFromEnvironmentLogger(t *testing.T) {
	env := map[string]string{"NEW_RELIC_LOG": "stdout", "NEW_RELIC_LOG_LEVEL": "debug"}
	cfg, err := newConfig(ConfigAppName("app"), ConfigLicense(testLicenseKey),
		configFromEnvironment(func(k string) string { return env[k] }))
	require.NoError(t, err)
	assert.True(t, cfg.Logger.DebugEnabled())
}

func TestGetLabels(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "b"}, getLabels(" a : b ;"))
	assert.Nil(t, getLabels("a:b;;c:d"))
	assert.Nil(t, getLabels("a:b:c"))
	assert.Nil(t, getLabels(":b"))
}

func TestSettingsIdentity(t *testing.T) {
	cfg, err := newConfig(ConfigSettings(NewSettings(map[string]interface{}{
		"app_name":    "from settings",
		"license_key": testLicenseKey,
		"host":        "eu-collector.newrelic.com",
		"process_host": map[string]interface{}{
			"display_name": "box-1",
		},
	})))
	require.NoError(t, err)
	assert.Equal(t, "from settings", cfg.AppName)
	assert.Equal(t, testLicenseKey, cfg.License)
	assert.Equal(t, "eu-collector.newrelic.com", cfg.Host)
	assert.Equal(t, "box-1", cfg.HostDisplayName)

	cfg, err = newConfig(ConfigAppName("explicit"), ConfigLicense(testLicenseKey),
		ConfigSettings(NewSettings(map[string]interface{}{"app_name": "ignored", "monitor_mode": true})))
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.AppName)
	assert.True(t, cfg.Enabled)
}

func TestConfigSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newrelic.yml")
	body := "common:\n  app_name: file app\n  license_key: " + testLicenseKey + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := newConfig(ConfigSettingsFile(path, "production"))
	require.NoError(t, err)
	assert.Equal(t, "file app", cfg.AppName)
	assert.Equal(t, []string{"file app"}, cfg.appNames())

	assert.Equal(t, testLicenseKey, cfg.License)

	_, err = newConfig(ConfigSettingsFile(filepath.Join(t.TempDir(), "nope.yml"), ""))
	assert.Error(t, err)
}

func TestConfigLoggers(t *testing.T) {
	var buf bytes.Buffer
	cfg, err := newConfig(ConfigAppName("app"), ConfigLicense(testLicenseKey), ConfigInfoLogger(&buf))
	require.NoError(t, err)
	assert.False(t, cfg.Logger.DebugEnabled())
	cfg.Logger.Info("hello", nil)
	assert.Contains(t, buf.String(), `"message":"hello"`)

	cfg, err = newConfig(ConfigAppName("app"), ConfigLicense(testLicenseKey), ConfigDebugLogger(&buf))
	require.NoError(t, err)
	assert.True(t, cfg.Logger.DebugEnabled())
}
