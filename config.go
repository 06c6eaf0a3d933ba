// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/newrelic/go-agent-connect/internal"
	"github.com/newrelic/go-agent-connect/internal/logger"
)

// Config contains the identity and operator settings used to connect to the
// collector.
type Config struct {
	// AppName is used by New Relic to link data across servers.  Up to
	// three rollup names may be given separated by semicolons.
	AppName string

	// License is your New Relic license key.
	License string

	// Logger controls connect session logging.
	Logger Logger

	// Enabled controls whether the session will communicate with the
	// collector.
	Enabled bool

	// Labels are key value pairs used to roll up applications into specific
	// categories.
	Labels map[string]string

	// HostDisplayName gives this server a recognizable name in the New
	// Relic UI.  This is an optional setting.
	HostDisplayName string

	// Host can be used to override the collector endpoint.
	Host string

	// Heroku controls the behavior of Heroku specific features.
	Heroku struct {
		// UseDynoNames controls if Heroku dyno names are reported as the
		// hostname.  Default is true.
		UseDynoNames bool
		// DynoNamePrefixesToShorten combines dyno names with these
		// prefixes into a single value, for example "run.*".
		DynoNamePrefixesToShorten []string
	}

	// Settings is the operator configuration store consulted during the
	// handshake and when applying the collector's configuration.  Its
	// full contents are sent to the collector, minus the license key.
	Settings *Settings

	// Error may be populated by the ConfigOptions provided to
	// NewConnectSession to indicate that setup has failed.
	Error error
}

// ConfigOption configures the Config when provided to NewConnectSession.
type ConfigOption func(*Config)

// ConfigEnabled sets whether or not the session will connect.
func ConfigEnabled(enabled bool) ConfigOption {
	return func(cfg *Config) { cfg.Enabled = enabled }
}

// ConfigAppName sets the application name.
func ConfigAppName(appName string) ConfigOption {
	return func(cfg *Config) { cfg.AppName = appName }
}

// ConfigLicense sets the license.
func ConfigLicense(license string) ConfigOption {
	return func(cfg *Config) { cfg.License = license }
}

// ConfigLogger populates the Config's Logger.
func ConfigLogger(l Logger) ConfigOption {
	return func(cfg *Config) { cfg.Logger = l }
}

// ConfigInfoLogger populates the config with basic Logger at info level.
func ConfigInfoLogger(w io.Writer) ConfigOption {
	return ConfigLogger(NewLogger(w))
}

// ConfigDebugLogger populates the config with a Logger at debug level.
func ConfigDebugLogger(w io.Writer) ConfigOption {
	return ConfigLogger(NewDebugLogger(w))
}

// ConfigSettings overlays s onto the operator settings.
func ConfigSettings(s *Settings) ConfigOption {
	return func(cfg *Config) {
		if nil == cfg.Settings {
			cfg.Settings = NewSettings(nil)
		}
		cfg.Settings.Merge(s)
	}
}

// ConfigSettingsFile overlays the settings read from a newrelic.yml style
// file.  env selects the environment section, for example "production".
func ConfigSettingsFile(path string, env string) ConfigOption {
	return func(cfg *Config) {
		s, err := LoadSettingsFile(path, env)
		if nil != err {
			cfg.Error = err
			return
		}
		ConfigSettings(s)(cfg)
	}
}

// ConfigFromEnvironment populates the config based on environment variables:
//
//	NEW_RELIC_APP_NAME                      sets AppName
//	NEW_RELIC_LICENSE_KEY                   sets License
//	NEW_RELIC_ENABLED                       sets Enabled using strconv.ParseBool
//	NEW_RELIC_HOST                          sets Host
//	NEW_RELIC_PROCESS_HOST_DISPLAY_NAME     sets HostDisplayName
//	NEW_RELIC_LABELS                        sets Labels using a semi-colon delimited string of colon-separated pairs, eg. "Server:One;DataCenter:Primary"
//	NEW_RELIC_LOG                           sets Logger to log to either "stdout" or "stderr" (filenames are not supported)
//	NEW_RELIC_LOG_LEVEL                     controls the NEW_RELIC_LOG level, must be "debug" for debug, or empty for info
//	NEW_RELIC_SEND_ENVIRONMENT_INFO         sets the send_environment_info setting
//	NEW_RELIC_APDEX_T                       sets the apdex_t setting
//	NEW_RELIC_VALIDATE_SEED                 sets the validate_seed setting
//	NEW_RELIC_VALIDATE_TOKEN                sets the validate_token setting
//	NEW_RELIC_ERROR_COLLECTOR_ENABLED       sets the error_collector.enabled setting
//	NEW_RELIC_TRANSACTION_TRACER_ENABLED    sets the transaction_tracer.enabled setting
//	NEW_RELIC_TRANSACTION_TRACER_THRESHOLD  sets the transaction_tracer.transaction_threshold setting
//	NEW_RELIC_RECORD_SQL                    sets the transaction_tracer.record_sql setting
//
// This function is strict and will assign Config.Error if any of the
// environment variables cannot be parsed.
func ConfigFromEnvironment() ConfigOption {
	return configFromEnvironment(os.Getenv)
}

func configFromEnvironment(getenv func(string) string) ConfigOption {
	return func(cfg *Config) {
		// Because fields could have been assigned in a previous
		// ConfigOption, we only want to assign fields using environment
		// variables that have been populated.
		assignBool := func(field *bool, name string) {
			if env := getenv(name); env != "" {
				if b, err := strconv.ParseBool(env); nil != err {
					cfg.Error = fmt.Errorf("invalid %s value: %s", name, env)
				} else {
					*field = b
				}
			}
		}
		assignString := func(field *string, name string) {
			if env := getenv(name); env != "" {
				*field = env
			}
		}

		assignString(&cfg.AppName, "NEW_RELIC_APP_NAME")
		assignString(&cfg.License, "NEW_RELIC_LICENSE_KEY")
		assignBool(&cfg.Enabled, "NEW_RELIC_ENABLED")
		assignString(&cfg.Host, "NEW_RELIC_HOST")
		assignString(&cfg.HostDisplayName, "NEW_RELIC_PROCESS_HOST_DISPLAY_NAME")

		if env := getenv("NEW_RELIC_LABELS"); env != "" {
			if labels := getLabels(env); len(labels) > 0 {
				cfg.Labels = labels
			} else {
				cfg.Error = fmt.Errorf("invalid NEW_RELIC_LABELS value: %s", env)
			}
		}

		if env := getenv("NEW_RELIC_LOG"); env != "" {
			if dest := getLogDest(env); dest != nil {
				if isDebugEnv(getenv("NEW_RELIC_LOG_LEVEL")) {
					cfg.Logger = NewDebugLogger(dest)
				} else {
					cfg.Logger = NewLogger(dest)
				}
			} else {
				cfg.Error = fmt.Errorf("invalid NEW_RELIC_LOG value %s", env)
			}
		}

		fromEnv := settingsFromEnvironment(getenv)
		for _, key := range []string{"send_environment_info", "error_collector.enabled", "transaction_tracer.enabled"} {
			if v, ok := fromEnv.Lookup(key); ok {
				if _, isBool := fromEnv.Bool(key); !isBool {
					cfg.Error = fmt.Errorf("invalid %s value: %v", key, v)
				}
			}
		}
		if v, ok := fromEnv.Lookup("apdex_t"); ok {
			if _, isFloat := fromEnv.Float("apdex_t"); !isFloat {
				cfg.Error = fmt.Errorf("invalid apdex_t value: %v", v)
			}
		}
		ConfigSettings(fromEnv)(cfg)
	}
}

func getLogDest(env string) io.Writer {
	switch env {
	case "stdout", "Stdout", "STDOUT":
		return os.Stdout
	case "stderr", "Stderr", "STDERR":
		return os.Stderr
	default:
		return nil
	}
}

func isDebugEnv(env string) bool {
	switch env {
	case "debug", "Debug", "DEBUG", "d", "D":
		return true
	default:
		return false
	}
}

// getLabels reads Labels from the env string, expressed as a semi-colon
// delimited string of colon-separated pairs (for example, "Server:One;Data
// Center:Primary").  Label keys and values must be 255 characters or less in
// length.  No more than 64 Labels can be set.
func getLabels(env string) map[string]string {
	out := make(map[string]string)
	env = strings.Trim(env, ";\t\n\v\f\r ")
	for _, entry := range strings.Split(env, ";") {
		if entry == "" {
			return nil
		}
		split := strings.Split(entry, ":")
		if len(split) != 2 {
			return nil
		}
		left := strings.TrimSpace(split[0])
		right := strings.TrimSpace(split[1])
		if left == "" || right == "" {
			return nil
		}
		if utf8.RuneCountInString(left) > 255 {
			left = string([]rune(left)[:255])
		}
		if utf8.RuneCountInString(right) > 255 {
			right = string([]rune(right)[:255])
		}
		out[left] = right
		if len(out) >= 64 {
			return out
		}
	}
	return out
}

// defaultConfig creates a Config populated with default settings.
func defaultConfig() Config {
	c := Config{}

	c.Enabled = true
	c.Labels = make(map[string]string)
	c.Logger = logger.ShimLogger{}
	c.Settings = NewSettings(nil)
	c.Heroku.UseDynoNames = true
	c.Heroku.DynoNamePrefixesToShorten = []string{"scheduler", "run"}

	return c
}

// applySettingsIdentity fills identity fields that were left empty from the
// operator settings.
func (c *Config) applySettingsIdentity() {
	if s, ok := c.Settings.String("app_name"); ok && "" == c.AppName {
		c.AppName = s
	}
	if s, ok := c.Settings.String("license_key"); ok && "" == c.License {
		c.License = s
	}
	if s, ok := c.Settings.String("host"); ok && "" == c.Host {
		c.Host = s
	}
	if s, ok := c.Settings.String("process_host.display_name"); ok && "" == c.HostDisplayName {
		c.HostDisplayName = s
	}
	if b, ok := c.Settings.Bool("monitor_mode"); ok && !b {
		c.Enabled = false
	}
}

// The following errors will be returned if your Config fails to validate.
var (
	errLicenseLen     = fmt.Errorf("license length is not %d", internal.LicenseLength)
	errAppNameMissing = errors.New("string AppName required")
	errAppNameLimit   = fmt.Errorf("max of %d rollup application names", internal.AppNameLimit)
)

// validate checks the config for improper fields.  If the config is invalid,
// NewConnectSession returns an error.
func (c Config) validate() error {
	if c.Enabled {
		if len(c.License) != internal.LicenseLength {
			return errLicenseLen
		}
	} else if len(c.License) != internal.LicenseLength && len(c.License) != 0 {
		// The License may be empty when the session is not enabled.
		return errLicenseLen
	}
	if "" == c.AppName && c.Enabled {
		return errAppNameMissing
	}
	if strings.Count(c.AppName, ";") >= internal.AppNameLimit {
		return errAppNameLimit
	}
	return nil
}

// appNames splits the configured rollup names.
func (c Config) appNames() []string {
	return strings.Split(c.AppName, ";")
}

func newConfig(opts ...ConfigOption) (Config, error) {
	c := defaultConfig()
	for _, fn := range opts {
		if nil == fn {
			continue
		}
		fn(&c)
		if nil != c.Error {
			return c, c.Error
		}
	}
	if nil == c.Logger {
		c.Logger = logger.ShimLogger{}
	}
	if nil == c.Settings {
		c.Settings = NewSettings(nil)
	}
	c.applySettingsIdentity()
	if err := c.validate(); nil != err {
		return c, err
	}
	return c, nil
}
