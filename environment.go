// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"encoding/json"
	"reflect"
	"runtime"
)

// environment describes the application's environment.
type environment struct {
	NumCPU   int    `env:"runtime.NumCPU"`
	Compiler string `env:"runtime.Compiler"`
	GOARCH   string `env:"runtime.GOARCH"`
	GOOS     string `env:"runtime.GOOS"`
	Version  string `env:"runtime.Version"`
}

var (
	// sampleEnvironment is useful for testing.
	sampleEnvironment = environment{
		Compiler: "comp",
		GOARCH:   "arch",
		GOOS:     "goos",
		Version:  "vers",
		NumCPU:   8,
	}
)

func newEnvironment() environment {
	return environment{
		Compiler: runtime.Compiler,
		GOARCH:   runtime.GOARCH,
		GOOS:     runtime.GOOS,
		Version:  runtime.Version(),
		NumCPU:   runtime.NumCPU(),
	}
}

// EnvironmentEntry is one key/value pair of the environment snapshot.  It
// is sent to the collector as a two element array.
type EnvironmentEntry struct {
	Key   string
	Value interface{}
}

// MarshalJSON writes the entry in the format expected by the collector.
func (e EnvironmentEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.Key, e.Value})
}

// snapshot lists the environment fields in declaration order using their
// env tags as keys.
func (e environment) snapshot() []EnvironmentEntry {
	val := reflect.ValueOf(e)
	numFields := val.NumField()

	entries := make([]EnvironmentEntry, numFields)
	for i := 0; i < numFields; i++ {
		entries[i] = EnvironmentEntry{
			Key:   val.Type().Field(i).Tag.Get("env"),
			Value: val.Field(i).Interface(),
		}
	}
	return entries
}
