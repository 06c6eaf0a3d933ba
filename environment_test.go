// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package newrelic

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalEnvironmentSnapshot(t *testing.T) {
	js, err := json.Marshal(sampleEnvironment.snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `[
		["runtime.NumCPU",8],
		["runtime.Compiler","comp"],
		["runtime.GOARCH","arch"],
		["runtime.GOOS","goos"],
		["runtime.Version","vers"]]`, string(js))
}

func TestEnvironmentFields(t *testing.T) {
	env := newEnvironment()
	assert.Equal(t, runtime.Compiler, env.Compiler)
	assert.Equal(t, runtime.GOARCH, env.GOARCH)
	assert.Equal(t, runtime.GOOS, env.GOOS)
	assert.Equal(t, runtime.Version(), env.Version)
	assert.Equal(t, runtime.NumCPU(), env.NumCPU)
}
