// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Command connect-dryrun runs one connect cycle against a canned collector
// reply and prints the payload that would be sent and the state applied.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	newrelic "github.com/newrelic/go-agent-connect"
)

const defaultReply = `{"return_value":{"agent_run_id":"dryrun","data_report_period":60,"config":{"collect_traces":true,"collect_errors":true}}}`

// fileCollector answers every connect with the contents of a file.
type fileCollector struct {
	path string
}

func (c fileCollector) Connect(ctx context.Context, settings *newrelic.ConnectSettings) (*newrelic.ServerConfigResponse, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}

	js, err := json.MarshalIndent(settings, "", "  ")
	if nil != err {
		return nil, errors.Wrap(err, "unable to encode connect payload")
	}
	fmt.Printf("connect payload:\n%s\n", js)

	body := []byte(defaultReply)
	if "" != c.path {
		body, err = os.ReadFile(c.path)
		if nil != err {
			return nil, errors.Wrapf(err, "unable to read reply %s", c.path)
		}
	}
	return newrelic.ParseServerConfigResponse(body)
}

func main() {
	if err := run(); nil != err {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, env, replyPath string
	var debug bool

	flagSet := pflag.NewFlagSet("connect-dryrun", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "newrelic.yml", "path to the settings file")
	flagSet.StringVar(&env, "env", "", "settings file environment section, for example production")
	flagSet.StringVar(&replyPath, "reply", "", "file holding a collector connect response (default: a synthetic reply)")
	flagSet.BoolVar(&debug, "debug", false, "log at debug level")

	if err := flagSet.Parse(os.Args[1:]); nil != err {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logOpt := newrelic.ConfigInfoLogger(os.Stderr)
	if debug {
		logOpt = newrelic.ConfigDebugLogger(os.Stderr)
	}

	session, err := newrelic.NewConnectSession(fileCollector{path: replyPath}, newrelic.Subsystems{},
		newrelic.ConfigSettingsFile(configPath, env),
		newrelic.ConfigFromEnvironment(),
		logOpt,
	)
	if nil != err {
		return err
	}

	session.Connect(context.Background(), newrelic.ConnectOptions{KeepRetrying: new(bool)})

	fmt.Printf("connected:           %t\n", session.Connected())
	fmt.Printf("stopped:             %t\n", session.Stopped())
	fmt.Printf("agent run id:        %s\n", session.RunID())
	fmt.Printf("report period:       %s\n", session.ReportPeriod())
	fmt.Printf("send trace samples:  %t\n", session.ShouldSendSamples())
	fmt.Printf("record sql:          %s\n", session.RecordSQL())
	return nil
}
