// Copyright 2020 New Relic Corporation. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package sysinfo

import (
	"os"
	"strings"
	"sync"
)

// resolver finds the reported host name once and remembers it.  The
// payload of every connect attempt uses the same name.
type resolver struct {
	sync.Mutex
	name     string
	getenv   func(string) string
	hostname func() (string, error)
}

var processResolver = &resolver{getenv: os.Getenv, hostname: os.Hostname}

// Hostname returns the host name reported in the connect payload.  On
// Heroku, when useDynoNames is set, the DYNO variable is reported instead,
// with dynos whose name starts with one of prefixes collapsed to
// "<prefix>.*".
func Hostname(useDynoNames bool, prefixes []string) (string, error) {
	return processResolver.resolve(useDynoNames, prefixes)
}

// ResetHostname forgets the remembered host name.  Tests only.
func ResetHostname() {
	processResolver.reset()
}

func (r *resolver) resolve(useDynoNames bool, prefixes []string) (string, error) {
	r.Lock()
	defer r.Unlock()

	if "" != r.name {
		return r.name, nil
	}
	if useDynoNames {
		if dyno := shortenDyno(r.getenv("DYNO"), prefixes); "" != dyno {
			r.name = dyno
			return dyno, nil
		}
	}
	host, err := r.hostname()
	if nil != err {
		return "", err
	}
	r.name = host
	return host, nil
}

func (r *resolver) reset() {
	r.Lock()
	defer r.Unlock()
	r.name = ""
}

func shortenDyno(dyno string, prefixes []string) string {
	for _, prefix := range prefixes {
		if "" != prefix && strings.HasPrefix(dyno, prefix) {
			return prefix + ".*"
		}
	}
	return dyno
}
