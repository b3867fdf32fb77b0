// Copyright © 2017 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package defaults

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Debug is false by default
	Debug = false

	// LogLevel set to info by default
	LogLevel = "info"

	// LogPretty colored/formatted output to stderr
	LogPretty = false

	// StreamTags output names in the name[tag:value,...] form by default
	StreamTags = false

	// TagExcludeFileName base name (no extension) of the metric tag exclusion file
	TagExcludeFileName = "metric-filter-config"

	// TagFormatFileName base name (no extension) of the metric tag value format file
	TagFormatFileName = "metric-tag-formatter"
)

var (
	// Expansions appended to every formatted metric name, the
	// aggregations reported for each metric
	Expansions = []string{"count", "p75", "p95", "p99"}

	// BasePath is the "base" directory
	//
	// expected installation structure:
	// base        (e.g. /opt/conductor/metrics)
	//   /bin      (e.g. /opt/conductor/metrics/bin)
	//   /etc      (e.g. /opt/conductor/metrics/etc)
	BasePath = ""

	// EtcPath returns the default etc directory within base directory
	EtcPath = "" // (e.g. /opt/conductor/metrics/etc)

	// TagExcludeFile is the default tag exclusion file base path
	TagExcludeFile = "" // (e.g. /opt/conductor/metrics/etc/metric-filter-config)

	// TagFormatFile is the default tag value format file base path
	TagFormatFile = "" // (e.g. /opt/conductor/metrics/etc/metric-tag-formatter)
)

func init() {
	var exePath string
	var resolvedExePath string
	var err error

	exePath, err = os.Executable()
	if err == nil {
		resolvedExePath, err = filepath.EvalSymlinks(exePath)
		if err == nil {
			BasePath = filepath.Clean(filepath.Join(filepath.Dir(resolvedExePath), "..")) // e.g. /opt/conductor/metrics
		}
	}

	if err != nil {
		fmt.Printf("Unable to determine path to binary %v\n", err)
		os.Exit(1)
	}

	EtcPath = filepath.Join(BasePath, "etc")
	TagExcludeFile = filepath.Join(EtcPath, TagExcludeFileName)
	TagFormatFile = filepath.Join(EtcPath, TagFormatFileName)
}
