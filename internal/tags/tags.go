// Copyright © 2018 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

// Package tags rewrites registry metric identifiers
// (name.tag-value.tag-value) into the tagged form understood
// by the backend reporter (name.expansion[tag:value,tag:value]).
package tags

import (
	"strings"

	cgm "github.com/circonus-labs/circonus-gometrics/v3"
	"github.com/rs/zerolog/log"
)

// Tag aliases cgm's Tag to centralize definition
type Tag = cgm.Tag

// Tags aliases cgm's Tags to centralize definition
type Tags = cgm.Tags

// Metric is a parsed registry metric identifier
type Metric struct {
	Base string
	Tags Tags
}

const (
	// Delimiter defines character separating category from value in a tag e.g. status:COMPLETED
	Delimiter = ":"
	// Separator defines character separating tags in a list e.g. taskType:foo,status:COMPLETED
	Separator = ","
	// SegmentSeparator defines character separating segments of a registry metric identifier
	SegmentSeparator = "."
	// TagSeparator defines character separating tag name from tag value in a segment e.g. status-COMPLETED
	TagSeparator = "-"

	tagListStart = "["
	tagListEnd   = "]"
)

// String returns the tag list in backend format, e.g. "taskType:foo,status:COMPLETED"
func (m Metric) String() string {
	return encodeTags(m.Tags)
}

func encodeTags(tags Tags) string {
	if len(tags) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, t := range tags {
		if i > 0 {
			sb.WriteString(Separator)
		}
		sb.WriteString(t.Category)
		sb.WriteString(Delimiter)
		sb.WriteString(t.Value)
	}

	return sb.String()
}

// cgmLogger routes cgm's invalid tag messages to zerolog
type cgmLogger struct{}

func (cgmLogger) Printf(format string, v ...interface{}) {
	log.Debug().Str("pkg", "cgm").Msgf(format, v...)
}

// streamTags only encodes tags, it never submits metrics
var streamTags = &cgm.CirconusMetrics{Log: cgmLogger{}}

// StreamTagName returns base and expansions joined with SegmentSeparator,
// followed by the metric's tags encoded as circonus stream tags, e.g.
// `foo.count|ST[b"YmFy":b"YmF6"]`. Categories and values are lowercased
// and sorted, tags with an empty category or value are dropped. With no
// tags left the plain name is returned.
func StreamTagName(m Metric, expansions ...string) string {
	return streamTags.MetricNameWithStreamTags(Fallback(m.Base, expansions...), m.Tags)
}
