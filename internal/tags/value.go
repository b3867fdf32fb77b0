// Copyright © 2018 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package tags

import (
	"fmt"
	"regexp"

	"github.com/rs/zerolog/log"
)

// ValueFormatter rewrites the value of a tag on a metric
type ValueFormatter interface {
	Format(metric, tag, value string) string
}

// ValuePatterns extracts tag values using a regular expression
// configured per metric and tag.
type ValuePatterns struct {
	byMetric map[string]map[string]*regexp.Regexp
}

// ConfigError describes a tag value pattern which could not be compiled
type ConfigError struct {
	Metric  string
	Tag     string
	Pattern string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid value pattern (%s) for metric (%s) tag (%s): %s", e.Pattern, e.Metric, e.Tag, e.Err)
}

// Cause returns the underlying compile error
func (e *ConfigError) Cause() error {
	return e.Err
}

// NewValuePatterns compiles the metric -> tag -> pattern configuration.
// Every pattern is compiled here, the first one which fails is returned
// as a *ConfigError.
func NewValuePatterns(cfg map[string]map[string]string) (*ValuePatterns, error) {
	vp := &ValuePatterns{
		byMetric: make(map[string]map[string]*regexp.Regexp, len(cfg)),
	}

	for metric, tagPatterns := range cfg {
		compiled := make(map[string]*regexp.Regexp, len(tagPatterns))
		for tag, pattern := range tagPatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, &ConfigError{Metric: metric, Tag: tag, Pattern: pattern, Err: err}
			}
			compiled[tag] = re
		}
		vp.byMetric[metric] = compiled
	}

	return vp, nil
}

// Format returns the first match of the configured pattern found in value.
// The value is returned unchanged when no pattern is configured for the
// metric and tag, or when the pattern does not match.
func (vp *ValuePatterns) Format(metric, tag, value string) string {
	re, found := vp.byMetric[metric][tag]
	if !found {
		return value
	}

	loc := re.FindStringIndex(value)
	if loc == nil {
		log.Debug().Str("metric", metric).Str("tag", tag).Msg("could not extract matching value")
		return value
	}

	return value[loc[0]:loc[1]]
}
