// Copyright © 2018 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package tags

import "sort"

// ExclusionPolicy decides whether a tag on a metric is kept
type ExclusionPolicy interface {
	ShouldKeep(metric, tag string) bool
}

// Exclusions drops the global tags from every metric and the
// configured tags from the metrics they are configured for.
type Exclusions struct {
	byMetric map[string]map[string]struct{}
}

// tags dropped from every metric
var globalExclusions = map[string]struct{}{
	"class":      {},
	"percentile": {},
}

// NewExclusions returns an exclusion policy for the supplied
// metric -> []tag configuration. A nil config is valid.
func NewExclusions(cfg map[string][]string) *Exclusions {
	e := &Exclusions{
		byMetric: make(map[string]map[string]struct{}, len(cfg)),
	}

	for metric, tagNames := range cfg {
		set := make(map[string]struct{}, len(tagNames))
		for _, tn := range tagNames {
			set[tn] = struct{}{}
		}
		e.byMetric[metric] = set
	}

	return e
}

// ShouldKeep returns false if the tag is globally excluded or
// excluded for the metric, true otherwise.
func (e *Exclusions) ShouldKeep(metric, tag string) bool {
	if _, found := globalExclusions[tag]; found {
		return false
	}

	if set, found := e.byMetric[metric]; found {
		if _, excluded := set[tag]; excluded {
			return false
		}
	}

	return true
}

// GlobalExclusions returns the tags excluded from every metric
func GlobalExclusions() []string {
	names := make([]string, 0, len(globalExclusions))
	for tn := range globalExclusions {
		names = append(names, tn)
	}
	sort.Strings(names)
	return names
}
