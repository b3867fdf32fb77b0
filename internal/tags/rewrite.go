// Copyright © 2018 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package tags

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrMalformedSegment is returned by Parse when a tag segment
// does not contain a TagSeparator, or when the name is made up
// only of SegmentSeparators
var ErrMalformedSegment = errors.New("malformed tag segment")

// Rewriter converts registry metric identifiers into backend tagged names
type Rewriter struct {
	exclusions ExclusionPolicy
	values     ValueFormatter
}

// NewRewriter returns a rewriter using the supplied policies. Nil
// policies, including typed nils such as (*ValuePatterns)(nil), are
// rejected.
func NewRewriter(ep ExclusionPolicy, vf ValueFormatter) (*Rewriter, error) {
	if isNil(ep) {
		return nil, errors.New("invalid exclusion policy (nil)")
	}
	if isNil(vf) {
		return nil, errors.New("invalid value formatter (nil)")
	}

	return &Rewriter{exclusions: ep, values: vf}, nil
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Parse splits a registry metric identifier into its base name and tags.
// On error the returned Metric still carries the base name.
func Parse(raw string) (Metric, error) {
	segments := strings.Split(raw, SegmentSeparator)

	// the registry drops trailing empty segments when it splits names
	for len(segments) > 1 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	if segments[0] == "" && len(segments) == 1 && raw != "" {
		return Metric{}, errors.Wrapf(ErrMalformedSegment, "metric (%s)", raw)
	}

	m := Metric{Base: segments[0]}
	if len(segments) == 1 {
		return m, nil
	}

	m.Tags = make(Tags, 0, len(segments)-1)
	for _, seg := range segments[1:] {
		t := strings.SplitN(seg, TagSeparator, 2)
		if len(t) != 2 {
			return Metric{Base: m.Base}, errors.Wrapf(ErrMalformedSegment, "segment (%s)", seg)
		}
		m.Tags = append(m.Tags, Tag{Category: t[0], Value: t[1]})
	}

	return m, nil
}

// Rewrite parses raw and applies the exclusion policy and value
// formatter to its tags, keeping their original order.
func (r *Rewriter) Rewrite(raw string) (Metric, error) {
	m, err := Parse(raw)
	if err != nil {
		return m, err
	}

	kept := make(Tags, 0, len(m.Tags))
	for _, t := range m.Tags {
		if !r.exclusions.ShouldKeep(m.Base, t.Category) {
			continue
		}
		kept = append(kept, Tag{
			Category: t.Category,
			Value:    r.values.Format(m.Base, t.Category, t.Value),
		})
	}
	m.Tags = kept

	return m, nil
}

// Format returns raw as "base.expansion...[tag:value,...]". Tags are
// filtered by the exclusion policy and their values rewritten by the
// value formatter, in their original order. If raw cannot be parsed
// the Fallback format is returned.
func (r *Rewriter) Format(raw string, expansions ...string) string {
	name, _ := r.FormatResult(raw, expansions...)
	return name
}

// FormatResult is Format, additionally reporting whether the tagged
// format (true) or the fallback format (false) was produced.
func (r *Rewriter) FormatResult(raw string, expansions ...string) (string, bool) {
	m, err := r.Rewrite(raw)
	if err != nil {
		log.Error().Err(err).Str("metric", raw).Msg("formatting metric name, using fallback")
		return Fallback(m.Base, expansions...), false
	}

	var sb strings.Builder
	sb.WriteString(Fallback(m.Base, expansions...))
	sb.WriteString(tagListStart)
	sb.WriteString(encodeTags(m.Tags))
	sb.WriteString(tagListEnd)

	return sb.String(), true
}

// FormatStreamTagsResult is FormatResult producing the StreamTagName
// form for names which parse.
func (r *Rewriter) FormatStreamTagsResult(raw string, expansions ...string) (string, bool) {
	m, err := r.Rewrite(raw)
	if err != nil {
		log.Error().Err(err).Str("metric", raw).Msg("formatting metric name, using fallback")
		return Fallback(m.Base, expansions...), false
	}

	return StreamTagName(m, expansions...), true
}

// Fallback returns base and expansions joined with SegmentSeparator,
// without any tags.
func Fallback(base string, expansions ...string) string {
	if len(expansions) == 0 {
		return base
	}

	parts := make([]string, 0, len(expansions)+1)
	parts = append(parts, base)
	parts = append(parts, expansions...)

	return strings.Join(parts, SegmentSeparator)
}
