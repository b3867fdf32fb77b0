// Copyright © 2018 Circonus, Inc. <support@circonus.com>
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package tags

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func newTestRewriter(t *testing.T) *Rewriter {
	t.Helper()

	vp, err := NewValuePatterns(map[string]map[string]string{
		"system_task_completed": {"taskType": "([A-Za-z_]+[A-Za-z]{1})"},
	})
	if err != nil {
		t.Fatalf("expected no error, got (%s)", err)
	}

	r, err := NewRewriter(NewExclusions(map[string][]string{"task_queue_wait": {"taskType"}}), vp)
	if err != nil {
		t.Fatalf("expected no error, got (%s)", err)
	}

	return r
}

func TestNewRewriter(t *testing.T) {
	t.Log("Testing NewRewriter")

	vp, err := NewValuePatterns(nil)
	if err != nil {
		t.Fatalf("expected no error, got (%s)", err)
	}

	if _, err := NewRewriter(nil, vp); err == nil {
		t.Fatal("expected error (nil exclusion policy)")
	}
	if _, err := NewRewriter(NewExclusions(nil), nil); err == nil {
		t.Fatal("expected error (nil value formatter)")
	}
	if _, err := NewRewriter((*Exclusions)(nil), vp); err == nil {
		t.Fatal("expected error (typed nil exclusion policy)")
	}
	if _, err := NewRewriter(NewExclusions(nil), (*ValuePatterns)(nil)); err == nil {
		t.Fatal("expected error (typed nil value formatter)")
	}
	if r, err := NewRewriter(NewExclusions(nil), vp); err != nil {
		t.Fatalf("expected no error, got (%s)", err)
	} else if r == nil {
		t.Fatal("expected rewriter")
	}
}

func TestParse(t *testing.T) {
	t.Log("Testing Parse")

	tt := []struct {
		name        string
		raw         string
		base        string
		tags        string
		shouldError bool
	}{
		{"base only", "foo", "foo", "", false},
		{"empty", "", "", "", false},
		{"one tag", "foo.c1-v1", "foo", "c1:v1", false},
		{"split on first sep", "foo.taskType-config-schema_2_case_dag", "foo", "taskType:config-schema_2_case_dag", false},
		{"value w/colon", "foo.queueName-basic_dag:start", "foo", "queueName:basic_dag:start", false},
		{"empty value", "foo.c1-", "foo", "c1:", false},
		{"empty name", "foo.-v1", "foo", ":v1", false},
		{"duplicates kept", "foo.c1-v1.c1-v2", "foo", "c1:v1,c1:v2", false},
		{"trailing separator", "foo.c1-v1.", "foo", "c1:v1", false},
		{"invalid - no sep", "foo.c1v1", "foo", "", true},
		{"invalid - empty segment", "foo..c1-v1", "foo", "", true},
		{"invalid - later segment", "foo.c1-v1.c2", "foo", "", true},
		{"invalid - only separator", ".", "", "", true},
		{"invalid - only separators", "..", "", "", true},
		{"invalid - only separators, three", "...", "", "", true},
	}

	for _, tst := range tt {
		t.Logf("\ttest -- %s (%s)", tst.name, tst.raw)

		m, err := Parse(tst.raw)
		if tst.shouldError {
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Cause(err) != ErrMalformedSegment {
				t.Fatalf("expected ErrMalformedSegment, got (%s)", err)
			}
		} else if err != nil {
			t.Fatalf("expected no error, got (%s)", err)
		}

		if m.Base != tst.base {
			t.Fatalf("expected base (%s) got (%s)", tst.base, m.Base)
		}
		if s := m.String(); s != tst.tags {
			t.Fatalf("expected tags (%s) got (%s)", tst.tags, s)
		}
	}
}

func TestFormat(t *testing.T) {
	t.Log("Testing Format")

	r := newTestRewriter(t)

	tt := []struct {
		name   string
		raw    string
		expect string
	}{
		{
			"class tag removed",
			"event_queue_messages_processed.class-WorkflowMonitor.queueName-basic_dag:start_workflow_with_event.queueType-conductor",
			"event_queue_messages_processed.count[queueName:basic_dag:start_workflow_with_event,queueType:conductor]",
		},
		{
			"configured and percentile removed",
			"task_queue_wait.class-WorkflowMonitor.taskType-config-schema_2_case_dag.percentile-t0073",
			"task_queue_wait.count[]",
		},
		{
			"percentile removed",
			"task_execution.class-WorkflowMonitor.taskType-sf_history_current_crawl.percentile-t0073.status-COMPLETED",
			"task_execution.count[taskType:sf_history_current_crawl,status:COMPLETED]",
		},
		{
			"value formatted",
			"system_task_completed.class-WorkflowMonitor.taskType-extract_subworkflow_clari_basic_extract_incremental_3_INDEXES_email_data_dag",
			"system_task_completed.count[taskType:extract_subworkflow_clari_basic_extract_incremental]",
		},
		{
			"no tags",
			"workflow_start",
			"workflow_start.count[]",
		},
		{
			"duplicates in order",
			"foo.status-A.queueName-q.status-B",
			"foo.count[status:A,queueName:q,status:B]",
		},
		{
			"malformed uses fallback",
			"task_execution.class-WorkflowMonitor.oops.status-COMPLETED",
			"task_execution.count",
		},
		{
			"only separators uses fallback",
			"...",
			".count",
		},
	}

	for _, tst := range tt {
		t.Logf("\ttest -- %s", tst.name)
		if name := r.Format(tst.raw, "count"); name != tst.expect {
			t.Fatalf("expected (%s) got (%s)", tst.expect, name)
		}
	}
}

func TestFormatExpansions(t *testing.T) {
	t.Log("Testing Format expansions")

	r := newTestRewriter(t)
	raw := "task_execution.status-COMPLETED"

	tt := []struct {
		name       string
		expansions []string
		expect     string
	}{
		{"none", nil, "task_execution[status:COMPLETED]"},
		{"one", []string{"p99"}, "task_execution.p99[status:COMPLETED]"},
		{"ordered", []string{"a", "b", "c"}, "task_execution.a.b.c[status:COMPLETED]"},
	}

	for _, tst := range tt {
		t.Logf("\ttest -- %s", tst.name)
		if name := r.Format(raw, tst.expansions...); name != tst.expect {
			t.Fatalf("expected (%s) got (%s)", tst.expect, name)
		}
	}
}

func TestFormatResult(t *testing.T) {
	t.Log("Testing FormatResult")

	r := newTestRewriter(t)

	if name, ok := r.FormatResult("foo.c1-v1", "count"); !ok {
		t.Fatal("expected tagged result")
	} else if name != "foo.count[c1:v1]" {
		t.Fatalf("expected (foo.count[c1:v1]) got (%s)", name)
	}

	if name, ok := r.FormatResult("foo.c1v1", "count", "p99"); ok {
		t.Fatal("expected fallback result")
	} else if name != "foo.count.p99" {
		t.Fatalf("expected (foo.count.p99) got (%s)", name)
	}

	for _, raw := range []string{".", "..", "..."} {
		t.Logf("\ttest -- (%s)", raw)
		if name, ok := r.FormatResult(raw, "count"); ok {
			t.Fatal("expected fallback result")
		} else if name != ".count" {
			t.Fatalf("expected (.count) got (%s)", name)
		}
	}
}

func TestRewrite(t *testing.T) {
	t.Log("Testing Rewrite")

	r := newTestRewriter(t)

	m, err := r.Rewrite("system_task_completed.class-WM.taskType-foo_bar_3_baz.status-OK")
	if err != nil {
		t.Fatalf("expected no error, got (%s)", err)
	}
	if m.Base != "system_task_completed" {
		t.Fatalf("expected base (system_task_completed) got (%s)", m.Base)
	}
	expect := "taskType:foo_bar,status:OK"
	if s := m.String(); s != expect {
		t.Fatalf("expected (%s) got (%s)", expect, s)
	}

	m, err = r.Rewrite("foo.bad")
	if errors.Cause(err) != ErrMalformedSegment {
		t.Fatalf("expected ErrMalformedSegment, got (%v)", err)
	}
	if m.Base != "foo" {
		t.Fatalf("expected base (foo) got (%s)", m.Base)
	}
}

func TestFormatStreamTagsResult(t *testing.T) {
	t.Log("Testing FormatStreamTagsResult")

	r := newTestRewriter(t)

	tt := []struct {
		name   string
		raw    string
		expect string
		tagged bool
	}{
		{
			"tags encoded",
			"task_execution.class-WorkflowMonitor.taskType-sf_history_current_crawl.percentile-t0073.status-COMPLETED",
			`task_execution.count|ST[b"c3RhdHVz":b"Y29tcGxldGVk",b"dGFza3R5cGU=":b"c2ZfaGlzdG9yeV9jdXJyZW50X2NyYXds"]`,
			true,
		},
		{
			"all tags excluded",
			"task_queue_wait.class-WorkflowMonitor.taskType-x.percentile-t0073",
			"task_queue_wait.count",
			true,
		},
		{
			"malformed uses fallback",
			"foo.bad",
			"foo.count",
			false,
		},
	}

	for _, tst := range tt {
		t.Logf("\ttest -- %s", tst.name)
		name, ok := r.FormatStreamTagsResult(tst.raw, "count")
		if ok != tst.tagged {
			t.Fatalf("expected tagged (%v) got (%v)", tst.tagged, ok)
		}
		if name != tst.expect {
			t.Fatalf("expected (%s) got (%s)", tst.expect, name)
		}
	}
}

func TestFallback(t *testing.T) {
	t.Log("Testing Fallback")

	tt := []struct {
		name       string
		base       string
		expansions []string
		expect     string
	}{
		{"no expansions", "foo", nil, "foo"},
		{"one", "foo", []string{"count"}, "foo.count"},
		{"many", "foo", []string{"count", "p75", "p99"}, "foo.count.p75.p99"},
		{"empty base", "", []string{"count"}, ".count"},
	}

	for _, tst := range tt {
		t.Logf("\ttest -- %s", tst.name)
		if name := Fallback(tst.base, tst.expansions...); name != tst.expect {
			t.Fatalf("expected (%s) got (%s)", tst.expect, name)
		}
	}
}

func TestFormatOrderPreserved(t *testing.T) {
	t.Log("Testing Format tag order")

	r := newTestRewriter(t)

	names := []string{"zeta", "alpha", "class", "mid", "percentile", "beta"}
	segs := make([]string, 0, len(names)+1)
	segs = append(segs, "ordered")
	want := make([]string, 0, len(names))
	for i, n := range names {
		segs = append(segs, fmt.Sprintf("%s-v%d", n, i))
		if n != "class" && n != "percentile" {
			want = append(want, fmt.Sprintf("%s:v%d", n, i))
		}
	}

	expect := "ordered.count[" + strings.Join(want, Separator) + "]"
	if name := r.Format(strings.Join(segs, SegmentSeparator), "count"); name != expect {
		t.Fatalf("expected (%s) got (%s)", expect, name)
	}
}

type upperValues struct{}

func (upperValues) Format(metric, tag, value string) string { return strings.ToUpper(value) }

type keepAll struct{}

func (keepAll) ShouldKeep(metric, tag string) bool { return true }

func TestFormatCustomPolicies(t *testing.T) {
	t.Log("Testing Format w/custom policies")

	r, err := NewRewriter(keepAll{}, upperValues{})
	if err != nil {
		t.Fatalf("expected no error, got (%s)", err)
	}

	expect := "foo.count[class:WM,status:DONE]"
	if name := r.Format("foo.class-wm.status-done", "count"); name != expect {
		t.Fatalf("expected (%s) got (%s)", expect, name)
	}
}

func TestFormatConcurrent(t *testing.T) {
	t.Log("Testing Format concurrently")

	r := newTestRewriter(t)

	const (
		raw    = "task_execution.class-WorkflowMonitor.taskType-sf_history_current_crawl.percentile-t0073.status-COMPLETED"
		expect = "task_execution.count[taskType:sf_history_current_crawl,status:COMPLETED]"
	)

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				if name := r.Format(raw, "count"); name != expect {
					return errors.Errorf("expected (%s) got (%s)", expect, name)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
