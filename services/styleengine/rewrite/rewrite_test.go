// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rewrite

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/RedlineAI/RedlineFOSS/services/styleengine/blocks"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/confidence"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/nlp"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/rules/builtin"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/transform"
)

func newChecker(t *testing.T) *RegistryChecker {
	t.Helper()
	reg := rules.NewRegistry()
	if err := builtin.Register(reg, builtin.Settings{}); err != nil {
		t.Fatalf("registering rules: %v", err)
	}
	return NewRegistryChecker(reg, confidence.New(confidence.WithCache(0, 0)), nlp.NewHeuristic())
}

func newLine(t *testing.T) *StationLine {
	t.Helper()
	line, err := NewStationLine(DefaultStations(), 0)
	if err != nil {
		t.Fatalf("building station line: %v", err)
	}
	return line
}

func paragraph(text string) blocks.Block {
	return blocks.Block{
		ID: "block-0", Type: blocks.TypeParagraph,
		Start: 0, End: len(text), Text: text, Body: text,
	}
}

func TestStationLine_Applicable(t *testing.T) {
	line := newLine(t)

	issues := []rules.Issue{
		{RuleID: "word_usage.complex_words", Category: rules.CategoryWordUsage},
		{RuleID: "tone.contractions", Category: rules.CategoryTone},
	}
	got := line.Applicable(issues)
	want := []string{StationClarity, StationTone, StationFinalPolish}
	if len(got) != len(want) {
		t.Fatalf("applicable = %v, want %v", stationIDs(got), want)
	}
	for i, s := range got {
		if s.ID != want[i] {
			t.Errorf("station %d = %s, want %s", i, s.ID, want[i])
		}
	}

	if line.Applicable(nil) != nil {
		t.Error("no issues should yield no stations")
	}
}

func TestNewStationLine_CapAndDuplicates(t *testing.T) {
	if _, err := NewStationLine([]Station{{ID: "a"}, {ID: "a"}}, 0); err == nil {
		t.Error("expected duplicate-id error")
	}

	many := make([]Station, 12)
	for i := range many {
		many[i] = Station{ID: string(rune('a' + i))}
	}
	line, err := NewStationLine(many, 0)
	if err != nil {
		t.Fatalf("building line: %v", err)
	}
	if got := len(line.Stations()); got != DefaultMaxStations {
		t.Errorf("line length = %d, want cap %d", got, DefaultMaxStations)
	}
}

func TestTracker_PercentFormula(t *testing.T) {
	tr := NewTracker(nil, "", "block-0", 2)
	stations := []Station{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}

	tr.StartPass(1, stations)
	if got := tr.OverallPercent(); got != 0 {
		t.Errorf("start of pass 1 = %d, want 0", got)
	}

	tr.StartStation("a", "A", 1)
	// (0 done + 0.5*1 in flight) / 2 stations / 2 passes = 12%
	if got := tr.OverallPercent(); got != 12 {
		t.Errorf("one in-flight station = %d, want 12", got)
	}

	tr.CompleteStation("a", 1, "")
	if got := tr.OverallPercent(); got != 25 {
		t.Errorf("one station done = %d, want 25", got)
	}

	tr.StartStation("b", "B", 1)
	tr.CompleteStation("b", 0, "")
	tr.CompletePass(1)
	if got := tr.OverallPercent(); got != 50 {
		t.Errorf("pass 1 complete = %d, want 50", got)
	}

	tr.StartPass(2, stations)
	tr.StartStation("a", "A", 0)
	tr.CompleteStation("a", 0, "")
	tr.StartStation("b", "B", 0)
	tr.CompleteStation("b", 0, "")
	tr.CompletePass(2)
	if got := tr.OverallPercent(); got != 100 {
		t.Errorf("job complete = %d, want 100", got)
	}
}

func TestTracker_MonotonicPercent(t *testing.T) {
	rec := events.NewRecorder()
	tr := NewTracker(rec, "s1", "block-0", 1)
	stations := []Station{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	tr.StartPass(1, stations)
	tr.StartStation("a", "A", 2)
	tr.CompleteStation("a", 2, "")
	tr.StartStation("b", "B", 1)
	tr.RecordError(context.DeadlineExceeded, "b")
	tr.StartStation("c", "C", 1)
	tr.CompleteStation("c", 1, "")
	tr.CompletePass(1)

	last := -1
	for _, ev := range rec.ByType(events.TypeStationProgress) {
		p := ev.Data.(events.StationProgressData).Progress
		if p < last {
			t.Fatalf("progress regressed: %d after %d", p, last)
		}
		last = p
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestTracker_ForwardOnlyTransitions(t *testing.T) {
	tr := NewTracker(nil, "", "block-0", 1)
	tr.StartPass(1, []Station{{ID: "a"}})

	tr.StartStation("a", "A", 1)
	tr.CompleteStation("a", 1, "")

	// Terminal states never move.
	tr.StartStation("a", "A", 1)
	tr.RecordError(context.Canceled, "a")
	if st := tr.StationStates()["a"]; st != StateComplete {
		t.Errorf("state = %s, want complete to stick", st)
	}

	// Completing a pending station is a no-op.
	tr2 := NewTracker(nil, "", "block-0", 1)
	tr2.StartPass(1, []Station{{ID: "x"}})
	tr2.CompleteStation("x", 1, "")
	if st := tr2.StationStates()["x"]; st != StatePending {
		t.Errorf("state = %s, want pending", st)
	}
}

func TestRewrite_EndToEnd(t *testing.T) {
	rec := events.NewRecorder()
	r := NewRewriter(newLine(t), transform.NewStatic(), newChecker(t), WithSink(rec))

	text := "We utilize the cluster to facilitate deploys."
	res, err := r.Rewrite(context.Background(), Request{
		Block:       paragraph(text),
		ContentType: confidence.ContentTechnical,
		SessionID:   "s1",
	})
	if err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	if res.Text == text {
		t.Error("expected the text to change")
	}
	if strings.Contains(res.Text, "utilize") || strings.Contains(res.Text, "facilitate") {
		t.Errorf("complex words survived: %q", res.Text)
	}
	if res.ErrorsFixed == 0 {
		t.Error("expected a positive errors_fixed count")
	}
	if len(res.Stations) == 0 || res.Stations[0] != StationClarity && res.Stations[0] != StationTone {
		t.Errorf("unexpected applicable stations: %v", res.Stations)
	}
	if res.Diff == "" || !strings.Contains(res.Diff, "block-0") {
		t.Errorf("expected a unified diff, got %q", res.Diff)
	}
	if res.Passes != 1 {
		t.Errorf("passes = %d, want 1", res.Passes)
	}

	if got := len(rec.ByType(events.TypeBlockProcessingStart)); got != 1 {
		t.Errorf("expected 1 start event, got %d", got)
	}
	if got := len(rec.ByType(events.TypeBlockProcessingComplete)); got != 1 {
		t.Errorf("expected 1 complete event, got %d", got)
	}
	if got := len(rec.ByType(events.TypeStationProgress)); got == 0 {
		t.Error("expected station progress events")
	}
}

func TestRewrite_SentenceSuggestionKeepsBlockIntact(t *testing.T) {
	r := NewRewriter(newLine(t), transform.NewStatic(), newChecker(t))

	text := "Install V2.1 today. The deployment guide covers the rest of the setup."
	res, err := r.Rewrite(context.Background(), Request{
		Block:       paragraph(text),
		ContentType: confidence.ContentTechnical,
	})
	if err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	if strings.Contains(res.Text, "Install Install") || strings.Contains(res.Text, "today. today.") {
		t.Fatalf("rewrite duplicated sentence text: %q", res.Text)
	}
	if strings.Contains(res.Text, "V2.1") {
		t.Errorf("version prefix survived: %q", res.Text)
	}
	if got := strings.Count(res.Text, "today."); got != 1 {
		t.Errorf("%q occurrences of the first sentence tail = %d, want 1", res.Text, got)
	}
}

func TestTracker_SkipRemainingPasses(t *testing.T) {
	rec := events.NewRecorder()
	tr := NewTracker(rec, "s1", "block-0", 2)
	stations := []Station{{ID: "a", Name: "A"}}

	tr.StartPass(1, stations)
	tr.StartStation("a", "A", 1)
	tr.CompleteStation("a", 1, "")
	tr.CompletePass(1)
	if got := tr.OverallPercent(); got != 50 {
		t.Fatalf("after pass 1 of 2 = %d, want 50", got)
	}

	tr.SkipRemainingPasses(1)
	if got := tr.OverallPercent(); got != 100 {
		t.Errorf("after skip = %d, want 100", got)
	}

	evs := rec.ByType(events.TypeStationProgress)
	if len(evs) == 0 {
		t.Fatal("expected progress events")
	}
	last := evs[len(evs)-1].Data.(events.StationProgressData)
	if last.Progress != 100 {
		t.Errorf("last emitted progress = %d, want 100", last.Progress)
	}

	// Skipping never widens the basis back out.
	tr.SkipRemainingPasses(5)
	if got := tr.OverallPercent(); got != 100 {
		t.Errorf("after widened skip = %d, want 100", got)
	}
}

func TestRewrite_SecondPassSkipStillReports100(t *testing.T) {
	rec := events.NewRecorder()
	r := NewRewriter(newLine(t), transform.NewStatic(), newChecker(t), WithSink(rec))

	res, err := r.Rewrite(context.Background(), Request{
		Block:       paragraph("We utilize the cluster to facilitate deploys."),
		ContentType: confidence.ContentTechnical,
		SessionID:   "s1",
		SecondPass:  true,
	})
	if err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if res.Passes < 1 {
		t.Errorf("passes = %d, want at least 1", res.Passes)
	}

	evs := rec.ByType(events.TypeStationProgress)
	if len(evs) == 0 {
		t.Fatal("expected station progress events")
	}
	last := evs[len(evs)-1].Data.(events.StationProgressData)
	if last.Progress != 100 {
		t.Errorf("tracker-sourced progress ended at %d, want 100", last.Progress)
	}
}

func TestRewrite_CleanBlockIsNoop(t *testing.T) {
	r := NewRewriter(newLine(t), transform.NewStatic(), newChecker(t))

	text := "Run the installer."
	res, err := r.Rewrite(context.Background(), Request{
		Block:       paragraph(text),
		ContentType: confidence.ContentProcedural,
	})
	if err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if res.Text != text {
		t.Errorf("clean text changed: %q", res.Text)
	}
	if len(res.Stations) != 0 {
		t.Errorf("expected no applicable stations, got %v", res.Stations)
	}
}

func TestRewrite_CancelledJob(t *testing.T) {
	rec := events.NewRecorder()
	r := NewRewriter(newLine(t), transform.NewStatic(), newChecker(t),
		WithSink(rec), WithTimeouts(time.Nanosecond, time.Nanosecond))

	_, err := r.Rewrite(context.Background(), Request{
		Block:       paragraph("We utilize the tool."),
		ContentType: confidence.ContentTechnical,
		SessionID:   "s1",
		Issues: []rules.Issue{{
			RuleID: "word_usage.complex_words", Category: rules.CategoryWordUsage,
			Start: 3, End: 10, Suggestions: []string{"use"},
		}},
	})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if got := len(rec.ByType(events.TypeBlockProcessingError)); got != 1 {
		t.Errorf("expected 1 terminal failure event, got %d", got)
	}
}

func TestRenderDiff(t *testing.T) {
	out := RenderDiff("block-0", "one\ntwo\nthree\n", "one\n2\nthree\n")
	if !strings.Contains(out, "-two") || !strings.Contains(out, "+2") {
		t.Errorf("diff missing edits:\n%s", out)
	}
	if !strings.Contains(out, "block-0.orig") || !strings.Contains(out, "block-0.new") {
		t.Errorf("diff missing file names:\n%s", out)
	}

	if RenderDiff("block-0", "same", "same") != "" {
		t.Error("identical inputs should render empty")
	}
}
