package analysis

import (
	"strings"
	"testing"
)

func TestLevelRank(t *testing.T) {
	for i, l := range Levels {
		if l.Rank() != i {
			t.Errorf("%s rank = %d, want %d", l, l.Rank(), i)
		}
	}
	if Level("Guru").Valid() {
		t.Fatalf("unknown level reported valid")
	}
	if Level("intermediate").Valid() {
		t.Fatalf("levels are case sensitive")
	}
}

func TestBreakdownDimensions(t *testing.T) {
	b := Breakdown{CodeQuality: 1, Documentation: 2, Testing: 3, BestPractices: 4}
	dims := b.Dimensions()
	if len(dims) != 5 {
		t.Fatalf("got %d dimensions", len(dims))
	}
	last := dims[4]
	if last.Key != "project_structure" || last.Scored || last.Score != 0 {
		t.Fatalf("unscored project structure = %+v", last)
	}

	ps := 90
	b.ProjectStructure = &ps
	last = b.Dimensions()[4]
	if !last.Scored || last.Score != 90 {
		t.Fatalf("scored project structure = %+v", last)
	}
}

func TestDecodeReportNamesOffendingField(t *testing.T) {
	tests := []struct {
		body  string
		field string
	}{
		{strings.Replace(minimalReport, `"summary":"ok",`, "", 1), `"summary"`},
		{strings.Replace(minimalReport, `"score":78`, `"score":150`, 1), `"score"`},
		{strings.Replace(minimalReport, `"level":"Intermediate"`, `"level":"Guru"`, 1), `"level"`},
		{strings.Replace(minimalReport, `"documentation":40`, `"documentation":"high"`, 1), `"breakdown.documentation"`},
		{strings.Replace(minimalReport, `"roadmap"`, `"checklist":[{"status":"pass"}],"roadmap"`, 1), `"checklist[0].item"`},
	}
	for _, tt := range tests {
		_, err := DecodeReport([]byte(tt.body))
		if err == nil {
			t.Errorf("expected error for %s", tt.body)
			continue
		}
		if !strings.Contains(err.Error(), tt.field) {
			t.Errorf("error %q should name %s", err, tt.field)
		}
	}
}

func TestDecodeReportIgnoresUnknownFields(t *testing.T) {
	body := strings.Replace(minimalReport, `"summary"`, `"model":"gemini","summary"`, 1)
	report, err := DecodeReport([]byte(body))
	if err != nil {
		t.Fatalf("DecodeReport: %v", err)
	}
	if report.Summary != "ok" {
		t.Fatalf("summary = %q", report.Summary)
	}
}

func TestDecodeReportAcceptsEmptyRoadmap(t *testing.T) {
	body := strings.Replace(minimalReport, `["add tests"]`, `[]`, 1)
	report, err := DecodeReport([]byte(body))
	if err != nil {
		t.Fatalf("DecodeReport: %v", err)
	}
	if report.Roadmap == nil || len(report.Roadmap) != 0 {
		t.Fatalf("roadmap = %#v", report.Roadmap)
	}
}

func TestValidateRejectsZeroReport(t *testing.T) {
	var r *Report
	if err := r.Validate(); err == nil {
		t.Fatalf("nil report should not validate")
	}
	if err := (&Report{}).Validate(); err == nil {
		t.Fatalf("zero report should not validate")
	}
}
