package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/example/cfdeploy/internal/params"
	"github.com/example/cfdeploy/internal/pipeline"
	"github.com/mattn/go-runewidth"
)

func TestTrimToWidth(t *testing.T) {
	long := strings.Repeat("word ", 20)
	got := trimToWidth(long, 12)
	if runewidth.StringWidth(got) > 12 || !strings.HasSuffix(got, "…") {
		t.Fatalf("expected trimmed string within 12 cells, got %q", got)
	}
	if got := trimToWidth("  short\n text ", 12); got != "short text" {
		t.Fatalf("expected whitespace folded, got %q", got)
	}
	if got := trimToWidth("名前の説明です", 6); runewidth.StringWidth(got) > 6 {
		t.Fatalf("wide runes must count double, got %q", got)
	}
}

func TestWritePlanMarksPromptedParameters(t *testing.T) {
	var buf bytes.Buffer
	plan := pipeline.Plan{
		Archive:      "/tmp/app.zip",
		Folder:       "app",
		Files:        []string{"template.json"},
		TemplateName: "template.json",
		TemplateURL:  "https://b.s3.amazonaws.com/p/template.json",
		Parameters: []pipeline.PlannedParameter{
			{Name: "Stage", Type: "String", Source: params.SourcePrompt},
			{Name: "Env", Type: "String", Source: params.SourceDefault, Value: "dev", Description: "deployment environment"},
		},
	}
	if err := writePlan(&buf, plan); err != nil {
		t.Fatalf("writePlan: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"PARAMETER", "<asked at deploy>", "deployment environment", "Files:    1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}
