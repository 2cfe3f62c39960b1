package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestEnvRowsMasksSecrets(t *testing.T) {
	t.Setenv("AWS_SECRET_ACCESS_KEY", "very-secret")
	t.Setenv("AWS_PROFILE", "deploy")
	rows := envRows("aws", true)
	values := map[string]string{}
	for _, row := range rows {
		values[row.Variable] = row.Value
	}
	if values["AWS_SECRET_ACCESS_KEY"] != "<set>" {
		t.Fatalf("expected masked secret, got %q", values["AWS_SECRET_ACCESS_KEY"])
	}
	if values["AWS_PROFILE"] != "deploy" {
		t.Fatalf("expected profile value, got %q", values["AWS_PROFILE"])
	}
	for _, row := range rows {
		if row.Category != "AWS" {
			t.Fatalf("category filter leaked %s", row.Variable)
		}
	}
}

func TestEnvCommandYAML(t *testing.T) {
	t.Setenv("CFDEPLOY_BUCKET", "deploys")
	var out bytes.Buffer
	cmd := newEnvCommand(&out)
	cmd.SetArgs([]string{"--format", "yaml", "--set", "--category", "config"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("env: %v", err)
	}
	if !strings.Contains(out.String(), "variable: CFDEPLOY_BUCKET") || !strings.Contains(out.String(), "value: deploys") {
		t.Fatalf("unexpected yaml:\n%s", out.String())
	}
}
