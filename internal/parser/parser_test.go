package parser

import "testing"

func TestParse_FrontmatterTitleAndTags(t *testing.T) {
	data := []byte(`---
title: Deployment Runbook
type: runbook
tags:
  - ops
  - deploy
---

# Ignored Heading

Steps for deploying. #release
`)
	res, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Title != "Deployment Runbook" {
		t.Errorf("title = %q", res.Title)
	}
	if res.DocType != "runbook" {
		t.Errorf("doc type = %q", res.DocType)
	}
	want := map[string]bool{"ops": true, "deploy": true, "release": true}
	if len(res.Tags) != 3 {
		t.Fatalf("tags = %v", res.Tags)
	}
	for _, tag := range res.Tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
	}
}

func TestParse_NoFrontmatterFallsBackToH1(t *testing.T) {
	res, err := Parse([]byte("# ADR 12\n\nDecision text."))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Title != "ADR 12" {
		t.Errorf("title = %q", res.Title)
	}
	if res.Frontmatter != nil {
		t.Errorf("frontmatter = %v, want nil", res.Frontmatter)
	}
}

func TestParse_InvalidYAMLTreatedAsBody(t *testing.T) {
	data := []byte("---\n: not yaml [\n---\nbody")
	res, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Frontmatter != nil {
		t.Error("invalid YAML should not produce frontmatter")
	}
	if res.Body != string(data) {
		t.Error("invalid YAML should leave the full content as body")
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	data := []byte("---\ntitle: x\nno closing delimiter")
	res, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Frontmatter != nil {
		t.Error("unclosed frontmatter should be treated as body")
	}
}
