package review

import (
	"os"
	"path/filepath"
	"testing"
)

const customRubricYAML = `name: acme
description: Brand rubric for Acme support.
forbidden_phrases:
  - "no can do"
forbidden_promises:
  - "free forever"
required_tone: warm and concise
min_length: 10
max_length: 600
`

func writeRubric(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	writeRubric(t, dir, "acme.yaml", customRubricYAML)

	r, err := LoadFromFile(filepath.Join(dir, "acme.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "acme" || r.MaxLength != 600 {
		t.Errorf("unexpected rubric: %+v", r)
	}
	if len(r.ForbiddenPhrases) != 1 || r.ForbiddenPhrases[0] != "no can do" {
		t.Errorf("forbidden phrases = %v", r.ForbiddenPhrases)
	}
}

func TestLoadFromFile_InvalidRubric(t *testing.T) {
	dir := t.TempDir()
	writeRubric(t, dir, "bad.yaml", "description: no name here\n")

	if _, err := LoadFromFile(filepath.Join(dir, "bad.yaml")); err == nil {
		t.Fatal("expected validation error for rubric without a name")
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRubric(t, dir, "acme.yaml", customRubricYAML)
	writeRubric(t, dir, "notes.txt", "not a rubric")

	rubrics, err := LoadFromDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(rubrics) != 1 {
		t.Fatalf("loaded %d rubrics, want 1", len(rubrics))
	}

	rubrics, err = LoadFromDirectory(filepath.Join(dir, "does-not-exist"))
	if err != nil {
		t.Fatalf("missing directory should not error: %v", err)
	}
	if rubrics != nil {
		t.Errorf("missing directory should yield no rubrics, got %v", rubrics)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	writeRubric(t, dir, "acme.yaml", customRubricYAML)

	r, err := Resolve("acme", dir)
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "acme" {
		t.Errorf("resolved %s, want acme", r.Name)
	}

	r, err = Resolve("strict", dir)
	if err != nil {
		t.Fatal(err)
	}
	if r.MaxLength != 900 {
		t.Errorf("expected built-in strict preset, got %+v", r)
	}

	if _, err := Resolve("missing", dir); err == nil {
		t.Fatal("expected error for unknown rubric name")
	}
}

func TestResolve_CustomShadowsPreset(t *testing.T) {
	dir := t.TempDir()
	writeRubric(t, dir, "default.yaml", "name: default\nmin_length: 5\nmax_length: 50\n")

	r, err := Resolve("default", dir)
	if err != nil {
		t.Fatal(err)
	}
	if r.MaxLength != 50 {
		t.Errorf("custom rubric should shadow the preset, got max_length %d", r.MaxLength)
	}
}
