package prompt_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/webfolio/chatd/internal/prompt"
)

func writeContent(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "personal.json", `{
		"name": "Ada Example",
		"tagline": "Builder of things",
		"bio": "Writes software.",
		"location": "Berlin",
		"status": "Open to work",
		"languages": "English, German"
	}`)
	writeContent(t, dir, "skills.json", `[
		{"category": "Backend", "skills": ["Go", "Postgres"]}
	]`)
	writeContent(t, dir, "experience.json", `[
		{
			"company": "Acme",
			"role": "Engineer",
			"startDate": "2022-01",
			"endDate": null,
			"achievements": ["Shipped the widget"],
			"techStack": ["Go"]
		},
		{
			"company": "Initech",
			"role": "Intern",
			"startDate": "2020-06",
			"endDate": "2021-08",
			"achievements": ["Fixed the printer"],
			"techStack": ["Java"]
		}
	]`)
	writeContent(t, dir, "projects.json", `[
		{
			"title": "Chat Widget",
			"shortDescription": "Streaming chat for the portfolio",
			"techStack": ["Go"],
			"features": ["Streaming", "Transcripts"]
		}
	]`)
	writeContent(t, dir, "achievements.json", `[
		{"title": "Hackathon winner", "description": "First place", "date": "2023"}
	]`)

	got, err := prompt.Build(dir)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, want := range []string{
		"Ada Example's portfolio website",
		"## About Ada Example",
		"Backend: Go, Postgres",
		"Engineer at Acme (2022-01 – Present)",
		"Intern at Initech (2020-06 – 2021-08)",
		"Chat Widget: Streaming chat for the portfolio",
		"Hackathon winner (2023): First place",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Build() output missing %q", want)
		}
	}
}

func TestBuildMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "personal.json", `{"name": "Ada"}`)

	if _, err := prompt.Build(dir); err == nil {
		t.Error("Build() error = nil with missing content files")
	}
}
