// Package prompt renders the portfolio content files into the assistant's
// system prompt.
package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type personal struct {
	Name      string `json:"name"`
	Tagline   string `json:"tagline"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Status    string `json:"status"`
	Languages string `json:"languages"`
}

type skillCategory struct {
	Category string   `json:"category"`
	Skills   []string `json:"skills"`
}

type experience struct {
	Company      string   `json:"company"`
	Role         string   `json:"role"`
	StartDate    string   `json:"startDate"`
	EndDate      *string  `json:"endDate"`
	Achievements []string `json:"achievements"`
	TechStack    []string `json:"techStack"`
}

type project struct {
	Title            string   `json:"title"`
	ShortDescription string   `json:"shortDescription"`
	TechStack        []string `json:"techStack"`
	Features         []string `json:"features"`
}

type achievement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// Build assembles the system prompt from the JSON content files under dir
// (personal.json, skills.json, experience.json, projects.json and
// achievements.json), the same files the portfolio pages render from.
func Build(dir string) (string, error) {
	var p personal
	if err := readJSON(filepath.Join(dir, "personal.json"), &p); err != nil {
		return "", err
	}
	var skills []skillCategory
	if err := readJSON(filepath.Join(dir, "skills.json"), &skills); err != nil {
		return "", err
	}
	var experiences []experience
	if err := readJSON(filepath.Join(dir, "experience.json"), &experiences); err != nil {
		return "", err
	}
	var projects []project
	if err := readJSON(filepath.Join(dir, "projects.json"), &projects); err != nil {
		return "", err
	}
	var achievements []achievement
	if err := readJSON(filepath.Join(dir, "achievements.json"), &achievements); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an AI assistant on %s's portfolio website. ", p.Name)
	fmt.Fprintf(&sb, "You answer questions about %s's background, skills, experience, and projects.\n\n", p.Name)
	fmt.Fprintf(&sb, "Be friendly, concise, and professional. If asked something outside the portfolio context, politely redirect to topics about %s.\n\n", p.Name)

	fmt.Fprintf(&sb, "## About %s\n%s\n%s\n", p.Name, p.Tagline, p.Bio)
	fmt.Fprintf(&sb, "Location: %s\nStatus: %s\nLanguages: %s\n\n", p.Location, p.Status, p.Languages)

	sb.WriteString("## Skills\n")
	for _, cat := range skills {
		fmt.Fprintf(&sb, "%s: %s\n", cat.Category, strings.Join(cat.Skills, ", "))
	}

	sb.WriteString("\n## Experience\n")
	for i, exp := range experiences {
		if i > 0 {
			sb.WriteString("\n")
		}
		end := "Present"
		if exp.EndDate != nil {
			end = *exp.EndDate
		}
		fmt.Fprintf(&sb, "%s at %s (%s – %s)\n", exp.Role, exp.Company, exp.StartDate, end)
		fmt.Fprintf(&sb, "  Achievements: %s\n", strings.Join(exp.Achievements, "; "))
		fmt.Fprintf(&sb, "  Tech: %s\n", strings.Join(exp.TechStack, ", "))
	}

	sb.WriteString("\n## Projects\n")
	for i, proj := range projects {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s: %s\n", proj.Title, proj.ShortDescription)
		fmt.Fprintf(&sb, "  Tech: %s\n", strings.Join(proj.TechStack, ", "))
		fmt.Fprintf(&sb, "  Features: %s\n", strings.Join(proj.Features, "; "))
	}

	sb.WriteString("\n## Achievements\n")
	for _, a := range achievements {
		fmt.Fprintf(&sb, "%s (%s): %s\n", a.Title, a.Date, a.Description)
	}

	return sb.String(), nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read content file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
