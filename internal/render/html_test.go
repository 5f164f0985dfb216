package render

import (
	"strings"
	"testing"

	"cvforge/internal/resume"
)

func sampleData() *resume.Data {
	return &resume.Data{
		PersonalInfo: resume.PersonalInfo{
			FirstName: "Ada",
			LastName:  "Lovelace",
			JobTitle:  "Backend Engineer",
			Email:     "ada@example.com",
			Phone:     "+1 555 0100",
			Summary:   "Engineer with a focus on reliable backend systems.",
		},
		WorkExperience: []resume.WorkEntry{
			{
				ID:          "w1",
				Company:     "Analytical Engines Ltd",
				Position:    "Senior Engineer",
				StartDate:   "2021-03",
				Current:     true,
				Description: []string{"Reduced API latency by 40%"},
			},
		},
		Education: []resume.EducationEntry{
			{ID: "e1", Institution: "University of London", Degree: "BSc", Field: "Mathematics", StartDate: "2014", EndDate: "2017"},
		},
		Skills: []resume.Skill{
			{ID: "s1", Name: "PostgreSQL"},
			{ID: "s2", Name: "Docker"},
		},
	}
}

func TestListTemplatesContainsBuiltins(t *testing.T) {
	templates := ListTemplates()
	if len(templates) != 3 {
		t.Fatalf("expected 3 builtin templates, got %d", len(templates))
	}

	ids := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		ids = append(ids, tmpl.ID)
	}
	want := []string{"classic", "compact", "modern"}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("template ids = %v, want %v", ids, want)
		}
	}
}

func TestBuildHTMLRendersAllTemplates(t *testing.T) {
	data := sampleData()
	for _, tmpl := range ListTemplates() {
		html, err := BuildHTML(data, tmpl.ID, resume.DefaultCustomization(), "")
		if err != nil {
			t.Fatalf("BuildHTML(%q): %v", tmpl.ID, err)
		}
		for _, fragment := range []string{
			"Ada Lovelace",
			"Analytical Engines Ltd",
			"University of London",
			"PostgreSQL",
			"Present", // Current=true 的经历显示"至今"
		} {
			if !strings.Contains(html, fragment) {
				t.Errorf("template %q output missing %q", tmpl.ID, fragment)
			}
		}
	}
}

func TestBuildHTMLAppliesCustomization(t *testing.T) {
	customization := resume.Customization{
		AccentColor: "#ff0044",
		FontFamily:  "Georgia",
		FontSizePt:  12,
		MarginPx:    48,
	}
	html, err := BuildHTML(sampleData(), "classic", customization, "")
	if err != nil {
		t.Fatalf("BuildHTML: %v", err)
	}
	if !strings.Contains(html, "#ff0044") {
		t.Error("accent color not applied")
	}
	if !strings.Contains(html, "Georgia") {
		t.Error("font family not applied")
	}
	if !strings.Contains(html, "12pt") {
		t.Error("font size not applied")
	}
}

func TestBuildHTMLEscapesUserContent(t *testing.T) {
	data := sampleData()
	data.PersonalInfo.Summary = `<script>alert("x")</script>`
	html, err := BuildHTML(data, "classic", resume.DefaultCustomization(), "")
	if err != nil {
		t.Fatalf("BuildHTML: %v", err)
	}
	if strings.Contains(html, "<script>alert") {
		t.Error("user content was not escaped")
	}
}

func TestBuildHTMLInlinesPhoto(t *testing.T) {
	const dataURI = "data:image/jpeg;base64,AAAA"
	html, err := BuildHTML(sampleData(), "modern", resume.DefaultCustomization(), dataURI)
	if err != nil {
		t.Fatalf("BuildHTML: %v", err)
	}
	if !strings.Contains(html, dataURI) {
		t.Error("photo data URI not inlined")
	}
}

func TestBuildHTMLUnknownTemplate(t *testing.T) {
	if _, err := BuildHTML(sampleData(), "letterhead", resume.DefaultCustomization(), ""); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
