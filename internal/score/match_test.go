package score

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"cvforge/internal/resume"
)

func strongResume() *resume.Data {
	return &resume.Data{
		PersonalInfo: resume.PersonalInfo{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "+44 123 456 789",
			Summary: "Senior full-stack engineer with eight years of experience building and scaling " +
				"web platforms, leading small teams and owning delivery end to end.",
		},
		WorkExperience: []resume.WorkEntry{
			{
				ID:        "w1",
				Company:   "Acme",
				Position:  "Senior Engineer",
				StartDate: "2021-03",
				Current:   true,
				Description: []string{
					"Increased checkout conversion by 18% by rebuilding the payment flow",
					"Led a team of 4 engineers",
				},
			},
			{
				ID:          "w2",
				Company:     "Globex",
				Position:    "Engineer",
				StartDate:   "2018-01",
				EndDate:     "2021-02",
				Description: []string{"Reduced API latency by 40% through query optimization"},
			},
		},
		Education: []resume.EducationEntry{
			{ID: "e1", Institution: "University of London", Degree: "BSc", Field: "Computer Science", StartDate: "2014", EndDate: "2017"},
		},
		Skills: []resume.Skill{
			{ID: "s1", Name: "JavaScript"},
			{ID: "s2", Name: "TypeScript"},
			{ID: "s3", Name: "React"},
			{ID: "s4", Name: "Node.js"},
			{ID: "s5", Name: "PostgreSQL"},
			{ID: "s6", Name: "Docker"},
			{ID: "s7", Name: "AWS"},
			{ID: "s8", Name: "GraphQL"},
		},
	}
}

func weakResume() *resume.Data {
	return &resume.Data{
		Skills: []resume.Skill{{ID: "s1", Name: "Git"}},
		WorkExperience: []resume.WorkEntry{
			{ID: "w1", Company: "Initech", Position: "Developer", StartDate: "2020-01", EndDate: "2022-01",
				Description: []string{"Fixed bugs"}},
		},
	}
}

func TestAnalyzeJobMatch_WeakResumeScoresLow(t *testing.T) {
	desc := "Seeking Kubernetes expert with 10+ years DevOps experience"
	analysis := AnalyzeJobMatch(desc, weakResume())

	if analysis.Score >= 50 {
		t.Fatalf("expected score < 50, got %d", analysis.Score)
	}
	if len(analysis.MissingKeywords) == 0 {
		t.Fatalf("expected missing keywords, got none")
	}
	for _, kw := range []string{"kubernetes", "devops"} {
		found := false
		for _, missing := range analysis.MissingKeywords {
			if missing == kw {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected %q in missing keywords %v", kw, analysis.MissingKeywords)
		}
	}
}

func TestAnalyzeJobMatch_StrongResumeScoresHigh(t *testing.T) {
	desc := "We need a JavaScript and TypeScript engineer with React and Node.js experience, " +
		"plus PostgreSQL, Docker, AWS and GraphQL."
	analysis := AnalyzeJobMatch(desc, strongResume())

	if analysis.Score <= 50 {
		t.Fatalf("expected score > 50, got %d", analysis.Score)
	}
	if len(analysis.MissingKeywords) != 0 {
		t.Fatalf("expected no missing keywords, got %v", analysis.MissingKeywords)
	}
}

func TestAnalyzeJobMatch_EmptyListsSerializeAsArrays(t *testing.T) {
	desc := "We need a JavaScript and TypeScript engineer with React and Node.js experience, " +
		"plus PostgreSQL, Docker, AWS and GraphQL."
	analysis := AnalyzeJobMatch(desc, strongResume())

	if analysis.MissingKeywords == nil {
		t.Fatal("MissingKeywords must be an empty slice, not nil")
	}
	if analysis.Strengths == nil {
		t.Fatal("Strengths must be an empty slice, not nil")
	}

	raw, err := json.Marshal(analysis)
	if err != nil {
		t.Fatalf("marshal analysis: %v", err)
	}
	if strings.Contains(string(raw), `"missing_keywords":null`) {
		t.Fatalf("missing_keywords serialized as null: %s", raw)
	}
	if !strings.Contains(string(raw), `"missing_keywords":[]`) {
		t.Fatalf("expected empty array for missing_keywords: %s", raw)
	}
}

func TestAnalyzeJobMatch_ScoreBounds(t *testing.T) {
	cases := []struct {
		name string
		desc string
		data *resume.Data
	}{
		{"empty description", "", strongResume()},
		{"empty resume", "Requirements: Kubernetes, Terraform, AWS", &resume.Data{}},
		{"both empty", "", &resume.Data{}},
		{"weak", "Seeking Kubernetes expert", weakResume()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analysis := AnalyzeJobMatch(tc.desc, tc.data)
			if analysis.Score < 0 || analysis.Score > 100 {
				t.Fatalf("score out of range: %d", analysis.Score)
			}
			if len(analysis.MissingKeywords) > 10 {
				t.Fatalf("missing keywords not capped: %d", len(analysis.MissingKeywords))
			}
		})
	}
}

func TestAnalyzeJobMatch_Deterministic(t *testing.T) {
	desc := "Required skills: Kubernetes, Terraform, AWS. Must be comfortable with CI/CD."
	first := AnalyzeJobMatch(desc, strongResume())
	second := AnalyzeJobMatch(desc, strongResume())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different analyses:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzeJobMatch_DoesNotMutateResume(t *testing.T) {
	data := strongResume()
	before := *data
	beforeSkills := append([]resume.Skill(nil), data.Skills...)

	AnalyzeJobMatch("Requirements: Rust, Kubernetes", data)

	if data.PersonalInfo != before.PersonalInfo {
		t.Fatalf("personal info mutated")
	}
	if !reflect.DeepEqual(data.Skills, beforeSkills) {
		t.Fatalf("skills mutated")
	}
}

func TestAnalyzeJobMatch_ImprovementsMirrorSuggestions(t *testing.T) {
	analysis := AnalyzeJobMatch("Seeking Kubernetes expert", weakResume())
	if len(analysis.Improvements) != len(analysis.Suggestions) {
		t.Fatalf("improvements/suggestions length mismatch: %d vs %d",
			len(analysis.Improvements), len(analysis.Suggestions))
	}
	for i, s := range analysis.Suggestions {
		if analysis.Improvements[i] != s.Title {
			t.Fatalf("improvement %d = %q, want %q", i, analysis.Improvements[i], s.Title)
		}
	}
}

func TestExtractRequiredSkills_ExplicitList(t *testing.T) {
	desc := "Great role. Required skills: Kubernetes, Terraform; Ansible"
	skills := extractRequiredSkills(desc, nil)
	want := []string{"kubernetes", "terraform", "ansible"}
	if !reflect.DeepEqual(skills, want) {
		t.Fatalf("got %v, want %v", skills, want)
	}
}

func TestExtractRequiredSkills_FallbackToKeywords(t *testing.T) {
	keywords := []string{"a", "b", "c", "d", "e", "f", "g"}
	skills := extractRequiredSkills("no list phrase here", keywords)
	if len(skills) != 5 {
		t.Fatalf("expected fallback to first 5 keywords, got %v", skills)
	}
}

func TestWeakVerbSuggestion(t *testing.T) {
	data := weakResume()
	data.WorkExperience[0].Description = []string{"Responsible for fixing bugs"}
	s, ok := weakVerbSuggestion(data)
	if !ok {
		t.Fatalf("expected a weak-verb suggestion")
	}
	if s.Type != SuggestionExperience || s.Severity != SeverityMedium {
		t.Fatalf("unexpected suggestion shape: %+v", s)
	}
	if !strings.Contains(s.Description, "responsible for") {
		t.Fatalf("suggestion should name the weak phrase: %q", s.Description)
	}
}

func TestAchievementSuggestion_OnlyFirstBulletOfLatestRole(t *testing.T) {
	data := weakResume()
	// 第二条描述有指标，但检查只看第一条。
	data.WorkExperience[0].Description = []string{"Fixed bugs", "Improved throughput by 30%"}
	if _, ok := achievementSuggestion(data); !ok {
		t.Fatalf("expected achievement suggestion when first bullet has no metric")
	}

	data.WorkExperience[0].Description = []string{"Increased revenue by 12%"}
	if _, ok := achievementSuggestion(data); ok {
		t.Fatalf("did not expect suggestion when first bullet is quantified")
	}
}

func TestAnalyzeJobMatch_NoWorkExperienceDoesNotPanic(t *testing.T) {
	data := &resume.Data{Skills: []resume.Skill{{ID: "s1", Name: "Git"}}}
	analysis := AnalyzeJobMatch("Requirements: Git", data)
	if analysis.Score < 0 || analysis.Score > 100 {
		t.Fatalf("score out of range: %d", analysis.Score)
	}
}
