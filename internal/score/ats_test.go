package score

import (
	"reflect"
	"testing"

	"cvforge/internal/resume"
)

func TestCalculateATSScore_CompleteResumeIsPerfect(t *testing.T) {
	result := CalculateATSScore(strongResume())
	if result.Score != 100 {
		t.Fatalf("expected 100, got %d (issues: %v)", result.Score, result.Issues)
	}
	if len(result.Issues) != 0 {
		t.Fatalf("expected no issues, got %v", result.Issues)
	}
}

func TestCalculateATSScore_IssuesPairWithRecommendations(t *testing.T) {
	cases := []*resume.Data{
		strongResume(),
		weakResume(),
		{},
		{
			PersonalInfo: resume.PersonalInfo{Email: "x@example.com"},
			WorkExperience: []resume.WorkEntry{
				{ID: "w1", Company: "A", Position: "B", Description: []string{"  "}},
			},
		},
	}
	for i, data := range cases {
		result := CalculateATSScore(data)
		if result.Score < 0 || result.Score > 100 {
			t.Fatalf("case %d: score out of range: %d", i, result.Score)
		}
		if len(result.Issues) != len(result.Recommendations) {
			t.Fatalf("case %d: issues/recommendations mismatch: %d vs %d",
				i, len(result.Issues), len(result.Recommendations))
		}
	}
}

func TestCalculateATSScore_EmptyResume(t *testing.T) {
	result := CalculateATSScore(&resume.Data{})
	// 缺联系方式 -15、无工作经历 -25、无教育 -10、技能不足 -10。
	if result.Score != 40 {
		t.Fatalf("expected 40, got %d (issues: %v)", result.Score, result.Issues)
	}
	wantIssues := []string{
		"Missing contact information",
		"No work experience listed",
		"No education listed",
		"Limited skills listed",
	}
	if !reflect.DeepEqual(result.Issues, wantIssues) {
		t.Fatalf("got issues %v, want %v", result.Issues, wantIssues)
	}
}

func TestCalculateATSScore_DateChecksRespectCurrentFlag(t *testing.T) {
	data := strongResume()
	// current=true 的经历允许缺失结束日期。
	data.WorkExperience[0].EndDate = ""
	data.WorkExperience[0].Current = true
	result := CalculateATSScore(data)
	for _, issue := range result.Issues {
		if issue == "Missing dates in work experience" {
			t.Fatalf("current role should not trigger the dates issue")
		}
	}

	data.WorkExperience[1].EndDate = ""
	data.WorkExperience[1].Current = false
	result = CalculateATSScore(data)
	found := false
	for _, issue := range result.Issues {
		if issue == "Missing dates in work experience" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dates issue, got %v", result.Issues)
	}
}

func TestCalculateATSScore_Idempotent(t *testing.T) {
	first := CalculateATSScore(weakResume())
	second := CalculateATSScore(weakResume())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different results")
	}
}
