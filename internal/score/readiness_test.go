package score

import (
	"testing"

	"cvforge/internal/resume"
)

func checkByID(t *testing.T, result ReadinessResult, id string) ReadinessCheck {
	t.Helper()
	for _, c := range result.Checks {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("check %q not found", id)
	return ReadinessCheck{}
}

func TestAnalyzeReadiness_StrongResumeIsReady(t *testing.T) {
	result := AnalyzeReadiness(strongResume())
	if !result.IsReady {
		t.Fatalf("expected ready, checks: %+v", result.Checks)
	}
	if result.Failed != 0 {
		t.Fatalf("expected no failed checks, got %d", result.Failed)
	}
}

func TestAnalyzeReadiness_EmptyResumeFailsRequiredChecks(t *testing.T) {
	result := AnalyzeReadiness(&resume.Data{})
	if result.IsReady {
		t.Fatalf("empty resume must not be ready")
	}
	for _, id := range []string{"contact-info", "work-experience", "education"} {
		c := checkByID(t, result, id)
		if c.Status != StatusFail {
			t.Fatalf("check %q: expected fail, got %s", id, c.Status)
		}
		if c.Priority != PriorityRequired {
			t.Fatalf("check %q: expected required priority", id)
		}
	}
}

func TestAnalyzeReadiness_CertificationsCountAsEducationEquivalent(t *testing.T) {
	data := &resume.Data{
		Certifications: []resume.Certification{{ID: "c1", Name: "CKA", Issuer: "CNCF"}},
	}
	c := checkByID(t, AnalyzeReadiness(data), "education")
	if c.Status != StatusWarning {
		t.Fatalf("expected warning for certification-only education, got %s", c.Status)
	}
}

func TestAnalyzeReadiness_PartialContactWarns(t *testing.T) {
	data := &resume.Data{
		PersonalInfo: resume.PersonalInfo{Email: "x@example.com"},
	}
	c := checkByID(t, AnalyzeReadiness(data), "contact-info")
	if c.Status != StatusWarning {
		t.Fatalf("expected warning, got %s", c.Status)
	}
	if c.FixAction == nil || c.FixAction.SectionID != "personal-info" {
		t.Fatalf("expected fix action pointing at personal-info, got %+v", c.FixAction)
	}
}

func TestAnalyzeReadiness_RollupCountsAddUp(t *testing.T) {
	result := AnalyzeReadiness(weakResume())
	total := result.Passed + result.Failed + result.Warnings
	if total != len(result.Checks) {
		t.Fatalf("rollup %d does not cover %d checks", total, len(result.Checks))
	}
}
