package score

import (
	"fmt"
	"strings"

	"cvforge/internal/resume"
)

// 检查状态与优先级取值。
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusWarning = "warning"

	PriorityRequired    = "required"
	PriorityRecommended = "recommended"
)

// FixAction 告诉前端跳转到哪个版块去修复问题。
type FixAction struct {
	SectionID string `json:"section_id"`
	Label     string `json:"label"`
}

// ReadinessCheck 是一条结构完整性检查项。
type ReadinessCheck struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Status    string     `json:"status"`
	Message   string     `json:"message"`
	Detail    string     `json:"detail,omitempty"`
	Priority  string     `json:"priority"`
	FixAction *FixAction `json:"fix_action,omitempty"`
}

// ReadinessResult 聚合所有检查项与统计。
// IsReady 当且仅当所有 required 检查都通过。
type ReadinessResult struct {
	Checks   []ReadinessCheck `json:"checks"`
	Passed   int              `json:"passed"`
	Failed   int              `json:"failed"`
	Warnings int              `json:"warnings"`
	IsReady  bool             `json:"is_ready"`
}

// AnalyzeReadiness 对简历快照做投递就绪度检查。
// 与 CalculateATSScore 一样是纯函数，但检查项更丰富并带修复指引。
func AnalyzeReadiness(data *resume.Data) ReadinessResult {
	checks := []ReadinessCheck{
		contactCheck(data),
		workCheck(data),
		educationCheck(data),
		summaryCheck(data),
		quantifiedCheck(data),
		skillCountCheck(data),
		workDatesCheck(data),
		workDescriptionCheck(data),
	}

	var result ReadinessResult
	result.Checks = checks
	result.IsReady = true
	for _, c := range checks {
		switch c.Status {
		case StatusPass:
			result.Passed++
		case StatusWarning:
			result.Warnings++
		case StatusFail:
			result.Failed++
		}
		if c.Priority == PriorityRequired && c.Status != StatusPass {
			result.IsReady = false
		}
	}
	return result
}

func contactCheck(data *resume.Data) ReadinessCheck {
	c := ReadinessCheck{
		ID:       "contact-info",
		Label:    "Contact information",
		Priority: PriorityRequired,
	}
	email := strings.TrimSpace(data.PersonalInfo.Email)
	phone := strings.TrimSpace(data.PersonalInfo.Phone)
	switch {
	case email != "" && phone != "":
		c.Status = StatusPass
		c.Message = "Email and phone number are present."
	case email == "" && phone == "":
		c.Status = StatusFail
		c.Message = "No way to contact you."
		c.Detail = "Both email and phone number are missing."
		c.FixAction = &FixAction{SectionID: "personal-info", Label: "Add contact details"}
	default:
		c.Status = StatusWarning
		c.Message = "Only one contact channel is filled in."
		c.FixAction = &FixAction{SectionID: "personal-info", Label: "Complete contact details"}
	}
	return c
}

func workCheck(data *resume.Data) ReadinessCheck {
	c := ReadinessCheck{
		ID:       "work-experience",
		Label:    "Work experience",
		Priority: PriorityRequired,
	}
	if len(data.WorkExperience) == 0 {
		c.Status = StatusFail
		c.Message = "No work experience yet."
		c.FixAction = &FixAction{SectionID: "work-experience", Label: "Add a role"}
		return c
	}
	c.Status = StatusPass
	c.Message = fmt.Sprintf("%d role(s) listed.", len(data.WorkExperience))
	return c
}

// educationCheck 接受正式教育经历，也接受证书/课程作为等价项。
func educationCheck(data *resume.Data) ReadinessCheck {
	c := ReadinessCheck{
		ID:       "education",
		Label:    "Education",
		Priority: PriorityRequired,
	}
	if len(data.Education) > 0 {
		c.Status = StatusPass
		c.Message = fmt.Sprintf("%d education entry(ies) listed.", len(data.Education))
		return c
	}
	if len(data.Certifications) > 0 || len(data.Courses) > 0 {
		c.Status = StatusWarning
		c.Message = "No formal education listed, but certifications/courses compensate."
		c.FixAction = &FixAction{SectionID: "education", Label: "Add education"}
		return c
	}
	c.Status = StatusFail
	c.Message = "No education or equivalent qualification listed."
	c.FixAction = &FixAction{SectionID: "education", Label: "Add education"}
	return c
}

func summaryCheck(data *resume.Data) ReadinessCheck {
	c := ReadinessCheck{
		ID:       "summary",
		Label:    "Professional summary",
		Priority: PriorityRecommended,
	}
	summary := strings.TrimSpace(data.PersonalInfo.Summary)
	switch {
	case summary == "":
		c.Status = StatusFail
		c.Message = "No summary written."
		c.FixAction = &FixAction{SectionID: "personal-info", Label: "Write a summary"}
	case len(summary) < minSummaryLength:
		c.Status = StatusWarning
		c.Message = fmt.Sprintf("Summary is short (%d characters).", len(summary))
		c.Detail = "Aim for at least 100 characters."
		c.FixAction = &FixAction{SectionID: "personal-info", Label: "Expand the summary"}
	default:
		c.Status = StatusPass
		c.Message = "Summary looks substantial."
	}
	return c
}

func quantifiedCheck(data *resume.Data) ReadinessCheck {
	c := ReadinessCheck{
		ID:       "quantified-achievements",
		Label:    "Quantified achievements",
		Priority: PriorityRecommended,
	}
	if len(data.WorkExperience) == 0 {
		c.Status = StatusWarning
		c.Message = "Nothing to quantify yet."
		return c
	}
	if hasQuantifiedBullet(data) {
		c.Status = StatusPass
		c.Message = "At least one bullet carries a measurable result."
		return c
	}
	c.Status = StatusWarning
	c.Message = "No numbers found in your experience bullets."
	c.Detail = "Percentages, counts and time saved make impact concrete."
	c.FixAction = &FixAction{SectionID: "work-experience", Label: "Add metrics"}
	return c
}

func skillCountCheck(data *resume.Data) ReadinessCheck {
	c := ReadinessCheck{
		ID:       "skill-count",
		Label:    "Skills",
		Priority: PriorityRecommended,
	}
	n := len(data.Skills)
	switch {
	case n >= 8:
		c.Status = StatusPass
		c.Message = fmt.Sprintf("%d skills listed.", n)
	case n >= 5:
		c.Status = StatusWarning
		c.Message = fmt.Sprintf("%d skills listed; 8 or more gives better keyword coverage.", n)
		c.FixAction = &FixAction{SectionID: "skills", Label: "Add skills"}
	default:
		c.Status = StatusFail
		c.Message = fmt.Sprintf("Only %d skill(s) listed.", n)
		c.FixAction = &FixAction{SectionID: "skills", Label: "Add skills"}
	}
	return c
}

func workDatesCheck(data *resume.Data) ReadinessCheck {
	c := ReadinessCheck{
		ID:       "work-dates",
		Label:    "Employment dates",
		Priority: PriorityRecommended,
	}
	if len(data.WorkExperience) == 0 {
		c.Status = StatusWarning
		c.Message = "No roles to date yet."
		return c
	}
	if anyMissingDates(data.WorkExperience) {
		c.Status = StatusWarning
		c.Message = "Some roles are missing start or end dates."
		c.FixAction = &FixAction{SectionID: "work-experience", Label: "Fill in dates"}
		return c
	}
	c.Status = StatusPass
	c.Message = "Every role is fully dated."
	return c
}

func workDescriptionCheck(data *resume.Data) ReadinessCheck {
	c := ReadinessCheck{
		ID:       "work-descriptions",
		Label:    "Role descriptions",
		Priority: PriorityRecommended,
	}
	if len(data.WorkExperience) == 0 {
		c.Status = StatusWarning
		c.Message = "No roles to describe yet."
		return c
	}
	if anyBlankDescription(data.WorkExperience) {
		c.Status = StatusWarning
		c.Message = "Some roles have no description bullets."
		c.FixAction = &FixAction{SectionID: "work-experience", Label: "Describe the role"}
		return c
	}
	c.Status = StatusPass
	c.Message = "Every role has at least one bullet."
	return c
}
