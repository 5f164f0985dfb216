package score

import (
	"strings"

	"cvforge/internal/resume"
)

// ATSResult 是结构完整性检查的结果。
// Issues 与 Recommendations 一一对应：同一轮检查里成对追加。
type ATSResult struct {
	Score           int      `json:"score"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// CalculateATSScore 从 100 分起，对每个未通过的结构检查做固定扣分。
// 只看简历自身，不依赖职位描述。
func CalculateATSScore(data *resume.Data) ATSResult {
	sc := 100
	issues := make([]string, 0, 6)
	recs := make([]string, 0, 6)

	fail := func(penalty int, issue, rec string) {
		sc -= penalty
		issues = append(issues, issue)
		recs = append(recs, rec)
	}

	if strings.TrimSpace(data.PersonalInfo.Email) == "" || strings.TrimSpace(data.PersonalInfo.Phone) == "" {
		fail(15, "Missing contact information",
			"Add both an email address and a phone number so recruiters can reach you.")
	}

	if len(data.WorkExperience) == 0 {
		fail(25, "No work experience listed",
			"Add at least one work experience entry, including internships if applicable.")
	} else {
		if anyMissingDates(data.WorkExperience) {
			fail(10, "Missing dates in work experience",
				"Fill in start and end dates for every role (mark ongoing roles as current).")
		}
		if anyBlankDescription(data.WorkExperience) {
			fail(15, "Missing job descriptions",
				"Describe what you did in each role with 2-4 bullet points.")
		}
	}

	if len(data.Education) == 0 {
		fail(10, "No education listed",
			"Add your highest completed education or an equivalent qualification.")
	}

	if len(data.Skills) < 5 {
		fail(10, "Limited skills listed",
			"List at least 5 relevant skills to improve keyword matching.")
	}

	return ATSResult{
		Score:           clamp(sc, 0, 100),
		Issues:          issues,
		Recommendations: recs,
	}
}

func anyMissingDates(entries []resume.WorkEntry) bool {
	for _, w := range entries {
		if strings.TrimSpace(w.StartDate) == "" {
			return true
		}
		if !w.Current && strings.TrimSpace(w.EndDate) == "" {
			return true
		}
	}
	return false
}

func anyBlankDescription(entries []resume.WorkEntry) bool {
	for _, w := range entries {
		blank := true
		for _, line := range w.Description {
			if strings.TrimSpace(line) != "" {
				blank = false
				break
			}
		}
		if blank {
			return true
		}
	}
	return false
}
