package score

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"cvforge/internal/resume"
)

// Suggestion 类型与严重程度的取值约定。
const (
	SuggestionKeyword     = "keyword"
	SuggestionSkill       = "skill"
	SuggestionExperience  = "experience"
	SuggestionAchievement = "achievement"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Suggestion 是一条可执行的改进建议。
type Suggestion struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Current     string `json:"current,omitempty"`
	Suggested   string `json:"suggested,omitempty"`
	Action      string `json:"action"`
}

// JobAnalysis 是职位匹配分析的结果，纯派生数据，不入库。
type JobAnalysis struct {
	Score           int          `json:"score"`
	MissingKeywords []string     `json:"missing_keywords"`
	Suggestions     []Suggestion `json:"suggestions"`
	Strengths       []string     `json:"strengths"`
	Improvements    []string     `json:"improvements"`
}

var (
	requiredSkillsPattern = regexp.MustCompile(`(?i)(?:required skills|must[- ]have|requirements)\s*:\s*([^\n.]+)`)
	metricPattern         = regexp.MustCompile(`(?i)\d+%|\d+\+|increased|decreased|improved`)
)

// AnalyzeJobMatch 对 (职位描述, 简历快照) 做确定性的启发式匹配分析。
// 纯函数：相同输入总是产生相同输出，不修改传入的简历数据。
func AnalyzeJobMatch(jobDescription string, data *resume.Data) JobAnalysis {
	descLower := strings.ToLower(jobDescription)
	blob := textBlob(data)

	keywords := extractKeywords(descLower)
	required := extractRequiredSkills(jobDescription, keywords)

	var missing []string
	for _, kw := range keywords {
		if !strings.Contains(blob, kw) {
			missing = append(missing, kw)
		}
	}

	suggestions := make([]Suggestion, 0, 6)
	suggestions = append(suggestions, keywordSuggestions(jobDescription, missing)...)
	if s, ok := skillGapSuggestion(required, data); ok {
		suggestions = append(suggestions, s)
	}
	if s, ok := achievementSuggestion(data); ok {
		suggestions = append(suggestions, s)
	}
	if s, ok := weakVerbSuggestion(data); ok {
		suggestions = append(suggestions, s)
	}
	if s, ok := summarySuggestion(data); ok {
		suggestions = append(suggestions, s)
	}

	// 关键词与必备技能命中率在无数据时回退到各自的中位值。
	keywordTerm := keywordWeight / 2
	if len(keywords) > 0 {
		rate := float64(len(keywords)-len(missing)) / float64(len(keywords))
		keywordTerm = rate * keywordWeight
	}
	skillTerm := skillWeight / 2
	if len(required) > 0 {
		matched := len(required) - len(missingRequiredSkills(required, data))
		skillTerm = float64(matched) / float64(len(required)) * skillWeight
	}
	penalty := len(suggestions) * suggestionPenalty
	if penalty > maxPenalty {
		penalty = maxPenalty
	}

	raw := int(math.Round(keywordTerm + skillTerm - float64(penalty)))
	sc := clamp(raw, 0, 100)

	// 没有缺失项时也返回空切片，序列化结果保持 [] 而不是 null。
	display := []string{}
	if len(missing) > maxMissingKeywords {
		display = append(display, missing[:maxMissingKeywords]...)
	} else {
		display = append(display, missing...)
	}

	improvements := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		improvements = append(improvements, s.Title)
	}

	return JobAnalysis{
		Score:           sc,
		MissingKeywords: display,
		Suggestions:     suggestions,
		Strengths:       strengths(data),
		Improvements:    improvements,
	}
}

// textBlob 把整份简历序列化为小写文本，用于子串包含检测。
func textBlob(data *resume.Data) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return strings.ToLower(string(raw))
}

func extractKeywords(descLower string) []string {
	var found []string
	for _, term := range vocabulary {
		if strings.Contains(descLower, term) {
			found = append(found, term)
		}
	}
	return found
}

// extractRequiredSkills 解析 "required skills:" 之类的列表短语，
// 没有时回退到前 5 个提取出的关键词。
func extractRequiredSkills(jobDescription string, keywords []string) []string {
	if m := requiredSkillsPattern.FindStringSubmatch(jobDescription); m != nil {
		parts := regexp.MustCompile(`[,;]`).Split(m[1], -1)
		var skills []string
		for _, p := range parts {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				skills = append(skills, p)
			}
		}
		if len(skills) > 0 {
			return skills
		}
	}
	if len(keywords) > fallbackSkillCount {
		return keywords[:fallbackSkillCount]
	}
	return keywords
}

func missingRequiredSkills(required []string, data *resume.Data) []string {
	names := make([]string, 0, len(data.Skills))
	for _, s := range data.Skills {
		names = append(names, strings.ToLower(s.Name))
	}
	skillsBlob := strings.Join(names, " ")

	var gap []string
	for _, r := range required {
		if !strings.Contains(skillsBlob, r) {
			gap = append(gap, r)
		}
	}
	return gap
}

func keywordSuggestions(jobDescription string, missing []string) []Suggestion {
	n := len(missing)
	if n > maxKeywordSuggest {
		n = maxKeywordSuggest
	}
	out := make([]Suggestion, 0, n)
	for _, kw := range missing[:n] {
		count := countOccurrences(jobDescription, kw)
		out = append(out, Suggestion{
			ID:       "keyword-" + kw,
			Type:     SuggestionKeyword,
			Severity: SeverityHigh,
			Title:    fmt.Sprintf("Add the keyword %q", kw),
			Description: fmt.Sprintf(
				"%q appears %d time(s) in the job description but is missing from your resume.",
				kw, count,
			),
			Suggested: kw,
			Action:    "Work this term into your skills or experience descriptions where it honestly applies.",
		})
	}
	return out
}

func countOccurrences(text, term string) int {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(term))
	if err != nil {
		return 0
	}
	return len(re.FindAllStringIndex(text, -1))
}

func skillGapSuggestion(required []string, data *resume.Data) (Suggestion, bool) {
	gap := missingRequiredSkills(required, data)
	if len(gap) == 0 {
		return Suggestion{}, false
	}
	listed := gap
	if len(listed) > maxSkillGapListed {
		listed = listed[:maxSkillGapListed]
	}
	return Suggestion{
		ID:          "skill-gap",
		Type:        SuggestionSkill,
		Severity:    SeverityHigh,
		Title:       "Close the required-skills gap",
		Description: "The job lists skills that do not appear in your skills section: " + strings.Join(listed, ", ") + ".",
		Suggested:   strings.Join(listed, ", "),
		Action:      "Add the skills you actually have to the skills section.",
	}, true
}

// achievementSuggestion 只检查最近一段工作经历的第一条描述，
// 与前端编辑器引导的粒度保持一致。
func achievementSuggestion(data *resume.Data) (Suggestion, bool) {
	if len(data.WorkExperience) == 0 {
		return Suggestion{}, false
	}
	first := data.WorkExperience[0]
	if len(first.Description) == 0 {
		return Suggestion{}, false
	}
	bullet := first.Description[0]
	if metricPattern.MatchString(bullet) {
		return Suggestion{}, false
	}
	return Suggestion{
		ID:          "achievement-metrics",
		Type:        SuggestionAchievement,
		Severity:    SeverityMedium,
		Title:       "Quantify your most recent achievement",
		Description: "The first bullet of your latest role has no numbers. Recruiters scan for measurable impact.",
		Current:     bullet,
		Suggested:   bullet + " — improved X by N%",
		Action:      "Rewrite the bullet around a metric: percentage, count, or time saved.",
	}, true
}

func weakVerbSuggestion(data *resume.Data) (Suggestion, bool) {
	var sb strings.Builder
	for _, w := range data.WorkExperience {
		for _, line := range w.Description {
			sb.WriteString(line)
			sb.WriteString(" ")
		}
	}
	text := strings.ToLower(sb.String())
	for _, phrase := range weakPhrases {
		if strings.Contains(text, phrase) {
			return Suggestion{
				ID:          "experience-weak-verbs",
				Type:        SuggestionExperience,
				Severity:    SeverityMedium,
				Title:       "Replace weak phrasing with action verbs",
				Description: fmt.Sprintf("Phrases like %q undersell your work.", phrase),
				Current:     phrase,
				Suggested:   "led / built / delivered / shipped",
				Action:      "Start every bullet with a strong action verb.",
			}, true
		}
	}
	return Suggestion{}, false
}

func summarySuggestion(data *resume.Data) (Suggestion, bool) {
	summary := strings.TrimSpace(data.PersonalInfo.Summary)
	if len(summary) >= minSummaryLength {
		return Suggestion{}, false
	}

	years := len(data.WorkExperience) * 2
	var skills []string
	for i, s := range data.Skills {
		if i >= 3 {
			break
		}
		skills = append(skills, s.Name)
	}
	example := fmt.Sprintf(
		"Professional with %d+ years of experience, skilled in %s.",
		years, strings.Join(skills, ", "),
	)

	return Suggestion{
		ID:          "summary-quality",
		Type:        SuggestionExperience,
		Severity:    SeverityLow,
		Title:       "Expand your professional summary",
		Description: "A summary of at least 100 characters gives recruiters immediate context.",
		Current:     summary,
		Suggested:   example,
		Action:      "Write 2-3 sentences covering role, experience and core skills.",
	}, true
}

// strengths 与职位描述无关，只看简历本身的结构。
func strengths(data *resume.Data) []string {
	out := []string{}
	if len(data.WorkExperience) >= 3 {
		out = append(out, "Strong work history")
	}
	if len(data.Education) > 0 {
		out = append(out, "Relevant education background")
	}
	if len(data.Skills) >= 8 {
		out = append(out, "Comprehensive skill set")
	}
	if hasQuantifiedBullet(data) {
		out = append(out, "Quantified achievements")
	}
	return out
}

func hasQuantifiedBullet(data *resume.Data) bool {
	for _, w := range data.WorkExperience {
		for _, line := range w.Description {
			if metricPattern.MatchString(line) {
				return true
			}
		}
		for _, line := range w.Achievements {
			if metricPattern.MatchString(line) {
				return true
			}
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
