package score

// 关键词词表与权重常量。匹配方式是小写子串包含，不做分词，
// 因此词表里避免收录容易误命中的超短词（例如用 golang 而不是 go）。

// vocabulary 是职位描述里常见的技能/工具/流程词汇。
var vocabulary = []string{
	"javascript", "typescript", "python", "java", "golang", "rust",
	"c++", "c#", "php", "ruby", "swift", "kotlin", "scala",
	"react", "vue", "angular", "next.js", "node.js", "express",
	"django", "flask", "spring", "rails", ".net",
	"html", "css", "sass", "tailwind",
	"sql", "postgresql", "mysql", "mongodb", "redis", "elasticsearch",
	"graphql", "rest", "grpc", "websocket",
	"docker", "kubernetes", "terraform", "ansible", "jenkins", "ci/cd",
	"aws", "azure", "gcp", "serverless", "microservices",
	"linux", "bash", "git",
	"machine learning", "deep learning", "data analysis", "data engineering",
	"tensorflow", "pytorch", "pandas", "spark",
	"agile", "scrum", "kanban", "devops", "tdd", "unit testing",
	"security", "networking", "observability", "monitoring",
	"leadership", "mentoring", "communication", "project management",
	"stakeholder management", "product management",
	"ui/ux", "figma", "accessibility", "seo",
}

// weakPhrases 是弱化表述，出现在经历描述里会触发改写建议。
var weakPhrases = []string{
	"responsible for",
	"worked on",
	"helped with",
	"assisted with",
	"participated in",
}

// 打分权重。关键词命中率最多贡献 50 分，必备技能命中率最多贡献 30 分，
// 每条建议扣 3 分、封顶 20 分。
const (
	keywordWeight      = 50.0
	skillWeight        = 30.0
	suggestionPenalty  = 3
	maxPenalty         = 20
	maxMissingKeywords = 10
	maxKeywordSuggest  = 3
	maxSkillGapListed  = 5
	fallbackSkillCount = 5
	minSummaryLength   = 100
)
