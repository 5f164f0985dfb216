package resume

// Data 表示存储在简历 Content(JSONB) 中的结构化数据。
// 每次编辑都会生成一份新的快照，永远不做原地修改。
type Data struct {
	PersonalInfo    PersonalInfo     `json:"personal_info"`
	WorkExperience  []WorkEntry      `json:"work_experience"`
	Education       []EducationEntry `json:"education"`
	Skills          []Skill          `json:"skills"`
	Projects        []Project        `json:"projects,omitempty"`
	Languages       []Language       `json:"languages,omitempty"`
	Certifications  []Certification  `json:"certifications,omitempty"`
	Courses         []Course         `json:"courses,omitempty"`
	Hobbies         []Hobby          `json:"hobbies,omitempty"`
	ExtraCurricular []Activity       `json:"extra_curricular,omitempty"`
	CustomSections  []CustomSection  `json:"custom_sections,omitempty"`
}

// PersonalInfo 描述联系方式与个人简介。
type PersonalInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	JobTitle  string `json:"job_title,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	Website   string `json:"website,omitempty"`
	Summary   string `json:"summary,omitempty"`
	// PhotoKey 是 MinIO 中头像对象的 key，渲染时内联为 data URI。
	PhotoKey string `json:"photo_key,omitempty"`
}

// WorkEntry 表示一段工作经历。
// Current 为 true 时逻辑上的结束时间是"至今"，EndDate 字段被忽略。
type WorkEntry struct {
	ID           string   `json:"id"`
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date,omitempty"`
	Current      bool     `json:"current"`
	Description  []string `json:"description"`
	Achievements []string `json:"achievements,omitempty"`
}

// EducationEntry 表示一段教育经历。
type EducationEntry struct {
	ID          string   `json:"id"`
	Institution string   `json:"institution"`
	Degree      string   `json:"degree"`
	Field       string   `json:"field,omitempty"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date,omitempty"`
	Current     bool     `json:"current"`
	Description []string `json:"description,omitempty"`
}

// Skill 的 Level 取值约定为 beginner/intermediate/advanced/expert。
type Skill struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Level    string `json:"level,omitempty"`
}

type Project struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Link         string   `json:"link,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

type Language struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

type Certification struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
}

type Course struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
	Date        string `json:"date,omitempty"`
}

type Hobby struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Activity 表示课外/社团活动。
type Activity struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Role        string `json:"role,omitempty"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Current     bool   `json:"current"`
}

// CustomSection 允许用户自定义版块。
type CustomSection struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Items []CustomItem `json:"items,omitempty"`
}

type CustomItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
}

// FullName 拼接姓名，两部分都为空时返回空串。
func (d *Data) FullName() string {
	first := d.PersonalInfo.FirstName
	last := d.PersonalInfo.LastName
	switch {
	case first == "" && last == "":
		return ""
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

// Customization 描述发布时选定的视觉定制项，随简历一起存为 JSONB。
type Customization struct {
	AccentColor string `json:"accent_color"`
	FontFamily  string `json:"font_family"`
	FontSizePt  int    `json:"font_size_pt"`
	MarginPx    int    `json:"margin_px"`
}

// DefaultCustomization 是模板渲染的兜底样式。
func DefaultCustomization() Customization {
	return Customization{
		AccentColor: "#2563eb",
		FontFamily:  "Helvetica",
		FontSizePt:  10,
		MarginPx:    36,
	}
}
