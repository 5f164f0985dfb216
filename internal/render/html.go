package render

import (
	"bytes"
	"fmt"
	"strings"

	"cvforge/internal/resume"
)

// pageData 是传给 html/template 的渲染上下文。
type pageData struct {
	Data         *resume.Data
	FullName     string
	Style        resume.Customization
	PhotoDataURI string
}

// BuildHTML 将简历数据渲染为自包含的 HTML 文档。
// photoDataURI 为空时模板不输出头像区块。
func BuildHTML(data *resume.Data, templateID string, customization resume.Customization, photoDataURI string) (string, error) {
	if data == nil {
		return "", fmt.Errorf("resume data is nil")
	}

	t, ok := LookupTemplate(templateID)
	if !ok {
		return "", fmt.Errorf("unknown template %q", templateID)
	}

	if strings.TrimSpace(customization.AccentColor) == "" {
		customization = resume.DefaultCustomization()
	}

	var buf bytes.Buffer
	err := t.tmpl.Execute(&buf, pageData{
		Data:         data,
		FullName:     data.FullName(),
		Style:        customization,
		PhotoDataURI: photoDataURI,
	})
	if err != nil {
		return "", fmt.Errorf("execute template %q: %w", templateID, err)
	}
	return buf.String(), nil
}

const sharedCSS = `
        * { box-sizing: border-box; }
        html, body { margin: 0; padding: 0; background: white; }
        body {
            font-family: '{{.Style.FontFamily}}', 'Helvetica Neue', Arial, sans-serif;
            font-size: {{.Style.FontSizePt}}pt;
            color: #1f2937;
            line-height: 1.45;
            -webkit-print-color-adjust: exact;
            print-color-adjust: exact;
        }
        @page { size: A4; margin: 0; }
        .page { width: 794px; min-height: 1122px; padding: {{.Style.MarginPx}}px; }
        h1 { font-size: 1.9em; margin: 0; color: {{.Style.AccentColor}}; }
        h2 {
            font-size: 1.1em;
            margin: 1.1em 0 0.4em;
            color: {{.Style.AccentColor}};
            text-transform: uppercase;
            letter-spacing: 0.06em;
            border-bottom: 1px solid {{.Style.AccentColor}};
            padding-bottom: 2px;
        }
        .job-title { font-size: 1.15em; color: #4b5563; margin: 2px 0 6px; }
        .contact { color: #4b5563; font-size: 0.92em; }
        .entry { margin-bottom: 0.7em; page-break-inside: avoid; }
        .entry-head { display: flex; justify-content: space-between; }
        .entry-title { font-weight: 600; }
        .entry-dates { color: #6b7280; font-size: 0.9em; white-space: nowrap; }
        .entry-sub { color: #4b5563; font-style: italic; }
        ul { margin: 0.25em 0 0; padding-left: 1.2em; }
        li { margin-bottom: 0.15em; }
        .photo { width: 88px; height: 88px; border-radius: 50%; object-fit: cover; }
        .skill-list { display: flex; flex-wrap: wrap; gap: 4px 8px; padding: 0; margin: 0.3em 0 0; list-style: none; }
        .skill-list li {
            background: #f3f4f6;
            border-radius: 3px;
            padding: 1px 8px;
            margin: 0;
            font-size: 0.92em;
        }
`

const classicTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>` + sharedCSS + `
        .header { display: flex; justify-content: space-between; align-items: flex-start; }
    </style>
</head>
<body>
<div class="page">
    <div class="header">
        <div>
            <h1>{{.FullName}}</h1>
            {{with .Data.PersonalInfo.JobTitle}}<div class="job-title">{{.}}</div>{{end}}
            <div class="contact">
                {{with .Data.PersonalInfo.Email}}{{.}}{{end}}
                {{with .Data.PersonalInfo.Phone}} · {{.}}{{end}}
                {{with .Data.PersonalInfo.City}} · {{.}}{{with $.Data.PersonalInfo.Country}}, {{.}}{{end}}{{end}}
                {{with .Data.PersonalInfo.Website}} · {{.}}{{end}}
            </div>
        </div>
        {{with .PhotoDataURI}}<img class="photo" src="{{. | safeURL}}" alt="">{{end}}
    </div>

    {{with .Data.PersonalInfo.Summary}}
    <h2>Profile</h2>
    <p>{{.}}</p>
    {{end}}

    {{with .Data.WorkExperience}}
    <h2>Work Experience</h2>
    {{range .}}
    <div class="entry">
        <div class="entry-head">
            <span class="entry-title">{{.Position}}</span>
            <span class="entry-dates">{{dateRange .StartDate .EndDate .Current}}</span>
        </div>
        <div class="entry-sub">{{.Company}}</div>
        {{with .Description}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
        {{with .Achievements}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
    </div>
    {{end}}
    {{end}}

    {{with .Data.Education}}
    <h2>Education</h2>
    {{range .}}
    <div class="entry">
        <div class="entry-head">
            <span class="entry-title">{{.Degree}}{{with .Field}}, {{.}}{{end}}</span>
            <span class="entry-dates">{{dateRange .StartDate .EndDate .Current}}</span>
        </div>
        <div class="entry-sub">{{.Institution}}</div>
        {{with .Description}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
    </div>
    {{end}}
    {{end}}

    {{with .Data.Skills}}
    <h2>Skills</h2>
    <ul class="skill-list">{{range .}}<li>{{.Name}}</li>{{end}}</ul>
    {{end}}

    {{with .Data.Projects}}
    <h2>Projects</h2>
    {{range .}}
    <div class="entry">
        <span class="entry-title">{{.Name}}</span>
        {{with .Description}}<div>{{.}}</div>{{end}}
        {{with .Technologies}}<div class="entry-sub">{{join . ", "}}</div>{{end}}
    </div>
    {{end}}
    {{end}}

    {{with .Data.Certifications}}
    <h2>Certifications</h2>
    {{range .}}
    <div class="entry">
        <div class="entry-head">
            <span class="entry-title">{{.Name}}{{with .Issuer}} — {{.}}{{end}}</span>
            <span class="entry-dates">{{.Date}}</span>
        </div>
    </div>
    {{end}}
    {{end}}

    {{with .Data.Courses}}
    <h2>Courses</h2>
    {{range .}}
    <div class="entry">
        <div class="entry-head">
            <span class="entry-title">{{.Name}}{{with .Institution}} — {{.}}{{end}}</span>
            <span class="entry-dates">{{.Date}}</span>
        </div>
    </div>
    {{end}}
    {{end}}

    {{with .Data.Languages}}
    <h2>Languages</h2>
    <ul class="skill-list">{{range .}}<li>{{.Name}}{{with .Level}} ({{.}}){{end}}</li>{{end}}</ul>
    {{end}}

    {{with .Data.ExtraCurricular}}
    <h2>Activities</h2>
    {{range .}}
    <div class="entry">
        <div class="entry-head">
            <span class="entry-title">{{.Title}}{{with .Role}} — {{.}}{{end}}</span>
            <span class="entry-dates">{{dateRange .StartDate .EndDate .Current}}</span>
        </div>
        {{with .Description}}<div>{{.}}</div>{{end}}
    </div>
    {{end}}
    {{end}}

    {{with .Data.Hobbies}}
    <h2>Hobbies</h2>
    <ul class="skill-list">{{range .}}<li>{{.Name}}</li>{{end}}</ul>
    {{end}}

    {{range .Data.CustomSections}}
    <h2>{{.Title}}</h2>
    {{range .Items}}
    <div class="entry">
        <span class="entry-title">{{.Title}}</span>
        {{with .Subtitle}}<div class="entry-sub">{{.}}</div>{{end}}
        {{with .Description}}<div>{{.}}</div>{{end}}
    </div>
    {{end}}
    {{end}}
</div>
</body>
</html>`

const modernTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>` + sharedCSS + `
        .page { display: flex; padding: 0; }
        .sidebar {
            width: 256px;
            min-height: 1122px;
            background: {{.Style.AccentColor}};
            color: white;
            padding: {{.Style.MarginPx}}px 24px;
        }
        .sidebar h1, .sidebar h2 { color: white; border-color: rgba(255,255,255,0.4); }
        .sidebar .contact, .sidebar .entry-sub { color: rgba(255,255,255,0.85); }
        .sidebar .contact div { margin-bottom: 4px; }
        .sidebar .skill-list li { background: rgba(255,255,255,0.15); color: white; }
        .main { flex: 1; padding: {{.Style.MarginPx}}px 32px; }
        .photo { display: block; margin: 0 auto 14px; width: 104px; height: 104px; }
    </style>
</head>
<body>
<div class="page">
    <div class="sidebar">
        {{with .PhotoDataURI}}<img class="photo" src="{{. | safeURL}}" alt="">{{end}}
        <h1>{{.FullName}}</h1>
        {{with .Data.PersonalInfo.JobTitle}}<div class="job-title" style="color:rgba(255,255,255,0.9)">{{.}}</div>{{end}}

        <h2>Contact</h2>
        <div class="contact">
            {{with .Data.PersonalInfo.Email}}<div>{{.}}</div>{{end}}
            {{with .Data.PersonalInfo.Phone}}<div>{{.}}</div>{{end}}
            {{with .Data.PersonalInfo.City}}<div>{{.}}{{with $.Data.PersonalInfo.Country}}, {{.}}{{end}}</div>{{end}}
            {{with .Data.PersonalInfo.Website}}<div>{{.}}</div>{{end}}
        </div>

        {{with .Data.Skills}}
        <h2>Skills</h2>
        <ul class="skill-list">{{range .}}<li>{{.Name}}</li>{{end}}</ul>
        {{end}}

        {{with .Data.Languages}}
        <h2>Languages</h2>
        <ul class="skill-list">{{range .}}<li>{{.Name}}{{with .Level}} ({{.}}){{end}}</li>{{end}}</ul>
        {{end}}

        {{with .Data.Hobbies}}
        <h2>Hobbies</h2>
        <ul class="skill-list">{{range .}}<li>{{.Name}}</li>{{end}}</ul>
        {{end}}
    </div>
    <div class="main">
        {{with .Data.PersonalInfo.Summary}}
        <h2>Profile</h2>
        <p>{{.}}</p>
        {{end}}

        {{with .Data.WorkExperience}}
        <h2>Work Experience</h2>
        {{range .}}
        <div class="entry">
            <div class="entry-head">
                <span class="entry-title">{{.Position}}</span>
                <span class="entry-dates">{{dateRange .StartDate .EndDate .Current}}</span>
            </div>
            <div class="entry-sub">{{.Company}}</div>
            {{with .Description}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
            {{with .Achievements}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
        </div>
        {{end}}
        {{end}}

        {{with .Data.Education}}
        <h2>Education</h2>
        {{range .}}
        <div class="entry">
            <div class="entry-head">
                <span class="entry-title">{{.Degree}}{{with .Field}}, {{.}}{{end}}</span>
                <span class="entry-dates">{{dateRange .StartDate .EndDate .Current}}</span>
            </div>
            <div class="entry-sub">{{.Institution}}</div>
        </div>
        {{end}}
        {{end}}

        {{with .Data.Projects}}
        <h2>Projects</h2>
        {{range .}}
        <div class="entry">
            <span class="entry-title">{{.Name}}</span>
            {{with .Description}}<div>{{.}}</div>{{end}}
            {{with .Technologies}}<div class="entry-sub">{{join . ", "}}</div>{{end}}
        </div>
        {{end}}
        {{end}}

        {{with .Data.Certifications}}
        <h2>Certifications</h2>
        {{range .}}
        <div class="entry">
            <div class="entry-head">
                <span class="entry-title">{{.Name}}{{with .Issuer}} — {{.}}{{end}}</span>
                <span class="entry-dates">{{.Date}}</span>
            </div>
        </div>
        {{end}}
        {{end}}

        {{with .Data.Courses}}
        <h2>Courses</h2>
        {{range .}}
        <div class="entry">
            <div class="entry-head">
                <span class="entry-title">{{.Name}}{{with .Institution}} — {{.}}{{end}}</span>
                <span class="entry-dates">{{.Date}}</span>
            </div>
        </div>
        {{end}}
        {{end}}

        {{with .Data.ExtraCurricular}}
        <h2>Activities</h2>
        {{range .}}
        <div class="entry">
            <div class="entry-head">
                <span class="entry-title">{{.Title}}{{with .Role}} — {{.}}{{end}}</span>
                <span class="entry-dates">{{dateRange .StartDate .EndDate .Current}}</span>
            </div>
            {{with .Description}}<div>{{.}}</div>{{end}}
        </div>
        {{end}}
        {{end}}

        {{range .Data.CustomSections}}
        <h2>{{.Title}}</h2>
        {{range .Items}}
        <div class="entry">
            <span class="entry-title">{{.Title}}</span>
            {{with .Subtitle}}<div class="entry-sub">{{.}}</div>{{end}}
            {{with .Description}}<div>{{.}}</div>{{end}}
        </div>
        {{end}}
        {{end}}
    </div>
</div>
</body>
</html>`

const compactTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>` + sharedCSS + `
        body { line-height: 1.3; }
        h1 { font-size: 1.5em; }
        h2 { margin: 0.7em 0 0.25em; font-size: 1em; }
        .entry { margin-bottom: 0.4em; }
        .header { text-align: center; margin-bottom: 0.6em; }
        .photo { width: 64px; height: 64px; }
        ul { margin-top: 0.1em; }
    </style>
</head>
<body>
<div class="page">
    <div class="header">
        {{with .PhotoDataURI}}<img class="photo" src="{{. | safeURL}}" alt="">{{end}}
        <h1>{{.FullName}}</h1>
        {{with .Data.PersonalInfo.JobTitle}}<div class="job-title">{{.}}</div>{{end}}
        <div class="contact">
            {{with .Data.PersonalInfo.Email}}{{.}}{{end}}
            {{with .Data.PersonalInfo.Phone}} · {{.}}{{end}}
            {{with .Data.PersonalInfo.City}} · {{.}}{{with $.Data.PersonalInfo.Country}}, {{.}}{{end}}{{end}}
            {{with .Data.PersonalInfo.Website}} · {{.}}{{end}}
        </div>
    </div>

    {{with .Data.PersonalInfo.Summary}}<p>{{.}}</p>{{end}}

    {{with .Data.WorkExperience}}
    <h2>Experience</h2>
    {{range .}}
    <div class="entry">
        <div class="entry-head">
            <span class="entry-title">{{.Position}} · {{.Company}}</span>
            <span class="entry-dates">{{dateRange .StartDate .EndDate .Current}}</span>
        </div>
        {{with .Description}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
        {{with .Achievements}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
    </div>
    {{end}}
    {{end}}

    {{with .Data.Education}}
    <h2>Education</h2>
    {{range .}}
    <div class="entry">
        <div class="entry-head">
            <span class="entry-title">{{.Degree}}{{with .Field}}, {{.}}{{end}} · {{.Institution}}</span>
            <span class="entry-dates">{{dateRange .StartDate .EndDate .Current}}</span>
        </div>
    </div>
    {{end}}
    {{end}}

    {{with .Data.Skills}}
    <h2>Skills</h2>
    <ul class="skill-list">{{range .}}<li>{{.Name}}</li>{{end}}</ul>
    {{end}}

    {{with .Data.Projects}}
    <h2>Projects</h2>
    {{range .}}
    <div class="entry">
        <span class="entry-title">{{.Name}}</span>{{with .Description}}: {{.}}{{end}}
    </div>
    {{end}}
    {{end}}

    {{with .Data.Certifications}}
    <h2>Certifications</h2>
    {{range .}}<div class="entry">{{.Name}}{{with .Issuer}} — {{.}}{{end}}{{with .Date}} ({{.}}){{end}}</div>{{end}}
    {{end}}

    {{with .Data.Courses}}
    <h2>Courses</h2>
    {{range .}}<div class="entry">{{.Name}}{{with .Institution}} — {{.}}{{end}}{{with .Date}} ({{.}}){{end}}</div>{{end}}
    {{end}}

    {{with .Data.Languages}}
    <h2>Languages</h2>
    <ul class="skill-list">{{range .}}<li>{{.Name}}{{with .Level}} ({{.}}){{end}}</li>{{end}}</ul>
    {{end}}

    {{with .Data.ExtraCurricular}}
    <h2>Activities</h2>
    {{range .}}<div class="entry">{{.Title}}{{with .Role}} — {{.}}{{end}}</div>{{end}}
    {{end}}

    {{with .Data.Hobbies}}
    <h2>Hobbies</h2>
    <ul class="skill-list">{{range .}}<li>{{.Name}}</li>{{end}}</ul>
    {{end}}

    {{range .Data.CustomSections}}
    <h2>{{.Title}}</h2>
    {{range .Items}}<div class="entry"><span class="entry-title">{{.Title}}</span>{{with .Description}}: {{.}}{{end}}</div>{{end}}
    {{end}}
</div>
</body>
</html>`
