package render

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"sync"
)

// Template 是一个内置的简历版式。版式随代码发版，不存数据库。
type Template struct {
	ID          string
	Name        string
	Description string
	tmpl        *template.Template
}

// DefaultTemplateID 是新建简历的默认版式。
const DefaultTemplateID = "classic"

var (
	registryOnce sync.Once
	registry     map[string]*Template
)

// LookupTemplate 按 ID 查找版式，未知 ID 返回 false。
func LookupTemplate(id string) (*Template, bool) {
	buildRegistry()
	t, ok := registry[strings.TrimSpace(strings.ToLower(id))]
	return t, ok
}

// ListTemplates 返回全部内置版式，按 ID 排序。
func ListTemplates() []*Template {
	buildRegistry()
	out := make([]*Template, 0, len(registry))
	for _, t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func buildRegistry() {
	registryOnce.Do(func() {
		registry = make(map[string]*Template)
		for _, def := range []struct {
			id, name, description, body string
		}{
			{"classic", "Classic", "单栏传统版式，适合大多数行业", classicTemplate},
			{"modern", "Modern", "双栏版式，左侧强调色边栏", modernTemplate},
			{"compact", "Compact", "紧凑版式，内容多时单页可容纳更多条目", compactTemplate},
		} {
			tmpl := template.Must(template.New(def.id).Funcs(templateFuncs()).Parse(def.body))
			registry[def.id] = &Template{
				ID:          def.id,
				Name:        def.name,
				Description: def.description,
				tmpl:        tmpl,
			}
		}
	})
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"dateRange": func(start, end string, current bool) string {
			start = strings.TrimSpace(start)
			end = strings.TrimSpace(end)
			if current {
				end = "Present"
			}
			switch {
			case start == "" && end == "":
				return ""
			case start == "":
				return end
			case end == "":
				return start
			}
			return fmt.Sprintf("%s – %s", start, end)
		},
		"safeURL": func(s string) template.URL {
			// 仅用于我们自己生成的 data URI，不接受用户输入。
			return template.URL(s)
		},
	}
}
