package handlers

import (
	"embed"
	"errors"
	"html/template"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/workflow"
)

//go:embed templates/*.html
var templateFS embed.FS

// pager is the data of the pagination partial.
type pager struct {
	Base string
	models.Pagination
}

func (p pager) Pages() []int {
	out := make([]int, 0, p.TotalPages)
	for i := 1; i <= p.TotalPages; i++ {
		out = append(out, i)
	}
	return out
}

func (p pager) HasPrev() bool { return p.CurrentPage > 1 }
func (p pager) HasNext() bool { return p.CurrentPage < p.TotalPages }

func newPager(base string, p models.Pagination) pager {
	return pager{Base: base, Pagination: p}
}

var templateFuncs = template.FuncMap{
	// Job descriptions are authored as HTML by companies.
	"rawHTML":      func(s string) template.HTML { return template.HTML(s) },
	"date":         formatDate,
	"pageURL":      pageURL,
	"reloadURL":    reloadURL,
	"pager":        newPager,
	"add":          func(a, b int) int { return a + b },
	"nextStatuses": workflow.NextApplicationStatuses,
	"isTerminal":   workflow.IsTerminal,
	"dict":         dict,
}

// LoadTemplates parses the embedded page templates.
func LoadTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

// SetupTemplates installs the page templates on router.
func SetupTemplates(router *gin.Engine) error {
	tmpl, err := LoadTemplates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	return nil
}

func formatDate(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	case *time.Time:
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	}
	return ""
}

// pageURL sets the page query parameter of base.
func pageURL(base string, page int) string {
	return setQuery(base, "page", strconv.Itoa(page))
}

func reloadURL(base string) string {
	return setQuery(base, "reload", "1")
}

func setQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func dict(kv ...interface{}) (map[string]interface{}, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict expects key/value pairs")
	}
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, errors.New("dict keys must be strings")
		}
		out[k] = kv[i+1]
	}
	return out, nil
}

// requestURL is the current request URI without the given query parameters.
func requestURL(c *gin.Context, drop ...string) string {
	u := *c.Request.URL
	q := u.Query()
	for _, k := range drop {
		q.Del(k)
	}
	u.RawQuery = q.Encode()
	return u.RequestURI()
}
