package mailer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/coldreach/dripengine/internal/domain"
)

// Renderer expands Liquid templates against lead data. Parsed templates are
// cached by source; campaign emails are rendered once per lead, so the cache
// pays off immediately.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // source -> *liquid.Template
}

func NewRenderer() *Renderer {
	engine := liquid.NewEngine()

	// {{ lead.name | default: "there" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	return &Renderer{engine: engine}
}

// bindings exposes the lead under the "lead" namespace.
func bindings(lead *domain.Lead) map[string]interface{} {
	return map[string]interface{}{
		"lead": map[string]interface{}{
			"name":    lead.Name,
			"email":   lead.Email,
			"company": lead.Company,
		},
	}
}

// RenderEmail expands the template's subject and bodies for one lead.
func (r *Renderer) RenderEmail(tpl *domain.EmailTemplate, lead *domain.Lead) (subject, htmlBody, textBody string, err error) {
	vars := bindings(lead)

	subject, err = r.render(tpl.Subject, vars)
	if err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	htmlBody, err = r.render(tpl.HTMLContent, vars)
	if err != nil {
		return "", "", "", fmt.Errorf("render html body: %w", err)
	}
	if strings.TrimSpace(tpl.TextContent) != "" {
		textBody, err = r.render(tpl.TextContent, vars)
		if err != nil {
			return "", "", "", fmt.Errorf("render text body: %w", err)
		}
	}
	return subject, htmlBody, textBody, nil
}

func (r *Renderer) render(source string, vars map[string]interface{}) (string, error) {
	if cached, ok := r.cache.Load(source); ok {
		return cached.(*liquid.Template).RenderString(vars)
	}
	tpl, err := r.engine.ParseString(source)
	if err != nil {
		return "", err
	}
	r.cache.Store(source, tpl)
	return tpl.RenderString(vars)
}
