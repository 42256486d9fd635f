package catalog

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-struk/internal/common"
)

// Service serves the immutable template and catalog reference data.
type Service struct {
	templates   map[string]Template
	order       []string
	maxQuantity map[Category]int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	// Source overrides the embedded template definitions when non-empty.
	Source []byte
	// MaxQuantity overrides the per-category line quantity cap.
	MaxQuantity map[Category]int
}

// NewService parses the template definitions and indexes them by id.
func NewService(cfg ServiceConfig) (*Service, error) {
	source := cfg.Source
	if len(source) == 0 {
		source = builtinTemplates
	}
	templates, err := Parse(source)
	if err != nil {
		return nil, err
	}
	svc := &Service{
		templates:   make(map[string]Template, len(templates)),
		order:       make([]string, 0, len(templates)),
		maxQuantity: map[Category]int{},
	}
	for _, t := range templates {
		svc.templates[t.ID] = t
		svc.order = append(svc.order, t.ID)
	}
	for c, q := range cfg.MaxQuantity {
		if q > 0 {
			svc.maxQuantity[c] = q
		}
	}
	return svc, nil
}

// Templates lists templates in definition order.
func (s *Service) Templates() []Template {
	out := make([]Template, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.templates[id])
	}
	return out
}

// DefaultTemplateID returns the first defined template.
func (s *Service) DefaultTemplateID() string {
	if len(s.order) == 0 {
		return ""
	}
	return s.order[0]
}

// Template looks up a template by id.
func (s *Service) Template(id string) (Template, error) {
	t, ok := s.templates[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Template{}, common.NewAppError("NOT_FOUND", "template not found", http.StatusNotFound, nil)
	}
	return t, nil
}

// MaxQuantity returns the configured per-line quantity cap for a category.
func (s *Service) MaxQuantity(c Category) int {
	if q, ok := s.maxQuantity[c]; ok {
		return q
	}
	return MaxQuantity(c)
}
