package service

import (
	"regexp"
	"strings"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// TemplateService handles template rendering and validation
type TemplateService interface {
	Render(template string, vars map[string]string) string
	ValidateTemplate(template string) error
	ExtractPlaceholders(template string) []string
	Unresolved(template string, vars map[string]string) []string
}

type templateService struct {
	placeholderPattern *regexp.Regexp
}

// NewTemplateService creates a new template service
func NewTemplateService() TemplateService {
	return &templateService{
		placeholderPattern: regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`),
	}
}

// Render replaces placeholders in template with values from vars.
// Placeholders without a value are left untouched.
func (s *templateService) Render(template string, vars map[string]string) string {
	return s.placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		if value, exists := vars[match[1:len(match)-1]]; exists {
			return value
		}
		return match
	})
}

// ValidateTemplate checks that a template has content to send
func (s *templateService) ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return models.ErrInvalidInput("message is required")
	}
	return nil
}

// ExtractPlaceholders returns the distinct placeholders found in template, in order of appearance
func (s *templateService) ExtractPlaceholders(template string) []string {
	matches := s.placeholderPattern.FindAllStringSubmatch(template, -1)
	placeholders := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))

	for _, match := range matches {
		if len(match) > 1 && !seen[match[1]] {
			seen[match[1]] = true
			placeholders = append(placeholders, match[1])
		}
	}

	return placeholders
}

// Unresolved returns the placeholders of template that vars has no value for
func (s *templateService) Unresolved(template string, vars map[string]string) []string {
	unresolved := []string{}
	for _, p := range s.ExtractPlaceholders(template) {
		if _, ok := vars[p]; !ok {
			unresolved = append(unresolved, p)
		}
	}
	return unresolved
}

// recipientVars merges the per-recipient name over a campaign's static context
func recipientVars(static map[string]string, recipient models.Recipient) map[string]string {
	vars := make(map[string]string, len(static)+1)
	for k, v := range static {
		vars[k] = v
	}
	vars["name"] = recipient.Name
	return vars
}
