package article

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/corvid-labs/fuda/internal/apperr"
	"github.com/corvid-labs/fuda/internal/frontmatter"
	"github.com/corvid-labs/fuda/internal/scope"
)

// TemplateInfo describes one available template.
type TemplateInfo struct {
	Name     string      `json:"name"`
	Scope    scope.Scope `json:"scope"`
	FilePath string      `json:"filePath"`
}

// ListTemplates returns the templates visible from the current directory.
// Lookup is local-first: a local template shadows a global one of the same
// name.
func (s *Service) ListTemplates() ([]TemplateInfo, error) {
	seen := make(map[string]struct{})
	var templates []TemplateInfo

	for _, root := range s.scopes.ReadRoots() {
		paths := s.scopes.PathsFor(root.Path)
		files, err := s.store.ListFiles(paths.Templates, "*.md", false)
		if err != nil {
			return nil, err
		}
		for _, filePath := range files {
			name := strings.TrimSuffix(filepath.Base(filePath), ".md")
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			templates = append(templates, TemplateInfo{Name: name, Scope: root.Scope, FilePath: filePath})
		}
	}

	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates, nil
}

// ReadTemplate loads a template by name, local scope first.
func (s *Service) ReadTemplate(name string) (TemplateInfo, string, error) {
	for _, root := range s.scopes.ReadRoots() {
		paths := s.scopes.PathsFor(root.Path)
		filePath := filepath.Join(paths.Templates, name+".md")
		if !s.store.Exists(filePath) {
			continue
		}
		content, err := s.store.ReadFile(filePath)
		if err != nil {
			return TemplateInfo{}, "", err
		}
		return TemplateInfo{Name: name, Scope: root.Scope, FilePath: filePath}, string(content), nil
	}
	return TemplateInfo{}, "", apperr.Newf(apperr.CodeTemplateNotFound, "template %q not found", name)
}

// CreateTemplate writes a new template into the given scope root.
func (s *Service) CreateTemplate(name, content, scopeRoot string) (string, error) {
	paths := s.scopes.PathsFor(scopeRoot)
	if err := s.store.MkdirAll(paths.Templates); err != nil {
		return "", err
	}
	if content == "" {
		content = "---\ntitle: \"\"\ntags: []\n---\n"
	}
	filePath := filepath.Join(paths.Templates, name+".md")
	if err := s.store.WriteFile(filePath, []byte(content)); err != nil {
		return "", err
	}
	return filePath, nil
}

// templateBody expands the named template into an article body, falling
// back to a bare heading when the template does not exist.
func (s *Service) templateBody(name, title, folder string) string {
	_, content, err := s.ReadTemplate(name)
	if err != nil {
		return "# " + title
	}
	expanded := ExpandTemplate(content, TemplateVariables(title, folder))
	// Templates may carry their own frontmatter; only the body is reused.
	if _, body, err := frontmatter.Parse(expanded); err == nil {
		return body
	}
	return strings.TrimSpace(expanded)
}

// ExpandTemplate substitutes {{key}} placeholders.
func ExpandTemplate(content string, vars map[string]string) string {
	for key, value := range vars {
		content = strings.ReplaceAll(content, "{{"+key+"}}", value)
	}
	return content
}

// TemplateVariables builds the standard substitution set for creation.
func TemplateVariables(title, folder string) map[string]string {
	now := time.Now().UTC()
	return map[string]string{
		"title":    title,
		"date":     now.Format("2006-01-02"),
		"datetime": now.Format(time.RFC3339),
		"folder":   folder,
	}
}
