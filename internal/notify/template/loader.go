package template

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"
	"text/template"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed en/*.tmpl es/*.tmpl
var templateFS embed.FS

// Language selects the message wording
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
)

// Languages lists every built-in language
var Languages = []Language{English, Spanish}

// Tag returns the x/text language tag
func (l Language) Tag() language.Tag {
	switch l {
	case Spanish:
		return language.Spanish
	default:
		return language.English
	}
}

// Name identifies a template
type Name string

const (
	Changed  Name = "changed"
	Stagnant Name = "stagnant"
	Subject  Name = "subject"
)

// Data is what every template renders from
type Data struct {
	Kind     string
	Label    string
	Address  string
	Previous string
	Version  string
	Elapsed  time.Duration
	Step     int
	At       time.Time
}

// Loader manages notification templates
type Loader struct {
	logger    *zap.Logger
	templates map[Language]*template.Template
	custom    map[Language]map[Name]*template.Template
	mu        sync.RWMutex
}

// NewLoader creates new template loader
func NewLoader(logger *zap.Logger) (*Loader, error) {
	loader := &Loader{
		logger:    logger,
		templates: make(map[Language]*template.Template),
		custom:    make(map[Language]map[Name]*template.Template),
	}

	if err := loader.loadDefaultTemplates(); err != nil {
		return nil, err
	}

	return loader, nil
}

// loadDefaultTemplates loads templates from embedded filesystem
func (t *Loader) loadDefaultTemplates() error {
	for _, lang := range Languages {
		dir := string(lang)
		tmpl := template.New("").Funcs(templateFuncs(lang))

		entries, err := templateFS.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read template directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			content, err := templateFS.ReadFile(path.Join(dir, entry.Name()))
			if err != nil {
				return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
			}

			name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
			if _, err := tmpl.New(name).Parse(string(content)); err != nil {
				return fmt.Errorf("failed to parse template %s: %w", entry.Name(), err)
			}
		}

		t.templates[lang] = tmpl
	}

	return nil
}

// SetCustomTemplate overrides a built-in template for every language
func (t *Loader) SetCustomTemplate(name Name, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, lang := range Languages {
		tmpl, err := template.New(string(name)).Funcs(templateFuncs(lang)).Parse(content)
		if err != nil {
			return fmt.Errorf("invalid template %s: %w", name, err)
		}
		if _, ok := t.custom[lang]; !ok {
			t.custom[lang] = make(map[Name]*template.Template)
		}
		t.custom[lang][name] = tmpl
	}

	t.logger.Debug("Custom template set", zap.String("name", string(name)))
	return nil
}

// GetTemplate returns the template for given language and name
func (t *Loader) GetTemplate(lang Language, name Name) (*template.Template, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// Check custom templates first
	if tmpl, ok := t.custom[lang][name]; ok {
		return tmpl, nil
	}

	if tmpl, ok := t.templates[lang]; ok {
		if found := tmpl.Lookup(string(name)); found != nil {
			return found, nil
		}
	}

	return nil, fmt.Errorf("template not found: %s/%s", lang, name)
}

// Render executes a template and trims surrounding whitespace
func (t *Loader) Render(lang Language, name Name, data *Data) (string, error) {
	tmpl, err := t.GetTemplate(lang, name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s/%s: %w", lang, name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// templateFuncs returns the functions available in all templates of lang
func templateFuncs(lang Language) template.FuncMap {
	return template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format(time.RFC3339)
		},
		"formatDuration": func(d time.Duration) string {
			return FormatDuration(lang, d)
		},
		"toTitle": func(s string) string {
			return cases.Title(lang.Tag()).String(s)
		},
		"upper": strings.ToUpper,
	}
}
