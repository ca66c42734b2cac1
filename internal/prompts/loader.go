// Package prompts loads the embedded model prompt templates.
// Templates live in JSON files keyed by name and use {{.Key}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
)

//go:embed *.json
var promptFiles embed.FS

var placeholder = regexp.MustCompile(`\{\{\.([A-Za-z]+)\}\}`)

// Library holds every template file, parsed once.
type Library struct {
	files map[string]map[string]string
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
	defaultErr  error
)

// Load parses every *.json template file in fsys.
func Load(fsys fs.FS) (*Library, error) {
	names, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, eris.Wrap(err, "prompts: list files")
	}

	lib := &Library{files: make(map[string]map[string]string, len(names))}
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, eris.Wrapf(err, "prompts: read %s", name)
		}
		var templates map[string]string
		if err := json.Unmarshal(raw, &templates); err != nil {
			return nil, eris.Wrapf(err, "prompts: parse %s", name)
		}
		lib.files[name] = templates
	}
	return lib, nil
}

func embedded() (*Library, error) {
	defaultOnce.Do(func() {
		defaultLib, defaultErr = Load(promptFiles)
	})
	return defaultLib, defaultErr
}

// Get returns the template stored under key in file.
func (l *Library) Get(file, key string) (string, error) {
	templates, ok := l.files[file]
	if !ok {
		return "", eris.Errorf("prompts: no template file %s", file)
	}
	t, ok := templates[key]
	if !ok {
		return "", eris.Errorf("prompts: key %q not found in %s", key, file)
	}
	return t, nil
}

// Render fills a template and fails if the template names a placeholder
// that data does not provide.
func (l *Library) Render(file, key string, data map[string]string) (string, error) {
	t, err := l.Get(file, key)
	if err != nil {
		return "", err
	}

	// Checked against the template: values may contain braces.
	var missing []string
	for _, m := range placeholder.FindAllStringSubmatch(t, -1) {
		if _, ok := data[m[1]]; !ok {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", eris.Errorf("prompts: %s/%s missing values for %s", file, key, strings.Join(missing, ", "))
	}
	return Format(t, data), nil
}

// Keys returns the template names in file, sorted.
func (l *Library) Keys(file string) ([]string, error) {
	templates, ok := l.files[file]
	if !ok {
		return nil, eris.Errorf("prompts: no template file %s", file)
	}
	keys := make([]string, 0, len(templates))
	for k := range templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get reads a template from the embedded files, e.g. Get("chat.json", "analyst").
func Get(file, key string) (string, error) {
	lib, err := embedded()
	if err != nil {
		return "", err
	}
	return lib.Get(file, key)
}

// MustGet is Get for templates that must exist.
func MustGet(file, key string) string {
	t, err := Get(file, key)
	if err != nil {
		panic(fmt.Sprintf("prompts: %v", err))
	}
	return t
}

// Render fills an embedded template.
func Render(file, key string, data map[string]string) (string, error) {
	lib, err := embedded()
	if err != nil {
		return "", err
	}
	return lib.Render(file, key, data)
}

// Format substitutes {{.Key}} placeholders in one pass. Unknown keys are
// left in place.
func Format(template string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(ph string) string {
		name := ph[3 : len(ph)-2]
		if v, ok := data[name]; ok {
			return v
		}
		return ph
	})
}
