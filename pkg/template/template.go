// Package template applies named text templates stored under
// .store/templates/<name>.json to produce intent prompts or scaffold
// files (spec.md §6 "templates/<name>.json template definitions").
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/vexd/vexd/pkg/vexerrors"
)

// Definition is the on-disk shape of a template file.
type Definition struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Load reads a template definition by name from dir.
func Load(dir, name string) (Definition, error) {
	path := filepath.Join(dir, name+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Definition{}, fmt.Errorf("%w: template %q", vexerrors.ErrNotFound, name)
		}
		return Definition{}, fmt.Errorf("%w: read template %q: %v", vexerrors.ErrIOFailure, name, err)
	}
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return Definition{}, fmt.Errorf("%w: parse template %q: %v", vexerrors.ErrIOFailure, name, err)
	}
	return def, nil
}

// List returns the names of every template definition in dir.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list templates: %v", vexerrors.ErrIOFailure, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	return names, nil
}

// Apply renders def.Body against data using text/template.
func Apply(def Definition, data any) (string, error) {
	tmpl, err := template.New(def.Name).Parse(def.Body)
	if err != nil {
		return "", fmt.Errorf("%w: parse template %q: %v", vexerrors.ErrConfigInvalid, def.Name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %q: %w", def.Name, err)
	}
	return buf.String(), nil
}
