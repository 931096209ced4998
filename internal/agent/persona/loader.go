// Package persona loads character definitions from the personas directory.
//
// A persona file is {dir}/{name}.json, .yaml or .yml. JSON files may carry
// comments and trailing commas. Directives may use {{char}} and {{user}},
// which are replaced with the character and user names at load time.
package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mNandhu/PACE/internal/agent/model"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

var extensions = []string{".json", ".yaml", ".yml"}

// ErrNotFound is returned when no file exists for the requested persona.
var ErrNotFound = errors.New("persona not found")

// Load reads the named persona and substitutes placeholders for userName.
func Load(dir, name, userName string) (*model.Persona, error) {
	path, err := find(dir, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona %s: %w", path, err)
	}

	var p model.Persona
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(jsonc.ToJSON(data), &p)
	default:
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("parse persona %s: %w", path, err)
	}

	p.Name = name
	if strings.TrimSpace(p.CharacterName) == "" {
		p.CharacterName = capitalize(name)
	}
	replacer := strings.NewReplacer("{{char}}", p.CharacterName, "{{user}}", userName)
	for i, d := range p.Directives {
		p.Directives[i] = replacer.Replace(d)
	}

	logx.Info().Str("persona", name).Str("path", path).Int("directives", len(p.Directives)).Msg("Persona loaded")
	return &p, nil
}

func find(dir, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid persona name %q", name)
	}
	for _, ext := range extensions {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNotFound, name, dir)
}

// Available lists persona names found in dir, sorted. A missing directory
// yields an empty list.
func Available(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logx.Warn().Str("dir", dir).Msg("Personas directory not found")
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan personas: %w", err)
	}

	seen := map[string]bool{}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, known := range extensions {
			if ext == known {
				n := strings.TrimSuffix(e.Name(), ext)
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
