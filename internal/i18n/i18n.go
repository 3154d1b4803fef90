// Package i18n resolves user-facing strings from flat YAML locale files.
package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Translator maps language codes to key/value message tables. Lookups fall
// back to the default language and finally to the key itself, so a missing
// translation degrades to English text instead of an empty string.
type Translator struct {
	messages map[string]map[string]string
	fallback string
}

// NewTranslator reads every *.yaml file directly under dir. The file name is
// the language code (en.yaml, hu.yaml) and the content is a flat string map.
func NewTranslator(dir, fallback string) (*Translator, error) {
	t := &Translator{
		messages: make(map[string]map[string]string),
		fallback: fallback,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read locale dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".yaml")
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", lang, err)
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", lang, err)
		}
		t.messages[lang] = table
	}

	if _, ok := t.messages[fallback]; !ok {
		t.messages[fallback] = make(map[string]string)
	}
	return t, nil
}

// NewFallback builds a translator with no loaded tables. Every lookup
// returns the key unchanged.
func NewFallback(fallback string) *Translator {
	return &Translator{
		messages: map[string]map[string]string{fallback: {}},
		fallback: fallback,
	}
}

// T translates key for lang, falling back to the default language and then
// to the key itself.
func (t *Translator) T(lang, key string) string {
	if lang != "" {
		if msg, ok := t.messages[lang][key]; ok {
			return msg
		}
	}
	if msg, ok := t.messages[t.fallback][key]; ok {
		return msg
	}
	return key
}

// Has reports whether a locale table was loaded for lang.
func (t *Translator) Has(lang string) bool {
	_, ok := t.messages[lang]
	return ok
}
