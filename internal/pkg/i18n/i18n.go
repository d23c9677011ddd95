package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Translations map[string]string

var (
	locales = make(map[string]Translations)
	mu      sync.RWMutex
)

// LoadTranslations reads <localePath>/<locale>/notifications.yaml for every
// locale directory. Directories without the file are skipped.
func LoadTranslations(localePath string) error {
	mu.Lock()
	defer mu.Unlock()

	entries, err := os.ReadDir(localePath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		locale := entry.Name()
		filePath := filepath.Join(localePath, locale, "notifications.yaml")

		data, err := os.ReadFile(filePath)
		if err != nil {
			continue
		}

		var catalogue struct {
			Notifications Translations `yaml:"NOTIFICATIONS"`
		}
		if err := yaml.Unmarshal(data, &catalogue); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filePath, err)
		}

		locales[locale] = catalogue.Notifications
	}

	return nil
}

func Translate(locale, key string) string {
	mu.RLock()
	defer mu.RUnlock()

	if trans, ok := locales[locale]; ok {
		if val, ok := trans[key]; ok {
			return val
		}
	}

	if locale != "en" {
		if trans, ok := locales["en"]; ok {
			if val, ok := trans[key]; ok {
				return val
			}
		}
	}

	return key
}

// Format translates key and substitutes {name} placeholders from vars.
func Format(locale, key string, vars map[string]string) string {
	text := Translate(locale, key)
	if len(vars) == 0 {
		return text
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
