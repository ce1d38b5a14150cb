// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

// Package i18n provides the translated user-facing messages of the CLI. It
// uses go-i18n to load the YAML message files embedded from 'locales'.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	current   string
)

// Init loads every embedded locale and selects lang. Unknown languages fall
// back to English at lookup time.
func Init(lang string) {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		_, _ = bundle.ParseMessageFileBytes(data, f.Name())
	}

	current = lang
	localizer = i18n.NewLocalizer(bundle, lang, language.English.String())
}

// SetLang changes the active language.
func SetLang(lang string) {
	Init(lang)
}

// GetLang returns the language passed to the last Init.
func GetLang() string {
	return current
}

// AvailableLocales lists the language tags that have an embedded message file.
func AvailableLocales() []string {
	files, _ := fs.ReadDir(localeFS, "locales")
	var out []string
	for _, f := range files {
		name := strings.TrimSuffix(f.Name(), ".yaml")
		name = strings.TrimPrefix(name, "active.")
		if name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// T translates messageID. Extra args are applied fmt-style to the translated
// text. A missing message ID is returned unchanged.
func T(messageID string, args ...any) string {
	if localizer == nil {
		Init("en")
	}
	// A message missing from the active locale still comes back in English
	// along with a not-found error, so only the empty result matters here.
	msg, _ := localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if msg == "" {
		msg = messageID
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
