// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter is a tool to check for missing or orphaned translation keys.
// It scans the Go source code for i18n.T() calls and compares them against
// the YAML locale files to ensure consistency.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location stores the file and line number of a found string.
type Location struct {
	Filepath string
	Line     int
}

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "active.en.yaml"
	projectRoot   = "."
)

// report is the outcome of one linter run.
type report struct {
	UsedKeys     int
	PrimaryKeys  int
	Orphaned     []string
	Missing      map[string][]string // locale file -> keys
	Untranslated map[string][]Location
}

// failed reports whether a locale lacks a key of the primary locale.
func (r report) failed() bool {
	for _, keys := range r.Missing {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func main() {
	fmt.Println("🔍 Running i18n linter...")
	r, err := lint(projectRoot, localesDir, primaryLocale)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	printReport(os.Stdout, r)
	if r.failed() {
		os.Exit(1)
	}
}

// lint compares the keys used under root with the locale files in dir.
func lint(root, dir, primary string) (report, error) {
	r := report{Missing: make(map[string][]string)}

	usedKeys, err := findUsedKeys(root)
	if err != nil {
		return r, fmt.Errorf("error finding used keys: %w", err)
	}
	r.UsedKeys = len(usedKeys)

	localeFiles, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return r, fmt.Errorf("error finding locale files: %w", err)
	}

	primaryKeys, err := loadKeysFromLocale(filepath.Join(dir, primary))
	if err != nil {
		return r, fmt.Errorf("error loading primary locale '%s': %w", primary, err)
	}
	r.PrimaryKeys = len(primaryKeys)

	r.Untranslated, err = findUntranslatedStrings(root, usedKeys, primaryKeys)
	if err != nil {
		return r, fmt.Errorf("error finding untranslated strings: %w", err)
	}

	for key := range primaryKeys {
		if _, exists := usedKeys[key]; !exists {
			r.Orphaned = append(r.Orphaned, key)
		}
	}
	sort.Strings(r.Orphaned)

	for _, file := range localeFiles {
		if filepath.Base(file) == primary {
			continue
		}
		secondaryKeys, err := loadKeysFromLocale(file)
		if err != nil {
			return r, fmt.Errorf("error loading %s: %w", file, err)
		}
		missing := []string{}
		for key := range primaryKeys {
			if _, exists := secondaryKeys[key]; !exists {
				missing = append(missing, key)
			}
		}
		sort.Strings(missing)
		r.Missing[file] = missing
	}
	return r, nil
}

func printReport(w io.Writer, r report) {
	fmt.Fprintf(w, "✅ Found %d unique translation keys used in source code.\n", r.UsedKeys)
	fmt.Fprintf(w, "✅ Loaded %d keys from the primary locale.\n\n", r.PrimaryKeys)

	fmt.Fprintln(w, "--- Checking for Orphaned Keys (in primary locale but not used in code) ---")
	for _, key := range r.Orphaned {
		fmt.Fprintf(w, "  - Orphaned: %s\n", key)
	}
	if len(r.Orphaned) == 0 {
		fmt.Fprintln(w, "  ✨ None found.")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "--- Checking for Missing Keys (in primary locale but not in others) ---")
	files := make([]string, 0, len(r.Missing))
	for f := range r.Missing {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		fmt.Fprintf(w, "Checking %s:\n", f)
		for _, key := range r.Missing[f] {
			fmt.Fprintf(w, "  - Missing: %s\n", key)
		}
		if len(r.Missing[f]) == 0 {
			fmt.Fprintln(w, "  ✨ All keys present.")
		}
	}

	fmt.Fprintln(w, "\n--- Checking for Potentially Untranslated Strings ---")
	if len(r.Untranslated) > 0 {
		literals := make([]string, 0, len(r.Untranslated))
		for literal := range r.Untranslated {
			literals = append(literals, literal)
		}
		sort.Strings(literals)
		for _, literal := range literals {
			paths := r.Untranslated[literal]
			fmt.Fprintf(w, "  - Potential: \"%s\" (found in %s:%d)\n", literal, paths[0].Filepath, paths[0].Line)
		}
		// Reported as a warning only.
	} else {
		fmt.Fprintln(w, "  ✨ None found.")
	}

	fmt.Fprintln(w, "\n--- Linter Finished ---")
	switch {
	case r.failed():
		fmt.Fprintln(w, "❌ Found issues that need to be addressed.")
	case len(r.Orphaned) > 0:
		fmt.Fprintln(w, "⚠️  Found orphaned keys. Please consider removing them.")
	default:
		fmt.Fprintln(w, "✅ All translation files are consistent!")
	}
}

// findUsedKeys scans all .go files for i18n.T("key") calls.
func findUsedKeys(root string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	// Regex to find:
	// 1. i18n.T("some.key")
	// 2. string literals that look like translation keys (e.g. msg := "cli.key.x")
	re := regexp.MustCompile(`i18n\.T\("([^"]+)"|\"([a-z]+\.[a-z\._]+)\"`)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != root && skipDir(info.Name()) {
			return filepath.SkipDir
		}
		if !info.IsDir() && strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			for _, match := range re.FindAllStringSubmatch(string(content), -1) {
				// match[1] is from i18n.T(), match[2] is from the general string literal
				if match[1] != "" {
					keys[match[1]] = struct{}{}
				} else if match[2] != "" {
					keys[match[2]] = struct{}{}
				}
			}
		}
		return nil
	})

	return keys, err
}

// skipDir excludes the tools tree and directories the Go tool ignores.
func skipDir(name string) bool {
	return name == "tools" || (len(name) > 1 && (name[0] == '_' || name[0] == '.'))
}

// findUntranslatedStrings scans for hardcoded strings that might need translation.
func findUntranslatedStrings(root string, usedKeys, allKeys map[string]struct{}) (map[string][]Location, error) {
	untranslated := make(map[string][]Location)
	// String literals passed as first argument to a call.
	re := regexp.MustCompile(`([a-zA-Z0-9_]+\.)?([a-zA-Z0-9_]+)\("([^"]+)"`)
	// Calls whose text is not shown to users, or already formatted elsewhere.
	blacklist := map[string]struct{}{
		"Print": {}, "Println": {}, "Printf": {}, "Fatal": {}, "Fatalf": {}, "WriteString": {},
		"Debugf": {}, "Errorf": {}, "Join": {}, "Getenv": {}, "Setenv": {}, "Sprintf": {},
	}
	keyRe := regexp.MustCompile(`^[a-z_]+\.[a-z\._]+$`)

	reAllCaps := regexp.MustCompile(`^[A-Z_]+$`)
	reFormatString := regexp.MustCompile(`^[\s%.,:;()#\d\w-]*%[\s\w-]*$`)
	// Flag names, settings keys and file names.
	reIdentifier := regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != root && skipDir(info.Name()) {
			return filepath.SkipDir
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		for i, line := range strings.Split(string(content), "\n") {
			for _, match := range re.FindAllStringSubmatch(line, -1) {
				funcName := match[2]
				literal := match[3]

				if _, isBlacklisted := blacklist[funcName]; isBlacklisted {
					continue
				}
				if _, exists := allKeys[literal]; exists {
					continue
				}
				if _, exists := usedKeys[literal]; exists {
					continue
				}
				switch {
				case keyRe.MatchString(literal),
					len(literal) < 4,
					strings.HasPrefix(literal, "file:"), strings.HasPrefix(literal, "http"),
					reAllCaps.MatchString(literal),
					reIdentifier.MatchString(literal),
					reFormatString.MatchString(literal) && !strings.Contains(literal, " "):
					continue
				}

				untranslated[literal] = append(untranslated[literal], Location{Filepath: path, Line: i + 1})
			}
		}
		return nil
	})

	return untranslated, err
}

// loadKeysFromLocale reads a YAML file and returns a flat map of its keys.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}

	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML converts a nested map into a flat set of dot-separated keys.
func flattenYAML(prefix string, node any, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			newPrefix := k
			if prefix != "" {
				newPrefix = prefix + "." + k
			}
			flattenYAML(newPrefix, val, keys)
		}
	case []any:
		for i, val := range v {
			flattenYAML(fmt.Sprintf("%s[%d]", prefix, i), val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
