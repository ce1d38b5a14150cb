// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package mirrorconf

import (
	"fmt"
	"strings"
)

// Truthy normalises the mirror flag. Older configs spell it "1", "true" or
// "True"; YAML may also hand over a bool or a number.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch t {
		case "1", "true", "True":
			return true
		}
	case int:
		return t == 1
	case int64:
		return t == 1
	case uint64:
		return t == 1
	case float64:
		return t == 1
	}
	return false
}

// EnabledVersions returns the version identifiers whose mirror flag is set,
// in document order and without duplicates. It understands three layouts:
//
//	eset.versions.version_overrides.<version>.mirror   (nod32ms.yaml)
//	eset.versions.overrides.<version>.mirror           (older nod32ms.yaml)
//	[ESET.VERSIONS.<version>] mirror=1                 (section per version)
//	[ESET] version<N>=1                                (oldest nod32ms.conf)
//
// Anything that is not a mapping where one is expected contributes nothing.
func EnabledVersions(doc *Document) []string {
	var out []string
	seen := map[string]bool{}
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	versions, _ := doc.SectionAt("eset", "versions")

	overrides := overridesSection(versions)
	for _, v := range overrides.Keys() {
		if sec, ok := overrides.Section(v); ok && Truthy(sec.Value("mirror")) {
			add(v)
		}
	}

	for _, v := range versions.Keys() {
		if v == "overrides" || v == "version_overrides" {
			continue
		}
		if sec, ok := versions.Section(v); ok && Truthy(sec.Value("mirror")) {
			add(v)
		}
	}

	eset, _ := doc.Section("eset")
	for _, key := range eset.Keys() {
		if !strings.HasPrefix(key, "version") {
			continue
		}
		if Truthy(eset.Value(key)) {
			add(strings.TrimPrefix(key, "version"))
		}
	}

	return out
}

// overridesSection returns eset.versions.version_overrides when it holds any
// entry, otherwise eset.versions.overrides.
func overridesSection(versions *Document) *Document {
	if sec, ok := versions.Section("version_overrides"); ok && sec.Len() > 0 {
		return sec
	}
	sec, _ := versions.Section("overrides")
	return sec
}

// IsEnabled reports whether version is among EnabledVersions.
func IsEnabled(doc *Document, version string) bool {
	for _, v := range EnabledVersions(doc) {
		if v == version {
			return true
		}
	}
	return false
}

// Platforms returns the platforms mirrored for version. all is true when the
// config does not narrow the list.
func Platforms(doc *Document, version string) (list []string, all bool) {
	return versionList(doc, version, "platforms")
}

// Channels returns the update channels mirrored for version. all is true
// when the config does not narrow the list.
func Channels(doc *Document, version string) (list []string, all bool) {
	return versionList(doc, version, "channels")
}

// versionList reads the per-version override of name and falls back to
// eset.versions.<name>.
func versionList(doc *Document, version, name string) ([]string, bool) {
	versions, _ := doc.SectionAt("eset", "versions")
	perVersion, _ := overridesSection(versions).Section(version)

	for _, sec := range []*Document{perVersion, versions} {
		v, ok := sec.Get(name)
		if !ok {
			continue
		}
		if list := normalizeList(v); len(list) > 0 {
			return list, false
		}
	}
	return nil, true
}

// normalizeList accepts a sequence or a comma separated string. Booleans,
// nil and empty input yield nil, meaning "no restriction".
func normalizeList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			if item == nil {
				continue
			}
			raw = append(raw, fmt.Sprint(item))
		}
	default:
		return nil
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
