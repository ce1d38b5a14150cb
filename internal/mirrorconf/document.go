// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

// Package mirrorconf reads the mirror configuration document (nod32ms.yaml,
// or the older INI nod32ms.conf) and answers which product versions are
// enabled for mirroring.
//
// Every supported format is decoded into a Document: an ordered tree of
// lower-cased keys whose values are scalars, lists or nested Documents.
// The version logic only ever sees Documents, so adding a format means
// adding a Decoder.
package mirrorconf

import "strings"

type entry struct {
	key   string
	value any
}

// Document is an ordered, case-insensitive mapping. Values are scalars
// (string, int, float64, bool, nil), []any, or *Document. All methods are
// safe on a nil *Document, which behaves as an empty one.
type Document struct {
	entries []entry
	index   map[string]int
}

// NewDocument returns an empty Document.
func NewDocument() *Document {
	return &Document{index: map[string]int{}}
}

func normKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// Set stores value under key. Replacing an existing key keeps its position.
func (d *Document) Set(key string, value any) {
	k := normKey(key)
	if d.index == nil {
		d.index = map[string]int{}
	}
	if i, ok := d.index[k]; ok {
		d.entries[i].value = value
		return
	}
	d.index[k] = len(d.entries)
	d.entries = append(d.entries, entry{key: k, value: value})
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	i, ok := d.index[normKey(key)]
	if !ok {
		return nil, false
	}
	return d.entries[i].value, true
}

// Value is Get without the presence flag.
func (d *Document) Value(key string) any {
	v, _ := d.Get(key)
	return v
}

// Section returns the nested Document under key. A scalar under key is not
// a section.
func (d *Document) Section(key string) (*Document, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	sec, ok := v.(*Document)
	return sec, ok
}

// EnsureSection returns the section under key, creating it (and replacing
// any scalar stored there) when needed.
func (d *Document) EnsureSection(key string) *Document {
	if sec, ok := d.Section(key); ok {
		return sec
	}
	sec := NewDocument()
	d.Set(key, sec)
	return sec
}

// SectionAt walks path through nested sections.
func (d *Document) SectionAt(path ...string) (*Document, bool) {
	cur := d
	for _, p := range path {
		next, ok := cur.Section(p)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// Lookup returns the value at a dotted path such as "eset.versions".
func (d *Document) Lookup(path string) (any, bool) {
	parts := strings.Split(path, ".")
	parent, ok := d.SectionAt(parts[:len(parts)-1]...)
	if !ok {
		return nil, false
	}
	return parent.Get(parts[len(parts)-1])
}

// Keys returns the keys in document order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.key
	}
	return keys
}

// Len is the number of direct entries.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}
