// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/nod32mirror/nod32tools/internal/fsutil"
	"github.com/nod32mirror/nod32tools/internal/logging"
	"github.com/tidwall/gjson"
)

// FileMode is the permission of a written keys file.
const FileMode os.FileMode = 0o600

// ParseError reports a keys file that exists but cannot be trusted. Its
// content is never overwritten by a load-modify-save cycle.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "keys store: " + e.Reason
	}
	return fmt.Sprintf("keys store %s: %s", e.Path, e.Reason)
}

// Load reads the keys file at path. A missing file is an empty store.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debugf("keys store %s does not exist yet", path)
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read keys store: %w", err)
	}

	s, err := Unmarshal(data)
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.Path = path
	}
	return s, err
}

// Unmarshal decodes a keys document. Duplicate records and versions are
// folded together in first-seen order; a duplicate without versions keeps
// the folded record covering every version. A blank document is an empty
// store.
func Unmarshal(data []byte) (*Store, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Reason: "not valid JSON"}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &ParseError{Reason: "top level is not an object"}
	}

	s := New()
	for _, b := range Buckets {
		field := root.Get(string(b))
		if !field.Exists() || field.Type == gjson.Null {
			continue
		}
		if !field.IsArray() {
			return nil, &ParseError{Reason: fmt.Sprintf("%q is not an array", b)}
		}
		for i, entry := range field.Array() {
			rec, err := decodeRecord(entry)
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("%s[%d]: %v", b, i, err)}
			}
			if err := s.fold(b, rec); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// fold adds a decoded record to s, merging it into an earlier duplicate.
func (s *Store) fold(b Bucket, rec Record) error {
	existing, ok := s.Find(b, rec.Login, rec.Password)
	if !ok {
		_, err := s.Upsert(b, rec.Login, rec.Password, rec.Versions)
		return err
	}
	switch {
	case len(existing.Versions) == 0:
		// already covers every version
	case len(rec.Versions) == 0:
		existing.Versions = []string{}
	default:
		existing.AddVersions(rec.Versions...)
	}
	return nil
}

func decodeRecord(entry gjson.Result) (Record, error) {
	if !entry.IsObject() {
		return Record{}, errors.New("entry is not an object")
	}
	login, password := entry.Get("login"), entry.Get("password")
	if login.Type != gjson.String || password.Type != gjson.String {
		return Record{}, errors.New("login and password must be strings")
	}

	if !utf8.ValidString(login.Str) || !utf8.ValidString(password.Str) {
		return Record{}, errors.New("login and password must be valid UTF-8")
	}

	rec := Record{Login: login.Str, Password: password.Str}
	versions := entry.Get("versions")
	if !versions.Exists() || versions.Type == gjson.Null {
		return rec, nil
	}
	if !versions.IsArray() {
		return Record{}, errors.New("versions is not an array")
	}
	for _, v := range versions.Array() {
		switch v.Type {
		case gjson.String, gjson.Number:
			if !utf8.ValidString(v.String()) {
				return Record{}, errors.New("version must be valid UTF-8")
			}
			rec.Versions = append(rec.Versions, v.String())
		default:
			return Record{}, fmt.Errorf("unsupported version value %s", v.Raw)
		}
	}
	return rec, nil
}

type document struct {
	Valid   []Record `json:"valid"`
	Invalid []Record `json:"invalid"`
}

func normalized(recs []Record) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		if r.Versions == nil {
			r.Versions = []string{}
		}
		out[i] = r
	}
	return out
}

// Marshal renders s as indented JSON with a trailing newline. Empty buckets
// and version lists are written as [].
func Marshal(s *Store) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Valid: normalized(s.Valid), Invalid: normalized(s.Invalid)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save replaces the keys file at path with s.
func Save(s *Store, path string) error {
	data, err := Marshal(s)
	if err != nil {
		return fmt.Errorf("could not encode keys store: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, FileMode); err != nil {
		return fmt.Errorf("could not write keys store: %w", err)
	}
	logging.Debugf("keys store %s written (%d valid, %d invalid)", path, len(s.Valid), len(s.Invalid))
	return nil
}
