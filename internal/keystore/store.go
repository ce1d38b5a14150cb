// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keystore keeps the license keys known to the mirror in a JSON
// document with a "valid" and an "invalid" bucket. Within a bucket a key
// (login and password) appears at most once and its version list only ever
// grows, unless a version is removed explicitly.
package keystore

import "fmt"

// Store is the in-memory form of the keys file.
type Store struct {
	Valid   []Record
	Invalid []Record
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) bucket(b Bucket) (*[]Record, error) {
	switch b {
	case Valid:
		return &s.Valid, nil
	case Invalid:
		return &s.Invalid, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownBucket, b)
}

// Records returns the records of bucket b in stored order.
func (s *Store) Records(b Bucket) []Record {
	recs, err := s.bucket(b)
	if err != nil {
		return nil
	}
	return *recs
}

// Len counts the records of both buckets.
func (s *Store) Len() int {
	return len(s.Valid) + len(s.Invalid)
}

// Find returns the record for login/password in bucket b. The pointer is
// only good until the bucket is next modified.
func (s *Store) Find(b Bucket, login, password string) (*Record, bool) {
	recs, err := s.bucket(b)
	if err != nil {
		return nil, false
	}
	for i := range *recs {
		if (*recs)[i].matches(login, password) {
			return &(*recs)[i], true
		}
	}
	return nil, false
}

// Upsert merges versions into the record for login/password in bucket b, or
// appends a new record when there is none. It reports whether the store
// changed; repeating the same call is a no-op.
func (s *Store) Upsert(b Bucket, login, password string, versions []string) (bool, error) {
	recs, err := s.bucket(b)
	if err != nil {
		return false, err
	}
	if rec, ok := s.Find(b, login, password); ok {
		return rec.AddVersions(versions...), nil
	}
	rec := Record{Login: login, Password: password, Versions: []string{}}
	rec.AddVersions(versions...)
	*recs = append(*recs, rec)
	return true, nil
}

// Keys returns the records of bucket b that cover version. An empty
// version returns the whole bucket.
func (s *Store) Keys(b Bucket, version string) []Record {
	recs := s.Records(b)
	if version == "" {
		return recs
	}
	var out []Record
	for _, r := range recs {
		if r.HasVersion(version) {
			out = append(out, r)
		}
	}
	return out
}

// MarkInvalid records that login/password failed for version.
func (s *Store) MarkInvalid(login, password, version string) bool {
	changed, _ := s.Upsert(Invalid, login, password, []string{version})
	return changed
}

// RemoveVersion drops version from the record in bucket b and deletes the
// record once no versions are left.
func (s *Store) RemoveVersion(b Bucket, login, password, version string) (bool, error) {
	recs, err := s.bucket(b)
	if err != nil {
		return false, err
	}
	for i := range *recs {
		rec := &(*recs)[i]
		if !rec.matches(login, password) {
			continue
		}
		if !rec.RemoveVersion(version) {
			return false, nil
		}
		if len(rec.Versions) == 0 {
			*recs = append((*recs)[:i], (*recs)[i+1:]...)
		}
		return true, nil
	}
	return false, nil
}

// IsInvalid reports whether login/password is marked invalid for version.
// An empty version asks about any version.
func (s *Store) IsInvalid(login, password, version string) bool {
	rec, ok := s.Find(Invalid, login, password)
	if !ok {
		return false
	}
	return version == "" || rec.HasVersion(version)
}

// IsValid reports whether login/password is usable for version: present in
// the valid bucket for it and not marked invalid for it.
func (s *Store) IsValid(login, password, version string) bool {
	rec, ok := s.Find(Valid, login, password)
	if !ok {
		return false
	}
	if version == "" {
		return true
	}
	return rec.HasVersion(version) && !s.IsInvalid(login, password, version)
}
