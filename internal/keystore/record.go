// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nod32mirror/nod32tools/internal/credential"
)

// Bucket partitions the store by trust status.
type Bucket string

const (
	Valid   Bucket = "valid"
	Invalid Bucket = "invalid"
)

// Buckets lists every bucket in file order.
var Buckets = []Bucket{Valid, Invalid}

// ErrUnknownBucket is returned for a bucket name other than valid/invalid.
var ErrUnknownBucket = errors.New("unknown bucket")

// ParseBucket converts a user supplied name into a Bucket.
func ParseBucket(s string) (Bucket, error) {
	switch b := Bucket(s); b {
	case Valid, Invalid:
		return b, nil
	}
	return "", fmt.Errorf("%w %q (want %q or %q)", ErrUnknownBucket, s, Valid, Invalid)
}

// Record is one stored key and the versions it is known for.
type Record struct {
	Login    string   `json:"login"`
	Password string   `json:"password"`
	Versions []string `json:"versions"`
}

// Credential returns the identity of the record.
func (r Record) Credential() credential.Credential {
	return credential.Credential{Login: r.Login, Password: r.Password}
}

func (r Record) matches(login, password string) bool {
	return r.Login == login && r.Password == password
}

// HasVersion reports whether the record covers version. A record without
// any versions covers all of them.
func (r Record) HasVersion(version string) bool {
	return len(r.Versions) == 0 || slices.Contains(r.Versions, version)
}

// AddVersions appends the versions not already present, in the given order.
// It reports whether anything was added.
func (r *Record) AddVersions(versions ...string) bool {
	added := false
	for _, v := range versions {
		if slices.Contains(r.Versions, v) {
			continue
		}
		r.Versions = append(r.Versions, v)
		added = true
	}
	return added
}

// RemoveVersion drops version from the record.
func (r *Record) RemoveVersion(version string) bool {
	before := len(r.Versions)
	r.Versions = slices.DeleteFunc(r.Versions, func(v string) bool { return v == version })
	return len(r.Versions) != before
}
