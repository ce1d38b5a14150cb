// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keyimport adds license keys to the keys store for every version
// the mirror configuration enables. All inputs are checked before the store
// is loaded, so a rejected run never touches the file.
package keyimport

import (
	"context"
	"errors"
	"fmt"

	"github.com/nod32mirror/nod32tools/internal/credential"
	"github.com/nod32mirror/nod32tools/internal/keystore"
	"github.com/nod32mirror/nod32tools/internal/logging"
	"github.com/nod32mirror/nod32tools/internal/mirrorconf"
)

// ErrNoVersions means the mirror configuration enables no version. It is
// not a failure of the tool: nothing is written and callers warn.
var ErrNoVersions = errors.New("no versions enabled in mirror configuration")

// ErrNoKeys is returned when Run is called without any key.
var ErrNoKeys = errors.New("no keys given")

// Options describe one import run. Every path is explicit.
type Options struct {
	MirrorConfig string
	KeysFile     string
	// Pattern overrides credential.DefaultPattern when non-empty.
	Pattern string
	Bucket  keystore.Bucket
	Keys    []string
}

// Result summarises what Run did to the store.
type Result struct {
	Versions  []string
	Added     int
	Merged    int
	Unchanged int
	Written   bool
}

// Run imports opts.Keys into the store for every enabled version.
func Run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	if len(opts.Keys) == 0 {
		return res, ErrNoKeys
	}
	bucket := opts.Bucket
	if bucket == "" {
		bucket = keystore.Valid
	}
	if _, err := keystore.ParseBucket(string(bucket)); err != nil {
		return res, err
	}

	doc, err := mirrorconf.Load(opts.MirrorConfig)
	if err != nil {
		return res, err
	}
	res.Versions = mirrorconf.EnabledVersions(doc)
	if len(res.Versions) == 0 {
		return res, ErrNoVersions
	}
	logging.Debugf("enabled versions: %v", res.Versions)

	validator, err := credential.NewValidator(opts.Pattern)
	if err != nil {
		return res, err
	}
	if err := validator.ValidateAll(opts.Keys); err != nil {
		return res, err
	}
	creds, err := credential.ParseAll(opts.Keys)
	if err != nil {
		return res, err
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	store, err := keystore.Load(opts.KeysFile)
	if err != nil {
		return res, err
	}

	for _, c := range creds {
		_, existed := store.Find(bucket, c.Login, c.Password)
		changed, err := store.Upsert(bucket, c.Login, c.Password, res.Versions)
		if err != nil {
			return res, err
		}
		switch {
		case !changed:
			res.Unchanged++
		case existed:
			res.Merged++
		default:
			res.Added++
		}
		logging.Debugf("key %s: existed=%t changed=%t", c.Redacted(), existed, changed)
	}

	if res.Added+res.Merged == 0 {
		return res, nil
	}
	if err := keystore.Save(store, opts.KeysFile); err != nil {
		return res, err
	}
	res.Written = true
	return res, nil
}

// Invalidate records key as failing for version in the invalid bucket. With
// removeValid the version is also dropped from the key's valid record.
func Invalidate(ctx context.Context, keysFile, key, version string, removeValid bool) (bool, error) {
	if version == "" {
		return false, fmt.Errorf("a version is required")
	}
	c, err := credential.Parse(key)
	if err != nil {
		return false, err
	}
	return update(ctx, keysFile, func(s *keystore.Store) (bool, error) {
		changed := s.MarkInvalid(c.Login, c.Password, version)
		if removeValid {
			removed, err := s.RemoveVersion(keystore.Valid, c.Login, c.Password, version)
			if err != nil {
				return false, err
			}
			changed = changed || removed
		}
		return changed, nil
	})
}

// Forget removes version from key in bucket, deleting the record once it
// has no versions left.
func Forget(ctx context.Context, keysFile string, bucket keystore.Bucket, key, version string) (bool, error) {
	if version == "" {
		return false, fmt.Errorf("a version is required")
	}
	c, err := credential.Parse(key)
	if err != nil {
		return false, err
	}
	return update(ctx, keysFile, func(s *keystore.Store) (bool, error) {
		return s.RemoveVersion(bucket, c.Login, c.Password, version)
	})
}

// update loads the store, applies fn and saves only when fn changed it.
func update(ctx context.Context, keysFile string, fn func(*keystore.Store) (bool, error)) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s, err := keystore.Load(keysFile)
	if err != nil {
		return false, err
	}
	changed, err := fn(s)
	if err != nil || !changed {
		return false, err
	}
	if err := keystore.Save(s, keysFile); err != nil {
		return false, err
	}
	return true, nil
}
