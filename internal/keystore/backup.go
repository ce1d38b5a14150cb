// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Backup writes a zstd-compressed snapshot of the keys file at path to w.
// The file is parsed first, so a corrupt store is refused rather than
// archived. A missing file produces a snapshot of an empty store.
func Backup(path string, w io.Writer) (*Store, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	data, err := Marshal(s)
	if err != nil {
		return nil, err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("could not write backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("could not finish backup: %w", err)
	}
	return s, nil
}

// Restore reads a snapshot written by Backup and replaces the keys file at
// path with it. The snapshot must decode to a valid store before the file
// is touched.
func Restore(r io.Reader, path string) (*Store, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("could not read backup: %w", err)
	}
	s, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := Save(s, path); err != nil {
		return nil, err
	}
	return s, nil
}
