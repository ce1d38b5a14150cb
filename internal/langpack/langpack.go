// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

// Package langpack edits the line-oriented *.lng translation files of the
// mirror, where the same line number holds the same string in every
// language.
package langpack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nod32mirror/nod32tools/internal/fsutil"
	"github.com/nod32mirror/nod32tools/internal/logging"
)

// Ext is the extension of a language file.
const Ext = ".lng"

// ErrInvalidLine is returned for line numbers below 1.
var ErrInvalidLine = errors.New("line number must be 1 or greater")

// Files lists the language files directly inside dir, sorted by name.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// DeleteLine removes the 1-based line from every language file in dir and
// returns the files that were rewritten. Files with fewer lines are left
// as they are.
func DeleteLine(dir string, line int) ([]string, error) {
	if line < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLine, line)
	}
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}

	var changed []string
	for _, path := range files {
		ok, err := deleteLineInFile(path, line)
		if err != nil {
			return changed, err
		}
		if ok {
			changed = append(changed, path)
			logging.Debugf("removed line %d from %s", line, path)
		}
	}
	return changed, nil
}

func deleteLineInFile(path string, line int) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("could not read %s: %w", path, err)
	}

	// SplitAfter keeps each terminator with its line, so CRLF files and a
	// missing final newline survive untouched.
	lines := strings.SplitAfter(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if line > len(lines) {
		return false, nil
	}
	lines = append(lines[:line-1], lines[line:]...)

	if err := fsutil.WriteFileAtomic(path, []byte(strings.Join(lines, "")), info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}
