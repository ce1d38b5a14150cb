// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nod32mirror/nod32tools/internal/keystore"
)

const (
	trialKey = "TRIAL-1234567890:abc1234567"
	eavKey   = "EAV-0123456789:abcdefghij"
)

func loadStore(t *testing.T, path string) *keystore.Store {
	t.Helper()
	s, err := keystore.Load(path)
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	return s
}

func (e testEnv) keyArgs(args ...string) []string {
	out := append([]string{"key"}, args...)
	return append(out, "--config", e.config, "--keys-file", e.keysFile)
}

func TestKeyImportCmd(t *testing.T) {
	env := setupTestEnv(t)

	out := mustExecute(t, nil, env.keyArgs("import", "-k", trialKey, "-k", eavKey)...)
	t.Run("should print a summary", func(t *testing.T) {
		if !strings.Contains(out, "Imported 2 new, merged 0, unchanged 0") {
			t.Fatalf("unexpected output %q", out)
		}
		if !strings.Contains(out, "10, 12") {
			t.Fatalf("expected enabled versions in output, got %q", out)
		}
	})

	t.Run("should store keys for the enabled versions", func(t *testing.T) {
		s := loadStore(t, env.keysFile)
		want := []keystore.Record{
			{Login: "TRIAL-1234567890", Password: "abc1234567", Versions: []string{"10", "12"}},
			{Login: "EAV-0123456789", Password: "abcdefghij", Versions: []string{"10", "12"}},
		}
		if diff := cmp.Diff(want, s.Valid); diff != "" {
			t.Fatalf("valid bucket mismatch (-want +got):\n%s", diff)
		}
		if len(s.Invalid) != 0 {
			t.Fatalf("expected empty invalid bucket, got %v", s.Invalid)
		}
	})

	t.Run("should be idempotent", func(t *testing.T) {
		before, _ := os.ReadFile(env.keysFile)
		out := mustExecute(t, nil, env.keyArgs("import", "-k", trialKey)...)
		if !strings.Contains(out, "unchanged 1") {
			t.Fatalf("unexpected output %q", out)
		}
		after, _ := os.ReadFile(env.keysFile)
		if string(before) != string(after) {
			t.Fatalf("store changed on re-import")
		}
	})
}

func TestKeyImportCmd_FromStdin(t *testing.T) {
	env := setupTestEnv(t)
	stdin := strings.NewReader("# keys from the reseller\n" + trialKey + "\n\n  " + eavKey + "  \n")

	out := mustExecute(t, stdin, env.keyArgs("import")...)
	if !strings.Contains(out, "Imported 2 new") {
		t.Fatalf("unexpected output %q", out)
	}
	if n := len(loadStore(t, env.keysFile).Valid); n != 2 {
		t.Fatalf("expected 2 valid records, got %d", n)
	}
}

func TestKeyImportCmd_InvalidBucket(t *testing.T) {
	env := setupTestEnv(t)
	mustExecute(t, nil, env.keyArgs("import", "-k", trialKey, "--bucket", "invalid")...)

	s := loadStore(t, env.keysFile)
	if len(s.Valid) != 0 || len(s.Invalid) != 1 {
		t.Fatalf("expected the key in the invalid bucket, got %+v", s)
	}
}

func TestKeyImportCmd_Failures(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no keys", []string{"import"}},
		{"bad key", []string{"import", "-k", "BAD-KEY"}},
		{"malformed with custom pattern", []string{"import", "-k", "EAV-0123456789", "--pattern", "EAV-"}},
		{"bad pattern", []string{"import", "-k", trialKey, "--pattern", "("}},
		{"unknown bucket", []string{"import", "-k", trialKey, "--bucket", "archive"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			if _, err := executeCommand(t, nil, env.keyArgs(tt.args...)...); err == nil {
				t.Fatalf("expected an error")
			}
			if _, err := os.Stat(env.keysFile); !os.IsNotExist(err) {
				t.Fatalf("store must not be created, stat err = %v", err)
			}
		})
	}
}

func TestKeyImportCmd_NoVersionsWarns(t *testing.T) {
	env := setupTestEnv(t)
	env.config = filepath.Join(env.dir, "nod32ms.conf")
	writeFile(t, env.config, "[ESET]\nversion10=0\n")

	out, err := executeCommand(t, nil, env.keyArgs("import", "-k", trialKey)...)
	if err != nil {
		t.Fatalf("expected success without enabled versions, got %v", err)
	}
	if !strings.Contains(out, "No versions enabled") {
		t.Fatalf("expected a warning, got %q", out)
	}
	if _, err := os.Stat(env.keysFile); !os.IsNotExist(err) {
		t.Fatalf("store must not be created")
	}
}

func TestKeyImportCmd_LegacyINI(t *testing.T) {
	env := setupTestEnv(t)
	env.config = filepath.Join(env.dir, "nod32ms.conf")
	writeFile(t, env.config, "[ESET]\nversion3 = 1 ; old\nversion4 = 0\n\n[ESET.VERSIONS.11]\nmirror = true\n")

	out := mustExecute(t, nil, env.keyArgs("import", "-k", trialKey)...)
	if !strings.Contains(out, "11, 3") {
		t.Fatalf("unexpected versions in %q", out)
	}
}

func TestKeyListCmd(t *testing.T) {
	env := setupTestEnv(t)
	mustExecute(t, nil, env.keyArgs("import", "-k", trialKey)...)
	mustExecute(t, nil, env.keyArgs("invalidate", eavKey, "--version", "12")...)

	t.Run("masks passwords", func(t *testing.T) {
		out := mustExecute(t, nil, env.keyArgs("list")...)
		if !strings.Contains(out, "TRIAL-1234567890") || !strings.Contains(out, "ab********") {
			t.Fatalf("unexpected list output %q", out)
		}
		if strings.Contains(out, "abc1234567") {
			t.Fatalf("password printed in clear text: %q", out)
		}
		if !strings.Contains(out, "EAV-0123456789") {
			t.Fatalf("expected the invalid key listed, got %q", out)
		}
	})

	t.Run("shows passwords on request", func(t *testing.T) {
		out := mustExecute(t, nil, env.keyArgs("list", "--show-passwords", "--bucket", "valid")...)
		if !strings.Contains(out, "abc1234567") || strings.Contains(out, "EAV-0123456789") {
			t.Fatalf("unexpected list output %q", out)
		}
	})

	t.Run("filters by version", func(t *testing.T) {
		out := mustExecute(t, nil, env.keyArgs("list", "--bucket", "valid", "--version", "11")...)
		if !strings.Contains(out, "No keys stored") {
			t.Fatalf("expected no keys for version 11, got %q", out)
		}
	})

	t.Run("rejects unknown bucket", func(t *testing.T) {
		if _, err := executeCommand(t, nil, env.keyArgs("list", "--bucket", "archive")...); err == nil {
			t.Fatalf("expected an error")
		}
	})
}

func TestKeyInvalidateAndForgetCmd(t *testing.T) {
	env := setupTestEnv(t)
	mustExecute(t, nil, env.keyArgs("import", "-k", trialKey)...)

	out := mustExecute(t, nil, env.keyArgs("invalidate", trialKey, "--version", "10", "--remove-valid")...)
	if !strings.Contains(out, "Marked TRIAL-1234567890 invalid for version 10") {
		t.Fatalf("unexpected output %q", out)
	}
	s := loadStore(t, env.keysFile)
	if !s.IsInvalid("TRIAL-1234567890", "abc1234567", "10") || s.IsValid("TRIAL-1234567890", "abc1234567", "10") {
		t.Fatalf("key still valid for 10: %+v", s)
	}
	if !s.IsValid("TRIAL-1234567890", "abc1234567", "12") {
		t.Fatalf("key lost version 12: %+v", s)
	}

	out = mustExecute(t, nil, env.keyArgs("invalidate", trialKey, "--version", "10")...)
	if !strings.Contains(out, "already invalid") {
		t.Fatalf("unexpected output %q", out)
	}

	mustExecute(t, nil, env.keyArgs("forget", trialKey, "--version", "12")...)
	if n := len(loadStore(t, env.keysFile).Valid); n != 0 {
		t.Fatalf("expected the valid record removed, %d left", n)
	}

	out = mustExecute(t, nil, env.keyArgs("forget", trialKey, "--version", "12")...)
	if !strings.Contains(out, "has no version 12") {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := executeCommand(t, nil, env.keyArgs("forget", trialKey)...); err == nil {
		t.Fatalf("expected an error without --version")
	}
	if _, err := executeCommand(t, nil, env.keyArgs("invalidate", "no-separator", "--version", "10")...); err == nil {
		t.Fatalf("expected an error for a malformed key")
	}
}

func TestKeyBackupAndRestoreCmd(t *testing.T) {
	env := setupTestEnv(t)
	mustExecute(t, nil, env.keyArgs("import", "-k", trialKey, "-k", eavKey)...)
	original, err := os.ReadFile(env.keysFile)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}

	backup := filepath.Join(env.dir, "backups", "keys.json.zst")
	out := mustExecute(t, nil, env.keyArgs("backup", backup)...)
	if !strings.Contains(out, "Backed up 2 valid and 0 invalid") {
		t.Fatalf("unexpected output %q", out)
	}

	mustExecute(t, nil, env.keyArgs("forget", trialKey, "--version", "10")...)
	mustExecute(t, nil, env.keyArgs("forget", trialKey, "--version", "12")...)

	out = mustExecute(t, nil, env.keyArgs("restore", backup)...)
	if !strings.Contains(out, "Restored 2 valid") {
		t.Fatalf("unexpected output %q", out)
	}
	restored, _ := os.ReadFile(env.keysFile)
	if diff := cmp.Diff(string(original), string(restored)); diff != "" {
		t.Fatalf("restored store differs (-want +got):\n%s", diff)
	}

	if _, err := executeCommand(t, nil, env.keyArgs("restore", filepath.Join(env.dir, "missing.zst"))...); err == nil {
		t.Fatalf("expected an error for a missing backup")
	}
}
