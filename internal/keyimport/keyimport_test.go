// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

package keyimport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nod32mirror/nod32tools/internal/credential"
	"github.com/nod32mirror/nod32tools/internal/keystore"
	"github.com/nod32mirror/nod32tools/internal/mirrorconf"
)

const (
	goodKey  = "TRIAL-1234567890:abc1234567"
	otherKey = "EAV-0000000001:zzzzzzzzzz"
)

type fixture struct {
	dir      string
	conf     string
	keysFile string
}

func newFixture(t *testing.T, conf string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:      dir,
		conf:     filepath.Join(dir, "nod32ms.yaml"),
		keysFile: filepath.Join(dir, "data", "keys.json"),
	}
	if err := os.WriteFile(f.conf, []byte(conf), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return f
}

func (f fixture) opts(keys ...string) Options {
	return Options{MirrorConfig: f.conf, KeysFile: f.keysFile, Keys: keys}
}

func (f fixture) seed(t *testing.T, content string) []byte {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(f.keysFile), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(f.keysFile, []byte(content), 0o600); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return []byte(content)
}

func (f fixture) assertUnchanged(t *testing.T, want []byte) {
	t.Helper()
	got, err := os.ReadFile(f.keysFile)
	if want == nil {
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("store should not exist, got err=%v content=%s", err, got)
		}
		return
	}
	if !bytes.Equal(want, got) {
		t.Fatalf("store modified:\n%s\n---\n%s", want, got)
	}
}

const twoVersions = `
eset:
  versions:
    overrides:
      "10": {mirror: "1"}
      "11": {mirror: "true"}
      "12": {mirror: "0"}
`

func TestRun_ImportsIntoEmptyStore(t *testing.T) {
	f := newFixture(t, twoVersions)

	res, err := Run(context.Background(), f.opts(goodKey))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Added != 1 || !res.Written || !cmp.Equal(res.Versions, []string{"10", "11"}) {
		t.Fatalf("unexpected result %+v", res)
	}

	s, err := keystore.Load(f.keysFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := &keystore.Store{Valid: []keystore.Record{{Login: "TRIAL-1234567890", Password: "abc1234567", Versions: []string{"10", "11"}}}}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("store mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_MergesAndIsIdempotent(t *testing.T) {
	f := newFixture(t, twoVersions)
	f.seed(t, `{"valid": [{"login": "TRIAL-1234567890", "password": "abc1234567", "versions": ["10"]}], "invalid": []}`)

	res, err := Run(context.Background(), f.opts(goodKey, goodKey, otherKey))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Merged != 1 || res.Added != 1 || res.Unchanged != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
	after, _ := os.ReadFile(f.keysFile)

	res, err = Run(context.Background(), f.opts(goodKey, otherKey))
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if res.Written || res.Unchanged != 2 {
		t.Fatalf("second run should be a no-op, got %+v", res)
	}
	f.assertUnchanged(t, after)

	s, _ := keystore.Load(f.keysFile)
	if rec, _ := s.Find(keystore.Valid, "TRIAL-1234567890", "abc1234567"); !cmp.Equal(rec.Versions, []string{"10", "11"}) {
		t.Fatalf("unexpected versions %v", rec.Versions)
	}
}

func TestRun_InvalidBucket(t *testing.T) {
	f := newFixture(t, twoVersions)
	opts := f.opts(goodKey)
	opts.Bucket = keystore.Invalid

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	s, _ := keystore.Load(f.keysFile)
	if len(s.Valid) != 0 || len(s.Invalid) != 1 {
		t.Fatalf("expected key in invalid bucket, got %+v", s)
	}

	opts.Bucket = "trusted"
	if _, err := Run(context.Background(), opts); !errors.Is(err, keystore.ErrUnknownBucket) {
		t.Fatalf("expected ErrUnknownBucket, got %v", err)
	}
}

func TestRun_FailuresLeaveStoreUntouched(t *testing.T) {
	seed := `{"valid": [{"login": "EAV-0000000001", "password": "zzzzzzzzzz", "versions": ["9"]}], "invalid": []}`

	tests := []struct {
		name    string
		conf    string
		keys    []string
		pattern string
		check   func(error) bool
	}{
		{
			name:  "pattern mismatch",
			conf:  twoVersions,
			keys:  []string{goodKey, "BAD-KEY"},
			check: func(err error) bool { var ve *credential.ValidationError; return errors.As(err, &ve) && ve.Key == "BAD-KEY" },
		},
		{
			name:    "missing separator",
			conf:    twoVersions,
			keys:    []string{"NOSEPARATOR"},
			pattern: `[A-Z]+`,
			check:   func(err error) bool { return errors.Is(err, credential.ErrMalformed) },
		},
		{
			name:    "bad pattern",
			conf:    twoVersions,
			keys:    []string{goodKey},
			pattern: `(`,
			check:   func(err error) bool { return errors.Is(err, credential.ErrInvalidPattern) },
		},
		{
			name:  "no versions",
			conf:  "eset:\n  versions:\n    overrides:\n      '10': {mirror: '0'}\n",
			keys:  []string{goodKey},
			check: func(err error) bool { return errors.Is(err, ErrNoVersions) },
		},
		{
			name:  "empty config",
			conf:  "",
			keys:  []string{goodKey},
			check: func(err error) bool { return errors.Is(err, ErrNoVersions) },
		},
		{
			name:  "config root is a list",
			conf:  "- a\n- b\n",
			keys:  []string{goodKey},
			check: func(err error) bool { return errors.Is(err, ErrNoVersions) },
		},
		{
			name:  "versions not a mapping",
			conf:  "eset: 5\n",
			keys:  []string{goodKey},
			check: func(err error) bool { return errors.Is(err, ErrNoVersions) },
		},
		{
			name:  "broken config",
			conf:  "eset: [",
			keys:  []string{goodKey},
			check: func(err error) bool { var ce *mirrorconf.ConfigError; return errors.As(err, &ce) },
		},
		{
			name:  "no keys",
			conf:  twoVersions,
			check: func(err error) bool { return errors.Is(err, ErrNoKeys) },
		},
	}

	for _, tt := range tests {
		for _, seeded := range []bool{false, true} {
			name := tt.name
			if seeded {
				name += "/seeded"
			}
			t.Run(name, func(t *testing.T) {
				f := newFixture(t, tt.conf)
				var before []byte
				if seeded {
					before = f.seed(t, seed)
				}
				opts := f.opts(tt.keys...)
				opts.Pattern = tt.pattern

				_, err := Run(context.Background(), opts)
				if err == nil || !tt.check(err) {
					t.Fatalf("unexpected error %v", err)
				}
				f.assertUnchanged(t, before)
			})
		}
	}
}

func TestRun_MissingConfigIsFatal(t *testing.T) {
	dir := t.TempDir()
	opts := Options{MirrorConfig: filepath.Join(dir, "missing.yaml"), KeysFile: filepath.Join(dir, "keys.json"), Keys: []string{goodKey}}
	_, err := Run(context.Background(), opts)
	var ce *mirrorconf.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestRun_CorruptStoreIsFatal(t *testing.T) {
	f := newFixture(t, twoVersions)
	before := f.seed(t, "TRIAL-1234567890:abc1234567:10\n")

	_, err := Run(context.Background(), f.opts(goodKey))
	var pe *keystore.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	f.assertUnchanged(t, before)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, twoVersions)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, f.opts(goodKey)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	f.assertUnchanged(t, nil)
}

func TestInvalidateAndForget(t *testing.T) {
	f := newFixture(t, twoVersions)
	if _, err := Run(context.Background(), f.opts(goodKey)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	ctx := context.Background()

	changed, err := Invalidate(ctx, f.keysFile, goodKey, "10", true)
	if err != nil || !changed {
		t.Fatalf("Invalidate = %v, %v", changed, err)
	}
	s, _ := keystore.Load(f.keysFile)
	if !s.IsInvalid("TRIAL-1234567890", "abc1234567", "10") {
		t.Fatalf("key not marked invalid")
	}
	if rec, _ := s.Find(keystore.Valid, "TRIAL-1234567890", "abc1234567"); !cmp.Equal(rec.Versions, []string{"11"}) {
		t.Fatalf("version 10 should be removed from valid record, got %v", rec.Versions)
	}

	changed, err = Forget(ctx, f.keysFile, keystore.Valid, goodKey, "11")
	if err != nil || !changed {
		t.Fatalf("Forget = %v, %v", changed, err)
	}
	s, _ = keystore.Load(f.keysFile)
	if len(s.Valid) != 0 {
		t.Fatalf("record should be gone, got %+v", s.Valid)
	}

	changed, err = Forget(ctx, f.keysFile, keystore.Valid, goodKey, "11")
	if err != nil || changed {
		t.Fatalf("forgetting twice should be a no-op, got %v, %v", changed, err)
	}

	if _, err := Invalidate(ctx, f.keysFile, "broken", "10", false); !errors.Is(err, credential.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := Forget(ctx, f.keysFile, keystore.Valid, goodKey, ""); err == nil {
		t.Fatalf("expected error for empty version")
	}
}
