// Copyright (c) 2026 nod32tools authors
// nod32tools - ESET NOD32 mirror key and langpack tools
// This source code is licensed under the MIT license found in the LICENSE file.

// Package credential validates and parses LOGIN:PASSWORD license keys.
package credential

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultPattern recognises EAV-/TRIAL- logins with a ten character password.
const DefaultPattern = `((EAV|TRIAL)-[0-9]{10}):+?([a-z0-9]{10})`

// Separator splits login from password.
const Separator = ":"

var (
	// ErrMalformed is returned for a key with no separator or an empty half.
	ErrMalformed = errors.New("malformed credential")
	// ErrInvalidPattern is returned when the validation pattern does not compile.
	ErrInvalidPattern = errors.New("invalid credential pattern")
)

// ValidationError names a credential that does not match the pattern.
type ValidationError struct {
	Key     string
	Pattern string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("key %s does not match pattern %s", e.Key, e.Pattern)
}

// Credential is a login/password pair. Two credentials are the same key
// when both fields are equal.
type Credential struct {
	Login    string
	Password string
}

// String renders the key as LOGIN:PASSWORD.
func (c Credential) String() string {
	return c.Login + Separator + c.Password
}

// Equal reports whether c and o identify the same key.
func (c Credential) Equal(o Credential) bool {
	return c.Login == o.Login && c.Password == o.Password
}

// Redacted renders the key with its password masked, for logs and listings.
func (c Credential) Redacted() string {
	return c.Login + Separator + Mask(c.Password)
}

// Mask keeps the first two characters of a secret and stars the rest.
func Mask(secret string) string {
	if len(secret) <= 2 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:2] + strings.Repeat("*", len(secret)-2)
}

// Parse splits s on its first separator.
func Parse(s string) (Credential, error) {
	login, password, ok := strings.Cut(s, Separator)
	if !ok {
		return Credential{}, fmt.Errorf("%w: %q has no %q separator", ErrMalformed, s, Separator)
	}
	if login == "" || password == "" {
		return Credential{}, fmt.Errorf("%w: %q has an empty login or password", ErrMalformed, s)
	}
	return Credential{Login: login, Password: password}, nil
}

// ParseAll parses every key, stopping at the first malformed one.
func ParseAll(keys []string) ([]Credential, error) {
	out := make([]Credential, 0, len(keys))
	for _, k := range keys {
		c, err := Parse(k)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Validator checks raw key strings against a regular expression anchored at
// the start of the string.
type Validator struct {
	re *regexp.Regexp
}

// NewValidator compiles pattern. An empty pattern selects DefaultPattern.
func NewValidator(pattern string) (*Validator, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return &Validator{re: re}, nil
}

// Pattern returns the source of the compiled expression.
func (v *Validator) Pattern() string {
	return v.re.String()
}

// Validate accepts key when the pattern matches at offset zero. Trailing
// text after the match is allowed.
func (v *Validator) Validate(key string) error {
	// The leftmost match starts at 0 whenever any match does.
	loc := v.re.FindStringIndex(key)
	if loc == nil || loc[0] != 0 {
		return &ValidationError{Key: key, Pattern: v.re.String()}
	}
	return nil
}

// ValidateAll returns the error for the first key that fails validation.
func (v *Validator) ValidateAll(keys []string) error {
	for _, k := range keys {
		if err := v.Validate(k); err != nil {
			return err
		}
	}
	return nil
}
