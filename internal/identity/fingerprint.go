package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// maxPathSafeLength is the hard cap on a path-safe job id. It is
// separate from the 64-character UniqueJobID digest, which exists for
// downstream identifiers capped at 64 bytes.
const maxPathSafeLength = 256

var unsafePathChar = regexp.MustCompile(`[^A-Za-z0-9.\-_(),=]`)

// UniqueJobID returns a deterministic 64-character lowercase hex digest
// of name and args. Two calls with the same name and an args map
// containing the same key/value pairs — regardless of insertion order —
// always return the same digest.
func UniqueJobID(name string, args map[string]any) string {
	sum := sha256.Sum256([]byte(signature(name, args)))
	return hex.EncodeToString(sum[:])
}

// signature renders "name(k1 = v1, k2 = v2, ...)" with keys sorted
// ascending and undefined (nil) values rendered as the literal "undef".
func signature(name string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s = %s", k, renderValue(args[k])))
	}

	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

func renderValue(v any) string {
	if v == nil {
		return "undef"
	}
	return fmt.Sprintf("%v", v)
}

// PathSafeJobID mints a fresh client-side job id: a random UUIDv4 with
// its hyphens stripped, concatenated with UniqueJobID(name, args),
// truncated to 256 characters, with any character outside
// [A-Za-z0-9.\-_(),=] replaced by '_'.
//
// It is called once per submission by the client, so two calls for the
// same (name, args) pair yield different ids — the UUID half supplies
// the uniqueness, the hash half keeps the id traceable back to the call
// that produced it.
func PathSafeJobID(name string, args map[string]any) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "") + UniqueJobID(name, args)
	if len(raw) > maxPathSafeLength {
		raw = raw[:maxPathSafeLength]
	}
	return unsafePathChar.ReplaceAllString(raw, "_")
}
