// Package canon produces canonical JSON encodings and the idempotency
// / cache keys derived from them.
//
// DESIGN: Arguments are decoded into generic Go values and re-encoded
// with sorted object keys and no insignificant whitespace, so that two
// JSON payloads differing only in key order or formatting hash
// identically. Key derivation follows the spec's
// SHA-256(backend || 0 || tool || 0 || canonical_json(args)) scheme,
// using NUL as a field separator so no backend/tool name can forge a
// collision by embedding the separator text.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// JSON returns the canonical JSON encoding of v: object keys sorted
// recursively, no extraneous whitespace. v is typically a
// json.RawMessage or a decoded map[string]any/[]any/scalar.
func JSON(v any) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return encode(normalized)
}

// RawJSON canonicalizes a raw JSON payload (e.g. request arguments).
func RawJSON(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		raw = []byte("null")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return JSON(v)
}

// Key computes the opaque cache/idempotency key for
// (backend, tool, args), where args is raw JSON (may be nil/empty).
func Key(backend, tool string, args []byte) (string, error) {
	canonArgs, err := RawJSON(args)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write([]byte(tool))
	h.Write([]byte{0})
	h.Write(canonArgs)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// encode writes v as compact JSON. json.Marshal already sorts
// map[string]any keys lexicographically, which is what gives equal
// values equal bytes regardless of source key order.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
