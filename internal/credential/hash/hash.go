// Package hash computes the canonical content digest of a credential.
//
// The digest is the value anchored on the external ledger and the value
// recomputed when auditing for tampering, so the encoding must be fully
// deterministic: identical payload content always yields the identical hash
// regardless of the order fields were added in.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Payload is the named semantic content of a credential: student, program
// and award fields plus the issuing institution's identity. Identifiers,
// timestamps and bookkeeping state are excluded so the hash survives
// lifecycle changes.
type Payload map[string]string

// Digest canonicalizes the payload and returns its SHA-256 as lowercase hex.
//
// Canonical form: field names sorted lexicographically, serialized as a
// compact JSON object (no insignificant whitespace, JSON string escaping for
// values). Empty-valued fields are dropped so "absent" and "empty" encode
// identically.
func Digest(p Payload) string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(mustJSONString(k))
		b.WriteByte(':')
		b.Write(mustJSONString(p[k]))
	}
	b.WriteByte('}')

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func mustJSONString(s string) []byte {
	// json.Marshal on a string cannot fail.
	out, _ := json.Marshal(s)
	return out
}
