// Package fingerprint derives the stable identity of an analysis node from
// its ancestor name chain and its source text.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Compute hashes the name sequence of a node's ancestor chain (root first,
// the node itself last) together with the node's source text, and returns
// the digest as a fixed-length lowercase hex string.
//
// Names are joined with a newline, which callers must guarantee never
// appears inside a name, and the name block is terminated with a NUL byte
// so it cannot bleed into the source text. Any change to either input
// produces a different result; identical inputs always produce the same
// result. Two nodes with the same ancestor chain and the same source are
// indistinguishable, which is accepted: they would compute the same thing.
func Compute(trace []string, source string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(trace, "\n")))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}
