// Package hash computes content fingerprints of parsed programs.
package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/exprscore/compiler"
)

// Program computes the SHA-256 fingerprint of prog.
//
// The hash is computed over a deterministic serialization of the program's
// normalized AST. Symbols are identified by name, so the fingerprint
// describes the formula, not the accessors a grammar binds it to.
func Program(prog *compiler.Program) [32]byte {
	return sha256.Sum256(Serialize(Normalize(prog)))
}

// Hex returns the fingerprint of prog as a lowercase hex string.
func Hex(prog *compiler.Program) string {
	sum := Program(prog)
	return hex.EncodeToString(sum[:])
}
