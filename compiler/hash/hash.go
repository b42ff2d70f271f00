package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/treelox/compiler"
)

// Sum is a program content hash.
type Sum [32]byte

// String returns the lowercase hex form.
func (s Sum) String() string {
	return hex.EncodeToString(s[:])
}

// HashProgram computes the SHA-256 content hash of a resolved program.
//
// The hash is computed over a deterministic serialization of the program's
// normalized tree, where locals are addressed by scope distance and slot.
// Two programs that differ only in local variable names, whitespace,
// comments or redundant parentheses produce the same hash.
func HashProgram(stmts []compiler.Stmt, locals compiler.Resolution) (Sum, error) {
	data, err := Serialize(NormalizeProgram(stmts, locals))
	if err != nil {
		return Sum{}, err
	}
	return sha256.Sum256(data), nil
}
