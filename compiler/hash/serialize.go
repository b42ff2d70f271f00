package hash

import (
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Deterministic serialization of the hashing tree.
//
// Encoding conventions:
//   - Canonical CBOR (RFC 7049 §3.9): shortest integer and float forms
//   - The document is the array [HashVersion, tree]
//   - Each node is the array [tag, field...]
//   - Absent children are CBOR null
// ---------------------------------------------------------------------------

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("hash: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// MarshalCBOR encodes n as the array [tag, field...].
func (n HNode) MarshalCBOR() ([]byte, error) {
	arr := make([]any, 0, len(n.Fields)+1)
	arr = append(arr, n.Tag)
	arr = append(arr, n.Fields...)
	return encMode.Marshal(arr)
}

// Serialize produces the deterministic byte serialization of a tree.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(n HNode) ([]byte, error) {
	data, err := encMode.Marshal([]any{HashVersion, n})
	if err != nil {
		return nil, fmt.Errorf("hash: serialize: %w", err)
	}
	return data, nil
}

func fieldString(f any) string {
	switch v := f.(type) {
	case nil:
		return "_"
	case HNode:
		return v.String()
	case []HNode:
		s := "["
		for i, c := range v {
			if i > 0 {
				s += " "
			}
			s += c.String()
		}
		return s + "]"
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprint(f)
}
