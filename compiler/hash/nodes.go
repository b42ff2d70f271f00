package hash

// ---------------------------------------------------------------------------
// Hashing tree.
//
// A stripped-down parallel of the compiler AST with no positions, no
// grouping parentheses, and scope-relative slots instead of local variable
// and parameter names. Programs that differ only in those respects produce
// identical trees. Function and class names are kept because they are
// observable at run time through display strings.
// ---------------------------------------------------------------------------

// HNode is one node of the hashing tree: a frozen tag followed by the
// node's fields. Fields hold only nil, bool, uint64, float64, string, HNode
// and []HNode values.
type HNode struct {
	Tag    byte
	Fields []any
}

func node(tag byte, fields ...any) HNode {
	if fields == nil {
		fields = []any{}
	}
	return HNode{Tag: tag, Fields: fields}
}

// String renders the tree in prefix form for debugging and tests.
func (n HNode) String() string {
	s := "(" + TagName(n.Tag)
	for _, f := range n.Fields {
		s += " " + fieldString(f)
	}
	return s + ")"
}
