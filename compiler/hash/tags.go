package hash

// ---------------------------------------------------------------------------
// Frozen tags for the hashing tree.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag must never change
// meaning. Adding new tags is fine; changing existing ones breaks every
// previously computed content hash.
// ---------------------------------------------------------------------------

// HashVersion is the first element of every serialized program.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// Node tags. Each tag uniquely identifies a node kind in the encoded tree.
const (
	TagReservedZero byte = 0x00

	// Literals
	TagNil    byte = 0x01
	TagBool   byte = 0x02
	TagNumber byte = 0x03
	TagString byte = 0x04

	// Variable access (locals by scope distance and slot)
	TagLocalRef     byte = 0x08
	TagGlobalRef    byte = 0x09
	TagLocalAssign  byte = 0x0A
	TagGlobalAssign byte = 0x0B
	TagThis         byte = 0x0C
	TagSuper        byte = 0x0D

	// Operators and access
	TagUnary   byte = 0x10
	TagBinary  byte = 0x11
	TagLogical byte = 0x12
	TagCall    byte = 0x13
	TagGet     byte = 0x14
	TagSet     byte = 0x15
	TagLambda  byte = 0x16

	// Statements
	TagExprStmt  byte = 0x20
	TagPrint     byte = 0x21
	TagLocalVar  byte = 0x22
	TagGlobalVar byte = 0x23
	TagBlock     byte = 0x24
	TagIf        byte = 0x25
	TagWhile     byte = 0x26
	TagFunction  byte = 0x27
	TagReturn    byte = 0x28
	TagClass     byte = 0x29
	TagMethod    byte = 0x2A
	TagBreak     byte = 0x2B
	TagContinue  byte = 0x2C

	// Structure
	TagProgram byte = 0x30
)

// TagName returns a human-readable name for a tag byte.
func TagName(tag byte) string {
	switch tag {
	case TagNil:
		return "Nil"
	case TagBool:
		return "Bool"
	case TagNumber:
		return "Number"
	case TagString:
		return "String"
	case TagLocalRef:
		return "LocalRef"
	case TagGlobalRef:
		return "GlobalRef"
	case TagLocalAssign:
		return "LocalAssign"
	case TagGlobalAssign:
		return "GlobalAssign"
	case TagThis:
		return "This"
	case TagSuper:
		return "Super"
	case TagUnary:
		return "Unary"
	case TagBinary:
		return "Binary"
	case TagLogical:
		return "Logical"
	case TagCall:
		return "Call"
	case TagGet:
		return "Get"
	case TagSet:
		return "Set"
	case TagLambda:
		return "Lambda"
	case TagExprStmt:
		return "ExprStmt"
	case TagPrint:
		return "Print"
	case TagLocalVar:
		return "LocalVar"
	case TagGlobalVar:
		return "GlobalVar"
	case TagBlock:
		return "Block"
	case TagIf:
		return "If"
	case TagWhile:
		return "While"
	case TagFunction:
		return "Function"
	case TagReturn:
		return "Return"
	case TagClass:
		return "Class"
	case TagMethod:
		return "Method"
	case TagBreak:
		return "Break"
	case TagContinue:
		return "Continue"
	case TagProgram:
		return "Program"
	default:
		return "Unknown"
	}
}
