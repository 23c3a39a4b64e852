package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing AST serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// all previously computed fingerprints.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing fingerprints.
const HashVersion byte = 1

// Node type tags.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	TagConst  byte = 0x01
	TagSymbol byte = 0x02
	TagNeg    byte = 0x03
	TagFold   byte = 0x04
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{TagReservedZero, TagConst, TagSymbol, TagNeg, TagFold}
