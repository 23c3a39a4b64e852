package hash

import (
	"encoding/binary"
	"math"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of the frozen hashing AST.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Floats: IEEE 754 big-endian 8B, all NaNs canonicalized
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Folds: first operand, uint32 step count, then operator byte and
//     operand per step
//   - Child nodes: serialized inline (flat)
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of an HNode tree.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(node HNode) []byte {
	s := &serializer{buf: make([]byte, 0, 64)}
	s.writeByte(HashVersion)
	s.serializeNode(node)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeFloat64(v float64) {
	if math.IsNaN(v) {
		v = math.NaN()
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) serializeNode(node HNode) {
	switch n := node.(type) {
	case *HConst:
		s.writeByte(TagConst)
		s.writeFloat64(n.Value)

	case *HSymbol:
		s.writeByte(TagSymbol)
		s.writeString(n.Name)

	case *HNeg:
		s.writeByte(TagNeg)
		s.serializeNode(n.Operand)

	case *HFold:
		s.writeByte(TagFold)
		s.serializeNode(n.First)
		s.writeUint32(uint32(len(n.Steps)))
		for _, step := range n.Steps {
			s.writeByte(step.Operator)
			s.serializeNode(step.Operand)
		}
	}
}
