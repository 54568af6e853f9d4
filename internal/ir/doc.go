// Package ir provides the value model shared by every prepop package.
//
// Fixture data, resolved data and persisted record fields are all IRValues.
// ir imports nothing internal; all other internal packages import ir.
//
// Key design constraints:
//   - IRValue is sealed: scalars (IRNull, IRString, IRInt, IRBool), sequences
//     (IRArray), mappings (IRObject), references (IRRef) and unresolvable
//     markers (IRUnresolvable). Walk and Find switch over exactly these.
//   - NO float types anywhere - use int64 for numbers
//   - IRObject keeps keys in declaration order and is never mutated in place
//   - Persisted JSON is canonical (RFC 8785 key order, NFC strings)
package ir
