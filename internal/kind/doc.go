// Package kind implements store-backed fixture kinds from compiled kind
// declarations.
//
// A RecordKind looks records up by the declared identifying fields, so
// Exists and Delete work on fixtures whose other fields are still
// unresolvable. Create validates the resolved data against the declared
// CUE schema before inserting it. The declared resolve table becomes the
// kind's field resolvers; Transforms lists the names it may use.
package kind
