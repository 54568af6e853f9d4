// Package declare reads fixture declaration modules and builds the ordered
// fixture list a batch runs over.
//
// A module is a YAML file, or a JSON file that may carry comments and
// trailing commas (JSONC):
//
//	fixtures:
//	  - kind: team
//	    label: core
//	    data: { name: Core }
//	  - kind: user
//	    data:
//	      username: alice
//	      team: !ref core
//
// A reference is written either as a scalar tagged !ref or as a mapping
// with the single key $ref, which is the only form JSON can express. Labels
// are global across all modules of one Build call, so a module may refer to
// fixtures declared in another one, before or after it.
//
// Build rejects duplicate labels, references to unknown labels, unknown
// kinds, float values and reference cycles. Fixtures come out in
// declaration order, modules concatenated in argument order; that order is
// the batch order.
package declare
