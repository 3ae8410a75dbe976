// Package compiledcache implements the optional compiled-template cache
// of spec.md §4.G: skip redescent through Table Groups B/D (and the NCEP
// ill-formed-sequence fixup) for a (descriptor_ids, table_group_key) pair
// already seen, by keeping the resolved descriptor tree around.
//
// A CompiledTemplate is literally that resolved tree — the same
// []*descriptor.Descriptor that table.Group.DescriptorsFromIDs produces,
// which coder.Walker already knows how to interpret, loops and all, since
// replication members live inside the tree itself. Caching it sidesteps
// the one genuinely expensive, repeatable step (table lookups across
// every member, recursively, with ID-by-ID dispatch); replay is just
// handing the cached tree to the same Walker used for a fresh one, so
// output is bit-identical to direct interpretation by construction, not
// by a second independent implementation that has to be kept in sync.
//
// Every exported field of descriptor.Descriptor already doubles as the
// "statement, args, state snapshot" spec.md asks for: Kind/ID/Element/
// MarkerOp/*Override are the opcode and its args, Members are nested
// statements, and NRepeats/Factor are the loop construct for replication.
// CompiledTemplate's JSON form is exactly this tree, so persistence is a
// direct encoding/json round trip.
package compiledcache
