// Package table implements the BUFR Table Group: versioned lookup of
// descriptors by ID (Tables B and D, loaded from caller-supplied
// in-memory rows — see DESIGN.md on why disk loading is out of scope),
// the synthetic Tables C (operators) and R (replications), and the
// recursive-descent template builder that turns a flat descriptor-ID
// stream into a resolved tree.
package table

import (
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/errs"
)

// TableBRow is one row of the external TableB.json shape:
// id -> [name, unit, scale, refval, nbits, crex_unit, crex_scale, crex_nchars].
type TableBRow struct {
	ID         descriptor.ID
	Name       string
	Unit       string
	Scale      int
	RefVal     int64
	NBits      int
	CrexUnit   string
	CrexScale  int
	CrexNChars int
}

// TableDRow is one row of the external TableD.json shape:
// id -> [name, [member_ids...]].
type TableDRow struct {
	ID        descriptor.ID
	Name      string
	MemberIDs []descriptor.ID
}

// CodeFlagEntry is one row of the external code_and_flag.json shape:
// id -> [[code, description], ...].
type CodeFlagEntry struct {
	Code        int64
	Description string
}

// Group is one resolved (master_table_number, centre, subcentre,
// master_version, local_version) table set: Tables B and D as loaded,
// plus the synthetic C (operator) and R (replication) tables which
// never need lookup data.
type Group struct {
	Key Key

	elements  map[descriptor.ID]*descriptor.Element
	sequences map[descriptor.ID]*tableDShell
	codeFlag  map[descriptor.ID][]CodeFlagEntry
}

type tableDShell struct {
	name      string
	memberIDs []descriptor.ID
	resolved  *descriptor.Descriptor // populated lazily, cached
}

// NewGroup builds a Group from in-memory table rows. Table D is loaded
// in two passes internally (shells keyed by id, then members resolved on
// first lookup) so that forward references between sequences — D members
// that are themselves D ids defined later in the same file — resolve
// without requiring a particular row order.
func NewGroup(key Key, bRows []TableBRow, dRows []TableDRow, codeFlag map[descriptor.ID][]CodeFlagEntry) (*Group, error) {
	g := &Group{
		Key:       key,
		elements:  make(map[descriptor.ID]*descriptor.Element, len(bRows)),
		sequences: make(map[descriptor.ID]*tableDShell, len(dRows)),
		codeFlag:  codeFlag,
	}

	for _, r := range bRows {
		if r.ID.F() != 0 {
			return nil, errs.ErrTableLoad
		}
		g.elements[r.ID] = &descriptor.Element{
			ID: r.ID, Name: r.Name, Unit: r.Unit, Scale: r.Scale,
			RefVal: r.RefVal, NBits: r.NBits,
			CrexUnit: r.CrexUnit, CrexScale: r.CrexScale, CrexNChars: r.CrexNChars,
		}
	}

	for _, r := range dRows {
		if r.ID.F() != 3 {
			return nil, errs.ErrTableLoad
		}
		g.sequences[r.ID] = &tableDShell{name: r.Name, memberIDs: r.MemberIDs}
	}

	return g, nil
}

// LookupElement returns the Table B element for id, if any.
func (g *Group) LookupElement(id descriptor.ID) (*descriptor.Element, bool) {
	e, ok := g.elements[id]

	return e, ok
}

// CodeFlagEntries returns the code/flag rows for id, if any.
func (g *Group) CodeFlagEntries(id descriptor.ID) ([]CodeFlagEntry, bool) {
	e, ok := g.codeFlag[id]

	return e, ok
}

// LookupSequence resolves a Table D id into a Sequence descriptor with
// its member tree fully built, caching the result on the shell.
func (g *Group) LookupSequence(id descriptor.ID) (*descriptor.Descriptor, bool) {
	shell, ok := g.sequences[id]
	if !ok {
		return nil, false
	}
	if shell.resolved != nil {
		return shell.resolved, true
	}

	members, _, err := g.descriptorsFromIDs(shell.memberIDs)
	if err != nil {
		// A malformed member list resolves to Undefined members rather
		// than propagating a load-time error, matching the tolerant
		// load-time / fatal-at-walk-time split the format specifies.
		members = []*descriptor.Descriptor{descriptor.NewUndefined(id)}
	}
	seq := descriptor.NewSequence(id, shell.name, members)
	shell.resolved = seq

	return seq, true
}

// synthesizeOperator and synthesizeReplication implement Tables C and R:
// any syntactically valid 2XXYYY or 1XXYYY id constructs its descriptor
// on demand, with no lookup data required.
func synthesizeOperator(id descriptor.ID) *descriptor.Descriptor {
	return descriptor.NewOperator(id)
}

// replicationKind reports whether id (1XXYYY) is a delayed replication
// (Y == 0) or a fixed one.
func replicationKind(id descriptor.ID) (delayed bool) {
	return id.Y() == 0
}
