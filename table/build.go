package table

import (
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/errs"
)

// DescriptorsFromIDs is the public entry point for recursive-descent
// template construction: it resolves a flat list of unexpanded descriptor
// IDs into a tree of Descriptor nodes, consuming extra IDs from the
// stream for replication members/factors as it goes, and applies the
// NCEP ill-formed-sequence fixup as a post-processing pass.
func (g *Group) DescriptorsFromIDs(ids []descriptor.ID) ([]*descriptor.Descriptor, error) {
	members, consumed, err := g.descriptorsFromIDs(ids)
	if err != nil {
		return nil, err
	}
	if consumed != len(ids) {
		return nil, errs.ErrProtocolViolation
	}

	return fixNCEPDescriptors(members), nil
}

// descriptorsFromIDs consumes ids[0:] left to right, resolving each
// descriptor and, for replications, eagerly consuming the member IDs
// (and, for delayed replication, one extra factor Element ID) that
// follow it in the same stream. It returns the resolved nodes and how
// many entries of ids were consumed.
func (g *Group) descriptorsFromIDs(ids []descriptor.ID) ([]*descriptor.Descriptor, int, error) {
	out := make([]*descriptor.Descriptor, 0, len(ids))
	i := 0
	for i < len(ids) {
		id := ids[i]
		i++

		switch id.F() {
		case 0: // Element
			if el, ok := g.LookupElement(id); ok {
				out = append(out, descriptor.NewElementDescriptor(el))
			} else {
				out = append(out, descriptor.NewUndefined(id))
			}

		case 3: // Sequence: members come from Table D, not inlined from the stream
			if seq, ok := g.LookupSequence(id); ok {
				out = append(out, seq)
			} else {
				out = append(out, descriptor.NewUndefined(id))
			}

		case 2: // Operator
			out = append(out, synthesizeOperator(id))

		case 1: // Replication: consume n_items member IDs (and, if delayed, one factor ID)
			nItems := id.X()
			if replicationKind(id) {
				if i >= len(ids) {
					return nil, 0, errs.ErrProtocolViolation
				}
				factorID := ids[i]
				i++
				var factor *descriptor.Descriptor
				if el, ok := g.LookupElement(factorID); ok {
					factor = descriptor.NewElementDescriptor(el)
				} else {
					factor = descriptor.NewUndefined(factorID)
				}

				if i+nItems > len(ids) {
					return nil, 0, errs.ErrProtocolViolation
				}
				memberIDs := ids[i : i+nItems]
				i += nItems
				members, consumed, err := g.descriptorsFromIDs(memberIDs)
				if err != nil {
					return nil, 0, err
				}
				_ = consumed
				out = append(out, descriptor.NewDelayedReplication(id, members, factor))
			} else {
				if i+nItems > len(ids) {
					return nil, 0, errs.ErrProtocolViolation
				}
				memberIDs := ids[i : i+nItems]
				i += nItems
				members, consumed, err := g.descriptorsFromIDs(memberIDs)
				if err != nil {
					return nil, 0, err
				}
				_ = consumed
				out = append(out, descriptor.NewFixedReplication(id, members))
			}

		default:
			out = append(out, descriptor.NewUndefined(id))
		}
	}

	return out, i, nil
}

// fixNCEPDescriptors rewrites certain ill-formed sequence descriptors
// whose sole member is a replication descriptor declaring zero items:
// the replication is hoisted out of the sequence, and the descriptor
// immediately following the sequence in the member list becomes the
// replication's single replicated member.
func fixNCEPDescriptors(members []*descriptor.Descriptor) []*descriptor.Descriptor {
	out := make([]*descriptor.Descriptor, 0, len(members))
	for i := 0; i < len(members); i++ {
		m := members[i]
		if m.Kind == descriptor.KindSequence && len(m.Members) == 1 {
			rep := m.Members[0]
			isZeroItemReplication := (rep.Kind == descriptor.KindFixedReplication && rep.NItems == 0) ||
				(rep.Kind == descriptor.KindDelayedReplication && rep.NItems == 0)
			if isZeroItemReplication && i+1 < len(members) {
				next := members[i+1]
				var fixed *descriptor.Descriptor
				if rep.Kind == descriptor.KindFixedReplication {
					fixed = descriptor.NewFixedReplication(rep.ID, []*descriptor.Descriptor{next})
				} else {
					fixed = descriptor.NewDelayedReplication(rep.ID, []*descriptor.Descriptor{next}, rep.Factor)
				}
				out = append(out, fixed)
				i++ // consume `next`, it has been folded into the replication

				continue
			}
		}
		out = append(out, m)
	}

	return out
}
