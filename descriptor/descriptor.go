// Package descriptor defines the BUFR descriptor type hierarchy: the
// typed variants a 6-digit FXY code can resolve to, and the value used
// throughout bufrcore to identify one.
package descriptor

import "fmt"

// ID is a 6-digit BUFR descriptor code decomposed as F*100000 + X*1000 + Y.
type ID uint32

// NewID builds an ID from its F/X/Y components.
func NewID(f, x, y int) ID {
	return ID(f*100000 + x*1000 + y)
}

// F returns the descriptor class selector (0=element, 1=replication,
// 2=operator, 3=sequence).
func (id ID) F() int { return int(id) / 100000 }

// X returns the class/category component.
func (id ID) X() int { return (int(id) / 1000) % 100 }

// Y returns the low component (for replications, the repeat count; for
// operators, the operand).
func (id ID) Y() int { return int(id) % 1000 }

// String renders the canonical 6-digit form, e.g. "012001".
func (id ID) String() string {
	return fmt.Sprintf("%06d", uint32(id))
}

// Kind tags which variant a Descriptor node is.
type Kind int

const (
	KindElement Kind = iota
	KindFixedReplication
	KindDelayedReplication
	KindOperator
	KindSequence
	KindAssociated
	KindSkippedLocal
	KindMarker
	KindUndefined
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindFixedReplication:
		return "FixedReplication"
	case KindDelayedReplication:
		return "DelayedReplication"
	case KindOperator:
		return "Operator"
	case KindSequence:
		return "Sequence"
	case KindAssociated:
		return "Associated"
	case KindSkippedLocal:
		return "SkippedLocal"
	case KindMarker:
		return "Marker"
	default:
		return "Undefined"
	}
}

// UnitClass distinguishes the three decoding paths an Element's unit
// selects.
type UnitClass int

const (
	UnitNumeric UnitClass = iota
	UnitString
	UnitCodeFlag
)

// Element is a leaf descriptor carrying one value per occurrence.
type Element struct {
	ID         ID
	Name       string
	Unit       string
	Scale      int
	RefVal     int64
	NBits      int
	CrexUnit   string
	CrexScale  int
	CrexNChars int
}

// UnitClass classifies Unit into the string/code-flag/numeric decode path.
func (e *Element) UnitClass() UnitClass {
	switch e.Unit {
	case "CCITT IA5":
		return UnitString
	case "CODE TABLE", "FLAG TABLE", "Common CODE TABLE C-1":
		return UnitCodeFlag
	default:
		return UnitNumeric
	}
}

// Descriptor is the tagged union of every BUFR descriptor variant,
// including the synthetic kinds created while walking a template
// (Associated, SkippedLocal, Marker, Undefined).
type Descriptor struct {
	Kind Kind
	ID   ID

	// Element holds the leaf payload for Kind == KindElement, and for the
	// synthetic kinds it holds the originating/base element.
	Element *Element

	// Name is set for Sequence descriptors (Table D name).
	Name string

	// Members holds child descriptors for Sequence and Replication kinds.
	Members []*Descriptor

	// FixedReplication fields.
	NRepeats int // Y of the replication ID
	NItems   int // X of the replication ID; number of direct members

	// DelayedReplication fields. Factor is the Element descriptor read at
	// runtime (e.g. 031001/031002) to obtain the repeat count.
	Factor *Descriptor

	// Associated / SkippedLocal width in bits.
	NBits int

	// Marker fields: MarkerOp is the originating operator (223/224/225/
	// 232/205); ScaleOverride/RefValOverride/NBitsOverride are non-nil
	// only for 225255, which carries an adjusted width and reference
	// value (refval = -2^nbits, nbits = base_nbits+1).
	MarkerOp       int
	ScaleOverride  *int
	RefValOverride *int64
	NBitsOverride  *int

	// Undefined carries the ID that failed resolution, for error
	// messages; it is otherwise empty.
}

// NewElementDescriptor wraps an Element as a Kind==KindElement node.
func NewElementDescriptor(e *Element) *Descriptor {
	return &Descriptor{Kind: KindElement, ID: e.ID, Element: e}
}

// NewSequence builds a Kind==KindSequence node with resolved members.
func NewSequence(id ID, name string, members []*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindSequence, ID: id, Name: name, Members: members}
}

// NewFixedReplication builds a 1XXYYY replication with Y > 0.
func NewFixedReplication(id ID, members []*Descriptor) *Descriptor {
	return &Descriptor{
		Kind:     KindFixedReplication,
		ID:       id,
		Members:  members,
		NRepeats: id.Y(),
		NItems:   id.X(),
	}
}

// NewDelayedReplication builds a 1XX000 replication whose repeat count is
// read at runtime from factor.
func NewDelayedReplication(id ID, members []*Descriptor, factor *Descriptor) *Descriptor {
	return &Descriptor{
		Kind:    KindDelayedReplication,
		ID:      id,
		Members: members,
		NItems:  id.X(),
		Factor:  factor,
	}
}

// NewOperator builds a 2XXYYY operator node; it carries no stored value.
func NewOperator(id ID) *Descriptor {
	return &Descriptor{Kind: KindOperator, ID: id}
}

// NewUndefined marks an ID that could not be resolved against the table
// group. Tolerated at load time; fatal if it reaches the walker.
func NewUndefined(id ID) *Descriptor {
	return &Descriptor{Kind: KindUndefined, ID: id}
}

// NewAssociated builds the synthetic field emitted by operator 204 for
// each Element while the associated-field stack is non-empty.
func NewAssociated(nbits int) *Descriptor {
	return &Descriptor{Kind: KindAssociated, NBits: nbits}
}

// NewSkippedLocal builds the synthetic field emitted by operator 206.
func NewSkippedLocal(nbits int) *Descriptor {
	return &Descriptor{Kind: KindSkippedLocal, NBits: nbits}
}

// NewMarker clones base as a Marker tagged with the originating operator.
// For markerOp == 225255 the caller must supply refval=-2^nbits and
// nbits=base.NBits+1 via the override fields (see FromMarkerOperator).
func NewMarker(base *Element, markerOp int, scaleOv *int, refvalOv *int64, nbitsOv *int) *Descriptor {
	return &Descriptor{
		Kind:           KindMarker,
		ID:             base.ID,
		Element:        base,
		MarkerOp:       markerOp,
		ScaleOverride:  scaleOv,
		RefValOverride: refvalOv,
		NBitsOverride:  nbitsOv,
	}
}

// EffectiveScale/EffectiveRefVal/EffectiveNBits resolve a Marker's
// override fields against its base Element, applying the 225255 rule.
func (d *Descriptor) EffectiveScale() int {
	if d.ScaleOverride != nil {
		return *d.ScaleOverride
	}

	return d.Element.Scale
}

func (d *Descriptor) EffectiveRefVal() int64 {
	if d.RefValOverride != nil {
		return *d.RefValOverride
	}

	return d.Element.RefVal
}

func (d *Descriptor) EffectiveNBits() int {
	if d.NBitsOverride != nil {
		return *d.NBitsOverride
	}

	return d.Element.NBits
}

// FromMarkerOperator builds the Marker for a 222/223/224/225/232 Y=255
// resolution against a back-referenced base element. operatorID is the
// full 2XXYYY code (e.g. 225255).
func FromMarkerOperator(base *Element, operatorID ID) *Descriptor {
	x := operatorID.X()
	if x == 25 { // 225255: difference statistics carry a sign bit
		nbits := base.NBits + 1
		refval := -(int64(1) << uint(base.NBits))

		return NewMarker(base, int(operatorID), nil, &refval, &nbits)
	}

	return NewMarker(base, int(operatorID), nil, nil, nil)
}

// FlatMemberIDs returns the descriptor IDs of d's direct members, used
// when re-deriving the original unexpanded ID stream for a Sequence.
func FlatMemberIDs(d *Descriptor) []ID {
	ids := make([]ID, 0, len(d.Members))
	for _, m := range d.Members {
		ids = append(ids, m.ID)
	}

	return ids
}
