package coder

import (
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/errs"
)

// delayedRepetitionA and delayedRepetitionB are the two delayed
// *repetition* descriptors (031011/031012) that spec.md §4.E.2 requires
// to fail fatally rather than be silently misinterpreted as replication.
var (
	delayedRepetitionA = descriptor.NewID(0, 31, 11)
	delayedRepetitionB = descriptor.NewID(0, 31, 12)
)

var (
	op201 = descriptor.NewID(2, 1, 0)
	op202 = descriptor.NewID(2, 2, 0)
	op203 = descriptor.NewID(2, 3, 0)
	op204 = descriptor.NewID(2, 4, 0)
	op205 = descriptor.NewID(2, 5, 0)
	op206 = descriptor.NewID(2, 6, 0)
	op207 = descriptor.NewID(2, 7, 0)
	op208 = descriptor.NewID(2, 8, 0)
	op221 = descriptor.NewID(2, 21, 0)
	op235 = descriptor.NewID(2, 35, 0)
	op236 = descriptor.NewID(2, 36, 0)
	op237 = descriptor.NewID(2, 37, 0)
)

// bitmapOperatorClasses are the X components of the five operators that
// can define or resolve a bitmap (222/223/224/225/232).
var bitmapOperatorClasses = map[int]bool{22: true, 23: true, 24: true, 25: true, 32: true}

// Hooks is the abstract interface one walker body drives to implement
// both decode and encode; see spec.md §9 "Coder–state mutability".
type Hooks interface {
	// ProcessNumeric reads/writes one numeric Element at the given
	// effective transport width/scale/reference-value.
	ProcessNumeric(el *descriptor.Descriptor, effNBits, effScale int, effRefVal int64) error
	// ProcessString reads/writes one string Element of nbytes bytes.
	ProcessString(el *descriptor.Descriptor, nbytes int) error
	// ProcessCodeFlag reads/writes one code/flag Element at its declared
	// width (operator 201/202 do not affect code/flag fields).
	ProcessCodeFlag(el *descriptor.Descriptor, nbits int) error
	// ProcessConstant reads/writes a fixed value (used for the bitmap
	// indicator's zero constant).
	ProcessConstant(value int64, nbits int) error
	// ProcessNewRefVal reads/writes a sign-magnitude reference-value
	// override for operator 203.
	ProcessNewRefVal(el *descriptor.Descriptor, nbits int) error
	// ProcessAssociated reads/writes the synthetic field emitted by
	// operator 204.
	ProcessAssociated(nbits int) error
	// ProcessSkippedLocal reads/writes the synthetic field emitted by
	// operator 206.
	ProcessSkippedLocal(nbits int) error
	// ProcessLiteralString reads/writes operator 205's in-stream string.
	ProcessLiteralString(nbytes int) error
	// ProcessDelayedFactor reads/writes the replication-count Element and
	// returns its value.
	ProcessDelayedFactor(factorEl *descriptor.Descriptor) (int, error)
	// ProcessNoValue appends a no-value placeholder (221 suppression).
	ProcessNoValue() error
	// LastRawValue returns the transport-domain integer most recently
	// appended to the current subset, used by the operator 203 capture to
	// record a new reference value without re-decoding.
	LastRawValue() (int64, bool)
}

// Walker drives a single recursive-descent pass over a template's
// members, threading State and dispatching to Hooks.
type Walker struct {
	State *State
	Hooks Hooks
}

// NewWalker builds a Walker over state using hooks for element I/O.
func NewWalker(state *State, hooks Hooks) *Walker {
	return &Walker{State: state, Hooks: hooks}
}

// Walk processes members in order, implementing spec.md §4.D/§4.E.
func (w *Walker) Walk(members []*descriptor.Descriptor) error {
	for _, m := range members {
		if err := w.walkOne(m); err != nil {
			return err
		}
	}

	return nil
}

func (w *Walker) walkOne(m *descriptor.Descriptor) error {
	s := w.State
	sub := s.CurrentSubset()

	// 1. Data-not-present guard.
	if s.DataNotPresentCount > 0 && m.Kind == descriptor.KindElement {
		x := m.ID.X()
		if !(x >= 1 && x <= 9) && x != 31 {
			sub.Descriptors = append(sub.Descriptors, m)
			if err := w.Hooks.ProcessNoValue(); err != nil {
				return err
			}
			s.DataNotPresentCount--

			return nil
		}
	}

	// 2. New-refval capture.
	if s.NBitsOfNewRefVal > 0 && m.Kind == descriptor.KindElement {
		if m.Element.UnitClass() == descriptor.UnitString {
			return errs.ErrProtocolViolation
		}
		sub.Descriptors = append(sub.Descriptors, m)
		if err := w.Hooks.ProcessNewRefVal(m.Element, s.NBitsOfNewRefVal); err != nil {
			return err
		}
		if v, ok := w.Hooks.LastRawValue(); ok {
			s.NewRefVals[m.Element.ID] = v
		}

		return nil
	}

	// 3. Skipped-local capture.
	if s.NBitsOfSkippedLocal > 0 {
		nb := s.NBitsOfSkippedLocal
		s.NBitsOfSkippedLocal = 0
		sl := descriptor.NewSkippedLocal(nb)
		sub.Descriptors = append(sub.Descriptors, sl)

		return w.Hooks.ProcessSkippedLocal(nb)
	}

	// 4. Bitmap state machine.
	if err := s.AdvanceBitmapPhase(m); err != nil {
		return err
	}

	// 5. Dispatch on variant.
	switch m.Kind {
	case descriptor.KindElement:
		return w.walkElement(m)
	case descriptor.KindSequence:
		return w.Walk(m.Members)
	case descriptor.KindFixedReplication:
		return w.walkFixedReplication(m)
	case descriptor.KindDelayedReplication:
		return w.walkDelayedReplication(m)
	case descriptor.KindOperator:
		return w.walkOperator(m)
	case descriptor.KindUndefined:
		return errs.ErrUnknownDescriptor
	default:
		return errs.ErrProtocolViolation
	}
}

func (w *Walker) walkElement(m *descriptor.Descriptor) error {
	s := w.State
	sub := s.CurrentSubset()
	el := m.Element

	if el.ID == delayedRepetitionA || el.ID == delayedRepetitionB {
		return errs.ErrNotImplemented
	}

	// Associated field, emitted before the element itself unless this is
	// itself a class-31 (replication machinery) descriptor.
	if len(s.NBitsOfAssociated) > 0 && el.ID.X() != 31 {
		width := s.AssociatedWidth()
		sub.Descriptors = append(sub.Descriptors, descriptor.NewAssociated(width))
		if err := w.Hooks.ProcessAssociated(width); err != nil {
			return err
		}
	}

	if el.ID.X() == 33 && s.QAInfoStatus == QAWaiting {
		s.QAInfoStatus = QAProcessing
		if d, ok := s.NextBitmappedDescriptor(); ok {
			sub.BitmapLinks[len(sub.Descriptors)] = indexOf(sub.Descriptors, d)
		}
	} else if el.ID.X() != 33 && s.QAInfoStatus == QAProcessing {
		s.QAInfoStatus = QANA
	}

	sub.Descriptors = append(sub.Descriptors, m)

	switch el.UnitClass() {
	case descriptor.UnitString:
		nbytes := el.NBits / 8
		if s.NewNBytes > 0 {
			nbytes = s.NewNBytes
		}

		return w.Hooks.ProcessString(m, nbytes)

	case descriptor.UnitCodeFlag:
		return w.Hooks.ProcessCodeFlag(m, el.NBits)

	default: // numeric
		effNBits := el.NBits + s.NBitsOffset + s.BSR.NBitsIncrement
		effScale := el.Scale + s.ScaleOffset + s.BSR.ScaleIncrement
		refFactor := s.BSR.RefValFactor
		if refFactor == 0 {
			refFactor = 1
		}
		effRefVal := el.RefVal * refFactor
		if nv, ok := s.NewRefVals[el.ID]; ok {
			effRefVal = nv * refFactor
		}

		return w.Hooks.ProcessNumeric(m, effNBits, effScale, effRefVal)
	}
}

func indexOf(list []*descriptor.Descriptor, target *descriptor.Descriptor) int {
	for i, d := range list {
		if d == target {
			return i
		}
	}

	return -1
}

func (w *Walker) walkFixedReplication(m *descriptor.Descriptor) error {
	for i := 0; i < m.NRepeats; i++ {
		if err := w.Walk(m.Members); err != nil {
			return err
		}
	}

	return nil
}

func (w *Walker) walkDelayedReplication(m *descriptor.Descriptor) error {
	count, err := w.Hooks.ProcessDelayedFactor(m.Factor)
	if err != nil {
		return err
	}
	if count < 0 {
		return errs.ErrProtocolViolation
	}
	for i := 0; i < count; i++ {
		if err := w.Walk(m.Members); err != nil {
			return err
		}
	}

	return nil
}

func (w *Walker) walkOperator(m *descriptor.Descriptor) error {
	s := w.State
	y := m.ID.Y()
	x := m.ID.X()

	switch descriptor.NewID(2, x, 0) {
	case op201:
		if y == 0 {
			s.NBitsOffset = 0
		} else {
			s.NBitsOffset = y - 128
		}

		return nil

	case op202:
		if y == 0 {
			s.ScaleOffset = 0
		} else {
			s.ScaleOffset = y - 128
		}

		return nil

	case op205:
		return w.Hooks.ProcessLiteralString(y)

	case op206:
		s.NBitsOfSkippedLocal = y

		return nil

	case op208:
		s.NewNBytes = y

		return nil

	case op221:
		s.DataNotPresentCount = y

		return nil

	case op235:
		s.ClearBackReferenceState()

		return nil

	case op236:
		// AdvanceBitmapPhase already ran for this member (walkOne calls it
		// before dispatch) and moved BitmapIndicator -> BitmapWaitingForBit
		// with reuseBitmap set; touching BitmapPhase/BackReferenceBoundary
		// here would stomp that transition back to BitmapIndicator.
		return w.Hooks.ProcessConstant(0, 1)

	case op237:
		if y == 0 {
			if err := s.RecallReusableBitmap(); err != nil {
				return err
			}
		} else if y == 255 {
			s.CancelReusableBitmap()
		}

		return nil
	}

	if m.ID.F() == 2 && x == 3 { // 203
		switch {
		case y == 255:
			s.NBitsOfNewRefVal = 0 // terminate, retain captured values
		case y == 0:
			s.NBitsOfNewRefVal = 0
			s.NewRefVals = map[descriptor.ID]int64{}
		default:
			s.NBitsOfNewRefVal = y
		}

		return nil
	}

	if m.ID.F() == 2 && x == 4 { // 204
		if y == 0 {
			s.PopAssociated()
		} else {
			s.PushAssociated(y)
		}

		return nil
	}

	if m.ID.F() == 2 && x == 7 { // 207
		if y == 0 {
			s.BSR = BSRModifier{}
		} else {
			s.BSR = BSRModifier{
				NBitsIncrement: (10*y + 2 + 2) / 3, // ceil((10y+2)/3)
				ScaleIncrement: y,
				RefValFactor:   pow10(y),
			}
		}

		return nil
	}

	if bitmapOperatorClasses[x] {
		switch {
		case y == 0:
			s.BitmapPhase = BitmapIndicator
			s.BackReferenceBoundary = len(s.CurrentSubset().Descriptors)
			if x == 22 {
				s.QAInfoStatus = QAWaiting
			}

			return w.Hooks.ProcessConstant(0, 1)

		case y == 255:
			base, ok := s.NextBitmappedDescriptor()
			if !ok {
				return errs.ErrProtocolViolation
			}
			marker := descriptor.FromMarkerOperator(base.Element, m.ID)
			s.CurrentSubset().Descriptors = append(s.CurrentSubset().Descriptors, marker)

			return w.processMarkerElement(marker)
		}

		return nil
	}

	if x == 41 || x == 42 || x == 43 {
		return errs.ErrNotImplemented
	}

	return errs.ErrNotImplemented
}

// processMarkerElement replays the Element-processing path (§4.E.1) for
// a synthetic Marker descriptor, using its effective (possibly
// 225255-adjusted) scale/refval/nbits.
func (w *Walker) processMarkerElement(marker *descriptor.Descriptor) error {
	switch marker.Element.UnitClass() {
	case descriptor.UnitString:
		return w.Hooks.ProcessString(marker, marker.EffectiveNBits()/8)
	case descriptor.UnitCodeFlag:
		return w.Hooks.ProcessCodeFlag(marker, marker.EffectiveNBits())
	default:
		return w.Hooks.ProcessNumeric(marker, marker.EffectiveNBits(), marker.EffectiveScale(), marker.EffectiveRefVal())
	}
}

// pow10 returns 10^y as an int64; y is always small (0..127) in practice.
func pow10(y int) int64 {
	r := int64(1)
	for i := 0; i < y; i++ {
		r *= 10
	}

	return r
}
