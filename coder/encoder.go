package coder

import (
	"math"

	"github.com/bufrgo/bufrcore/bitio"
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/errs"
)

// Encoder implements Hooks by writing to a bitio.Writer, consuming values
// already populated into State.Subsets[*].Values by the caller. It
// advances State.IdxValue once per element processed; in compressed mode
// the same index is read from every subset's Values list before
// advancing, per spec.md §4.F.
type Encoder struct {
	w     *bitio.Writer
	state *State
}

// NewEncoder builds an Encoder writing template data to w under state.
// Callers must populate state.Subsets[i].Values with one entry per
// expanded descriptor the template will visit, in walk order, before
// calling Encode.
func NewEncoder(w *bitio.Writer, state *State) *Encoder {
	return &Encoder{w: w, state: state}
}

var _ Hooks = (*Encoder)(nil)

func (e *Encoder) current() Value {
	sub := e.state.CurrentSubset()

	return sub.Values[e.state.IdxValue]
}

func (e *Encoder) currentAt(subsetIdx int) Value {
	return e.state.Subsets[subsetIdx].Values[e.state.IdxValue]
}

func (e *Encoder) advance() { e.state.IdxValue++ }

// roundHalfAwayFromZero implements spec.md §9's mandated rounding for
// scale-shifted numeric encoding.
func roundHalfAwayFromZero(v float64) int64 {
	if v >= 0 {
		return int64(math.Floor(v + 0.5))
	}

	return int64(math.Ceil(v - 0.5))
}

func encodeNumericToRaw(v Value, effScale int, effRefVal int64, effNBits int) uint64 {
	if v.Missing {
		return bitio.MissingValue(effNBits)
	}
	scaled := v.Num * pow10Float(effScale)
	raw := roundHalfAwayFromZero(scaled) - effRefVal

	return uint64(raw)
}

func (e *Encoder) ProcessNumeric(el *descriptor.Descriptor, effNBits, effScale int, effRefVal int64) error {
	if !e.state.IsCompressed {
		v := e.current()
		raw := encodeNumericToRaw(v, effScale, effRefVal, effNBits)
		e.advance()

		return e.w.WriteUint(raw, effNBits)
	}

	n := e.state.NSubsets
	rawValues := make([]uint64, n)
	missing := make([]bool, n)
	for i := 0; i < n; i++ {
		v := e.currentAt(i)
		missing[i] = v.Missing
		rawValues[i] = encodeNumericToRaw(v, effScale, effRefVal, effNBits)
	}
	e.advance()

	md := ComputeNumericMinDiff(rawValues, missing, effNBits)

	return WriteNumericMinDiff(e.w, md, effNBits)
}

func (e *Encoder) ProcessCodeFlag(el *descriptor.Descriptor, nbits int) error {
	if !e.state.IsCompressed {
		v := e.current()
		e.advance()
		raw := uint64(v.Raw)
		if v.Missing {
			raw = bitio.MissingValue(nbits)
		}

		return e.w.WriteUint(raw, nbits)
	}

	n := e.state.NSubsets
	rawValues := make([]uint64, n)
	missing := make([]bool, n)
	for i := 0; i < n; i++ {
		v := e.currentAt(i)
		missing[i] = v.Missing
		rawValues[i] = uint64(v.Raw)
	}
	e.advance()

	md := ComputeNumericMinDiff(rawValues, missing, nbits)

	return WriteNumericMinDiff(e.w, md, nbits)
}

func (e *Encoder) ProcessString(el *descriptor.Descriptor, nbytes int) error {
	if !e.state.IsCompressed {
		v := e.current()
		e.advance()

		return e.w.WriteBytes(stringToBytes(v, nbytes))
	}

	n := e.state.NSubsets
	values := make([][]byte, n)
	for i := 0; i < n; i++ {
		values[i] = stringToBytes(e.currentAt(i), nbytes)
	}
	e.advance()

	md := ComputeStringMinDiff(values, nbytes)

	return WriteStringMinDiff(e.w, md, nbytes)
}

func stringToBytes(v Value, nbytes int) []byte {
	if v.Missing {
		b := make([]byte, nbytes)
		for i := range b {
			b[i] = 0xFF
		}

		return b
	}
	b := make([]byte, nbytes)
	for i := range b {
		b[i] = ' '
	}
	copy(b, v.Str)

	return b
}

func (e *Encoder) ProcessConstant(value int64, nbits int) error {
	e.advance() // bitmap indicator still occupies one decoded_values slot on decode; keep cursors aligned

	return e.w.WriteUint(uint64(value), nbits)
}

func (e *Encoder) ProcessNewRefVal(el *descriptor.Descriptor, nbits int) error {
	v := e.current()
	e.advance()

	return e.w.WriteInt(v.Raw, nbits)
}

func (e *Encoder) ProcessAssociated(nbits int) error {
	v := e.current()
	e.advance()

	return e.w.WriteUint(uint64(v.Raw), nbits)
}

func (e *Encoder) ProcessSkippedLocal(nbits int) error {
	v := e.current()
	e.advance()

	return e.w.WriteUint(uint64(v.Raw), nbits)
}

func (e *Encoder) ProcessLiteralString(nbytes int) error {
	v := e.current()
	e.advance()

	return e.w.WriteBytes(stringToBytes(v, nbytes))
}

func (e *Encoder) ProcessDelayedFactor(factorEl *descriptor.Descriptor) (int, error) {
	v := e.current()
	e.advance()
	if v.Missing {
		return 0, errs.ErrProtocolViolation
	}
	raw := uint64(v.Raw)
	if err := e.w.WriteUint(raw, factorEl.Element.NBits); err != nil {
		return 0, err
	}

	return int(raw), nil
}

func (e *Encoder) ProcessNoValue() error {
	e.advance()

	return nil
}

func (e *Encoder) LastRawValue() (int64, bool) {
	idx := e.state.IdxValue - 1
	sub := e.state.CurrentSubset()
	if idx < 0 || idx >= len(sub.Values) {
		return 0, false
	}

	return sub.Values[idx].Raw, true
}

// Encode walks template members, writing to w and consuming state's
// pre-populated per-subset Values vectors.
func Encode(w *bitio.Writer, state *State, members []*descriptor.Descriptor) error {
	enc := NewEncoder(w, state)
	walker := NewWalker(state, enc)

	return walker.Walk(members)
}
