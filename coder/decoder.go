package coder

import (
	"github.com/bufrgo/bufrcore/bitio"
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/errs"
)

// Decoder implements Hooks by reading from a bitio.Reader and populating
// State.Subsets[*].Values. In uncompressed mode it decodes the single
// currently-selected subset; in compressed mode each call decodes one
// field's min/diff block and fans the N resulting values out across
// every subset at once, per spec.md §4.E.4/§4.F.
type Decoder struct {
	r     *bitio.Reader
	state *State
}

// NewDecoder builds a Decoder reading template data from r under state.
func NewDecoder(r *bitio.Reader, state *State) *Decoder {
	return &Decoder{r: r, state: state}
}

var _ Hooks = (*Decoder)(nil)

func (d *Decoder) appendValue(v Value) {
	sub := d.state.CurrentSubset()
	sub.Values = append(sub.Values, v)
}

func (d *Decoder) appendValueAllSubsets(values []Value) {
	for i, v := range values {
		d.state.Subsets[i].Values = append(d.state.Subsets[i].Values, v)
	}
}

func decodeNumericFromRaw(raw uint64, missing bool, effScale int, effRefVal int64) Value {
	if missing {
		return Value{Kind: ValNumeric, Missing: true}
	}

	phys := (float64(int64(raw)+effRefVal)) / pow10Float(effScale)

	return Value{Kind: ValNumeric, Num: phys, Raw: int64(raw)}
}

func pow10Float(scale int) float64 {
	v := 1.0
	neg := scale < 0
	n := scale
	if neg {
		n = -n
	}
	for i := 0; i < n; i++ {
		v *= 10
	}
	if neg {
		return 1 / v
	}

	return v
}

func (d *Decoder) ProcessNumeric(el *descriptor.Descriptor, effNBits, effScale int, effRefVal int64) error {
	if !d.state.IsCompressed {
		raw, missing, err := d.r.ReadUintOrMissing(effNBits)
		if err != nil {
			return err
		}
		d.appendValue(decodeNumericFromRaw(raw, missing, effScale, effRefVal))

		return nil
	}

	values, missing, err := ReadNumericMinDiff(d.r, effNBits, d.state.NSubsets)
	if err != nil {
		return err
	}
	out := make([]Value, d.state.NSubsets)
	for i := range out {
		out[i] = decodeNumericFromRaw(values[i], missing[i], effScale, effRefVal)
	}
	d.appendValueAllSubsets(out)

	return nil
}

func (d *Decoder) ProcessCodeFlag(el *descriptor.Descriptor, nbits int) error {
	if !d.state.IsCompressed {
		raw, missing, err := d.r.ReadUintOrMissing(nbits)
		if err != nil {
			return err
		}
		d.appendValue(Value{Kind: ValCodeFlag, Raw: int64(raw), Missing: missing})

		return nil
	}

	values, missing, err := ReadNumericMinDiff(d.r, nbits, d.state.NSubsets)
	if err != nil {
		return err
	}
	out := make([]Value, d.state.NSubsets)
	for i := range out {
		out[i] = Value{Kind: ValCodeFlag, Raw: int64(values[i]), Missing: missing[i]}
	}
	d.appendValueAllSubsets(out)

	return nil
}

func (d *Decoder) ProcessString(el *descriptor.Descriptor, nbytes int) error {
	if !d.state.IsCompressed {
		b, err := d.r.ReadBytes(nbytes)
		if err != nil {
			return err
		}
		d.appendValue(stringValue(b))

		return nil
	}

	vals, err := ReadStringMinDiff(d.r, nbytes, d.state.NSubsets)
	if err != nil {
		return err
	}
	out := make([]Value, d.state.NSubsets)
	for i, b := range vals {
		out[i] = stringValue(b)
	}
	d.appendValueAllSubsets(out)

	return nil
}

func stringValue(b []byte) Value {
	allFF := true
	for _, c := range b {
		if c != 0xFF {
			allFF = false

			break
		}
	}
	if allFF && len(b) > 0 {
		return Value{Kind: ValString, Missing: true}
	}

	return Value{Kind: ValString, Str: string(b)}
}

func (d *Decoder) ProcessConstant(value int64, nbits int) error {
	v, err := d.r.ReadUint(nbits)
	if err != nil {
		return err
	}
	d.appendValue(Value{Kind: ValCodeFlag, Raw: int64(v)})

	return nil
}

func (d *Decoder) ProcessNewRefVal(el *descriptor.Descriptor, nbits int) error {
	v, err := d.r.ReadInt(nbits)
	if err != nil {
		return err
	}
	d.appendValue(Value{Kind: ValCodeFlag, Raw: v})

	return nil
}

func (d *Decoder) ProcessAssociated(nbits int) error {
	v, err := d.r.ReadUint(nbits)
	if err != nil {
		return err
	}
	d.appendValue(Value{Kind: ValCodeFlag, Raw: int64(v)})

	return nil
}

func (d *Decoder) ProcessSkippedLocal(nbits int) error {
	v, err := d.r.ReadUint(nbits)
	if err != nil {
		return err
	}
	d.appendValue(Value{Kind: ValCodeFlag, Raw: int64(v)})

	return nil
}

func (d *Decoder) ProcessLiteralString(nbytes int) error {
	b, err := d.r.ReadBytes(nbytes)
	if err != nil {
		return err
	}
	d.appendValue(stringValue(b))

	return nil
}

func (d *Decoder) ProcessDelayedFactor(factorEl *descriptor.Descriptor) (int, error) {
	raw, missing, err := d.r.ReadUintOrMissing(factorEl.Element.NBits)
	if err != nil {
		return 0, err
	}
	if missing {
		return 0, errs.ErrProtocolViolation
	}
	d.appendValue(Value{Kind: ValNumeric, Num: float64(raw), Raw: int64(raw)})

	return int(raw), nil
}

func (d *Decoder) ProcessNoValue() error {
	d.appendValue(Value{Kind: ValNone})

	return nil
}

func (d *Decoder) LastRawValue() (int64, bool) {
	sub := d.state.CurrentSubset()
	if len(sub.Values) == 0 {
		return 0, false
	}

	return sub.Values[len(sub.Values)-1].Raw, true
}

// Decode walks template members against r, populating state's per-subset
// vectors. Uncompressed messages must call this once per subset with
// state.IdxSubset set via SwitchSubset beforehand; compressed messages
// call it once and every subset is populated in the same pass.
func Decode(r *bitio.Reader, state *State, members []*descriptor.Descriptor) error {
	dec := NewDecoder(r, state)
	walker := NewWalker(state, dec)
	if err := walker.Walk(members); err != nil {
		return err
	}

	if state.IsCompressed {
		shared := state.Subsets[0].Descriptors
		for i := 1; i < len(state.Subsets); i++ {
			state.Subsets[i].Descriptors = shared
		}
	}

	return nil
}
