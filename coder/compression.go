package coder

import (
	"bytes"
	"math/bits"

	"github.com/bufrgo/bufrcore/bitio"
)

// NBitsForNBitsDiff is the fixed 6-bit width of the w_diff field that
// precedes every compressed field's deltas (spec.md §4.E.4).
const NBitsForNBitsDiff = 6

// MinDiff is the result of compressing one numeric/code-flag field's N
// transport-domain subset values.
type MinDiff struct {
	Min       uint64
	WDiff     int
	Deltas    []uint64 // len == N when WDiff > 0, else empty
	AllEqual  bool
	AllMiss   bool
}

// ComputeNumericMinDiff implements the encoder side of spec.md §4.E.4 for
// a numeric or code-flag field transmitted at transport width baseWidth
// across N subsets.
func ComputeNumericMinDiff(values []uint64, missing []bool, baseWidth int) MinDiff {
	n := len(values)

	allMissing := true
	for i := 0; i < n; i++ {
		if !missing[i] {
			allMissing = false

			break
		}
	}
	if allMissing {
		return MinDiff{Min: bitio.MissingValue(baseWidth), WDiff: 0, AllMiss: true}
	}

	var min, max uint64
	first := true
	allEqual := true
	var common uint64
	for i := 0; i < n; i++ {
		if missing[i] {
			allEqual = false

			continue
		}
		if first {
			min, max, common = values[i], values[i], values[i]
			first = false
		} else {
			if values[i] < min {
				min = values[i]
			}
			if values[i] > max {
				max = values[i]
			}
			if values[i] != common {
				allEqual = false
			}
		}
	}

	hasMissing := false
	for _, m := range missing {
		if m {
			hasMissing = true

			break
		}
	}

	if allEqual && !hasMissing {
		return MinDiff{Min: common, WDiff: 0, AllEqual: true}
	}

	diff := max - min
	naturalWidth := bits.Len64(diff + 1)
	if naturalWidth == 0 {
		naturalWidth = 1
	}
	if hasMissing && diff == (uint64(1)<<uint(naturalWidth))-1 {
		naturalWidth++
	}

	deltas := make([]uint64, n)
	sentinel := bitio.MissingValue(naturalWidth)
	for i := 0; i < n; i++ {
		if missing[i] {
			deltas[i] = sentinel
		} else {
			deltas[i] = values[i] - min
		}
	}

	return MinDiff{Min: min, WDiff: naturalWidth, Deltas: deltas}
}

// WriteNumericMinDiff serializes a MinDiff result: min at baseWidth,
// w_diff at NBitsForNBitsDiff bits, then N deltas at w_diff bits each.
func WriteNumericMinDiff(w *bitio.Writer, md MinDiff, baseWidth int) error {
	if err := w.WriteUint(md.Min, baseWidth); err != nil {
		return err
	}
	if err := w.WriteUint(uint64(md.WDiff), NBitsForNBitsDiff); err != nil {
		return err
	}
	for _, d := range md.Deltas {
		if err := w.WriteUint(d, md.WDiff); err != nil {
			return err
		}
	}

	return nil
}

// ReadNumericMinDiff is the decoder side: it reads min/w_diff/deltas and
// returns the per-subset transport values and missing flags. Per
// spec.md §4.E.4, when w_diff == 0 every subset shares min/missing; when
// w_diff > 0, a delta of 2^w_diff-1 marks that subset missing, and — to
// catch small-width code/flag fields whose sum equals the base-width
// sentinel — the reconstructed value is re-checked against the
// *base-width* missing sentinel as well.
func ReadNumericMinDiff(r *bitio.Reader, baseWidth, n int) (values []uint64, missing []bool, err error) {
	min, err := r.ReadUint(baseWidth)
	if err != nil {
		return nil, nil, err
	}

	wDiffU, err := r.ReadUint(NBitsForNBitsDiff)
	if err != nil {
		return nil, nil, err
	}
	wDiff := int(wDiffU)

	values = make([]uint64, n)
	missing = make([]bool, n)

	baseSentinel := bitio.MissingValue(baseWidth)

	if wDiff == 0 {
		isMissing := min == baseSentinel
		for i := 0; i < n; i++ {
			values[i] = min
			missing[i] = isMissing
		}

		return values, missing, nil
	}

	deltaSentinel := bitio.MissingValue(wDiff)
	for i := 0; i < n; i++ {
		d, err := r.ReadUint(wDiff)
		if err != nil {
			return nil, nil, err
		}
		if d == deltaSentinel {
			missing[i] = true
			values[i] = baseSentinel

			continue
		}
		v := min + d
		if v == baseSentinel {
			missing[i] = true
		}
		values[i] = v
	}

	return values, missing, nil
}

// StringMinDiff is the string-field analog of MinDiff.
type StringMinDiff struct {
	Min      []byte
	WBytes   int
	Values   [][]byte // len == N when WBytes > 0
	AllEqual bool
}

// ComputeStringMinDiff implements the string half of spec.md §4.E.4: if
// every subset's string is identical, transmit it once with w_diff_bytes
// = 0; otherwise transmit a zero-length min and every subset's string at
// the field's declared byte width.
func ComputeStringMinDiff(values [][]byte, wBytes int) StringMinDiff {
	allEqual := true
	for i := 1; i < len(values); i++ {
		if !bytes.Equal(values[i], values[0]) {
			allEqual = false

			break
		}
	}
	if allEqual && len(values) > 0 {
		return StringMinDiff{Min: values[0], WBytes: 0, AllEqual: true}
	}

	return StringMinDiff{Min: nil, WBytes: wBytes, Values: values}
}

// WriteStringMinDiff serializes a StringMinDiff.
func WriteStringMinDiff(w *bitio.Writer, md StringMinDiff, wBytes int) error {
	if md.AllEqual {
		padded := padOrTruncate(md.Min, wBytes)
		if err := w.WriteBytes(padded); err != nil {
			return err
		}

		return w.WriteUint(0, NBitsForNBitsDiff)
	}

	if err := w.WriteBytes(make([]byte, 0)); err != nil {
		return err
	}
	if err := w.WriteUint(uint64(wBytes*8), NBitsForNBitsDiff); err != nil {
		return err
	}
	for _, v := range md.Values {
		if err := w.WriteBytes(padOrTruncate(v, wBytes)); err != nil {
			return err
		}
	}

	return nil
}

func padOrTruncate(b []byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	copy(out, b)

	return out
}

// ReadStringMinDiff reads a compressed string field for n subsets given
// the field's declared byte width.
func ReadStringMinDiff(r *bitio.Reader, wBytes, n int) ([][]byte, error) {
	min, err := r.ReadBytes(0)
	if err != nil {
		return nil, err
	}
	_ = min

	wDiffBitsU, err := r.ReadUint(NBitsForNBitsDiff)
	if err != nil {
		return nil, err
	}
	wDiffBits := int(wDiffBitsU)

	out := make([][]byte, n)
	if wDiffBits == 0 {
		v, err := r.ReadBytes(wBytes)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = v
		}

		return out, nil
	}

	byteWidth := wDiffBits / 8
	for i := 0; i < n; i++ {
		v, err := r.ReadBytes(byteWidth)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}
