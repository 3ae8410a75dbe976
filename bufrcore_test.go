package bufrcore_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bufrgo/bufrcore"
	"github.com/bufrgo/bufrcore/coder"
	"github.com/bufrgo/bufrcore/section"
	"github.com/bufrgo/bufrcore/table"
)

func emptyProvider(t *testing.T) bufrcore.TableProvider {
	t.Helper()

	return bufrcore.TableProviderFunc(func(key table.Key) (*table.Group, error) {
		return table.NewGroup(key, nil, nil, nil)
	})
}

// buildEmptyTemplateMessage constructs the trivial message described by
// spec.md §8 Scenario 1: edition 4, no descriptors, nSubsets empty subsets.
func buildEmptyTemplateMessage(t *testing.T, nSubsets int) *bufrcore.Message {
	t.Helper()

	g, err := table.NewGroup(table.Key{}, nil, nil, nil)
	require.NoError(t, err)

	subsets := make([]*coder.SubsetState, nSubsets)
	for i := range subsets {
		subsets[i] = &coder.SubsetState{BitmapLinks: map[int]int{}}
	}

	return &bufrcore.Message{
		Section0: section.Section0{Edition: 4},
		Section1: section.Section1{
			MasterTable:        0,
			Centre:             0,
			Subcentre:          0,
			UpdateSequence:     0,
			HasSection2:        false,
			DataCategory:       0,
			LocalSubcategory:   0,
			MasterTableVersion: 18,
			LocalTableVersion:  0,
			Year:               2016,
			Month:              2,
			Day:                18,
			Hour:               23,
			Minute:             0,
			Second:             0,
		},
		Section3: section.Section3{
			NSubsets:              uint16(nSubsets),
			IsObserved:            true,
			IsCompressed:          false,
			UnexpandedDescriptors: nil,
		},
		Group:   g,
		Subsets: subsets,
	}
}

func TestEncodeTrivialEmptyTemplate(t *testing.T) {
	msg := buildEmptyTemplateMessage(t, 1)

	out, err := bufrcore.Encode(msg)
	require.NoError(t, err)

	require.Equal(t, []byte{'B', 'U', 'F', 'R'}, out[0:4])
	require.Equal(t, []byte{'7', '7', '7', '7'}, out[len(out)-4:])

	totalLen := uint32(out[4])<<16 | uint32(out[5])<<8 | uint32(out[6])
	require.Equal(t, uint32(len(out)), totalLen)
}

func TestDecodeEncodeRoundTripEmptyTemplate(t *testing.T) {
	msg := buildEmptyTemplateMessage(t, 1)

	encoded, err := bufrcore.Encode(msg)
	require.NoError(t, err)

	decoded, err := bufrcore.Decode(encoded, bufrcore.WithTableProvider(emptyProvider(t)))
	require.NoError(t, err)
	require.Equal(t, msg.Section0.Edition, decoded.Section0.Edition)
	require.Equal(t, 1, len(decoded.Subsets))
	require.Equal(t, msg.Section1.Year, decoded.Section1.Year)

	reencoded, err := bufrcore.Encode(decoded)
	require.NoError(t, err)
	require.Equal(t, encoded, reencoded)
}

func TestInfoHeaderOnlyLeavesTemplateNil(t *testing.T) {
	msg := buildEmptyTemplateMessage(t, 1)

	encoded, err := bufrcore.Encode(msg)
	require.NoError(t, err)

	info, err := bufrcore.Info(encoded, true)
	require.NoError(t, err)
	require.Nil(t, info.Template)
	require.Nil(t, info.Group)
	require.Equal(t, 1, int(info.Section3.NSubsets))
}

func TestSplitTwoMessages(t *testing.T) {
	msg := buildEmptyTemplateMessage(t, 1)

	one, err := bufrcore.Encode(msg)
	require.NoError(t, err)

	combined := append(append([]byte{}, one...), one...)

	sp := bufrcore.Split(combined)
	first, ok := sp.Next()
	require.True(t, ok)
	require.Equal(t, one, first)

	second, ok := sp.Next()
	require.True(t, ok)
	require.Equal(t, one, second)

	_, ok = sp.Next()
	require.False(t, ok)
	require.NoError(t, sp.Err())
}

func TestSubsetProjectsSelectedIndices(t *testing.T) {
	msg := buildEmptyTemplateMessage(t, 3)

	encoded, err := bufrcore.Encode(msg)
	require.NoError(t, err)

	decoded, err := bufrcore.Decode(encoded, bufrcore.WithTableProvider(emptyProvider(t)))
	require.NoError(t, err)
	require.Equal(t, 3, len(decoded.Subsets))

	projected, err := bufrcore.Subset(decoded, []int{0, 2})
	require.NoError(t, err)
	require.Equal(t, 2, len(projected.Subsets))
	require.Equal(t, 2, int(projected.Section3.NSubsets))

	_, err = bufrcore.Subset(decoded, []int{5})
	require.Error(t, err)
}

func TestTimestampReassembly(t *testing.T) {
	msg := buildEmptyTemplateMessage(t, 1)
	ts := msg.Section1.Timestamp()
	require.Equal(t, time.Date(2016, 2, 18, 23, 0, 0, 0, time.UTC), ts)
}

func TestDecodeStreamYieldsEveryMessage(t *testing.T) {
	msg := buildEmptyTemplateMessage(t, 1)
	good, err := bufrcore.Encode(msg)
	require.NoError(t, err)

	stream := append(append([]byte{}, good...), good...)

	var oks int
	err = bufrcore.DecodeStream(bytes.NewReader(stream), func(m *bufrcore.Message, decErr error) bool {
		require.NoError(t, decErr)
		oks++

		return true
	}, bufrcore.WithTableProvider(emptyProvider(t)))
	require.NoError(t, err)
	require.Equal(t, 2, oks)
}
