package bitio_test

import (
	"testing"

	"github.com/bufrgo/bufrcore/bitio"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	t.Run("unsigned values at various widths", func(t *testing.T) {
		w := bitio.NewWriter(4)
		require.NoError(t, w.WriteUint(5, 3))
		require.NoError(t, w.WriteUint(0, 1))
		require.NoError(t, w.WriteUint(1023, 10))
		require.NoError(t, w.WriteUint(0, 4))

		r := bitio.NewReader(w.Bytes())
		v, err := r.ReadUint(3)
		require.NoError(t, err)
		require.Equal(t, uint64(5), v)

		v, err = r.ReadUint(1)
		require.NoError(t, err)
		require.Equal(t, uint64(0), v)

		v, err = r.ReadUint(10)
		require.NoError(t, err)
		require.Equal(t, uint64(1023), v)
	})

	t.Run("sign magnitude integers", func(t *testing.T) {
		w := bitio.NewWriter(4)
		require.NoError(t, w.WriteInt(-42, 8))
		require.NoError(t, w.WriteInt(42, 8))

		r := bitio.NewReader(w.Bytes())
		v, err := r.ReadInt(8)
		require.NoError(t, err)
		require.Equal(t, int64(-42), v)

		v, err = r.ReadInt(8)
		require.NoError(t, err)
		require.Equal(t, int64(42), v)
	})

	t.Run("missing value sentinel", func(t *testing.T) {
		w := bitio.NewWriter(4)
		require.NoError(t, w.WriteUint(bitio.MissingValue(10), 10))

		r := bitio.NewReader(w.Bytes())
		_, missing, err := r.ReadUintOrMissing(10)
		require.NoError(t, err)
		require.True(t, missing)
	})

	t.Run("unaligned bytes", func(t *testing.T) {
		w := bitio.NewWriter(4)
		require.NoError(t, w.WriteUint(1, 3))
		require.NoError(t, w.WriteBytes([]byte("AB")))

		r := bitio.NewReader(w.Bytes())
		_, err := r.ReadUint(3)
		require.NoError(t, err)
		b, err := r.ReadBytes(2)
		require.NoError(t, err)
		require.Equal(t, []byte("AB"), b)
	})

	t.Run("read past end errors", func(t *testing.T) {
		r := bitio.NewReader([]byte{0xFF})
		_, err := r.ReadUint(9)
		require.Error(t, err)
	})

	t.Run("set uint back patches without moving cursor", func(t *testing.T) {
		w := bitio.NewWriter(4)
		require.NoError(t, w.WriteUint(0, 24)) // placeholder length
		require.NoError(t, w.WriteUint(7, 8))
		require.NoError(t, w.SetUint(0, 99, 24))

		r := bitio.NewReader(w.Bytes())
		v, err := r.ReadUint(24)
		require.NoError(t, err)
		require.Equal(t, uint64(99), v)
	})
}

func TestPooledWriterReleaseAllowsReuse(t *testing.T) {
	w1 := bitio.NewPooledWriter()
	require.NoError(t, w1.WriteBytes([]byte("BUFR")))
	out := append([]byte{}, w1.Bytes()...)
	require.Equal(t, []byte("BUFR"), out)
	w1.Release()

	w2 := bitio.NewPooledWriter()
	require.Equal(t, int64(0), w2.BitPos())
	require.NoError(t, w2.WriteBytes([]byte("7777")))
	require.Equal(t, []byte("7777"), w2.Bytes())
	w2.Release()
}
