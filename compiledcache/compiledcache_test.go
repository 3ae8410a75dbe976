package compiledcache_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bufrgo/bufrcore/compiledcache"
	"github.com/bufrgo/bufrcore/compress"
	"github.com/bufrgo/bufrcore/descriptor"
	"github.com/bufrgo/bufrcore/table"
)

func testKey() table.Key {
	return table.Key{RootDir: "testdata", MasterTableNumber: 0, Centre: 7, MasterVersion: 25}
}

func buildGroup(t *testing.T) *table.Group {
	t.Helper()
	bRows := []table.TableBRow{
		{ID: descriptor.NewID(0, 8, 2), Name: "VERTICAL SIGNIFICANCE", Unit: "CODE TABLE", NBits: 6},
		{ID: descriptor.NewID(0, 20, 11), Name: "CLOUD AMOUNT", Unit: "CODE TABLE", NBits: 4},
	}
	g, err := table.NewGroup(testKey(), bRows, nil, nil)
	require.NoError(t, err)

	return g
}

func TestCompile(t *testing.T) {
	g := buildGroup(t)
	ids := []descriptor.ID{descriptor.NewID(0, 8, 2), descriptor.NewID(0, 20, 11)}

	tpl, err := compiledcache.Compile(g, ids)
	require.NoError(t, err)
	require.Len(t, tpl.Members, 2)
	require.Equal(t, descriptor.KindElement, tpl.Members[0].Kind)
	require.Equal(t, testKey(), tpl.GroupKey)
	require.Equal(t, ids, tpl.DescriptorIDs)
}

func TestCacheHitAvoidsRecompile(t *testing.T) {
	g := buildGroup(t)
	ids := []descriptor.ID{descriptor.NewID(0, 8, 2)}

	c := compiledcache.NewCache(4)
	first, err := c.GetOrCompile(g, ids)
	require.NoError(t, err)

	second, ok := c.Get(ids, g.Key)
	require.True(t, ok)
	require.Same(t, first, second)
	require.Equal(t, 1, c.Len())
}

func TestCacheEviction(t *testing.T) {
	g := buildGroup(t)
	c := compiledcache.NewCache(2)

	ids1 := []descriptor.ID{descriptor.NewID(0, 8, 2)}
	ids2 := []descriptor.ID{descriptor.NewID(0, 20, 11)}
	ids3 := []descriptor.ID{descriptor.NewID(0, 8, 2), descriptor.NewID(0, 20, 11)}

	_, err := c.GetOrCompile(g, ids1)
	require.NoError(t, err)
	_, err = c.GetOrCompile(g, ids2)
	require.NoError(t, err)
	_, err = c.GetOrCompile(g, ids3)
	require.NoError(t, err)

	require.Equal(t, 2, c.Len())
	_, ok := c.Get(ids1, g.Key)
	require.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get(ids3, g.Key)
	require.True(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := buildGroup(t)
	ids := []descriptor.ID{descriptor.NewID(0, 8, 2), descriptor.NewID(0, 20, 11)}

	tpl, err := compiledcache.Compile(g, ids)
	require.NoError(t, err)

	for _, algo := range []compress.Algorithm{compress.AlgorithmNone, compress.AlgorithmZstd, compress.AlgorithmS2, compress.AlgorithmLZ4} {
		t.Run(algo.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, compiledcache.Save(&buf, tpl, algo))

			loaded, err := compiledcache.Load(&buf)
			require.NoError(t, err)
			require.Equal(t, tpl.GroupKey, loaded.GroupKey)
			require.Equal(t, tpl.DescriptorIDs, loaded.DescriptorIDs)
			require.Len(t, loaded.Members, len(tpl.Members))
			require.Equal(t, tpl.Members[0].ID, loaded.Members[0].ID)
			require.Equal(t, tpl.Members[0].Element.Name, loaded.Members[0].Element.Name)
		})
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := compiledcache.Load(bytes.NewReader([]byte{0, 1, 2, 3, 4}))
	require.Error(t, err)
}
