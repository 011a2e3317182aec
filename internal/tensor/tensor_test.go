package tensor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
)

func randomBatch(rng *rand.Rand, samples int, widths []int) []Tensor {
	out := make([]Tensor, samples)
	for s := range out {
		out[s] = make(Tensor, len(widths))
		for c, w := range widths {
			v := make(Vec, w)
			for i := range v {
				v[i] = rng.NormFloat64()
			}
			out[s][c] = v
		}
	}
	return out
}

// TestLayoutRoundTrip checks sample-major -> channel-major -> sample-major is exact.
func TestLayoutRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cases := []struct {
		samples int
		widths  []int
	}{
		{1, []int{1}},
		{5, []int{3}},
		{4, []int{2, 7, 1}},
		{9, []int{4, 4}},
	}
	for _, tc := range cases {
		batch := randomBatch(rng, tc.samples, tc.widths)

		chans, err := ChannelMajor(batch)
		require.NoError(t, err)
		require.Len(t, chans, len(tc.widths))
		for c := range chans {
			require.Len(t, chans[c], tc.samples)
		}

		back, err := SampleMajor(chans)
		require.NoError(t, err)
		require.Len(t, back, tc.samples)
		for s := range batch {
			assert.True(t, Equal(batch[s], back[s]), "sample %d differs", s)
		}
	}
}

func TestChannelMajorTransposes(t *testing.T) {
	batch := []Tensor{
		{{1, 2}, {3}},
		{{4, 5}, {6}},
	}
	chans, err := ChannelMajor(batch)
	require.NoError(t, err)

	assert.Equal(t, Tensor{{1, 2}, {4, 5}}, chans[0])
	assert.Equal(t, Tensor{{3}, {6}}, chans[1])

	// copies, not views
	chans[0][0][0] = 100
	assert.Equal(t, 1.0, batch[0][0][0])
}

func TestChannelMajorRagged(t *testing.T) {
	_, err := ChannelMajor([]Tensor{{{1}, {2}}, {{3}}})
	require.Error(t, err)
	assert.Equal(t, nnerr.RuntimeShape, nnerr.KindOf(err))
	assert.ErrorIs(t, err, nnerr.ErrSizeMismatch)

	_, err = ChannelMajor([]Tensor{{{1, 2}}, {{3}}})
	assert.ErrorIs(t, err, nnerr.ErrSizeMismatch)

	_, err = SampleMajor([]Tensor{{{1}, {2}}, {{3}}})
	assert.ErrorIs(t, err, nnerr.ErrSizeMismatch)
}

func TestEmptyLayouts(t *testing.T) {
	chans, err := ChannelMajor(nil)
	require.NoError(t, err)
	assert.Empty(t, chans)

	samples, err := SampleMajor(nil)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestNewShape3D(t *testing.T) {
	s, err := NewShape3D(4, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 24, s.Size())
	assert.Equal(t, "4x2x3", s.String())

	for _, dims := range [][3]int{{0, 1, 1}, {1, -1, 1}, {1, 1, 0}} {
		_, err := NewShape3D(dims[0], dims[1], dims[2])
		assert.ErrorIs(t, err, nnerr.ErrInvalidShape)
		assert.Equal(t, nnerr.Construction, nnerr.KindOf(err))
	}
}

func TestVecHelpers(t *testing.T) {
	v := Vec{0.1, 0.9, 0.9, -2}
	assert.Equal(t, 1, v.MaxIndex())
	assert.Equal(t, -1, Vec{}.MaxIndex())

	c := v.Clone()
	c[0] = 5
	assert.Equal(t, 0.1, v[0])

	z := Zeros(2, 3)
	assert.Equal(t, Tensor{{0, 0, 0}, {0, 0, 0}}, z)
	z.Fill(1)
	assert.Equal(t, Tensor{{1, 1, 1}, {1, 1, 1}}, z)

	assert.True(t, Equal(Tensor{{1, 2}}, Tensor{{1, 2}}))
	assert.False(t, Equal(Tensor{{1, 2}}, Tensor{{1}}))
	assert.False(t, Equal(Tensor{{1, 2}}, Tensor{{1, 3}}))
}

func TestWrap(t *testing.T) {
	got := Wrap([]Vec{{1, 2}, {3, 4}})
	assert.Equal(t, []Tensor{{{1, 2}}, {{3, 4}}}, got)
}
