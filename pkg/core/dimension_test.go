package core

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDimension(t *testing.T) {
	tests := []struct {
		token string
		want  Dimension
	}{
		{"0", Overworld},
		{"-1", Nether},
		{"1", End},
		{"minecraft:overworld", Overworld},
		{"minecraft:the_nether", Nether},
		{"minecraft:the_end", End},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseDimension(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDimension_Unrecognized(t *testing.T) {
	for _, token := range []string{"2", "-2", "300", "overworld", "minecraft:the_moon", "", "all"} {
		t.Run(token, func(t *testing.T) {
			_, err := ParseDimension(token)
			assert.ErrorIs(t, err, ErrDimensionUnrecognized)
		})
	}
}

func TestDimension_RoundTrip(t *testing.T) {
	for _, d := range Dimensions() {
		byName, err := ParseDimension(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, byName)

		byID, err := ParseDimension(strconv.Itoa(d.ID()))
		require.NoError(t, err)
		assert.Equal(t, d, byID)
	}
}

func TestDimension_Short(t *testing.T) {
	assert.Equal(t, "overworld", Overworld.Short())
	assert.Equal(t, "the_nether", Nether.Short())
	assert.Equal(t, "the_end", End.Short())
}

func TestResolveDimensionFilter(t *testing.T) {
	all, err := ResolveDimensionFilter("all")
	require.NoError(t, err)
	assert.Equal(t, []Dimension{Overworld, Nether, End}, all)

	byID, err := ResolveDimensionFilter("0")
	require.NoError(t, err)
	byName, err := ResolveDimensionFilter("minecraft:overworld")
	require.NoError(t, err)
	assert.Equal(t, byID, byName)

	_, err = ResolveDimensionFilter("ALL")
	assert.ErrorIs(t, err, ErrDimensionUnrecognized)

	_, err = ResolveDimensionFilter("5")
	assert.ErrorIs(t, err, ErrDimensionUnrecognized)
}
