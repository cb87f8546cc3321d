package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustIntToUint32(t *testing.T) {
	t.Parallel()

	t.Run("normal_value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(42), MustIntToUint32(42))
	})

	t.Run("max_uint32", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, MaxUint32, MustIntToUint32(int(MaxUint32)))
	})

	t.Run("negative_panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "safeconv: int to uint32 out of bounds", func() {
			MustIntToUint32(-1)
		})
	})
}

func TestUint64ToInt(t *testing.T) {
	t.Parallel()

	got, ok := Uint64ToInt(7)
	assert.True(t, ok)
	assert.Equal(t, 7, got)

	_, ok = Uint64ToInt(math.MaxUint64)
	assert.False(t, ok)
}

func TestFloorToInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"positive_fraction", 2.9, 2},
		{"negative_fraction", -0.5, -1},
		{"zero", 0, 0},
		{"nan", math.NaN(), 0},
		{"positive_infinity", math.Inf(1), MaxInt},
		{"negative_infinity", math.Inf(-1), -MaxInt - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, FloorToInt(tt.in))
		})
	}
}
