package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenDistributions(t *testing.T) {
	t.Run("concatenates in input order and sums interactions", func(t *testing.T) {
		flat, err := FlattenDistributions(3, []Distribution{
			NewDistribution(10, 2, 1, 2),
			NewDistribution(11, 5, 3, 4, 5),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, flat.ReceiverID)
		assert.Equal(t, []float64{1, 2, 3, 4, 5}, flat.Values)
		assert.Equal(t, 7, flat.TotalInteractions)
	})

	t.Run("single distribution is retagged without copying", func(t *testing.T) {
		d := NewDistribution(10, 2, 1, 2)
		flat, err := FlattenDistributions(-1, []Distribution{d})
		require.NoError(t, err)
		assert.Equal(t, -1, flat.ReceiverID)
		assert.Equal(t, d.Values, flat.Values)
		assert.Equal(t, 2, flat.TotalInteractions)
	})

	t.Run("empty input fails", func(t *testing.T) {
		_, err := FlattenDistributions(0, nil)
		assert.ErrorIs(t, err, ErrNoDistributions)
	})
}

func TestDistribution_String(t *testing.T) {
	d := NewDistribution(7, 3, 1.5, -2)
	assert.Equal(t, "7: 1.5,-2\ttotalInteractions=3", d.String())
}
