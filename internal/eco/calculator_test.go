package eco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftride/dispatch/pkg/common"
)

func TestForDistance(t *testing.T) {
	t.Run("fifteen km saves one litre", func(t *testing.T) {
		impact, err := ForDistance(15)
		require.NoError(t, err)
		assert.Equal(t, 1.0, impact.FuelSavedL)
		assert.Equal(t, 2.31, impact.CO2SavedKg)
		assert.InDelta(t, 2.31/21.77, impact.TreesEquivalent, 1e-9)
	})

	t.Run("zero distance saves nothing", func(t *testing.T) {
		impact, err := ForDistance(0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, impact.CO2SavedKg)
		assert.Equal(t, 0.0, impact.FuelSavedL)
		assert.Equal(t, 0.0, impact.TreesEquivalent)
	})

	t.Run("trees equivalent stays fractional", func(t *testing.T) {
		impact, err := ForDistance(12)
		require.NoError(t, err)
		assert.Greater(t, impact.TreesEquivalent, 0.0)
		assert.Less(t, impact.TreesEquivalent, 1.0)
		// Not rounded to whole trees.
		assert.NotEqual(t, float64(int(impact.TreesEquivalent)), impact.TreesEquivalent)
	})

	t.Run("negative distance rejected", func(t *testing.T) {
		impact, err := ForDistance(-1)
		require.Error(t, err)
		assert.Nil(t, impact)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})
}
