package domain_test

import (
	"testing"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRunConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := domain.DecodeRunConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultRecursionLimit, cfg.RecursionLimit)
	})

	t.Run("JSON Numbers And Strings", func(t *testing.T) {
		cfg, err := domain.DecodeRunConfig(map[string]any{
			"recursion_limit": float64(7),
			"run_id":          "run-1",
			"metadata":        map[string]any{"user": "ana"},
		})
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.RecursionLimit)
		assert.Equal(t, "run-1", cfg.RunID)
		assert.Equal(t, "ana", cfg.Metadata["user"])

		cfg, err = domain.DecodeRunConfig(map[string]any{"recursion_limit": "12"})
		require.NoError(t, err)
		assert.Equal(t, 12, cfg.RecursionLimit)
	})

	t.Run("Rejects Non Positive Limit", func(t *testing.T) {
		_, err := domain.DecodeRunConfig(map[string]any{"recursion_limit": 0})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("Rejects Unknown Keys", func(t *testing.T) {
		_, err := domain.DecodeRunConfig(map[string]any{"recursionLimit": 3})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}
