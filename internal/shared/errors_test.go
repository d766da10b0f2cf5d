package shared

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidInputError(t *testing.T) {
	t.Run("message includes field", func(t *testing.T) {
		err := NewInvalidInput("recipe.name", "is required")
		assert.Equal(t, "invalid input: recipe.name is required", err.Error())
	})

	t.Run("message without field", func(t *testing.T) {
		err := &InvalidInputError{Reason: "count must be >= 0"}
		assert.Equal(t, "invalid input: count must be >= 0", err.Error())
	})

	t.Run("detected through wrapping", func(t *testing.T) {
		err := fmt.Errorf("failed to score: %w", NewInvalidInput("preferences.fish_per_week", "must be >= 0"))
		assert.True(t, IsInvalidInput(err))
		assert.False(t, IsInvalidInput(fmt.Errorf("boom")))
	})
}
