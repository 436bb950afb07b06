package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDeterministic(t *testing.T) {
	a := Compute([]string{"load", "select"}, "func select() {}")
	b := Compute([]string{"load", "select"}, "func select() {}")
	assert.Equal(t, a, b)
}

func TestComputeShape(t *testing.T) {
	fp := Compute([]string{"root"}, "src")
	require.Len(t, fp, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", fp)
}

func TestComputeSensitivity(t *testing.T) {
	base := Compute([]string{"load", "select"}, "func select() {}")

	t.Run("source change", func(t *testing.T) {
		assert.NotEqual(t, base, Compute([]string{"load", "select"}, "func select() { }"))
	})

	t.Run("own name change", func(t *testing.T) {
		assert.NotEqual(t, base, Compute([]string{"load", "select2"}, "func select() {}"))
	})

	t.Run("ancestor name change", func(t *testing.T) {
		assert.NotEqual(t, base, Compute([]string{"load2", "select"}, "func select() {}"))
	})

	t.Run("chain length change", func(t *testing.T) {
		assert.NotEqual(t, base, Compute([]string{"load", "filter", "select"}, "func select() {}"))
	})
}

func TestComputeNoBoundaryAmbiguity(t *testing.T) {
	// The last name must not be able to masquerade as source text.
	assert.NotEqual(t, Compute([]string{"a", "b"}, ""), Compute([]string{"a"}, "b"))
	assert.NotEqual(t, Compute([]string{"a"}, "\nb"), Compute([]string{"a", "b"}, ""))
}
