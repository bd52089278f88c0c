package basket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCartReference_CompositeLegacy(t *testing.T) {
	ref, err := ParseCartReference("cart_42_v_123_xyz")
	require.NoError(t, err)
	assert.Equal(t, RefLegacyID, ref.Kind)
	assert.Equal(t, int64(42), ref.LegacyID)
}

func TestParseCartReference_CompositeUUID(t *testing.T) {
	ref, err := ParseCartReference("cart_3fa85f64-5717-4562-b3fc-2c963f66afa6_v_1_1")
	require.NoError(t, err)
	assert.Equal(t, RefUUID, ref.Kind)
	assert.Equal(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", ref.UUID)
}

func TestParseCartReference_BareLegacy(t *testing.T) {
	ref, err := ParseCartReference("77")
	require.NoError(t, err)
	assert.Equal(t, RefLegacyID, ref.Kind)
	assert.Equal(t, int64(77), ref.LegacyID)
}

func TestParseCartReference_BareUUID(t *testing.T) {
	t.Run("lowercase", func(t *testing.T) {
		ref, err := ParseCartReference("3fa85f64-5717-4562-b3fc-2c963f66afa6")
		require.NoError(t, err)
		assert.Equal(t, RefUUID, ref.Kind)
		assert.Equal(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", ref.UUID)
	})

	t.Run("uppercase is canonicalized", func(t *testing.T) {
		ref, err := ParseCartReference("3FA85F64-5717-4562-B3FC-2C963F66AFA6")
		require.NoError(t, err)
		assert.Equal(t, RefUUID, ref.Kind)
		assert.Equal(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", ref.UUID)
	})
}

func TestParseCartReference_Unparseable(t *testing.T) {
	for _, raw := range []string{
		"not-an-id",
		"",
		"0",
		"-5",
		"3fa85f64-5717-4562-b3fc",                     // truncated UUID
		"{3fa85f64-5717-4562-b3fc-2c963f66afa6}",      // braced form not admitted
		"urn:uuid:3fa85f64-5717-4562-b3fc-2c963f66afa6",
	} {
		_, err := ParseCartReference(raw)
		require.ErrorIs(t, err, ErrUnparseableReference, "input %q", raw)
	}
}

func TestParseCartReference_CompositeZeroProduct(t *testing.T) {
	// A zero product segment is not a positive integer; it falls through to
	// the UUID candidate path and fails later at catalog lookup.
	ref, err := ParseCartReference("cart_0_v_1_1")
	require.NoError(t, err)
	assert.Equal(t, RefUUID, ref.Kind)
	assert.Equal(t, "0", ref.UUID)
}
