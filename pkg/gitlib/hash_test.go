package gitlib_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

const sampleHex = "a94a8fe5ccb19ba61c4c0873d391e987982fbbd3"

func TestParseHash(t *testing.T) {
	t.Parallel()

	h, err := gitlib.ParseHash(sampleHex)
	require.NoError(t, err)

	assert.Equal(t, sampleHex, h.String())
	assert.Equal(t, "a94a8fe", h.Short())
	assert.False(t, h.IsZero())
}

func TestParseHashInvalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "abc", sampleHex[:39] + "z", sampleHex + "0"} {
		_, err := gitlib.ParseHash(input)
		require.ErrorIs(t, err, gitlib.ErrInvalidHash, input)
		assert.True(t, gitlib.IsConfigurationError(err))
	}
}

func TestHashOidRoundTrip(t *testing.T) {
	t.Parallel()

	h, err := gitlib.ParseHash(sampleHex)
	require.NoError(t, err)

	assert.Equal(t, h, gitlib.HashFromOid(h.ToOid()))
	assert.True(t, gitlib.HashFromOid(nil).IsZero())
}

func TestHashCompare(t *testing.T) {
	t.Parallel()

	low, err := gitlib.ParseHash("0000000000000000000000000000000000000001")
	require.NoError(t, err)

	high, err := gitlib.ParseHash("f000000000000000000000000000000000000000")
	require.NoError(t, err)

	assert.Negative(t, low.Compare(high))
	assert.Positive(t, high.Compare(low))
	assert.Zero(t, low.Compare(low))
}

func TestHashJSON(t *testing.T) {
	t.Parallel()

	h, err := gitlib.ParseHash(sampleHex)
	require.NoError(t, err)

	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+sampleHex+`"`, string(data))

	var decoded gitlib.Hash

	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, h, decoded)
}
